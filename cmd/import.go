package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/residuals-cli/internal/importer"
)

var (
	importMonth       string
	importProcessor   string
	importDir         string
	importConcurrency int
)

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import processor residual files",
	Long:  "Imports a single residual file, or with --dir every CSV/XLSX file in a directory, into the revenue table for the given month.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if importMonth == "" {
			return eris.New("--month is required (YYYY-MM)")
		}
		if importDir == "" && len(args) == 0 {
			return eris.New("a file argument or --dir is required")
		}

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		if importDir != "" {
			concurrency := importConcurrency
			if concurrency == 0 {
				concurrency = cfg.Import.Concurrency
			}
			batch, err := e.Importer.ImportDir(ctx, importDir, importMonth, concurrency)
			if err != nil {
				return err
			}
			zap.L().Info("directory import complete",
				zap.Int("files", len(batch.Results)),
				zap.Int("records", batch.TotalImported),
			)
			return json.NewEncoder(os.Stdout).Encode(batch)
		}

		result, err := e.Importer.ImportFile(ctx, args[0], importer.Options{
			Processor: importProcessor,
			Month:     importMonth,
		})
		if err != nil {
			return err
		}
		zap.L().Info("import complete",
			zap.String("processor", result.Processor),
			zap.Int("records", result.RecordsImported),
			zap.Int("issues", len(result.Issues)),
		)
		return json.NewEncoder(os.Stdout).Encode(result)
	},
}

func init() {
	importCmd.Flags().StringVar(&importMonth, "month", "", "statement month YYYY-MM (required)")
	importCmd.Flags().StringVar(&importProcessor, "processor", "", "processor name (skips format detection)")
	importCmd.Flags().StringVar(&importDir, "dir", "", "import every residual file in this directory")
	importCmd.Flags().IntVar(&importConcurrency, "concurrency", 0, "parallel files for --dir (default from config)")
	rootCmd.AddCommand(importCmd)
}
