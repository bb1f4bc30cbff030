package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/residuals-cli/internal/model"
)

var (
	assignRulesPath string
	assignFromMonth string
	assignToMonth   string
	assignMerchants []string
	assignMonth     string
	assignProcessor string
	assignSplits    string
)

var assignCmd = &cobra.Command{
	Use:   "assign",
	Short: "Manage commission split assignments",
}

var assignBulkCmd = &cobra.Command{
	Use:   "bulk",
	Short: "Apply explicit merchant/split rules from a JSON file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		var rules []model.AssignRule
		if err := readRules(assignRulesPath, &rules); err != nil {
			return err
		}

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		result, err := e.Engine.BulkAssign(ctx, rules)
		if err != nil {
			return err
		}
		return json.NewEncoder(os.Stdout).Encode(result)
	},
}

var assignSmartCmd = &cobra.Command{
	Use:   "smart",
	Short: "Apply revenue-filtered rules from a JSON file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		var rules []model.SmartRule
		if err := readRules(assignRulesPath, &rules); err != nil {
			return err
		}

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		result, err := e.Engine.SmartAssign(ctx, rules)
		if err != nil {
			return err
		}
		return json.NewEncoder(os.Stdout).Encode(result)
	},
}

var assignProcessorCmd = &cobra.Command{
	Use:   "processor",
	Short: "Apply one split set to every merchant under a processor",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if assignMonth == "" || assignProcessor == "" {
			return eris.New("--month and --processor are required")
		}
		var splits []model.Split
		if err := json.Unmarshal([]byte(assignSplits), &splits); err != nil {
			return eris.Wrap(err, "parse --splits")
		}

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		result, err := e.Engine.AssignByProcessor(ctx, assignMonth, assignProcessor, splits)
		if err != nil {
			return err
		}
		return json.NewEncoder(os.Stdout).Encode(result)
	},
}

var assignCopyCmd = &cobra.Command{
	Use:   "copy",
	Short: "Copy assignment sets from one month to another",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if assignFromMonth == "" || assignToMonth == "" {
			return eris.New("--from and --to are required (YYYY-MM)")
		}

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		result, err := e.Engine.CopyForward(ctx, assignFromMonth, assignToMonth, assignMerchants)
		if err != nil {
			return err
		}
		return json.NewEncoder(os.Stdout).Encode(result)
	},
}

func readRules(path string, v any) error {
	if path == "" {
		return eris.New("--rules is required (JSON file)")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "read rules %s", path)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return eris.Wrapf(err, "parse rules %s", path)
	}
	return nil
}

func init() {
	assignBulkCmd.Flags().StringVar(&assignRulesPath, "rules", "", "path to JSON rules file (required)")
	assignSmartCmd.Flags().StringVar(&assignRulesPath, "rules", "", "path to JSON rules file (required)")

	assignProcessorCmd.Flags().StringVar(&assignMonth, "month", "", "month YYYY-MM (required)")
	assignProcessorCmd.Flags().StringVar(&assignProcessor, "processor", "", "processor name (required)")
	assignProcessorCmd.Flags().StringVar(&assignSplits, "splits", "", `splits JSON, e.g. [{"role_id":"agent","percentage":60},{"role_id":"company","percentage":40}]`)

	assignCopyCmd.Flags().StringVar(&assignFromMonth, "from", "", "source month YYYY-MM (required)")
	assignCopyCmd.Flags().StringVar(&assignToMonth, "to", "", "target month YYYY-MM (required)")
	assignCopyCmd.Flags().StringSliceVar(&assignMerchants, "merchants", nil, "optional merchant id subset")

	assignCmd.AddCommand(assignBulkCmd, assignSmartCmd, assignProcessorCmd, assignCopyCmd)
	rootCmd.AddCommand(assignCmd)
}
