package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var auditMonth string

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Generate a validation audit report for a month",
	Long:  "Runs batch and cross-batch anomaly checks over the month's persisted revenue, comparing against the previous month for variance.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if auditMonth == "" {
			return eris.New("--month is required (YYYY-MM)")
		}

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		report, err := e.Detector.ReportFromStore(ctx, e.Store, auditMonth)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	auditCmd.Flags().StringVar(&auditMonth, "month", "", "month to audit YYYY-MM (required)")
	rootCmd.AddCommand(auditCmd)
}
