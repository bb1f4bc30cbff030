package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var unassignedMonth string

var unassignedCmd = &cobra.Command{
	Use:   "unassigned",
	Short: "List merchants with revenue but no commission splits",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if unassignedMonth == "" {
			return eris.New("--month is required (YYYY-MM)")
		}

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		summary, err := e.Engine.UnassignedSummary(ctx, unassignedMonth)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	unassignedCmd.Flags().StringVar(&unassignedMonth, "month", "", "month YYYY-MM (required)")
	rootCmd.AddCommand(unassignedCmd)
}
