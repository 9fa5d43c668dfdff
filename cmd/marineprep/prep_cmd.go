package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

func newPrepCmd(a *app) *cobra.Command {
	var (
		cdate      string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "prep",
		Short: "Prepare the analysis directory for the cycle in the environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			recorder, closeDB, err := a.recorder(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			summary, err := a.runCycle(cmd.Context(), cdate, recorder)
			if err != nil {
				return err
			}

			a.log.Infow("Cycle prepared",
				"cycle", summary.Cycle,
				"analysis_dir", summary.AnalysisDir,
				"observations", len(summary.Observations),
				"backgrounds", summary.States,
				"repair_applied", summary.Repair.Applied,
				"repair_skipped", summary.Repair.Skipped,
				"repair_failed", summary.Repair.Failed,
				"documents", len(summary.Documents),
			)
			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cdate, "cdate", "", "Cycle date YYYYMMDDHH (default: CDATE from the environment)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run summary as JSON")
	return cmd
}
