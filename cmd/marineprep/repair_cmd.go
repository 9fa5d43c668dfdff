package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"marineprep/internal/manifest"
	"marineprep/internal/ncrepair"
)

func newRepairCmd(a *app) *cobra.Command {
	var backend string

	cmd := &cobra.Command{
		Use:   "repair [FILE...]",
		Short: "Replace the fill value attributes of background files",
		Long: `Overwrites and then deletes the configured attributes (repair.attributes) of
the configured variables (repair.variables). With no FILE arguments the
backgrounds in COMIN_GES matching manifest.pattern are repaired.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if backend != "" {
				a.cfg.Repair.Backend = backend
			}
			editor, err := a.editor()
			if err != nil {
				return err
			}

			files := args
			if len(files) == 0 {
				cy, err := a.cycle("")
				if err != nil {
					return err
				}
				if files, err = manifest.Match(cy.ComInGes, a.cfg.Manifest.Pattern); err != nil {
					return err
				}
			}

			rc := a.cfg.Repair
			r := &ncrepair.Repairer{Editor: editor, Log: a.log}
			report := r.Repair(cmd.Context(), files, ncrepair.Plan(rc.Variables, rc.Attributes, rc.Sentinel))
			a.log.Infow("Repair finished",
				"files", len(files),
				"applied", report.Applied,
				"skipped", report.Skipped,
				"failed", report.Failed,
			)
			if report.Failed > 0 {
				return fmt.Errorf("%d attribute edits failed: %w", report.Failed, report.Err())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&backend, "backend", "", "Repair backend, native or ncatted (default: repair.backend)")
	return cmd
}
