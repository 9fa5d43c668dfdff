package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"marineprep/internal/manifest"
)

func newManifestCmd(a *app) *cobra.Command {
	var (
		dir         string
		pattern     string
		windowBegin string
		output      string
		validate    bool
	)

	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Write the background manifest (bkg_list.yaml)",
		Long: `Lists the background files in --dir matching --pattern and assigns them
hourly times starting one hour after --window-begin. Values not given on the
command line come from the cycle environment.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var begin time.Time
			if windowBegin != "" {
				t, err := time.Parse(time.RFC3339, windowBegin)
				if err != nil {
					return fmt.Errorf("invalid --window-begin: %w", err)
				}
				begin = t.UTC()
			}
			if dir == "" || begin.IsZero() {
				cy, err := a.cycle("")
				if err != nil {
					return err
				}
				if dir == "" {
					dir = cy.ComInGes
				}
				if begin.IsZero() {
					begin = cy.WindowBegin
				}
			}
			if pattern == "" {
				pattern = a.cfg.Manifest.Pattern
			}

			files, err := manifest.Match(dir, pattern)
			if err != nil {
				return err
			}
			if validate || a.cfg.Manifest.ValidateTimes {
				if err := manifest.ValidateWindow(begin, files); err != nil {
					return err
				}
			}
			m := manifest.Build(begin, dir, files)

			if output == "" || output == "-" {
				data, err := m.Marshal()
				if err != nil {
					return err
				}
				_, err = os.Stdout.Write(data)
				return err
			}
			if err := m.Write(output); err != nil {
				return err
			}
			if len(m.States) == 0 {
				a.log.Warnw("No background files matched", "dir", dir, "pattern", pattern)
			}
			a.log.Infow("Wrote background manifest", "file", output, "states", len(m.States))
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Background directory (default: COMIN_GES)")
	cmd.Flags().StringVar(&pattern, "pattern", "", "Background file pattern (default: manifest.pattern)")
	cmd.Flags().StringVar(&windowBegin, "window-begin", "", "Window begin, RFC 3339 (default: from CDATE and assim_freq)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file, - for stdout")
	cmd.Flags().BoolVar(&validate, "validate-times", false, "Fail unless forecast hours are consecutive and aligned with the window")
	return cmd
}
