package main

import (
	"os"

	"github.com/spf13/cobra"

	"marineprep/internal/templating"
)

func newRenderCmd(a *app) *cobra.Command {
	var (
		output  string
		values  map[string]string
		noCycle bool
	)

	cmd := &cobra.Command{
		Use:   "render TEMPLATE",
		Short: "Fill the $(KEY) placeholders of a YAML template",
		Long: `Renders TEMPLATE with the cycle values from the environment, overlaid with
any --set values. With --no-cycle only --set values are available.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base := map[string]string{}
			if !noCycle {
				cy, err := a.cycle("")
				if err != nil {
					return err
				}
				base = cy.TemplateValues()
			}
			ctx := templating.NewContext(base, values)

			if output != "" && output != "-" {
				if err := templating.RenderFile(args[0], output, ctx); err != nil {
					return err
				}
				a.log.Infow("Rendered template", "template", args[0], "file", output)
				return nil
			}

			tmpl, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			out, err := templating.Render(tmpl, ctx)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(out)
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file, - for stdout")
	cmd.Flags().StringToStringVar(&values, "set", nil, "Extra template values, KEY=VALUE")
	cmd.Flags().BoolVar(&noCycle, "no-cycle", false, "Do not read cycle values from the environment")
	return cmd
}
