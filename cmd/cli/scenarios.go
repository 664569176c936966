package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/emirozbir/incident-triage/internal/report"
)

func newScenariosCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios [name]",
		Short: "Render the built-in reference scenarios (npe, oomkilled, timeout)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, renderer, logger, err := root.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			scenarios, err := report.Scenarios()
			if err != nil {
				return err
			}

			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return renderScenarios(cmd.OutOrStdout(), renderer, scenarios, name, root.format, !root.noColor)
		},
	}
}

func renderScenarios(w io.Writer, renderer *report.Renderer, scenarios []report.Scenario, name, format string, colors bool) error {
	found := false
	for _, scenario := range scenarios {
		if name != "" && scenario.Name != name {
			continue
		}
		found = true

		result, err := renderer.Render(scenario.Input)
		if err != nil {
			return fmt.Errorf("failed to render scenario %s: %w", scenario.Name, err)
		}
		if format == formatMarkdown {
			fmt.Fprintf(w, "<!-- scenario: %s -->\n", scenario.Name)
		}
		if err := writeResult(w, result, format, colors); err != nil {
			return err
		}
	}
	if !found {
		return fmt.Errorf("unknown scenario %q", name)
	}
	return nil
}
