package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/emirozbir/incident-triage/internal/collectors"
	"github.com/emirozbir/incident-triage/internal/diagnosis"
	"github.com/emirozbir/incident-triage/internal/ui"
)

func newRenderCmd(root *rootOptions) *cobra.Command {
	var namespace, pod string

	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Render a report from a JSON diagnosis file, or stdin with -",
		Example: `  triage render diagnosis.json
  triage render diagnosis.json --pod payment-service-abc123 --namespace payments -f terminal
  cat diagnosis.json | triage render - -f json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, renderer, logger, err := root.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			data, err := readInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			input, err := diagnosis.ParseInput(data)
			if err != nil {
				return err
			}

			var pods diagnosis.PodInspector
			var progress ui.ProgressReporter = ui.NoOpProgress{}
			if pod != "" {
				input["pod_name"] = pod
				if namespace != "" {
					input["namespace"] = namespace
				}
				k8s, err := collectors.NewKubernetesCollector(cfg.Kubernetes)
				if err != nil {
					return fmt.Errorf("failed to create kubernetes client: %w", err)
				}
				pods = k8s

				spinner := ui.NewSpinnerProgress(cmd.ErrOrStderr())
				spinner.Start(fmt.Sprintf("Collecting evidence for %s...", pod))
				progress = spinner
			}

			service := diagnosis.NewService(renderer, nil, pods, logger, 1)
			result, err := service.Render(cmd.Context(), input, progress)
			progress.Stop()
			if err != nil {
				return err
			}

			return writeResult(cmd.OutOrStdout(), result, root.format, !root.noColor)
		},
	}

	cmd.Flags().StringVarP(&pod, "pod", "p", "", "Collect live evidence for this pod before rendering")
	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "Namespace of --pod (defaults to the input's namespace)")
	return cmd
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	return data, nil
}
