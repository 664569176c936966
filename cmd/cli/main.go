package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/emirozbir/incident-triage/internal/config"
	"github.com/emirozbir/incident-triage/internal/report"
)

type rootOptions struct {
	configPath string
	format     string
	noColor    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "triage",
		Short:        "Render incident diagnostic reports",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config file")
	cmd.PersistentFlags().StringVarP(&opts.format, "format", "f", formatMarkdown, "Output format: markdown, json, yaml or terminal")
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored terminal output")

	cmd.AddCommand(newRenderCmd(opts), newScenariosCmd(opts), newAlertsCmd(opts))
	return cmd
}

// setup loads configuration and the renderer shared by every subcommand.
func (o *rootOptions) setup() (*config.Config, *report.Renderer, *zap.Logger, error) {
	if err := validateFormat(o.format); err != nil {
		return nil, nil, nil, err
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	renderer, err := report.NewRenderer(cfg.Report.TemplatePath, report.NewBuilder(cfg.Report.FeedbackBaseURL))
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, renderer, logger, nil
}
