package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/emirozbir/incident-triage/internal/collectors"
	"github.com/emirozbir/incident-triage/internal/database"
	"github.com/emirozbir/incident-triage/internal/diagnosis"
	"github.com/emirozbir/incident-triage/internal/models"
	"github.com/emirozbir/incident-triage/internal/ui"
)

func newAlertsCmd(root *rootOptions) *cobra.Command {
	var namespace string
	var store bool

	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Fetch firing alerts from AlertManager and render a report for each",
		Example: `  triage alerts --namespace payments
  triage alerts --store -f json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, renderer, logger, err := root.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			am := collectors.NewAlertManagerCollector(cfg.AlertManager)
			alerts, err := am.GetActiveAlerts(cmd.Context(), namespace)
			if err != nil {
				return err
			}
			logger.Info("Fetched active alerts", zap.Int("count", len(alerts)), zap.String("url", cfg.AlertManager.URL))
			if len(alerts) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "No firing alerts")
				return nil
			}

			var pods diagnosis.PodInspector
			if k8s, err := collectors.NewKubernetesCollector(cfg.Kubernetes); err != nil {
				logger.Warn("Kubernetes unavailable, reports will use alert labels only", zap.Error(err))
			} else {
				pods = k8s
			}

			if store {
				db, err := database.New(cfg.Database)
				if err != nil {
					return fmt.Errorf("failed to open database: %w", err)
				}
				defer db.Close()

				service := diagnosis.NewService(renderer, db, pods, logger, cfg.Server.MaxParallelAlerts)
				response := service.IngestAlerts(cmd.Context(), am.Webhook(alerts))
				return writeIngestResponse(cmd, response, root.format)
			}

			service := diagnosis.NewService(renderer, nil, pods, logger, 1)
			for _, alert := range alerts {
				spinner := ui.NewSpinnerProgress(cmd.ErrOrStderr())
				spinner.Start(fmt.Sprintf("Rendering %s...", alert.GetAlertName()))
				result, err := service.Render(cmd.Context(), alert.DiagnosisInput(), spinner)
				spinner.Stop()
				if err != nil {
					return err
				}
				if err := writeResult(cmd.OutOrStdout(), result, root.format, !root.noColor); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "Only alerts labelled with this namespace")
	cmd.Flags().BoolVar(&store, "store", false, "Open tickets in the configured database instead of printing reports")
	return cmd
}

func writeIngestResponse(cmd *cobra.Command, response models.WebhookTicketResponse, format string) error {
	w := cmd.OutOrStdout()
	switch format {
	case formatYAML:
		out, err := yaml.Marshal(response)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	case formatJSON:
		out, err := json.MarshalIndent(response, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	default:
		fmt.Fprintf(w, "Received %d alerts: %d tickets created, %d failed\n", response.Received, response.Created, response.Failed)
		for _, ticket := range response.Tickets {
			fmt.Fprintf(w, "  %s  %-24s %s/%s  %s\n", ticket.TicketID, ticket.AlertName, ticket.Namespace, ticket.Pod, ticket.Severity)
		}
		for _, failure := range response.Errors {
			fmt.Fprintf(w, "  failed  %-24s %s\n", failure.AlertName, failure.Error)
		}
		return nil
	}
}
