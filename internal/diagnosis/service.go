// Package diagnosis turns diagnosis input and AlertManager alerts into rendered,
// persisted tickets.
package diagnosis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/emirozbir/incident-triage/internal/collectors"
	"github.com/emirozbir/incident-triage/internal/metrics"
	"github.com/emirozbir/incident-triage/internal/models"
	"github.com/emirozbir/incident-triage/internal/redact"
	"github.com/emirozbir/incident-triage/internal/report"
	"github.com/emirozbir/incident-triage/internal/ui"
)

const (
	SourceAPI          = "api"
	SourceAlertManager = "alertmanager"

	defaultMaxParallel = 4
)

var ErrMissingTarget = errors.New("missing namespace or pod in alert labels")

type TicketStore interface {
	CreateTicket(ctx context.Context, ticket *models.Ticket) error
}

// PodInspector supplies live pod state. *collectors.KubernetesCollector satisfies it.
type PodInspector interface {
	DescribePod(ctx context.Context, namespace, podName string) (*collectors.PodDescription, error)
}

type Service struct {
	renderer    *report.Renderer
	store       TicketStore
	pods        PodInspector
	logger      *zap.Logger
	maxParallel int
}

// NewService wires the renderer and store. pods may be nil, in which case
// reports are built from the submitted input only.
func NewService(renderer *report.Renderer, store TicketStore, pods PodInspector, logger *zap.Logger, maxParallel int) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxParallel <= 0 {
		maxParallel = defaultMaxParallel
	}
	return &Service{
		renderer:    renderer,
		store:       store,
		pods:        pods,
		logger:      logger,
		maxParallel: maxParallel,
	}
}

// Render builds a report without persisting it. Live pod evidence is added when
// a PodInspector is configured and the input names a pod.
func (s *Service) Render(ctx context.Context, input map[string]any, progress ui.ProgressReporter) (report.Result, error) {
	if progress == nil {
		progress = ui.NoOpProgress{}
	}
	input = clone(input)

	progress.Update("Collecting pod evidence...")
	s.enrich(ctx, input)

	progress.Update("Rendering report...")
	result, err := s.renderer.Render(input)
	if err != nil {
		return result, err
	}
	metrics.ReportsRendered.WithLabelValues(result.Data.Classification, result.Data.Severity).Inc()
	return result, nil
}

// CreateTicket renders input and persists it as a new ticket. A ticket_id that
// is not a UUID is replaced. payload is stored as the alert payload; when nil
// the redacted input is stored instead.
func (s *Service) CreateTicket(ctx context.Context, input map[string]any, payload json.RawMessage, source string) (*models.Ticket, report.Result, error) {
	start := time.Now()
	input = clone(input)
	if id := redact.Stringify(report.Resolve(input, report.FieldTicketID)); uuid.Validate(id) != nil {
		input["ticket_id"] = uuid.NewString()
	}

	partial := !s.enrich(ctx, input)

	result, err := s.renderer.Render(input)
	if err != nil {
		return nil, result, err
	}
	metrics.ReportsRendered.WithLabelValues(result.Data.Classification, result.Data.Severity).Inc()

	if len(payload) == 0 {
		payload, err = json.Marshal(redact.Map(input))
		if err != nil {
			return nil, result, fmt.Errorf("failed to encode alert payload: %w", err)
		}
	}

	data := result.Data
	elapsed := time.Since(start).Milliseconds()
	ticket := &models.Ticket{
		ID:               data.TicketID,
		ServiceName:      data.ServiceName,
		Namespace:        data.Namespace,
		PodName:          redact.Stringify(input["pod_name"]),
		ErrorMessage:     data.ErrorMessage,
		AlertPayload:     payload,
		Classification:   data.Classification,
		DiagnosisReport:  result.Report,
		RootCause:        &data.RootCause,
		Suggestions:      data.Suggestions,
		AnalysisPartial:  partial,
		ProcessingTimeMs: &elapsed,
	}
	if report.Resolve(input, report.FieldStackTrace) != nil {
		ticket.StackTrace = &data.StackTrace
	}
	if report.Resolve(input, report.FieldTimestamp) != nil {
		if ts, err := time.Parse(time.RFC3339Nano, data.Timestamp); err == nil {
			ticket.AlertTimestamp = &ts
		}
	}

	if err := s.store.CreateTicket(ctx, ticket); err != nil {
		return nil, result, fmt.Errorf("failed to store ticket: %w", err)
	}
	metrics.TicketsCreated.WithLabelValues(source).Inc()

	s.logger.Info("Ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("service", ticket.ServiceName),
		zap.String("namespace", ticket.Namespace),
		zap.String("classification", ticket.Classification),
		zap.String("source", source),
		zap.Bool("partial", partial))

	return ticket, result, nil
}

// IngestAlerts opens a ticket per alert, running at most maxParallel at a time.
// Alerts without namespace and pod labels are reported as errors. Results keep
// the webhook order.
func (s *Service) IngestAlerts(ctx context.Context, webhook models.AlertManagerWebhook) models.WebhookTicketResponse {
	s.logger.Info("Received alertmanager webhook",
		zap.String("receiver", webhook.Receiver),
		zap.String("status", webhook.Status),
		zap.Int("alert_count", len(webhook.Alerts)))

	type outcome struct {
		ticket *models.AlertTicketResult
		err    *models.AlertTicketError
	}
	outcomes := make([]outcome, len(webhook.Alerts))

	var g errgroup.Group
	g.SetLimit(s.maxParallel)

	for i, alert := range webhook.Alerts {
		g.Go(func() error {
			ticket, err := s.ingestAlert(ctx, alert)
			if err != nil {
				outcomes[i].err = &models.AlertTicketError{
					Fingerprint: alert.Fingerprint,
					AlertName:   alert.GetAlertName(),
					Error:       err.Error(),
				}
				return nil
			}
			outcomes[i].ticket = ticket
			return nil
		})
	}
	g.Wait()

	response := models.WebhookTicketResponse{
		Received: len(webhook.Alerts),
		Tickets:  []models.AlertTicketResult{},
	}
	for _, o := range outcomes {
		if o.err != nil {
			response.Errors = append(response.Errors, *o.err)
			metrics.AlertsReceived.WithLabelValues("failed").Inc()
			continue
		}
		response.Tickets = append(response.Tickets, *o.ticket)
		metrics.AlertsReceived.WithLabelValues("created").Inc()
	}
	response.Created = len(response.Tickets)
	response.Failed = len(response.Errors)

	s.logger.Info("Webhook processing completed",
		zap.Int("received", response.Received),
		zap.Int("created", response.Created),
		zap.Int("failed", response.Failed))

	return response
}

func (s *Service) ingestAlert(ctx context.Context, alert models.Alert) (*models.AlertTicketResult, error) {
	namespace := alert.GetNamespace()
	podName := alert.GetPodName()
	alertName := alert.GetAlertName()

	if namespace == "" || podName == "" {
		s.logger.Warn("Skipping alert without namespace or pod",
			zap.String("alert_name", alertName),
			zap.String("fingerprint", alert.Fingerprint))
		return nil, ErrMissingTarget
	}

	payload, err := json.Marshal(redact.Value(alertPayload(alert)))
	if err != nil {
		return nil, fmt.Errorf("failed to encode alert payload: %w", err)
	}

	ticket, _, err := s.CreateTicket(ctx, alert.DiagnosisInput(), payload, SourceAlertManager)
	if err != nil {
		s.logger.Error("Failed to create ticket for alert",
			zap.String("alert_name", alertName),
			zap.String("namespace", namespace),
			zap.String("pod", podName),
			zap.Error(err))
		return nil, err
	}

	return &models.AlertTicketResult{
		Fingerprint:    alert.Fingerprint,
		AlertName:      alertName,
		TicketID:       ticket.ID,
		Namespace:      namespace,
		Pod:            podName,
		Severity:       alert.GetSeverity(),
		Classification: ticket.Classification,
	}, nil
}

// enrich adds the described pod and its events to input unless the caller
// already supplied Kubernetes evidence. It reports false when a lookup failed.
func (s *Service) enrich(ctx context.Context, input map[string]any) bool {
	if s.pods == nil {
		return true
	}
	if report.Resolve(input, report.FieldPodDescription) != nil || report.Resolve(input, report.FieldKubernetesEvidence) != nil {
		return true
	}

	namespace := redact.Stringify(input["namespace"])
	podName := redact.Stringify(input["pod_name"])
	if namespace == "" || podName == "" {
		return true
	}

	desc, err := s.pods.DescribePod(ctx, namespace, podName)
	if err != nil {
		s.logger.Warn("Failed to collect pod evidence",
			zap.String("namespace", namespace),
			zap.String("pod", podName),
			zap.Error(err))
		return false
	}

	podMap, err := toMap(desc)
	if err != nil {
		s.logger.Warn("Failed to encode pod description", zap.Error(err))
		return false
	}
	input["pod_description"] = podMap
	if report.Resolve(input, report.FieldEvents) == nil {
		input["events"] = podMap["events"]
	}
	return true
}

func alertPayload(alert models.Alert) map[string]any {
	labels := make(map[string]any, len(alert.Labels))
	for k, v := range alert.Labels {
		labels[k] = v
	}
	annotations := make(map[string]any, len(alert.Annotations))
	for k, v := range alert.Annotations {
		annotations[k] = v
	}
	return map[string]any{
		"status":      alert.Status,
		"fingerprint": alert.Fingerprint,
		"labels":      labels,
		"annotations": annotations,
		"startsAt":    alert.StartsAt.UTC().Format(time.RFC3339),
		"endsAt":      alert.EndsAt.UTC().Format(time.RFC3339),
	}
}

func toMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func clone(input map[string]any) map[string]any {
	out := make(map[string]any, len(input)+2)
	for k, v := range input {
		out[k] = v
	}
	return out
}

// ParseInput decodes a JSON object into diagnosis input.
func ParseInput(data []byte) (map[string]any, error) {
	var input map[string]any
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("failed to parse diagnosis input: %w", err)
	}
	if input == nil {
		return nil, fmt.Errorf("failed to parse diagnosis input: expected a JSON object")
	}
	return input, nil
}
