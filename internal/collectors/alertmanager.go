package collectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/emirozbir/incident-triage/internal/config"
	"github.com/emirozbir/incident-triage/internal/models"
)

type AlertManagerCollector struct {
	baseURL string
	client  *http.Client
}

func NewAlertManagerCollector(cfg config.AlertManagerConfig) *AlertManagerCollector {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AlertManagerCollector{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// gettableAlert is the /api/v2/alerts item; status is an object there,
// unlike the webhook payload.
type gettableAlert struct {
	Labels      map[string]string `json:"labels"`
	Annotations map[string]string `json:"annotations"`
	StartsAt    time.Time         `json:"startsAt"`
	EndsAt      time.Time         `json:"endsAt"`
	Fingerprint string            `json:"fingerprint"`
	Status      struct {
		State string `json:"state"`
	} `json:"status"`
}

func (g gettableAlert) toAlert() models.Alert {
	status := "resolved"
	if g.Status.State == "active" {
		status = "firing"
	}
	return models.Alert{
		Labels:      g.Labels,
		Annotations: g.Annotations,
		StartsAt:    g.StartsAt,
		EndsAt:      g.EndsAt,
		Status:      status,
		Fingerprint: g.Fingerprint,
	}
}

// GetActiveAlerts returns firing alerts that are neither silenced nor
// inhibited. A non-empty namespace narrows them with a label matcher.
func (a *AlertManagerCollector) GetActiveAlerts(ctx context.Context, namespace string) ([]models.Alert, error) {
	query := url.Values{}
	query.Set("active", "true")
	query.Set("silenced", "false")
	query.Set("inhibited", "false")
	if namespace != "" {
		query.Add("filter", fmt.Sprintf("namespace=%q", namespace))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/api/v2/alerts?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch alerts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alertmanager returned status %d", resp.StatusCode)
	}

	var items []gettableAlert
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to decode alerts: %w", err)
	}

	alerts := make([]models.Alert, 0, len(items))
	for _, item := range items {
		alert := item.toAlert()
		if alert.Status != "firing" {
			continue
		}
		if namespace != "" && alert.GetNamespace() != namespace {
			continue
		}
		alerts = append(alerts, alert)
	}
	return alerts, nil
}

// Webhook wraps polled alerts in the payload shape AlertManager pushes,
// so they can go through the same ingestion path.
func (a *AlertManagerCollector) Webhook(alerts []models.Alert) models.AlertManagerWebhook {
	return models.AlertManagerWebhook{
		Version:     "4",
		Status:      "firing",
		Receiver:    "incident-triage-cli",
		ExternalURL: a.baseURL,
		Alerts:      alerts,
	}
}
