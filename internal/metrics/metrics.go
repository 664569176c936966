// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "incident_triage"

var (
	// ReportsRendered counts rendered reports.
	// Labels: classification, severity
	ReportsRendered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "report",
		Name:      "rendered_total",
		Help:      "Total diagnostic reports rendered",
	}, []string{"classification", "severity"})

	// TicketsCreated counts persisted tickets.
	// Labels: source (api, alertmanager)
	TicketsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "tickets",
		Name:      "created_total",
		Help:      "Total diagnosis tickets created",
	}, []string{"source"})

	// FeedbackRecorded counts feedback submissions.
	// Labels: useful (true, false)
	FeedbackRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "tickets",
		Name:      "feedback_total",
		Help:      "Total feedback submissions recorded",
	}, []string{"useful"})

	// AlertsReceived counts alerts delivered by the AlertManager webhook.
	// Labels: outcome (created, failed)
	AlertsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "alerts",
		Name:      "received_total",
		Help:      "Total alerts received from AlertManager",
	}, []string{"outcome"})

	// ToolCalls counts tool invocations.
	// Labels: tool, outcome (ok, error, invalid)
	ToolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "tools",
		Name:      "calls_total",
		Help:      "Total tool calls by tool and outcome",
	}, []string{"tool", "outcome"})

	ToolDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "tools",
		Name:      "call_duration_seconds",
		Help:      "Tool call latency",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"tool"})
)
