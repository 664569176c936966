package models

import (
	"strings"
	"time"
)

type Alert struct {
	Labels      map[string]string `json:"labels"`
	Annotations map[string]string `json:"annotations"`
	StartsAt    time.Time         `json:"startsAt"`
	EndsAt      time.Time         `json:"endsAt"`
	Status      string            `json:"status"`
	Fingerprint string            `json:"fingerprint"`
}

func (a *Alert) GetNamespace() string {
	return firstLabel(a.Labels, "namespace", "kubernetes_namespace")
}

func (a *Alert) GetPodName() string {
	return firstLabel(a.Labels, "pod", "pod_name")
}

// GetServiceName falls back to the pod name when no workload label is set.
func (a *Alert) GetServiceName() string {
	if name := firstLabel(a.Labels, "service", "app", "app_kubernetes_io_name", "deployment", "container"); name != "" {
		return name
	}
	return a.GetPodName()
}

// GetSeverity maps AlertManager severities onto critical/high/medium/low.
func (a *Alert) GetSeverity() string {
	switch sev := strings.ToLower(a.Labels["severity"]); sev {
	case "critical", "page":
		return "critical"
	case "error", "high":
		return "high"
	case "warning", "warn", "medium":
		return "medium"
	case "info", "none", "low":
		return "low"
	default:
		return "medium"
	}
}

func (a *Alert) GetAlertName() string {
	if name := a.Labels["alertname"]; name != "" {
		return name
	}
	return "unknown"
}

// GetErrorMessage prefers the human-written annotations over the alert name.
func (a *Alert) GetErrorMessage() string {
	if msg := firstLabel(a.Annotations, "description", "message", "summary"); msg != "" {
		return msg
	}
	return a.GetAlertName()
}

// DiagnosisInput maps the alert onto the fields the report builder reads.
func (a *Alert) DiagnosisInput() map[string]any {
	input := map[string]any{
		"service_name":  a.GetServiceName(),
		"namespace":     a.GetNamespace(),
		"pod_name":      a.GetPodName(),
		"error_message": a.GetErrorMessage(),
		"severity":      a.GetSeverity(),
	}
	if summary := a.Annotations["summary"]; summary != "" {
		input["summary"] = summary
	}
	if !a.StartsAt.IsZero() {
		input["timestamp"] = a.StartsAt.UTC().Format("2006-01-02T15:04:05.000Z")
	}
	return input
}

func firstLabel(labels map[string]string, keys ...string) string {
	for _, key := range keys {
		if v := labels[key]; v != "" {
			return v
		}
	}
	return ""
}
