package models

// AlertManagerWebhook represents the standard AlertManager webhook payload
type AlertManagerWebhook struct {
	Version           string            `json:"version"`
	GroupKey          string            `json:"groupKey"`
	TruncatedAlerts   int               `json:"truncatedAlerts"`
	Status            string            `json:"status"` // "firing" or "resolved"
	Receiver          string            `json:"receiver"`
	GroupLabels       map[string]string `json:"groupLabels"`
	CommonLabels      map[string]string `json:"commonLabels"`
	CommonAnnotations map[string]string `json:"commonAnnotations"`
	ExternalURL       string            `json:"externalURL"`
	Alerts            []Alert           `json:"alerts"`
}

// WebhookTicketResponse summarizes the tickets opened for one webhook call
type WebhookTicketResponse struct {
	Received int                 `json:"received" yaml:"received"`
	Created  int                 `json:"created" yaml:"created"`
	Failed   int                 `json:"failed" yaml:"failed"`
	Tickets  []AlertTicketResult `json:"tickets" yaml:"tickets"`
	Errors   []AlertTicketError  `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// AlertTicketResult is the ticket opened for a single alert
type AlertTicketResult struct {
	Fingerprint    string `json:"fingerprint" yaml:"fingerprint"`
	AlertName      string `json:"alert_name" yaml:"alert_name"`
	TicketID       string `json:"ticket_id" yaml:"ticket_id"`
	Namespace      string `json:"namespace" yaml:"namespace"`
	Pod            string `json:"pod" yaml:"pod"`
	Severity       string `json:"severity" yaml:"severity"`
	Classification string `json:"classification" yaml:"classification"`
}

// AlertTicketError is an alert that could not be turned into a ticket
type AlertTicketError struct {
	Fingerprint string `json:"fingerprint" yaml:"fingerprint"`
	AlertName   string `json:"alert_name" yaml:"alert_name"`
	Error       string `json:"error" yaml:"error"`
}
