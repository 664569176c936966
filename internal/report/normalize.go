package report

import (
	"slices"
	"strings"
	"time"

	"github.com/emirozbir/incident-triage/internal/redact"
	"github.com/google/uuid"
)

const (
	ClassificationInfrastructure = "infrastructure"
	ClassificationCode           = "code"
	ClassificationUnknown        = "unknown"

	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"

	ConfidenceHigh   = "alta"
	ConfidenceMedium = "média"
	ConfidenceLow    = "baixa"
)

var (
	Classifications = []string{ClassificationInfrastructure, ClassificationCode, ClassificationUnknown}
	Severities      = []string{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}
	Confidences     = []string{ConfidenceHigh, ConfidenceMedium, ConfidenceLow}
)

// Placeholders used when the input carries no usable value.
const (
	DefaultServiceName     = "service not informed"
	DefaultNamespace       = "namespace not informed"
	DefaultSummary         = "Summary not provided; review the collected evidence."
	DefaultErrorMessage    = "Error not informed"
	DefaultStackTrace      = "No stack trace provided."
	DefaultRootCause       = "Root cause not identified automatically."
	DefaultFeedbackBaseURL = "https://feedback.local/diagnosis"

	TimestampFormat = "2006-01-02T15:04:05.000Z"
)

var (
	DefaultSuggestions = []string{
		"Review the complete service logs and metrics",
		"Validate configuration and resource limits",
	}
	DefaultNextSteps = []string{
		"Confirm the fix in a staging environment",
		"Monitor the service after the change",
	}
)

// ReportData is the flat record merged into the report template.
type ReportData struct {
	TicketID           string   `json:"ticket_id" yaml:"ticket_id"`
	Timestamp          string   `json:"timestamp" yaml:"timestamp"`
	ServiceName        string   `json:"service_name" yaml:"service_name"`
	Namespace          string   `json:"namespace" yaml:"namespace"`
	Summary            string   `json:"summary" yaml:"summary"`
	Classification     string   `json:"classification" yaml:"classification"`
	Severity           string   `json:"severity" yaml:"severity"`
	Confidence         string   `json:"confidence" yaml:"confidence"`
	ErrorMessage       string   `json:"error_message" yaml:"error_message"`
	StackTrace         string   `json:"stack_trace" yaml:"stack_trace"`
	KubernetesEvidence string   `json:"kubernetes_evidence" yaml:"kubernetes_evidence"`
	CodeEvidence       string   `json:"code_evidence" yaml:"code_evidence"`
	NetworkEvidence    string   `json:"network_evidence" yaml:"network_evidence"`
	RootCause          string   `json:"root_cause" yaml:"root_cause"`
	Suggestions        []string `json:"suggestions" yaml:"suggestions"`
	NextSteps          []string `json:"next_steps" yaml:"next_steps"`
	FeedbackURL        string   `json:"feedback_url" yaml:"feedback_url"`
}

// Builder turns raw diagnosis input into ReportData. The zero value is usable.
type Builder struct {
	FeedbackBaseURL string
	Now             func() time.Time
	NewID           func() string
}

// NewBuilder returns a Builder that links feedback to feedbackBaseURL.
func NewBuilder(feedbackBaseURL string) *Builder {
	return &Builder{FeedbackBaseURL: feedbackBaseURL}
}

var defaultBuilder = &Builder{}

// BuildReportData normalizes raw with the default builder.
func BuildReportData(raw map[string]any) ReportData {
	return defaultBuilder.Build(raw)
}

// Build never fails: missing or malformed values degrade to their defaults.
func (b *Builder) Build(raw map[string]any) ReportData {
	in := redact.Map(raw)

	ticketID := redact.Stringify(Resolve(in, FieldTicketID))
	if ticketID == "" {
		ticketID = b.newID()
	}

	timestamp := redact.Stringify(Resolve(in, FieldTimestamp))
	if timestamp == "" {
		timestamp = b.now().UTC().Format(TimestampFormat)
	}

	kubernetesEvidence := explicitEvidence(in, FieldKubernetesEvidence)
	if kubernetesEvidence == "" {
		kubernetesEvidence = FormatKubernetesEvidence(Resolve(in, FieldPodDescription), Resolve(in, FieldEvents))
	}

	codeEvidence := explicitEvidence(in, FieldCodeEvidence)
	if codeEvidence == "" {
		if detail := asMap(Resolve(in, FieldCodeDetail)); detail != nil {
			codeEvidence = FormatCodeEvidence(
				redact.Stringify(Resolve(detail, FieldCodeFilePath)),
				Resolve(detail, FieldCodeLineNumber),
				redact.Stringify(Resolve(detail, FieldCodeSnippet)),
				redact.Stringify(Resolve(detail, FieldCodeLanguage)),
			)
		}
	}

	networkEvidence := explicitEvidence(in, FieldNetworkEvidence)
	if networkEvidence == "" {
		networkEvidence = FormatNetworkEvidence(Resolve(in, FieldNetwork))
	}

	return ReportData{
		TicketID:           ticketID,
		Timestamp:          timestamp,
		ServiceName:        textOr(in, FieldServiceName, DefaultServiceName),
		Namespace:          textOr(in, FieldNamespace, DefaultNamespace),
		Summary:            textOr(in, FieldSummary, DefaultSummary),
		Classification:     normalizeEnum(Resolve(in, FieldClassification), Classifications, ClassificationUnknown),
		Severity:           normalizeEnum(Resolve(in, FieldSeverity), Severities, SeverityMedium),
		Confidence:         normalizeEnum(Resolve(in, FieldConfidence), Confidences, ConfidenceMedium),
		ErrorMessage:       textOr(in, FieldErrorMessage, DefaultErrorMessage),
		StackTrace:         textOr(in, FieldStackTrace, DefaultStackTrace),
		KubernetesEvidence: redact.String(kubernetesEvidence),
		CodeEvidence:       redact.String(codeEvidence),
		NetworkEvidence:    redact.String(networkEvidence),
		RootCause:          textOr(in, FieldRootCause, DefaultRootCause),
		Suggestions:        listOr(Resolve(in, FieldSuggestions), DefaultSuggestions),
		NextSteps:          listOr(Resolve(in, FieldNextSteps), DefaultNextSteps),
		FeedbackURL:        b.feedbackURL(in, ticketID),
	}
}

func (b *Builder) newID() string {
	if b.NewID != nil {
		return b.NewID()
	}
	return uuid.NewString()
}

func (b *Builder) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

func (b *Builder) feedbackURL(in map[string]any, ticketID string) string {
	if u := redact.Text(Resolve(in, FieldFeedbackURL)); u != "" {
		return u
	}
	base := b.FeedbackBaseURL
	if base == "" {
		base = DefaultFeedbackBaseURL
	}
	return strings.TrimRight(base, "/") + "/" + ticketID
}

func explicitEvidence(in map[string]any, field Field) string {
	s, _ := Resolve(in, field).(string)
	return s
}

func textOr(in map[string]any, field Field, fallback string) string {
	if s := redact.Text(Resolve(in, field)); s != "" {
		return s
	}
	return fallback
}

func normalizeEnum(v any, allowed []string, fallback string) string {
	s, ok := v.(string)
	if !ok {
		return fallback
	}
	s = strings.ToLower(strings.TrimSpace(s))
	if slices.Contains(allowed, s) {
		return s
	}
	return fallback
}

// listOr keeps non-blank scalar entries; nested objects and lists are dropped.
func listOr(v any, fallback []string) []string {
	var out []string
	for _, item := range asSlice(v) {
		switch item.(type) {
		case nil, map[string]any, []any:
			continue
		}
		s := redact.Text(item)
		if strings.TrimSpace(s) == "" {
			continue
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return slices.Clone(fallback)
	}
	return out
}
