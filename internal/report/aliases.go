package report

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Field names a canonical ReportData input.
type Field string

const (
	FieldTicketID           Field = "ticket_id"
	FieldTimestamp          Field = "timestamp"
	FieldServiceName        Field = "service_name"
	FieldNamespace          Field = "namespace"
	FieldSummary            Field = "summary"
	FieldClassification     Field = "classification"
	FieldSeverity           Field = "severity"
	FieldConfidence         Field = "confidence"
	FieldErrorMessage       Field = "error_message"
	FieldStackTrace         Field = "stack_trace"
	FieldRootCause          Field = "root_cause"
	FieldPodDescription     Field = "pod_description"
	FieldEvents             Field = "events"
	FieldKubernetesEvidence Field = "kubernetes_evidence"
	FieldCodeDetail         Field = "code_evidence_detail"
	FieldCodeEvidence       Field = "code_evidence"
	FieldNetwork            Field = "network"
	FieldNetworkEvidence    Field = "network_evidence"
	FieldSuggestions        Field = "suggestions"
	FieldNextSteps          Field = "next_steps"
	FieldFeedbackURL        Field = "feedback_url"

	// Keys inside a code evidence object.
	FieldCodeFilePath   Field = "file_path"
	FieldCodeLineNumber Field = "line_number"
	FieldCodeSnippet    Field = "code_snippet"
	FieldCodeLanguage   Field = "language"
)

// Aliases lists, per field, the input keys that may carry it. Candidates are
// tried in order and the first truthy value wins. A dotted candidate is tried
// as a literal key first, then as a path into nested objects.
var Aliases = map[Field][]string{
	FieldTicketID:           {"ticket_id", "ticketId"},
	FieldTimestamp:          {"timestamp"},
	FieldServiceName:        {"service_name"},
	FieldNamespace:          {"namespace"},
	FieldSummary:            {"summary"},
	FieldClassification:     {"classification"},
	FieldSeverity:           {"severity"},
	FieldConfidence:         {"confidence"},
	FieldErrorMessage:       {"error_message"},
	FieldStackTrace:         {"stack_trace"},
	FieldRootCause:          {"root_cause"},
	FieldPodDescription:     {"pod_description", "kubernetes_pod_description", "kubernetes.podDescription", "kubernetes.pod"},
	FieldEvents:             {"events", "kubernetes_events", "kubernetes.events"},
	FieldKubernetesEvidence: {"kubernetes_evidence"},
	FieldCodeDetail:         {"code_evidence_detail", "code"},
	FieldCodeEvidence:       {"code_evidence"},
	FieldNetwork:            {"network"},
	FieldNetworkEvidence:    {"network_evidence"},
	FieldSuggestions:        {"suggestions"},
	FieldNextSteps:          {"next_steps", "nextSteps"},
	FieldFeedbackURL:        {"feedback_url", "feedbackUrl", "feedback"},

	FieldCodeFilePath:   {"filePath", "file_path"},
	FieldCodeLineNumber: {"lineNumber", "line_number"},
	FieldCodeSnippet:    {"codeSnippet", "code_snippet"},
	FieldCodeLanguage:   {"language", "lang"},
}

// Resolve returns the first truthy value among the aliases of field, or nil.
func Resolve(data map[string]any, field Field) any {
	for _, candidate := range Aliases[field] {
		if v, ok := lookup(data, candidate); ok && truthy(v) {
			return v
		}
	}
	return nil
}

func lookup(data map[string]any, path string) (any, bool) {
	if data == nil {
		return nil, false
	}
	if v, ok := data[path]; ok {
		return v, true
	}
	if !strings.Contains(path, ".") {
		return nil, false
	}
	var current any = data
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// truthy mirrors how loosely-typed producers treat missing values: nil,
// false, zero, NaN and "" are absent; objects and lists are present even when empty.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0 && !math.IsNaN(t)
	case int:
		return t != 0
	case int64:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	default:
		return true
	}
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

// number accepts numeric JSON values only.
func number(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, !math.IsNaN(t) && !math.IsInf(t, 0)
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	}
	return 0, false
}

// coerceNumber also parses numeric strings.
func coerceNumber(v any) (float64, bool) {
	if s, ok := v.(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return number(v)
}

// display renders a present scalar, keeping zero values.
func display(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	}
	if f, ok := number(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
