// Package redact scrubs credentials out of free text and decoded JSON trees.
package redact

import (
	"fmt"
	"regexp"
	"strconv"
)

// Marker replaces every redacted value.
const Marker = "[REDACTED]"

// Substitution is one global text replacement.
type Substitution struct {
	Name        string
	Pattern     *regexp.Regexp
	Replacement string
}

var (
	// SensitiveKeyPattern matches key names whose values are never kept.
	SensitiveKeyPattern = regexp.MustCompile(`(?i)(password|pass|pwd|secret|token|api[_-]?key|authorization|private[_-]?key|client_secret|access[_-]?token|refresh[_-]?token)`)

	// TextSubstitutions run in order over every string. A quoted value is
	// consumed up to its closing quote plus any trailing run, so nothing of
	// the secret survives and a second pass is a no-op.
	TextSubstitutions = []Substitution{
		{
			Name:        "key-value",
			Pattern:     regexp.MustCompile(`(?i)("?(?:password|pass|pwd|secret|token|api[_-]?key|authorization|private[_-]?key|client_secret|access[_-]?token|refresh[_-]?token)"?\s*[:=]\s*)(?:"[^"\n]*"?[^\s,;}]*|[^\s,;}]+)`),
			Replacement: "${1}" + Marker,
		},
		{
			Name:        "env-assignment",
			Pattern:     regexp.MustCompile(`((?:PASSWORD|PASS|PWD|SECRET|TOKEN|API[_-]?KEY|AUTHORIZATION|PRIVATE[_-]?KEY|CLIENT_SECRET|ACCESS[_-]?TOKEN|REFRESH[_-]?TOKEN)\s*=\s*)\S+`),
			Replacement: "${1}" + Marker,
		},
	}
)

// String applies every text substitution to s.
func String(s string) string {
	for _, sub := range TextSubstitutions {
		s = sub.Pattern.ReplaceAllString(s, sub.Replacement)
	}
	return s
}

// Text coerces v to its string form and redacts it. Falsy values yield "".
func Text(v any) string {
	return String(Stringify(v))
}

// Stringify renders scalar JSON values the way they read in a report.
// nil, false, zero and the empty string render as "".
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if !t {
			return ""
		}
		return "true"
	case float64:
		if t == 0 {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		if t == 0 {
			return ""
		}
		return strconv.Itoa(t)
	case int64:
		if t == 0 {
			return ""
		}
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// IsSensitiveKey reports whether values stored under key must be dropped.
func IsSensitiveKey(key string) bool {
	return SensitiveKeyPattern.MatchString(key)
}

// Value returns a redacted deep copy of v. Map entries with a sensitive key
// are replaced by Marker whatever their type; the rule applies at every map
// level, including maps held in slices.
func Value(v any) any {
	switch t := v.(type) {
	case string:
		return String(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for key, val := range t {
			if IsSensitiveKey(key) {
				out[key] = Marker
				continue
			}
			out[key] = Value(val)
		}
		return out
	case []any:
		out := make([]any, 0, len(t))
		for _, item := range t {
			out = append(out, Value(item))
		}
		return out
	default:
		return v
	}
}

// Map is Value for a top-level object. A nil map yields an empty one.
func Map(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return Value(m).(map[string]any)
}
