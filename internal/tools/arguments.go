package tools

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ArgumentError reports a missing or malformed tool argument.
type ArgumentError struct {
	Name    string
	Message string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Name, e.Message)
}

// Arguments is the decoded JSON object passed to a tool.
type Arguments map[string]any

// String returns the trimmed string value of key, or "" when absent.
func (a Arguments) String(key string) (string, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", &ArgumentError{Name: key, Message: "must be a string"}
	}
	return strings.TrimSpace(s), nil
}

func (a Arguments) RequiredString(key string) (string, error) {
	s, err := a.String(key)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", &ArgumentError{Name: key, Message: "is required"}
	}
	return s, nil
}

// Int accepts JSON numbers and numeric strings. Absent keys yield fallback.
func (a Arguments) Int(key string, fallback int64) (int64, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return fallback, nil
	}
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, &ArgumentError{Name: key, Message: "must be an integer"}
		}
		return int64(n), nil
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case string:
		if strings.TrimSpace(n) == "" {
			return fallback, nil
		}
		parsed, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, &ArgumentError{Name: key, Message: "must be an integer"}
		}
		return parsed, nil
	default:
		return 0, &ArgumentError{Name: key, Message: "must be an integer"}
	}
}

func (a Arguments) Bool(key string) (bool, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, &ArgumentError{Name: key, Message: "must be a boolean"}
	}
	return b, nil
}

func (a Arguments) Object(key string) (map[string]any, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, &ArgumentError{Name: key, Message: "must be an object"}
	}
	return m, nil
}
