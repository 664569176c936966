// Package tools exposes the collectors and the report renderer as named tools
// that can be dispatched directly or served over MCP.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/emirozbir/incident-triage/internal/metrics"
)

var ErrUnknownTool = errors.New("unknown tool")

// Handler runs one tool. The returned value is encoded as indented JSON.
type Handler func(ctx context.Context, args Arguments) (any, error)

type ToolSpec struct {
	Name        string
	Description string
	InputSchema map[string]any
	Handler     Handler
}

// Result is the outcome of a dispatched call. IsError marks argument and collaborator failures.
type Result struct {
	Text    string
	IsError bool
}

type Registry struct {
	tools  map[string]ToolSpec
	logger *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{tools: map[string]ToolSpec{}, logger: logger}
}

func (r *Registry) Add(spec ToolSpec) error {
	if spec.Name == "" {
		return errors.New("tool name required")
	}
	if spec.Handler == nil {
		return fmt.Errorf("tool %s has no handler", spec.Name)
	}
	r.tools[spec.Name] = spec
	return nil
}

func (r *Registry) Get(name string) (ToolSpec, bool) {
	spec, ok := r.tools[name]
	return spec, ok
}

// Specs returns the registered tools sorted by name.
func (r *Registry) Specs() []ToolSpec {
	specs := make([]ToolSpec, 0, len(r.tools))
	for _, spec := range r.tools {
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool {
		return specs[i].Name < specs[j].Name
	})
	return specs
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call dispatches name with args. Only an unknown tool is returned as an error.
func (r *Registry) Call(ctx context.Context, name string, args map[string]any) (Result, error) {
	spec, ok := r.tools[name]
	if !ok {
		r.logger.Warn("Unknown tool requested", zap.String("tool", name))
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return r.invoke(ctx, spec, args), nil
}

func (r *Registry) invoke(ctx context.Context, spec ToolSpec, args map[string]any) Result {
	start := time.Now()
	value, err := spec.Handler(ctx, Arguments(args))
	duration := time.Since(start)
	metrics.ToolDuration.WithLabelValues(spec.Name).Observe(duration.Seconds())

	if err != nil {
		outcome := "error"
		var argErr *ArgumentError
		if errors.As(err, &argErr) {
			outcome = "invalid"
		}
		metrics.ToolCalls.WithLabelValues(spec.Name, outcome).Inc()
		r.logger.Warn("Tool call failed",
			zap.String("tool", spec.Name),
			zap.String("outcome", outcome),
			zap.Duration("duration", duration),
			zap.Error(err))
		return Result{Text: err.Error(), IsError: true}
	}

	text, err := encode(value)
	if err != nil {
		metrics.ToolCalls.WithLabelValues(spec.Name, "error").Inc()
		r.logger.Error("Failed to encode tool result", zap.String("tool", spec.Name), zap.Error(err))
		return Result{Text: err.Error(), IsError: true}
	}

	metrics.ToolCalls.WithLabelValues(spec.Name, "ok").Inc()
	r.logger.Info("Tool call completed",
		zap.String("tool", spec.Name),
		zap.String("outcome", "ok"),
		zap.Duration("duration", duration))
	return Result{Text: text}
}

func encode(value any) (string, error) {
	if value == nil {
		return "{}", nil
	}
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}
	return string(data), nil
}
