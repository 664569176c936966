// Package report turns loosely shaped diagnosis input into a redacted
// Markdown report.
package report

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

const defaultTemplateName = "diagnostic-report.md.tmpl"

//go:embed templates/diagnostic-report.md.tmpl
var defaultTemplate string

// Result is a rendered report with the data it was built from.
type Result struct {
	Report string     `json:"report" yaml:"report"`
	Data   ReportData `json:"reportData" yaml:"reportData"`
}

// Renderer merges ReportData into a parsed Markdown template.
// It is safe for concurrent use.
type Renderer struct {
	tmpl    *template.Template
	builder *Builder
}

// NewRenderer parses the template at templatePath, or the built-in template
// when templatePath is empty. A nil builder uses the defaults.
func NewRenderer(templatePath string, builder *Builder) (*Renderer, error) {
	name, text := defaultTemplateName, defaultTemplate
	if templatePath != "" {
		content, err := os.ReadFile(templatePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read report template: %w", err)
		}
		name, text = filepath.Base(templatePath), string(content)
	}

	tmpl, err := template.New(name).Funcs(funcMap()).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse report template: %w", err)
	}

	if builder == nil {
		builder = defaultBuilder
	}
	return &Renderer{tmpl: tmpl, builder: builder}, nil
}

// Render normalizes raw and renders it.
func (r *Renderer) Render(raw map[string]any) (Result, error) {
	data := r.builder.Build(raw)
	report, err := r.RenderData(data)
	if err != nil {
		return Result{Data: data}, err
	}
	return Result{Report: report, Data: data}, nil
}

// RenderData renders already normalized data.
func (r *Renderer) RenderData(data ReportData) (string, error) {
	var sb strings.Builder
	if err := r.tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return sb.String(), nil
}

func funcMap() template.FuncMap {
	funcs := sprig.TxtFuncMap()
	funcs["severityIcon"] = severityIcon
	funcs["classificationIcon"] = classificationIcon
	return funcs
}

func severityIcon(severity string) string {
	switch severity {
	case SeverityCritical:
		return "🔴"
	case SeverityHigh:
		return "🟠"
	case SeverityLow:
		return "🟢"
	default:
		return "🟡"
	}
}

func classificationIcon(classification string) string {
	switch classification {
	case ClassificationInfrastructure:
		return "🏗️"
	case ClassificationCode:
		return "💻"
	default:
		return "❓"
	}
}
