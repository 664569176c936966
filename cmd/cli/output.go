package main

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/emirozbir/incident-triage/internal/formatter"
	"github.com/emirozbir/incident-triage/internal/report"
)

const (
	formatMarkdown = "markdown"
	formatJSON     = "json"
	formatYAML     = "yaml"
	formatTerminal = "terminal"
)

func validateFormat(format string) error {
	switch format {
	case formatMarkdown, formatJSON, formatYAML, formatTerminal:
		return nil
	default:
		return fmt.Errorf("unsupported format %q: use markdown, json, yaml or terminal", format)
	}
}

func writeResult(w io.Writer, result report.Result, format string, colors bool) error {
	switch format {
	case formatJSON:
		output, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		_, err = fmt.Fprintln(w, string(output))
		return err
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		return enc.Close()
	case formatTerminal:
		_, err := fmt.Fprintln(w, formatter.NewFormatter(colors).FormatReport(result.Data))
		return err
	default:
		_, err := fmt.Fprintln(w, result.Report)
		return err
	}
}
