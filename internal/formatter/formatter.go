// Package formatter prints a diagnostic report as a colored terminal summary.
package formatter

import (
	"fmt"
	"strings"

	"github.com/emirozbir/incident-triage/internal/report"
)

const (
	divider      = "═══════════════════════════════════════════════════════════════════════════════"
	sectionBreak = "───────────────────────────────────────────────────────────────────────────────"
)

type Formatter struct {
	useColors bool
}

func NewFormatter(useColors bool) *Formatter {
	return &Formatter{
		useColors: useColors,
	}
}

func (f *Formatter) FormatReport(data report.ReportData) string {
	var sb strings.Builder

	// Header
	sb.WriteString("\n")
	sb.WriteString(f.color(Cyan, divider))
	sb.WriteString("\n")
	sb.WriteString(f.bold(Cyan, "  🩺 INCIDENT TRIAGE REPORT"))
	sb.WriteString("\n")
	sb.WriteString(f.color(Cyan, divider))
	sb.WriteString("\n\n")

	f.writeTicket(&sb, data)

	f.writeSection(&sb, "📝 SUMMARY")
	sb.WriteString(indentText(data.Summary, "  "))
	sb.WriteString("\n\n")

	f.writeError(&sb, data)
	f.writeEvidence(&sb, data)

	f.writeSection(&sb, "🎯 ROOT CAUSE")
	sb.WriteString("  ")
	sb.WriteString(f.bold(Yellow, data.RootCause))
	sb.WriteString("\n\n")

	f.writeSection(&sb, "💡 SUGGESTIONS")
	for i, suggestion := range data.Suggestions {
		fmt.Fprintf(&sb, "  %s. %s\n", f.color(Yellow, fmt.Sprintf("%d", i+1)), suggestion)
	}
	sb.WriteString("\n")

	f.writeSection(&sb, "➡️  NEXT STEPS")
	for _, step := range data.NextSteps {
		fmt.Fprintf(&sb, "  %s %s\n", f.color(Gray, "[ ]"), step)
	}
	sb.WriteString("\n")

	// Footer
	fmt.Fprintf(&sb, "  Feedback: %s\n", f.color(Cyan, data.FeedbackURL))
	sb.WriteString(f.color(Cyan, divider))
	sb.WriteString("\n")

	return sb.String()
}

func (f *Formatter) writeTicket(sb *strings.Builder, data report.ReportData) {
	f.writeSection(sb, "📋 TICKET")

	fmt.Fprintf(sb, "  Ticket:          %s\n", f.bold(White, data.TicketID))
	fmt.Fprintf(sb, "  Service:         %s\n", f.color(Cyan, data.ServiceName))
	fmt.Fprintf(sb, "  Namespace:       %s\n", f.color(Cyan, data.Namespace))
	fmt.Fprintf(sb, "  Timestamp:       %s\n", f.color(Gray, data.Timestamp))
	fmt.Fprintf(sb, "  Severity:        %s\n", f.badge(severityBadge(data.Severity)))
	fmt.Fprintf(sb, "  Classification:  %s\n", f.badge(classificationBadge(data.Classification)))
	fmt.Fprintf(sb, "  Confidence:      %s\n", f.badge(confidenceBadge(data.Confidence)))
	sb.WriteString("\n")
}

func (f *Formatter) writeError(sb *strings.Builder, data report.ReportData) {
	f.writeSection(sb, "❌ ERROR")
	sb.WriteString("  ")
	sb.WriteString(f.color(Red, data.ErrorMessage))
	sb.WriteString("\n")

	if data.StackTrace != report.DefaultStackTrace {
		sb.WriteString("\n")
		sb.WriteString(f.color(Gray, indentText(data.StackTrace, "    ")))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}

func (f *Formatter) writeEvidence(sb *strings.Builder, data report.ReportData) {
	sections := []struct {
		title, body string
	}{
		{"Kubernetes", data.KubernetesEvidence},
		{"Code", data.CodeEvidence},
		{"Network", data.NetworkEvidence},
	}

	hasEvidence := false
	for _, s := range sections {
		if s.body != "" {
			hasEvidence = true
		}
	}
	if !hasEvidence {
		return
	}

	f.writeSection(sb, "🔎 EVIDENCE")
	for _, s := range sections {
		if s.body == "" {
			continue
		}
		sb.WriteString(f.bold(White, "  "+s.title+":"))
		sb.WriteString("\n")
		for _, line := range strings.Split(s.body, "\n") {
			sb.WriteString("    ")
			sb.WriteString(f.evidenceLine(line))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
}

// evidenceLine highlights warning events and the marked code line.
func (f *Formatter) evidenceLine(line string) string {
	switch {
	case strings.HasPrefix(line, ">>>"):
		return f.bold(Red, line)
	case strings.HasPrefix(line, "⚠️"), strings.Contains(line, "❌"):
		return f.color(Yellow, line)
	case strings.HasPrefix(line, "```"):
		return f.color(Gray, line)
	default:
		return line
	}
}

func (f *Formatter) writeSection(sb *strings.Builder, title string) {
	sb.WriteString(f.bold(Blue, title))
	sb.WriteString("\n")
	sb.WriteString(f.color(Gray, sectionBreak))
	sb.WriteString("\n")
}

func (f *Formatter) color(color, text string) string {
	if !f.useColors {
		return text
	}
	return Colorize(color, text)
}

func (f *Formatter) bold(color, text string) string {
	if !f.useColors {
		return text
	}
	return BoldColorize(color, text)
}

func (f *Formatter) badge(b badge) string {
	if !f.useColors {
		return strings.TrimSpace(b.label)
	}
	return BoldColorize(b.color, b.label)
}

func indentText(text string, indent string) string {
	lines := strings.Split(text, "\n")
	var result strings.Builder

	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			result.WriteString(indent)
			result.WriteString(line)
		}
		if i < len(lines)-1 {
			result.WriteString("\n")
		}
	}

	return result.String()
}
