package formatter

import (
	"fmt"
	"strings"

	"github.com/emirozbir/incident-triage/internal/report"
)

// ANSI color codes for terminal output
const (
	Reset = "\033[0m"
	Bold  = "\033[1m"

	// Foreground colors
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
	White   = "\033[37m"
	Gray    = "\033[90m"

	// Background colors
	BgRed    = "\033[41m"
	BgGreen  = "\033[42m"
	BgYellow = "\033[43m"
	BgBlue   = "\033[44m"
)

func Colorize(color, text string) string {
	return fmt.Sprintf("%s%s%s", color, text, Reset)
}

func BoldColorize(color, text string) string {
	return fmt.Sprintf("%s%s%s%s", Bold, color, text, Reset)
}

// badge is a short status label and the color it is drawn in.
type badge struct {
	label string
	color string
}

func severityBadge(severity string) badge {
	label := " " + severity + " "
	switch severity {
	case report.SeverityCritical:
		return badge{label, BgRed}
	case report.SeverityHigh:
		return badge{label, Red}
	case report.SeverityMedium:
		return badge{label, BgYellow}
	case report.SeverityLow:
		return badge{label, BgBlue}
	default:
		return badge{label, Gray}
	}
}

func confidenceBadge(confidence string) badge {
	label := "● " + strings.ToUpper(confidence)
	switch confidence {
	case report.ConfidenceHigh:
		return badge{label, Green}
	case report.ConfidenceMedium:
		return badge{label, Yellow}
	case report.ConfidenceLow:
		return badge{label, Red}
	default:
		return badge{"● UNKNOWN", Gray}
	}
}

func classificationBadge(classification string) badge {
	switch classification {
	case report.ClassificationInfrastructure:
		return badge{"🏗️ infrastructure", Magenta}
	case report.ClassificationCode:
		return badge{"💻 code", Blue}
	default:
		return badge{"❓ " + classification, Gray}
	}
}
