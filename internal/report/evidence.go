package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/emirozbir/incident-triage/internal/redact"
)

const (
	maxEvents        = 5
	codeContextLines = 5
	unknownFile      = "unknown file"
)

// FormatKubernetesEvidence renders pod state and the most recent events.
func FormatKubernetesEvidence(pod, events any) string {
	if !truthy(pod) && !truthy(events) {
		return ""
	}

	var sb strings.Builder
	podMap := asMap(pod)

	if name := redact.Text(podMap["name"]); name != "" {
		fmt.Fprintf(&sb, "**Pod:** %s\n", name)
	}
	if status := redact.Text(podMap["status"]); status != "" {
		fmt.Fprintf(&sb, "**Status:** %s\n\n", status)
	}

	if containers := asSlice(podMap["containerStatuses"]); len(containers) > 0 {
		sb.WriteString("**Containers:**\n")
		for _, c := range containers {
			container := asMap(c)
			ready := "❌ Not Ready"
			if truthy(container["ready"]) {
				ready = "✅ Ready"
			}
			fmt.Fprintf(&sb, "- %s: %s", redact.Text(container["name"]), ready)
			if restarts, ok := number(container["restartCount"]); ok {
				fmt.Fprintf(&sb, " (Restarts: %s)", strconv.FormatFloat(restarts, 'f', -1, 64))
			}
			sb.WriteString("\n")

			state := asMap(container["state"])
			if terminated := state["terminated"]; truthy(terminated) {
				fmt.Fprintf(&sb, "  - Terminated: %s\n", redact.Text(asMap(terminated)["reason"]))
			}
			if waiting := state["waiting"]; truthy(waiting) {
				fmt.Fprintf(&sb, "  - Waiting: %s\n", redact.Text(asMap(waiting)["reason"]))
			}
		}
	}

	if list := asSlice(events); len(list) > 0 {
		if len(list) > maxEvents {
			list = list[len(list)-maxEvents:]
		}
		sb.WriteString("\n**Recent Events:**\n")
		for _, e := range list {
			event := asMap(e)
			icon := "ℹ️"
			if event["type"] == "Warning" {
				icon = "⚠️"
			}
			fmt.Fprintf(&sb, "%s [%s] %s\n", icon, redact.Text(event["reason"]), redact.Text(event["message"]))
		}
	}

	return strings.TrimSpace(sb.String())
}

// FormatCodeEvidence renders snippet as a fenced block numbered with absolute
// line numbers, marking lineNumber with ">>>". Numbering starts at
// max(1, lineNumber-5) when the snippet has at least six lines. A shorter
// snippet is assumed to end at lineNumber and starts at
// max(1, lineNumber-(len(lines)-1)), so the marker lands on a rendered line.
func FormatCodeEvidence(filePath string, lineNumber any, snippet, language string) string {
	if snippet == "" {
		return ""
	}

	target := 1
	if n, ok := coerceNumber(lineNumber); ok && n >= 1 {
		target = int(n)
	}

	lines := strings.Split(snippet, "\n")
	start := max(1, target-min(codeContextLines, len(lines)-1))

	if filePath == "" {
		filePath = unknownFile
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "**File:** `%s`\n", redact.String(filePath))
	fmt.Fprintf(&sb, "**Line:** %d\n\n", target)
	fmt.Fprintf(&sb, "```%s\n", redact.String(language))
	for i, line := range lines {
		n := start + i
		marker := "   "
		if n == target {
			marker = ">>>"
		}
		fmt.Fprintf(&sb, "%s %d: %s\n", marker, n, redact.String(line))
	}
	sb.WriteString("```")

	return strings.TrimSpace(sb.String())
}

// FormatNetworkEvidence renders an HTTP probe result. A string is returned
// redacted as-is; an object yields one line per present field.
func FormatNetworkEvidence(info any) string {
	switch v := info.(type) {
	case string:
		return redact.String(v)
	case map[string]any:
		data := redact.Map(v)
		var lines []string
		if url := redact.Text(data["url"]); url != "" {
			lines = append(lines, "**URL:** "+url)
		}
		if status, ok := present(data, "status_code"); ok {
			lines = append(lines, "**Status:** "+status)
		}
		if elapsed, ok := present(data, "response_time_ms"); ok {
			lines = append(lines, "**Response time:** "+elapsed+"ms")
		}
		if errText := redact.Text(data["error"]); errText != "" {
			lines = append(lines, "**Error:** "+errText)
		}
		return strings.Join(lines, "\n")
	default:
		return ""
	}
}

// present reports a non-null, non-empty value; numeric zero counts as present.
func present(data map[string]any, key string) (string, bool) {
	v, ok := data[key]
	if !ok || v == nil {
		return "", false
	}
	s := display(v)
	return s, s != ""
}
