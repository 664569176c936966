package report

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
)

//go:embed scenarios/*.json
var scenarioFS embed.FS

// Scenario is a reference diagnosis input shipped with the binary.
type Scenario struct {
	Name  string
	Input map[string]any
}

// Scenarios returns the built-in reference inputs sorted by name.
func Scenarios() ([]Scenario, error) {
	entries, err := scenarioFS.ReadDir("scenarios")
	if err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}

	var out []Scenario
	for _, entry := range entries {
		data, err := scenarioFS.ReadFile(path.Join("scenarios", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read scenario %s: %w", entry.Name(), err)
		}
		var input map[string]any
		if err := json.Unmarshal(data, &input); err != nil {
			return nil, fmt.Errorf("failed to parse scenario %s: %w", entry.Name(), err)
		}
		out = append(out, Scenario{
			Name:  strings.TrimSuffix(entry.Name(), path.Ext(entry.Name())),
			Input: input,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
