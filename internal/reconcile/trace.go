package reconcile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ToolRef is a tool-call reference embedded in an agent trace entry.
type ToolRef struct {
	CorrID    string         `json:"corr_id" yaml:"corr_id"`
	Name      string         `json:"name" yaml:"name"`
	Arguments map[string]any `json:"arguments,omitempty" yaml:"arguments,omitempty"`
}

// TraceEntry is one role/content step of the agent runtime's own trace.
type TraceEntry struct {
	Role      string         `json:"role" yaml:"role"`
	Content   string         `json:"content,omitempty" yaml:"content,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	ToolCalls []ToolRef      `json:"tool_calls,omitempty" yaml:"tool_calls,omitempty"`
}

// Trace is the agent runtime's output trace, in whichever form it is
// available: structured entries, or an unstructured text rendering that
// can only be mined by pattern extraction.
type Trace struct {
	Entries []TraceEntry
	Text    string
}

// LoadTrace reads an exported agent trace file. JSON and YAML files are
// decoded into structured entries; anything else is kept as unstructured
// text for the extraction fallback.
func LoadTrace(path string) (*Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read agent trace: %w", err)
	}

	var entries []TraceEntry
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("parse agent trace: %w", err)
		}
		return &Trace{Entries: entries}, nil
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("parse agent trace: %w", err)
		}
		return &Trace{Entries: entries}, nil
	default:
		return &Trace{Text: string(data)}, nil
	}
}

// prompt returns the first user entry's content, if any.
func (t *Trace) prompt() string {
	if t == nil {
		return ""
	}
	for _, e := range t.Entries {
		if e.Role == "user" {
			return e.Content
		}
	}
	return ""
}
