// Package reconcile folds a run's raw trace events into one consolidated,
// human- and machine-readable run record.
package reconcile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmorales/codeagent/internal/trace"
)

// ToolCallRecord is the human-facing unit a report consists of: one tool
// invocation reconstructed from its before/after (or before/error) event
// pair, or recovered from an unstructured trace rendering. Fields that
// could not be recovered are left absent, never fabricated.
type ToolCallRecord struct {
	Name       string         `json:"name,omitempty"`
	CorrID     string         `json:"corr_id,omitempty"`
	Arguments  map[string]any `json:"arguments,omitempty"`
	StartedAt  time.Time      `json:"started_at,omitzero"`
	Result     string         `json:"result,omitempty"`
	Error      string         `json:"error,omitempty"`
	ResultLen  int            `json:"result_len,omitempty"`
	DurationMs int64          `json:"duration_ms,omitempty"`

	// Recovered marks records rebuilt via pattern extraction rather than
	// from a complete event pair.
	Recovered bool `json:"recovered,omitempty"`
}

// RunRecord is the consolidated document for one run. Once written, the
// raw event log can be compacted away without information loss: the
// ordered events are embedded here.
type RunRecord struct {
	RunID        string           `json:"run_id"`
	Prompt       string           `json:"prompt,omitempty"`
	StartedAt    time.Time        `json:"started_at,omitzero"`
	DurationMs   int64            `json:"duration_ms,omitempty"`
	PID          int              `json:"pid,omitempty"`
	Events       []trace.Event    `json:"events"`
	Calls        []ToolCallRecord `json:"tool_calls"`
	Unattributed []trace.Event    `json:"unattributed,omitempty"`
	Anomalies    []string         `json:"anomalies,omitempty"`
	Result       string           `json:"result,omitempty"`
}

// WriteRecord persists the record next to the run's event log and
// returns the path written.
func WriteRecord(store *trace.Store, rec *RunRecord) (string, error) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal run record: %w", err)
	}
	path := store.RecordPath(rec.RunID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("write run record: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return "", fmt.Errorf("write run record: %w", err)
	}
	return path, nil
}

// LoadRecord reads a previously written run record.
func LoadRecord(path string) (*RunRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec RunRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse run record: %w", err)
	}
	return &rec, nil
}
