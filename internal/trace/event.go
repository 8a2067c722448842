// Package trace records the lifecycle of every tool invocation as an
// append-only stream of correlated events, one JSON line per event.
package trace

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event kinds. Every invocation produces one "before" event and, on
// settlement, one "after" or "error" event sharing the correlation id.
const (
	EventBefore = "before"
	EventAfter  = "after"
	EventError  = "error"

	// EventRaw wraps a log line that could not be parsed. Raw events are
	// only ever produced at read time, never written.
	EventRaw = "raw"
)

// Event is one line of a per-run event log. Events are immutable once
// written; the log is append-only.
type Event struct {
	Kind    string         `json:"event"`
	Tool    string         `json:"tool,omitempty"`
	CorrID  string         `json:"corr_id,omitempty"`
	Time    time.Time      `json:"time"`
	PID     int            `json:"pid"`
	Payload map[string]any `json:"payload,omitempty"`

	// Raw holds the original log line when it failed to parse.
	Raw string `json:"raw,omitempty"`
}

func nowUTC() time.Time { return time.Now().UTC() }

// SanitizePayload returns a copy of fields in which every value survives
// JSON marshaling. Values that fail structured serialization are replaced
// by their fmt rendering rather than dropped. Lossy and irreversible.
func SanitizePayload(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if _, err := json.Marshal(v); err != nil {
			out[k] = fmt.Sprintf("%v", v)
			continue
		}
		out[k] = v
	}
	return out
}
