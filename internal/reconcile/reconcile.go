package reconcile

import (
	"fmt"
	"sort"

	"github.com/jmorales/codeagent/internal/trace"
)

// Reconciler reads back a run's events and produces its consolidated
// record. Its failure mode is degrade-gracefully: malformed events and
// unparseable trace fragments are recorded as anomalies, never an abort.
type Reconciler struct {
	store *trace.Store
}

// New creates a reconciler over store.
func New(store *trace.Store) *Reconciler {
	return &Reconciler{store: store}
}

// Reconcile groups the run's events by correlation id, pairs each before
// event with its terminal after/error event into ToolCallRecords, and
// merges the agent runtime's own trace when available. Events that cannot
// be attributed to a pairing go to the unattributed bucket, never
// dropped. agentTrace may be nil.
func (r *Reconciler) Reconcile(runID string, agentTrace *Trace) (*RunRecord, error) {
	events, err := r.store.Read(runID)
	if err != nil {
		return nil, fmt.Errorf("reconcile %s: %w", runID, err)
	}

	rec := &RunRecord{RunID: runID, Events: events}

	groups := make(map[string][]trace.Event)
	var order []string
	for _, ev := range events {
		switch {
		case ev.Kind == trace.EventRaw:
			rec.Unattributed = append(rec.Unattributed, ev)
			rec.Anomalies = append(rec.Anomalies, "unparseable event line")
		case ev.CorrID == "":
			rec.Unattributed = append(rec.Unattributed, ev)
		default:
			if _, seen := groups[ev.CorrID]; !seen {
				order = append(order, ev.CorrID)
			}
			groups[ev.CorrID] = append(groups[ev.CorrID], ev)
		}
	}

	for _, id := range order {
		group := groups[id]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Time.Before(group[j].Time)
		})

		var before, terminal *trace.Event
		for i := range group {
			switch group[i].Kind {
			case trace.EventBefore:
				if before == nil {
					before = &group[i]
				}
			case trace.EventAfter, trace.EventError:
				if terminal == nil {
					terminal = &group[i]
				}
			}
		}

		if before == nil {
			// Terminal event with no preceding before: orphaned.
			rec.Unattributed = append(rec.Unattributed, group...)
			rec.Anomalies = append(rec.Anomalies, fmt.Sprintf("correlation %s has no before event", id))
			continue
		}

		call := ToolCallRecord{
			Name:      group[0].Tool,
			CorrID:    id,
			StartedAt: before.Time,
			Arguments: argumentsOf(before),
		}
		if terminal == nil {
			rec.Anomalies = append(rec.Anomalies, fmt.Sprintf("correlation %s never settled", id))
		} else {
			call.DurationMs = payloadInt(terminal.Payload, "duration_ms")
			if terminal.Kind == trace.EventError {
				call.Error = payloadString(terminal.Payload, "error")
			} else {
				call.Result = payloadString(terminal.Payload, "result")
				call.ResultLen = int(payloadInt(terminal.Payload, "result_len"))
			}
		}
		rec.Calls = append(rec.Calls, call)
	}

	if len(events) > 0 {
		first := events[0]
		for _, ev := range events {
			if ev.Kind != trace.EventRaw && (first.Time.IsZero() || ev.Time.Before(first.Time)) {
				first = ev
			}
		}
		rec.StartedAt = first.Time
		rec.PID = first.PID
		last := first.Time
		for _, ev := range events {
			if ev.Time.After(last) {
				last = ev.Time
			}
		}
		rec.DurationMs = last.Sub(first.Time).Milliseconds()
	}

	r.mergeTrace(rec, agentTrace)
	return rec, nil
}

// mergeTrace enriches the record from the agent runtime's trace: by
// correlation-id join when structured entries are available, via pattern
// extraction when only a text rendering exists.
func (r *Reconciler) mergeTrace(rec *RunRecord, agentTrace *Trace) {
	if agentTrace == nil {
		return
	}
	if rec.Prompt == "" {
		rec.Prompt = agentTrace.prompt()
	}

	// Index into rec.Calls rather than holding pointers: recovered calls
	// are appended below, and an append can reallocate the backing array
	// out from under any pointer taken earlier.
	byCorr := make(map[string]int, len(rec.Calls))
	for i := range rec.Calls {
		byCorr[rec.Calls[i].CorrID] = i
	}

	var recovered []ToolCallRecord
	if len(agentTrace.Entries) > 0 {
		for _, entry := range agentTrace.Entries {
			for _, ref := range entry.ToolCalls {
				i, ok := byCorr[ref.CorrID]
				if !ok {
					recovered = append(recovered, ToolCallRecord{
						Name:      ref.Name,
						CorrID:    ref.CorrID,
						Arguments: ref.Arguments,
						Recovered: true,
					})
					rec.Anomalies = append(rec.Anomalies, fmt.Sprintf("trace references correlation %s with no logged events", ref.CorrID))
					continue
				}
				call := &rec.Calls[i]
				if call.Name == "" {
					call.Name = ref.Name
				}
				if call.Arguments == nil {
					call.Arguments = ref.Arguments
				}
			}
		}
		rec.Calls = append(rec.Calls, recovered...)
		return
	}

	if agentTrace.Text == "" {
		return
	}
	for _, rc := range ExtractCalls(agentTrace.Text) {
		if i, ok := byCorr[rc.ID]; ok {
			call := &rec.Calls[i]
			if call.Name == "" {
				call.Name = rc.Name
			}
			if call.Arguments == nil {
				call.Arguments = rc.Arguments
			}
			continue
		}
		recovered = append(recovered, ToolCallRecord{
			Name:      rc.Name,
			CorrID:    rc.ID,
			Arguments: rc.Arguments,
			Recovered: true,
		})
	}
	rec.Calls = append(rec.Calls, recovered...)
}

// argumentsOf pulls the invocation arguments out of a before payload.
func argumentsOf(ev *trace.Event) map[string]any {
	if ev.Payload == nil {
		return nil
	}
	if args, ok := ev.Payload["arguments"].(map[string]any); ok {
		return args
	}
	return nil
}

func payloadString(p map[string]any, key string) string {
	if s, ok := p[key].(string); ok {
		return s
	}
	return ""
}

func payloadInt(p map[string]any, key string) int64 {
	switch n := p[key].(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	}
	return 0
}
