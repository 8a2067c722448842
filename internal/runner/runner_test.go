package runner

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/jmorales/codeagent/internal/reconcile"
	"github.com/jmorales/codeagent/internal/tools"
	"github.com/jmorales/codeagent/internal/trace"
)

func newTestRunner(t *testing.T, defs []tools.Definition) (*Runner, *trace.Store) {
	t.Helper()
	s := trace.NewStore(t.TempDir())
	s.SetFallbackDir(t.TempDir())
	r := &Runner{
		tools:  defs,
		tracer: trace.NewTracer(s, "run1"),
		hooks:  NopHooks{},
	}
	return r, s
}

func echoDefinition(invoked *bool) tools.Definition {
	return tools.Definition{
		Name: "echo",
		Run: func(ctx context.Context, input json.RawMessage) (string, error) {
			*invoked = true
			var in struct {
				Msg string `json:"msg"`
			}
			if err := json.Unmarshal(input, &in); err != nil {
				return "", err
			}
			return in.Msg, nil
		},
	}
}

func TestExecToolTracesAndLinksEntry(t *testing.T) {
	var invoked bool
	r, s := newTestRunner(t, []tools.Definition{echoDefinition(&invoked)})

	var entry reconcile.TraceEntry
	r.execTool(context.Background(), "toolu_1", "echo", json.RawMessage(`{"msg": "hi"}`), &entry)

	if !invoked {
		t.Fatal("tool handler was not invoked")
	}
	if len(entry.ToolCalls) != 1 {
		t.Fatalf("entry.ToolCalls = %+v, want 1 ref", entry.ToolCalls)
	}
	ref := entry.ToolCalls[0]
	if ref.Name != "echo" || ref.CorrID == "" {
		t.Errorf("ref = %+v", ref)
	}
	if ref.Arguments["msg"] != "hi" {
		t.Errorf("ref arguments = %v", ref.Arguments)
	}

	events, err := s.Read("run1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want before/after pair", len(events))
	}
	// The entry's correlation id must match the logged pair so the
	// reconciler can join them.
	if events[0].CorrID != ref.CorrID || events[1].CorrID != ref.CorrID {
		t.Errorf("event corr ids %q/%q, want %q", events[0].CorrID, events[1].CorrID, ref.CorrID)
	}
	if events[1].Payload["result"] != "hi" {
		t.Errorf("after result = %v", events[1].Payload["result"])
	}
}

func TestExecToolNotFound(t *testing.T) {
	r, s := newTestRunner(t, nil)

	var entry reconcile.TraceEntry
	r.execTool(context.Background(), "toolu_1", "nope", nil, &entry)

	if len(entry.ToolCalls) != 1 {
		t.Fatalf("the attempt should still be referenced: %+v", entry.ToolCalls)
	}

	events, _ := s.Read("run1")
	if len(events) != 2 {
		t.Fatalf("got %d events, want before/error pair", len(events))
	}
	if events[1].Kind != trace.EventError {
		t.Errorf("kind = %s, want error", events[1].Kind)
	}
}

func TestExecToolErrorTraced(t *testing.T) {
	def := tools.Definition{
		Name: "fails",
		Run: func(ctx context.Context, input json.RawMessage) (string, error) {
			return "", context.DeadlineExceeded
		},
	}
	r, s := newTestRunner(t, []tools.Definition{def})

	var entry reconcile.TraceEntry
	r.execTool(context.Background(), "toolu_1", "fails", json.RawMessage(`{}`), &entry)

	events, _ := s.Read("run1")
	if len(events) != 2 || events[1].Kind != trace.EventError {
		t.Fatalf("events = %+v, want before/error pair", events)
	}
}
