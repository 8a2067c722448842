package trace

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(t.TempDir())
	s.SetFallbackDir(t.TempDir())
	return s
}

func TestAppendRead(t *testing.T) {
	s := newTestStore(t)

	s.Append("run1", Event{Kind: EventBefore, Tool: "read_file", CorrID: "c1"})
	s.Append("run1", Event{Kind: EventAfter, Tool: "read_file", CorrID: "c1",
		Payload: map[string]any{"result": "ok"}})

	events, err := s.Read("run1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Kind != EventBefore || events[1].Kind != EventAfter {
		t.Errorf("order = %s, %s; want before, after", events[0].Kind, events[1].Kind)
	}
	if events[0].CorrID != "c1" || events[1].CorrID != "c1" {
		t.Error("correlation id not preserved")
	}
	if events[0].Time.IsZero() {
		t.Error("timestamp should be stamped on append")
	}
	if events[0].PID != os.Getpid() {
		t.Errorf("pid = %d, want %d", events[0].PID, os.Getpid())
	}
	if events[1].Payload["result"] != "ok" {
		t.Errorf("payload result = %v, want ok", events[1].Payload["result"])
	}
}

func TestReadMissingRun(t *testing.T) {
	s := newTestStore(t)
	events, err := s.Read("nope")
	if err != nil {
		t.Fatalf("read of missing run should not error: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events, want 0", len(events))
	}
}

func TestReadMalformedLine(t *testing.T) {
	s := newTestStore(t)
	s.Append("run1", Event{Kind: EventBefore, Tool: "x", CorrID: "c1"})

	f, err := os.OpenFile(s.LogPath("run1"), os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	if _, err := f.WriteString("{not valid json\n"); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	f.Close()

	events, err := s.Read("run1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[1].Kind != EventRaw {
		t.Errorf("kind = %s, want raw", events[1].Kind)
	}
	if events[1].Raw != "{not valid json" {
		t.Errorf("raw = %q", events[1].Raw)
	}
}

func TestConcurrentAppends(t *testing.T) {
	s := newTestStore(t)

	const writers = 10
	const perWriter = 20
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				s.Append("run1", Event{
					Kind:   EventBefore,
					Tool:   "t",
					CorrID: fmt.Sprintf("w%d-%d", w, i),
				})
			}
		}(w)
	}
	wg.Wait()

	events, err := s.Read("run1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(events) != writers*perWriter {
		t.Fatalf("got %d events, want %d", len(events), writers*perWriter)
	}
	for _, ev := range events {
		if ev.Kind == EventRaw {
			t.Fatalf("concurrent appends produced a torn line: %q", ev.Raw)
		}
	}
}

func TestFallbackOnUnwritablePrimary(t *testing.T) {
	// Make the primary "directory" a regular file so appends must fail.
	blocked := filepath.Join(t.TempDir(), "blocked")
	if err := os.WriteFile(blocked, []byte("x"), 0644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	s := NewStore(filepath.Join(blocked, "runs"))
	s.SetFallbackDir(t.TempDir())

	s.Append("run1", Event{Kind: EventBefore, Tool: "x", CorrID: "c1"})

	if _, err := os.Stat(s.FallbackLogPath("run1")); err != nil {
		t.Fatalf("fallback log not written: %v", err)
	}
	events, err := s.Read("run1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(events) != 1 || events[0].CorrID != "c1" {
		t.Fatalf("events = %+v, want the fallback event", events)
	}
}

func TestCompact(t *testing.T) {
	s := newTestStore(t)
	s.Append("run1", Event{Kind: EventBefore, Tool: "x", CorrID: "c1"})

	s.Compact("run1")

	events, err := s.Read("run1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events after compact, want 0", len(events))
	}
}

func TestSanitizePayload(t *testing.T) {
	p := SanitizePayload(map[string]any{
		"ok":  "value",
		"bad": make(chan int),
	})
	if p["ok"] != "value" {
		t.Errorf("ok = %v", p["ok"])
	}
	if _, isString := p["bad"].(string); !isString {
		t.Errorf("unserializable value should be stringified, got %T", p["bad"])
	}
}
