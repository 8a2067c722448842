package trace

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"unicode/utf8"
)

func newTestTracer(t *testing.T) (*Tracer, *Store) {
	t.Helper()
	s := newTestStore(t)
	return NewTracer(s, "run1"), s
}

func TestDoEmitsBeforeAfter(t *testing.T) {
	tr, s := newTestTracer(t)

	out, err := Do(context.Background(), tr, "read_file", map[string]any{"path": "main.go"},
		func(ctx context.Context) (string, error) {
			return "hello", nil
		})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if out != "hello" {
		t.Errorf("out = %q, want hello", out)
	}

	events, err := s.Read("run1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}

	before, after := events[0], events[1]
	if before.Kind != EventBefore || after.Kind != EventAfter {
		t.Fatalf("kinds = %s, %s", before.Kind, after.Kind)
	}
	if before.CorrID == "" || before.CorrID != after.CorrID {
		t.Errorf("correlation ids differ: %q vs %q", before.CorrID, after.CorrID)
	}
	if before.Tool != "read_file" || after.Tool != "read_file" {
		t.Error("tool name not recorded on both events")
	}

	args, ok := before.Payload["arguments"].(map[string]any)
	if !ok || args["path"] != "main.go" {
		t.Errorf("before arguments = %v", before.Payload["arguments"])
	}
	if after.Payload["result"] != "hello" {
		t.Errorf("after result = %v", after.Payload["result"])
	}
	if n, ok := after.Payload["result_len"].(float64); !ok || n != 5 {
		t.Errorf("result_len = %v", after.Payload["result_len"])
	}
	if _, ok := after.Payload["duration_ms"]; !ok {
		t.Error("after event missing duration_ms")
	}
}

func TestDoErrorEmitsErrorEvent(t *testing.T) {
	tr, s := newTestTracer(t)

	sentinel := errors.New("boom")
	_, err := Do(context.Background(), tr, "run_bash", nil,
		func(ctx context.Context) (string, error) {
			return "", sentinel
		})
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want the original error unchanged", err)
	}

	events, _ := s.Read("run1")
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[1].Kind != EventError {
		t.Fatalf("kind = %s, want error", events[1].Kind)
	}
	if events[1].Payload["error"] != "boom" {
		t.Errorf("error payload = %v", events[1].Payload["error"])
	}
	if events[1].CorrID != events[0].CorrID {
		t.Error("error event should share the before event's correlation id")
	}
}

func TestDoWithUsesSuppliedCorrelationID(t *testing.T) {
	tr, s := newTestTracer(t)

	_, err := DoWith(context.Background(), tr, "my-corr", "t", nil,
		func(ctx context.Context) (string, error) { return "", nil })
	if err != nil {
		t.Fatalf("dowith: %v", err)
	}

	events, _ := s.Read("run1")
	for _, ev := range events {
		if ev.CorrID != "my-corr" {
			t.Errorf("corr id = %q, want my-corr", ev.CorrID)
		}
	}
}

func TestResultTruncation(t *testing.T) {
	tr, s := newTestTracer(t)
	tr.SetResultCap(10)

	long := strings.Repeat("x", 25)
	_, err := Do(context.Background(), tr, "t", nil,
		func(ctx context.Context) (string, error) { return long, nil })
	if err != nil {
		t.Fatalf("do: %v", err)
	}

	events, _ := s.Read("run1")
	after := events[1]
	want := strings.Repeat("x", 10) + TruncationMarker
	if after.Payload["result"] != want {
		t.Errorf("result = %q, want %q", after.Payload["result"], want)
	}
	if n, _ := after.Payload["result_len"].(float64); n != 25 {
		t.Errorf("result_len = %v, want full pre-truncation length 25", after.Payload["result_len"])
	}
}

func TestResultTruncationRuneBoundary(t *testing.T) {
	tr, s := newTestTracer(t)
	tr.SetResultCap(4)

	// "✕" is three bytes; a byte-wise cut at 4 would split the second rune.
	_, err := Do(context.Background(), tr, "t", nil,
		func(ctx context.Context) (string, error) { return "ab✕✕", nil })
	if err != nil {
		t.Fatalf("do: %v", err)
	}

	events, _ := s.Read("run1")
	result, _ := events[1].Payload["result"].(string)
	if !utf8.ValidString(result) {
		t.Fatalf("truncated result is not valid UTF-8: %q", result)
	}
	if result != "ab"+TruncationMarker {
		t.Errorf("result = %q, want %q", result, "ab"+TruncationMarker)
	}
	if n, _ := events[1].Payload["result_len"].(float64); n != 8 {
		t.Errorf("result_len = %v, want full byte length 8", events[1].Payload["result_len"])
	}
}

func TestDoUnserializableArgument(t *testing.T) {
	tr, s := newTestTracer(t)

	_, err := Do(context.Background(), tr, "t", map[string]any{"ch": make(chan int)},
		func(ctx context.Context) (string, error) { return "", nil })
	if err != nil {
		t.Fatalf("do: %v", err)
	}

	events, _ := s.Read("run1")
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: unserializable args must not drop events", len(events))
	}
	if events[0].Kind == EventRaw {
		t.Fatal("before event failed to serialize")
	}
	if _, ok := events[0].Payload["arguments"].(string); !ok {
		t.Errorf("arguments should be stringified, got %T", events[0].Payload["arguments"])
	}
}

func TestWriteErrorRecord(t *testing.T) {
	s := newTestStore(t)

	if err := s.WriteErrorRecord("run1", PhaseStartup, errors.New("no api key")); err != nil {
		t.Fatalf("write error record: %v", err)
	}
	data, err := os.ReadFile(s.ErrorPath("run1"))
	if err != nil {
		t.Fatalf("read error record: %v", err)
	}
	for _, want := range []string{"run1", PhaseStartup, "no api key"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("error record missing %q", want)
		}
	}
}
