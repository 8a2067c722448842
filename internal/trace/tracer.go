package trace

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// DefaultResultCap bounds the size of result summaries stored in "after"
// event payloads.
const DefaultResultCap = 20000

// TruncationMarker is appended to a result summary that was cut at the cap.
const TruncationMarker = "...[truncated]"

// Tracer wraps invocable actions with before/after/error event emission
// under a fresh correlation id per call. It is purely observational: it
// never suppresses or alters the wrapped action's failure.
type Tracer struct {
	store     *Store
	runID     string
	resultCap int
	otel      oteltrace.Tracer
}

// NewTracer creates a tracer writing to store under runID.
func NewTracer(store *Store, runID string) *Tracer {
	return &Tracer{
		store:     store,
		runID:     runID,
		resultCap: DefaultResultCap,
		otel:      otel.Tracer("codeagent/trace"),
	}
}

// RunID returns the run this tracer is bound to.
func (t *Tracer) RunID() string { return t.runID }

// Store returns the underlying event store.
func (t *Tracer) Store() *Store { return t.store }

// SetResultCap overrides the result summary cap. Values <= 0 keep the default.
func (t *Tracer) SetResultCap(n int) {
	if n > 0 {
		t.resultCap = n
	}
}

// NewCorrelationID generates a correlation id for use with DoWith, for
// callers that need to link the traced call to their own records.
func (t *Tracer) NewCorrelationID() string { return uuid.NewString() }

// Do invokes fn under a fresh correlation id, emitting a "before" event
// carrying args, then "after" with a bounded result summary and elapsed
// duration, or "error" with the failure description. The original error
// is returned unchanged.
func Do[T any](ctx context.Context, t *Tracer, tool string, args map[string]any, fn func(context.Context) (T, error)) (T, error) {
	return DoWith(ctx, t, t.NewCorrelationID(), tool, args, fn)
}

// DoWith is Do with a caller-supplied correlation id.
func DoWith[T any](ctx context.Context, t *Tracer, corrID, tool string, args map[string]any, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := t.otel.Start(ctx, "tool."+tool, oteltrace.WithAttributes(
		attribute.String("tool.name", tool),
		attribute.String("tool.corr_id", corrID),
	))
	defer span.End()

	t.store.Append(t.runID, Event{
		Kind:    EventBefore,
		Tool:    tool,
		CorrID:  corrID,
		Payload: map[string]any{"arguments": args},
	})

	start := time.Now()
	out, err := fn(ctx)
	elapsed := time.Since(start)

	if err != nil {
		span.RecordError(err)
		t.store.Append(t.runID, Event{
			Kind:   EventError,
			Tool:   tool,
			CorrID: corrID,
			Payload: map[string]any{
				"error":       err.Error(),
				"duration_ms": elapsed.Milliseconds(),
			},
		})
		return out, err
	}

	summary, size := t.summarize(out)
	t.store.Append(t.runID, Event{
		Kind:   EventAfter,
		Tool:   tool,
		CorrID: corrID,
		Payload: map[string]any{
			"result":      summary,
			"result_len":  size,
			"duration_ms": elapsed.Milliseconds(),
		},
	})
	return out, nil
}

// summarize renders a result as text and applies the result cap. Returns
// the (possibly truncated) summary and the full pre-truncation length.
func (t *Tracer) summarize(v any) (string, int) {
	var s string
	switch val := v.(type) {
	case string:
		s = val
	default:
		if b, err := json.Marshal(v); err == nil {
			s = string(b)
		} else {
			s = fmt.Sprintf("%v", v)
		}
	}
	size := len(s)
	if size > t.resultCap {
		// Back off to a rune boundary so the prefix stays valid UTF-8.
		cut := t.resultCap
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + TruncationMarker
	}
	return s, size
}
