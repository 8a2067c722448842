package trace

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Store persists run event logs under a base directory, one JSONL file
// per run. Appends are single open-append-close writes so that multiple
// processes sharing a run id never corrupt each other's lines.
type Store struct {
	dir      string
	fallback string
}

// NewStore creates a store rooted at dir. Nothing is created on disk
// until the first append.
func NewStore(dir string) *Store {
	return &Store{
		dir:      dir,
		fallback: filepath.Join(os.TempDir(), "codeagent-events"),
	}
}

// SetFallbackDir overrides the secondary location used when the primary
// directory is not writable.
func (s *Store) SetFallbackDir(dir string) { s.fallback = dir }

// LogPath returns the primary event log path for a run.
func (s *Store) LogPath(runID string) string {
	return filepath.Join(s.dir, runID+".events.jsonl")
}

// FallbackLogPath returns the secondary event log path for a run.
func (s *Store) FallbackLogPath(runID string) string {
	return filepath.Join(s.fallback, runID+".events.jsonl")
}

// RecordPath returns the consolidated run record path for a run.
func (s *Store) RecordPath(runID string) string {
	return filepath.Join(s.dir, runID+".record.json")
}

// ErrorPath returns the error record path for a run.
func (s *Store) ErrorPath(runID string) string {
	return filepath.Join(s.dir, runID+".error.json")
}

// Append durably appends one event to the run's log. It never returns an
// error: tracing must not abort the traced action. On a primary write
// failure the event goes to the fallback location; if that also fails a
// diagnostic is printed and the event is dropped.
func (s *Store) Append(runID string, ev Event) {
	if ev.Time.IsZero() {
		ev.Time = nowUTC()
	}
	if ev.PID == 0 {
		ev.PID = os.Getpid()
	}
	ev.Payload = SanitizePayload(ev.Payload)

	line, err := json.Marshal(ev)
	if err != nil {
		// Unreachable after sanitization, but never panic over telemetry.
		fmt.Fprintf(os.Stderr, "trace: marshal event: %v\n", err)
		return
	}

	if err := appendLine(s.LogPath(runID), line); err != nil {
		if ferr := appendLine(s.FallbackLogPath(runID), line); ferr != nil {
			fmt.Fprintf(os.Stderr, "trace: dropping event for run %s: %v (fallback: %v)\n", runID, err, ferr)
		}
	}
}

// appendLine writes one complete line with a single open-append-close so
// concurrent writers never interleave partial lines.
func appendLine(path string, line []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	_, werr := f.Write(append(line, '\n'))
	cerr := f.Close()
	if werr != nil {
		return werr
	}
	return cerr
}

// Read returns the ordered events for a run. Malformed lines are wrapped
// as raw events rather than failing the read. Lines that landed in the
// fallback location are merged after the primary file's lines; callers
// needing a total order sort by timestamp.
func (s *Store) Read(runID string) ([]Event, error) {
	events, err := readEvents(s.LogPath(runID))
	if err != nil {
		return nil, err
	}
	fallback, err := readEvents(s.FallbackLogPath(runID))
	if err != nil {
		return nil, err
	}
	return append(events, fallback...), nil
}

func readEvents(path string) ([]Event, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()

	var events []Event
	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadBytes('\n')
		atEOF := err == io.EOF
		if err != nil && !atEOF {
			return events, fmt.Errorf("read event log: %w", err)
		}
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			var ev Event
			if uerr := json.Unmarshal(line, &ev); uerr != nil || ev.Kind == "" {
				ev = Event{Kind: EventRaw, Raw: string(line)}
			}
			events = append(events, ev)
		}
		if atEOF {
			return events, nil
		}
	}
}

// Compact deletes the raw event log(s) for a run after their contents
// have been folded into a consolidated record. Failure to delete is
// non-fatal and silently ignored.
func (s *Store) Compact(runID string) {
	_ = os.Remove(s.LogPath(runID))
	_ = os.Remove(s.FallbackLogPath(runID))
}
