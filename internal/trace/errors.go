package trace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"
)

// Failure phases recorded in error records.
const (
	PhaseStartup = "startup"
	PhaseRuntime = "runtime"
)

// ErrorRecord is the structured document written when a run fails during
// startup or execution. Its location is derivable from the run id so an
// operator can diagnose failures after an abnormal exit.
type ErrorRecord struct {
	RunID   string    `json:"run_id"`
	Phase   string    `json:"phase"`
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
	Stack   string    `json:"stack"`
	Time    time.Time `json:"time"`
}

// WriteErrorRecord persists an error record for the run. Falls back to
// the secondary location when the primary directory is not writable.
func (s *Store) WriteErrorRecord(runID, phase string, cause error) error {
	rec := ErrorRecord{
		RunID:   runID,
		Phase:   phase,
		Kind:    fmt.Sprintf("%T", cause),
		Message: cause.Error(),
		Stack:   string(debug.Stack()),
		Time:    nowUTC(),
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal error record: %w", err)
	}
	data = append(data, '\n')

	if err := writeFileMkdir(s.ErrorPath(runID), data); err != nil {
		alt := filepath.Join(s.fallback, runID+".error.json")
		if ferr := writeFileMkdir(alt, data); ferr != nil {
			return fmt.Errorf("write error record: %w", err)
		}
	}
	return nil
}

func writeFileMkdir(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
