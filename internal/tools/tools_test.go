package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestWorkspace(t *testing.T) *Workspace {
	t.Helper()
	ws, err := NewWorkspace(t.TempDir())
	if err != nil {
		t.Fatalf("new workspace: %v", err)
	}
	return ws
}

func runDef(t *testing.T, def Definition, input string) (string, error) {
	t.Helper()
	return def.Run(context.Background(), json.RawMessage(input))
}

func TestResolveRejectsEscape(t *testing.T) {
	ws := newTestWorkspace(t)

	for _, rel := range []string{"../outside.txt", "a/../../outside.txt", "../../etc/passwd"} {
		if _, err := ws.Resolve(rel); err == nil {
			t.Errorf("Resolve(%q) should fail", rel)
		} else if !strings.Contains(err.Error(), "escapes workspace root") {
			t.Errorf("Resolve(%q) error = %v", rel, err)
		}
	}
}

func TestResolveInside(t *testing.T) {
	ws := newTestWorkspace(t)

	got, err := ws.Resolve("sub/file.txt")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if want := filepath.Join(ws.Root(), "sub", "file.txt"); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestWriteThenReadFile(t *testing.T) {
	ws := newTestWorkspace(t)

	out, err := runDef(t, ws.WriteFileDefinition(), `{"path": "notes/hello.txt", "content": "hi there"}`)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(out, "8 characters") {
		t.Errorf("write output = %q", out)
	}

	got, err := runDef(t, ws.ReadFileDefinition(), `{"path": "notes/hello.txt"}`)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != "hi there" {
		t.Errorf("read = %q", got)
	}
}

func TestReadFileMissing(t *testing.T) {
	ws := newTestWorkspace(t)
	if _, err := runDef(t, ws.ReadFileDefinition(), `{"path": "nope.txt"}`); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestReadFileEscape(t *testing.T) {
	ws := newTestWorkspace(t)
	_, err := runDef(t, ws.ReadFileDefinition(), `{"path": "../secret.txt"}`)
	if err == nil || !strings.Contains(err.Error(), "escapes workspace root") {
		t.Errorf("err = %v", err)
	}
}

func TestRunBash(t *testing.T) {
	ws := newTestWorkspace(t)

	out, err := runDef(t, ws.RunBashDefinition(), `{"command": "echo hello"}`)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != "hello" {
		t.Errorf("out = %q", out)
	}
}

func TestRunBashWorkingDirectory(t *testing.T) {
	ws := newTestWorkspace(t)
	if err := os.WriteFile(filepath.Join(ws.Root(), "marker.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	out, err := runDef(t, ws.RunBashDefinition(), `{"command": "ls"}`)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "marker.txt") {
		t.Errorf("out = %q, want workspace listing", out)
	}
}

func TestRunBashNonZeroExit(t *testing.T) {
	ws := newTestWorkspace(t)

	// Non-zero exits report through the output, not as execution errors.
	out, err := runDef(t, ws.RunBashDefinition(), `{"command": "echo oops >&2; exit 3"}`)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "STDERR:") || !strings.Contains(out, "oops") {
		t.Errorf("out = %q", out)
	}
}

func TestRunBashNoOutput(t *testing.T) {
	ws := newTestWorkspace(t)

	out, err := runDef(t, ws.RunBashDefinition(), `{"command": "true"}`)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != "(no output)" {
		t.Errorf("out = %q", out)
	}
}

func TestRegistry(t *testing.T) {
	ws := newTestWorkspace(t)
	defs := Registry(ws)
	if len(defs) != 3 {
		t.Fatalf("got %d definitions, want 3", len(defs))
	}
	names := map[string]bool{}
	for _, d := range defs {
		names[d.Name] = true
		if d.Run == nil {
			t.Errorf("%s has no handler", d.Name)
		}
	}
	for _, want := range []string{"read_file", "write_file", "run_bash"} {
		if !names[want] {
			t.Errorf("registry missing %s", want)
		}
	}
}
