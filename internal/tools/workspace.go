package tools

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Workspace confines tool file access to a root directory.
type Workspace struct {
	root string
}

// NewWorkspace creates a workspace rooted at root.
func NewWorkspace(root string) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	return &Workspace{root: abs}, nil
}

// Root returns the absolute workspace root.
func (w *Workspace) Root() string { return w.root }

// Resolve maps a relative path into the workspace, rejecting paths that
// escape the root.
func (w *Workspace) Resolve(rel string) (string, error) {
	target := filepath.Clean(filepath.Join(w.root, rel))
	if target != w.root && !strings.HasPrefix(target, w.root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes workspace root", rel)
	}
	return target, nil
}
