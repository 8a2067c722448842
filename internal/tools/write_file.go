package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type WriteFileInput struct {
	Path    string `json:"path" jsonschema_description:"Relative path to the file within the workspace."`
	Content string `json:"content" jsonschema_description:"File content to write."`
}

var writeFileSchema = GenerateSchema[WriteFileInput]()

// WriteFileDefinition writes content to a workspace file, creating parent
// directories as needed.
func (w *Workspace) WriteFileDefinition() Definition {
	return Definition{
		Name:        "write_file",
		Description: "Write content to a text file in the workspace, creating parent directories as needed.",
		InputSchema: writeFileSchema,
		Run: func(ctx context.Context, input json.RawMessage) (string, error) {
			var in WriteFileInput
			if err := json.Unmarshal(input, &in); err != nil {
				return "", err
			}
			target, err := w.Resolve(in.Path)
			if err != nil {
				return "", err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return "", err
			}
			if err := os.WriteFile(target, []byte(in.Content), 0644); err != nil {
				return "", err
			}
			return fmt.Sprintf("Wrote %d characters to %s.", len(in.Content), in.Path), nil
		},
	}
}
