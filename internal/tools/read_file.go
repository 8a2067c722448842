package tools

import (
	"context"
	"encoding/json"
	"os"
)

type ReadFileInput struct {
	Path string `json:"path" jsonschema_description:"Relative path to the file within the workspace."`
}

var readFileSchema = GenerateSchema[ReadFileInput]()

// ReadFileDefinition reads a text file from the workspace and returns its
// contents.
func (w *Workspace) ReadFileDefinition() Definition {
	return Definition{
		Name:        "read_file",
		Description: "Read a text file from the workspace and return its contents. Paths outside the workspace are rejected.",
		InputSchema: readFileSchema,
		Run: func(ctx context.Context, input json.RawMessage) (string, error) {
			var in ReadFileInput
			if err := json.Unmarshal(input, &in); err != nil {
				return "", err
			}
			target, err := w.Resolve(in.Path)
			if err != nil {
				return "", err
			}
			data, err := os.ReadFile(target)
			if err != nil {
				return "", err
			}
			return string(data), nil
		},
	}
}
