package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"strings"
)

type RunBashInput struct {
	Command string `json:"command" jsonschema_description:"Shell command to execute inside the workspace."`
}

var runBashSchema = GenerateSchema[RunBashInput]()

// RunBashDefinition runs a bash command with the workspace as its working
// directory. A non-zero exit is reported through the combined output, not
// as an execution error, matching how shells report tool failures to the
// model.
func (w *Workspace) RunBashDefinition() Definition {
	return Definition{
		Name:        "run_bash",
		Description: "Run a bash command inside the workspace and return stdout and stderr.",
		InputSchema: runBashSchema,
		Run: func(ctx context.Context, input json.RawMessage) (string, error) {
			var in RunBashInput
			if err := json.Unmarshal(input, &in); err != nil {
				return "", err
			}

			cmd := exec.CommandContext(ctx, "bash", "-c", in.Command)
			cmd.Dir = w.root
			var stdout, stderr bytes.Buffer
			cmd.Stdout = &stdout
			cmd.Stderr = &stderr

			err := cmd.Run()
			var exitErr *exec.ExitError
			if err != nil && !errors.As(err, &exitErr) {
				return "", err
			}

			out := stdout.String()
			if stderr.Len() > 0 {
				out = strings.TrimSpace(out + "\nSTDERR:\n" + stderr.String())
			}
			out = strings.TrimSpace(out)
			if out == "" {
				out = "(no output)"
			}
			return out, nil
		},
	}
}
