// Package tools defines the built-in tool contract and implementations.
//
// Includes:
//   - Definition: name, description, JSON input schema, handler.
//   - GenerateSchema[T](): derive a JSON schema from a Go struct.
//   - Workspace-rooted file tools plus a shell tool.
package tools

import (
	"context"
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/invopop/jsonschema"
)

// Definition describes one invocable tool offered to the model.
type Definition struct {
	Name        string
	Description string
	InputSchema anthropic.ToolInputSchemaParam
	Run         func(ctx context.Context, input json.RawMessage) (string, error)
}

// GenerateSchema derives the input schema for a tool from its input
// struct's json and jsonschema tags.
func GenerateSchema[T any]() anthropic.ToolInputSchemaParam {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	s := reflector.Reflect(v)
	return anthropic.ToolInputSchemaParam{Properties: s.Properties}
}
