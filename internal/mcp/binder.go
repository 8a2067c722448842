package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/jmorales/codeagent/internal/schema"
	"github.com/jmorales/codeagent/internal/tools"
	"github.com/jmorales/codeagent/internal/trace"
)

// Binder turns remote tool descriptors into invocable local tools whose
// calls are validated against the descriptor schema and traced exactly
// like built-in tools.
type Binder struct {
	tracer *trace.Tracer
}

// NewBinder creates a binder emitting events through tracer.
func NewBinder(tracer *trace.Tracer) *Binder {
	return &Binder{tracer: tracer}
}

// BoundTool is a dynamically bound, traced remote tool. The local name
// carries an "mcp_" prefix so remote tools are distinguishable in traces
// and model-facing listings.
type BoundTool struct {
	Name        string
	Description string

	remote    string
	schemaDoc map[string]any
	validator *schema.Validator
	registry  Registry
	tracer    *trace.Tracer
}

// Bind compiles the descriptor's schema and wraps its invocation with
// the tracer. A malformed descriptor fails only itself.
func (b *Binder) Bind(reg Registry, d Descriptor) (*BoundTool, error) {
	if d.Name == "" {
		return nil, errors.New("descriptor has no name")
	}

	var node *schema.Node
	var doc map[string]any
	if len(d.InputSchema) > 0 {
		n, err := schema.Parse(d.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("schema for %s: %w", d.Name, err)
		}
		node = n
		// Keep the raw document around for model-facing tool listings.
		_ = json.Unmarshal(d.InputSchema, &doc)
	}

	// Each descriptor gets its own compiler: the memo deduplicates
	// shared substructures within one schema, and descriptors from
	// different servers may reuse a tool name with a different shape.
	return &BoundTool{
		Name:        "mcp_" + d.Name,
		Description: d.Description,
		remote:      d.Name,
		schemaDoc:   doc,
		validator:   schema.NewCompiler().Compile(node, d.Name),
		registry:    reg,
		tracer:      b.tracer,
	}, nil
}

// BindAll fetches descriptors and binds each independently. Descriptors
// that fail to bind are reported in the returned error slice and excluded
// from the bound set; successfully bound tools keep discovery order.
func (b *Binder) BindAll(ctx context.Context, reg Registry) ([]*BoundTool, []error) {
	descs, err := reg.ListTools(ctx)
	if err != nil {
		return nil, []error{err}
	}
	var bound []*BoundTool
	var errs []error
	for _, d := range descs {
		t, berr := b.Bind(reg, d)
		if berr != nil {
			errs = append(errs, fmt.Errorf("bind %s: %w", d.Name, berr))
			continue
		}
		bound = append(bound, t)
	}
	return bound, errs
}

// Call validates args, then invokes the remote tool under the tracer so
// the call emits the same before/after/error events as built-in tools.
// Validation failures surface before any remote call and identify the
// offending field.
func (t *BoundTool) Call(ctx context.Context, args map[string]any) (string, error) {
	validated, err := t.validator.Validate(args)
	if err != nil {
		return "", fmt.Errorf("invalid arguments for %s: %w", t.Name, err)
	}
	return trace.Do(ctx, t.tracer, t.Name, validated, func(ctx context.Context) (string, error) {
		return t.registry.CallTool(ctx, t.remote, validated)
	})
}

// invoke validates and calls the remote tool without tracing. Used by
// Definition, whose callers apply the tracer themselves.
func (t *BoundTool) invoke(ctx context.Context, args map[string]any) (string, error) {
	validated, err := t.validator.Validate(args)
	if err != nil {
		return "", fmt.Errorf("invalid arguments for %s: %w", t.Name, err)
	}
	return t.registry.CallTool(ctx, t.remote, validated)
}

// Definition adapts the bound tool to the built-in tool contract so the
// runner can offer it to the model. The runner traces every definition
// it executes, so the returned handler only validates and calls.
func (t *BoundTool) Definition() tools.Definition {
	var props any
	if t.schemaDoc != nil {
		props = t.schemaDoc["properties"]
	}
	return tools.Definition{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: anthropic.ToolInputSchemaParam{Properties: props},
		Run: func(ctx context.Context, input json.RawMessage) (string, error) {
			args := map[string]any{}
			if len(input) > 0 {
				if err := json.Unmarshal(input, &args); err != nil {
					return "", fmt.Errorf("decode arguments for %s: %w", t.Name, err)
				}
			}
			return t.invoke(ctx, args)
		},
	}
}
