// Package runner drives the model loop: it sends the conversation, runs
// requested tools through the correlation tracer, and feeds results back
// until the model settles on a final answer.
package runner

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/jmorales/codeagent/internal/reconcile"
	"github.com/jmorales/codeagent/internal/tools"
	"github.com/jmorales/codeagent/internal/trace"
)

const defaultMaxTurns = 20

// Runner executes one prompt end to end against the model.
type Runner struct {
	client    *anthropic.Client
	model     anthropic.Model
	maxTokens int64
	maxTurns  int
	tools     []tools.Definition
	tracer    *trace.Tracer
	hooks     Hooks
}

// New creates a runner. hooks may be nil.
func New(client *anthropic.Client, model anthropic.Model, defs []tools.Definition, tracer *trace.Tracer, hooks Hooks) *Runner {
	if hooks == nil {
		hooks = NopHooks{}
	}
	return &Runner{
		client:    client,
		model:     model,
		maxTokens: 4096,
		maxTurns:  defaultMaxTurns,
		tools:     defs,
		tracer:    tracer,
		hooks:     hooks,
	}
}

// SetMaxTokens overrides the per-response token limit.
func (r *Runner) SetMaxTokens(n int64) {
	if n > 0 {
		r.maxTokens = n
	}
}

// SetMaxTurns overrides the tool-use turn limit.
func (r *Runner) SetMaxTurns(n int) {
	if n > 0 {
		r.maxTurns = n
	}
}

// Result is the outcome of one run: the final text plus the structured
// trace entries handed to reconciliation.
type Result struct {
	FinalText string
	Trace     []reconcile.TraceEntry
}

func (r *Runner) anthropicTools() []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: t.InputSchema,
		}})
	}
	return out
}

// Run loops until the model stops requesting tools or the turn limit is
// reached.
func (r *Runner) Run(ctx context.Context, prompt string) (*Result, error) {
	r.hooks.OnChainStart(prompt)

	res := &Result{}
	res.Trace = append(res.Trace, reconcile.TraceEntry{Role: "user", Content: prompt})

	conv := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
	}

	for turn := 0; turn < r.maxTurns; turn++ {
		r.hooks.OnModelStart(string(r.model), len(conv))

		msg, err := r.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     r.model,
			MaxTokens: r.maxTokens,
			Messages:  conv,
			Tools:     r.anthropicTools(),
		})
		if err != nil {
			return res, fmt.Errorf("model call: %w", err)
		}

		entry := reconcile.TraceEntry{Role: "assistant"}
		var toolResults []anthropic.ContentBlockParamUnion
		for _, block := range msg.Content {
			switch v := block.AsAny().(type) {
			case anthropic.TextBlock:
				entry.Content += v.Text
				res.FinalText = v.Text
			case anthropic.ToolUseBlock:
				input := json.RawMessage(v.JSON.Input.Raw())
				toolResults = append(toolResults, r.execTool(ctx, v.ID, v.Name, input, &entry))
			}
		}
		res.Trace = append(res.Trace, entry)

		conv = append(conv, msg.ToParam())
		if len(toolResults) == 0 {
			r.hooks.OnChainEnd(res.FinalText)
			return res, nil
		}
		conv = append(conv, anthropic.NewUserMessage(toolResults...))
	}

	r.hooks.OnChainEnd(res.FinalText)
	return res, fmt.Errorf("turn limit reached after %d turns", r.maxTurns)
}

// execTool runs one requested tool through the tracer and returns its
// result block. Tool failures become error results for the model; the
// trace carries the same failure as an error event.
func (r *Runner) execTool(ctx context.Context, id, name string, input json.RawMessage, entry *reconcile.TraceEntry) anthropic.ContentBlockParamUnion {
	var def *tools.Definition
	for i := range r.tools {
		if r.tools[i].Name == name {
			def = &r.tools[i]
			break
		}
	}

	args := map[string]any{}
	if len(input) > 0 {
		_ = json.Unmarshal(input, &args)
	}

	corrID := r.tracer.NewCorrelationID()
	entry.ToolCalls = append(entry.ToolCalls, reconcile.ToolRef{
		CorrID:    corrID,
		Name:      name,
		Arguments: args,
	})

	r.hooks.OnToolStart(name, string(input))

	if def == nil {
		err := fmt.Errorf("tool not found: %s", name)
		// Emit the pair anyway so the run record accounts for the attempt.
		_, _ = trace.DoWith(ctx, r.tracer, corrID, name, args, func(context.Context) (string, error) {
			return "", err
		})
		r.hooks.OnToolEnd(name, "", err)
		return anthropic.NewToolResultBlock(id, err.Error(), true)
	}

	out, err := trace.DoWith(ctx, r.tracer, corrID, name, args, func(ctx context.Context) (string, error) {
		return def.Run(ctx, input)
	})
	r.hooks.OnToolEnd(name, out, err)
	if err != nil {
		return anthropic.NewToolResultBlock(id, err.Error(), true)
	}
	return anthropic.NewToolResultBlock(id, out, false)
}
