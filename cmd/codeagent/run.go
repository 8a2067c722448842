package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"

	"github.com/jmorales/codeagent/internal/config"
	"github.com/jmorales/codeagent/internal/mcp"
	"github.com/jmorales/codeagent/internal/reconcile"
	"github.com/jmorales/codeagent/internal/runner"
	"github.com/jmorales/codeagent/internal/tools"
	"github.com/jmorales/codeagent/internal/trace"
)

// Run executes one prompt: built-in and MCP tools are offered to the
// model, every invocation is traced to the event log, and the log is
// folded into a consolidated record when the run settles.
func (c *RunCmd) Run() error {
	cfg, err := loadConfig(c.Config)
	if err != nil {
		return err
	}
	c.applyOverrides(cfg)

	workspace := cfg.Agent.Workspace
	if workspace == "" {
		workspace, _ = os.Getwd()
	}
	if !filepath.IsAbs(workspace) {
		workspace, _ = filepath.Abs(workspace)
	}

	runID := uuid.NewString()
	store := trace.NewStore(cfg.TraceDir())

	ws, err := tools.NewWorkspace(workspace)
	if err != nil {
		store.WriteErrorRecord(runID, trace.PhaseStartup, err)
		return err
	}
	tracer := trace.NewTracer(store, runID)
	tracer.SetResultCap(cfg.Trace.ResultCap)

	defs := tools.Registry(ws)

	ctx := context.Background()
	servers, mcpDefs := connectServers(ctx, cfg, tracer)
	defer closeServers(servers)
	defs = append(defs, mcpDefs...)

	var client anthropic.Client
	if key := cfg.GetAPIKey(); key != "" {
		client = anthropic.NewClient(option.WithAPIKey(key))
	} else {
		client = anthropic.NewClient()
	}

	r := runner.New(&client, anthropic.Model(cfg.LLM.Model), defs, tracer, consoleHooks{})
	r.SetMaxTokens(int64(cfg.LLM.MaxTokens))
	r.SetMaxTurns(cfg.Agent.MaxTurns)

	fmt.Fprintf(os.Stderr, "Run %s (%d tools)\n\n", runID, len(defs))

	res, runErr := r.Run(ctx, c.Prompt)
	if runErr != nil {
		store.WriteErrorRecord(runID, trace.PhaseRuntime, runErr)
	}

	var agentTrace *reconcile.Trace
	if res != nil {
		agentTrace = &reconcile.Trace{Entries: res.Trace}
	}
	rec, recErr := reconcile.New(store).Reconcile(runID, agentTrace)
	if recErr != nil {
		fmt.Fprintf(os.Stderr, "warning: reconcile failed: %v\n", recErr)
	} else {
		if res != nil {
			rec.Result = res.FinalText
		}
		path, werr := reconcile.WriteRecord(store, rec)
		if werr != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", werr)
		} else {
			if !c.KeepEvents {
				store.Compact(runID)
			}
			fmt.Fprintf(os.Stderr, "\nrun record: %s\n", path)
		}
	}

	if runErr != nil {
		return runErr
	}
	fmt.Println(res.FinalText)
	return nil
}

// applyOverrides folds CLI flags into the loaded config.
func (c *RunCmd) applyOverrides(cfg *config.Config) {
	if c.Workspace != "" {
		cfg.Agent.Workspace = c.Workspace
	}
	if c.Model != "" {
		cfg.LLM.Model = c.Model
	}
	if c.MaxTurns > 0 {
		cfg.Agent.MaxTurns = c.MaxTurns
	}
	if c.TraceDir != "" {
		cfg.Trace.Dir = c.TraceDir
	}
}

// connectServers starts each configured MCP server and binds its tools.
// A server that fails to connect is skipped with a warning: remote tools
// are additive, never required for a run to proceed.
func connectServers(ctx context.Context, cfg *config.Config, tracer *trace.Tracer) ([]*mcp.StdioServer, []tools.Definition) {
	var servers []*mcp.StdioServer
	var defs []tools.Definition

	binder := mcp.NewBinder(tracer)
	for name, sc := range cfg.MCP.Servers {
		cctx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Timeouts.MCP)*time.Second)
		srv, err := mcp.Connect(cctx, sc.Command, envSlice(sc.Env), sc.Args...)
		cancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to connect MCP server %q: %v\n", name, err)
			continue
		}
		servers = append(servers, srv)

		bound, errs := binder.BindAll(ctx, srv)
		for _, berr := range errs {
			fmt.Fprintf(os.Stderr, "warning: server %q: %v\n", name, berr)
		}
		for _, t := range bound {
			defs = append(defs, t.Definition())
		}
		fmt.Fprintf(os.Stderr, "✓ Connected MCP server: %s (%d tools)\n", name, len(bound))
	}
	return servers, defs
}

func closeServers(servers []*mcp.StdioServer) {
	for _, s := range servers {
		s.Close()
	}
}

func envSlice(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

// consoleHooks streams run progress to stderr, keeping stdout clean for
// the final answer.
type consoleHooks struct{}

func (consoleHooks) OnChainStart(string) {}

func (consoleHooks) OnModelStart(model string, messages int) {
	fmt.Fprintf(os.Stderr, "▶ Model call: %s (%d messages)\n", model, messages)
}

func (consoleHooks) OnToolStart(name string, input string) {
	fmt.Fprintf(os.Stderr, "  → Tool: %s\n", name)
}

func (consoleHooks) OnToolEnd(name string, output string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "  ✗ Tool error [%s]: %v\n", name, err)
	}
}

func (consoleHooks) OnChainEnd(string) {
	fmt.Fprintf(os.Stderr, "✓ Run complete\n")
}
