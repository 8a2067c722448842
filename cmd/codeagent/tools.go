package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jmorales/codeagent/internal/mcp"
	"github.com/jmorales/codeagent/internal/tools"
	"github.com/jmorales/codeagent/internal/trace"
)

// Run lists the built-in tools plus everything discoverable from the
// configured MCP servers.
func (c *ToolsCmd) Run() error {
	cfg, err := loadConfig(c.Config)
	if err != nil {
		return err
	}

	workspace := cfg.Agent.Workspace
	if workspace == "" {
		workspace, _ = os.Getwd()
	}
	ws, err := tools.NewWorkspace(workspace)
	if err != nil {
		return err
	}

	fmt.Println("Built-in tools:")
	for _, def := range tools.Registry(ws) {
		fmt.Printf("  %-14s %s\n", def.Name, firstLine(def.Description))
	}

	if len(cfg.MCP.Servers) == 0 {
		return nil
	}

	// Binding needs a tracer, but listing never invokes anything, so the
	// events land in a throwaway temp store.
	store := trace.NewStore(os.TempDir())
	binder := mcp.NewBinder(trace.NewTracer(store, "tool-listing"))

	ctx := context.Background()
	for name, sc := range cfg.MCP.Servers {
		cctx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Timeouts.MCP)*time.Second)
		srv, err := mcp.Connect(cctx, sc.Command, envSlice(sc.Env), sc.Args...)
		cancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to connect MCP server %q: %v\n", name, err)
			continue
		}

		bound, errs := binder.BindAll(ctx, srv)
		fmt.Printf("\nMCP server %q:\n", name)
		for _, t := range bound {
			fmt.Printf("  %-14s %s\n", t.Name, firstLine(t.Description))
		}
		for _, berr := range errs {
			fmt.Fprintf(os.Stderr, "warning: %v\n", berr)
		}
		srv.Close()
	}
	return nil
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
