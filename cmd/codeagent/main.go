// Package main is the entry point for the codeagent CLI.
package main

import (
	"fmt"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func init() {
	// Load .env for API keys and MCP server environment
	_ = godotenv.Load()
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("codeagent"),
		kong.Description("Coding agent with traced tool invocation and run forensics"),
		kong.UsageOnError(),
		kongVars(),
	)
	ctx.FatalIfErrorf(ctx.Run())
}

// Run prints version information.
func (c *VersionCmd) Run() error {
	fmt.Printf("codeagent version %s (commit: %s, built: %s)\n", version, commit, buildTime)
	return nil
}
