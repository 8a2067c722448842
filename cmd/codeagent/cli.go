// Package main defines the CLI structure using kong.
package main

import "github.com/alecthomas/kong"

// CLI defines the command-line interface.
type CLI struct {
	Run     RunCmd     `cmd:"" help:"Run a prompt against the agent"`
	Report  ReportCmd  `cmd:"" help:"Show the consolidated record for a run"`
	Tools   ToolsCmd   `cmd:"" help:"List available tools"`
	Version VersionCmd `cmd:"" help:"Show version information"`
}

// RunCmd executes one prompt end to end and writes the run record.
type RunCmd struct {
	Prompt     string `arg:"" help:"Prompt to run"`
	Config     string `help:"Config file path"`
	Workspace  string `help:"Workspace directory"`
	Model      string `help:"Model override"`
	MaxTurns   int    `help:"Tool-use turn limit (overrides config)"`
	TraceDir   string `help:"Event log and record directory (overrides config)"`
	KeepEvents bool   `help:"Keep the raw event log after the record is written"`
}

// ReportCmd renders a run's consolidated record.
type ReportCmd struct {
	RunID    string `arg:"" help:"Run id to report on"`
	Config   string `help:"Config file path"`
	TraceDir string `help:"Event log and record directory (overrides config)"`
	Trace    string `help:"Agent trace file to merge (json, yaml, or text)"`
	Verbose  int    `short:"v" type:"counter" help:"Verbosity level (-v)"`
	NoPager  bool   `help:"Disable pager for output"`
	Live     bool   `help:"Re-render when the record changes"`
}

// ToolsCmd lists built-in tools and tools discovered from configured MCP
// servers.
type ToolsCmd struct {
	Config string `help:"Config file path"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

// kongVars returns variables for kong (version info).
func kongVars() kong.Vars {
	return kong.Vars{
		"version": version,
	}
}
