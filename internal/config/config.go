// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the agent configuration.
type Config struct {
	Agent    AgentConfig    `toml:"agent"`
	LLM      LLMConfig      `toml:"llm"`
	Trace    TraceConfig    `toml:"trace"`    // Event log and run record settings
	MCP      MCPConfig      `toml:"mcp"`      // MCP tool servers
	Timeouts TimeoutsConfig `toml:"timeouts"` // Network operation timeouts
}

// AgentConfig contains agent identification settings.
type AgentConfig struct {
	Workspace string `toml:"workspace"`
	MaxTurns  int    `toml:"max_turns"`
}

// LLMConfig contains LLM provider settings.
type LLMConfig struct {
	Model     string `toml:"model"`
	APIKeyEnv string `toml:"api_key_env"`
	MaxTokens int    `toml:"max_tokens"`
}

// TraceConfig contains event log and run record settings.
type TraceConfig struct {
	Dir       string `toml:"dir"`        // Base directory for event logs and run records
	ResultCap int    `toml:"result_cap"` // Max characters of a tool result kept per event
}

// MCPConfig contains MCP tool server configuration.
type MCPConfig struct {
	Servers map[string]MCPServerConfig `toml:"servers"`
}

// MCPServerConfig configures an MCP server connection.
type MCPServerConfig struct {
	Command string            `toml:"command"`
	Args    []string          `toml:"args,omitempty"`
	Env     map[string]string `toml:"env,omitempty"`
}

// TimeoutsConfig contains timeout settings for network operations.
type TimeoutsConfig struct {
	MCP int `toml:"mcp"` // MCP tool call timeout in seconds (default 60)
}

// New creates a new config with defaults.
func New() *Config {
	return &Config{
		Agent: AgentConfig{
			MaxTurns: 20,
		},
		LLM: LLMConfig{
			Model:     "claude-sonnet-4-5",
			MaxTokens: 4096,
		},
		Trace: TraceConfig{
			Dir:       "~/.local/codeagent/runs",
			ResultCap: 20000,
		},
		Timeouts: TimeoutsConfig{
			MCP: 60, // 60 seconds for MCP calls
		},
	}
}

// Default returns a default configuration.
func Default() *Config {
	return New()
}

// LoadFile loads configuration from a TOML file.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// LoadDefault loads configuration from codeagent.toml in the current
// directory, falling back to defaults when the file does not exist.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}

	path := filepath.Join(cwd, "codeagent.toml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return New(), nil
	}
	return LoadFile(path)
}

// GetAPIKey returns the API key from the configured environment variable.
func (c *Config) GetAPIKey() string {
	envVar := c.LLM.APIKeyEnv
	if envVar == "" {
		envVar = "ANTHROPIC_API_KEY"
	}
	return os.Getenv(envVar)
}

// TraceDir returns the trace directory with ~ expanded to the user's
// home directory.
func (c *Config) TraceDir() string {
	dir := c.Trace.Dir
	if len(dir) > 0 && dir[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, dir[1:])
		}
	}
	return dir
}
