// Package mcp binds remotely discovered tool descriptors into invocable,
// traced local actions. Argument shapes are only known at runtime: each
// descriptor carries an input schema that is compiled into a validator
// before the tool is exposed.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mcpclient "github.com/mark3labs/mcp-go/client"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

// Descriptor is the externally supplied metadata describing one callable
// tool. InputSchema is the raw schema document as delivered by the
// registry; it is parsed and compiled at bind time so a malformed schema
// only fails its own descriptor.
type Descriptor struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}

// Registry is the remote tool registry collaborator. Transport and
// protocol framing are the implementation's concern.
type Registry interface {
	ListTools(ctx context.Context) ([]Descriptor, error)
	CallTool(ctx context.Context, name string, args map[string]any) (string, error)
}

// StdioServer is a Registry backed by an MCP server spawned as a child
// process and spoken to over stdio.
type StdioServer struct {
	client *mcpclient.Client
}

// Connect spawns the server process and completes the MCP handshake.
func Connect(ctx context.Context, command string, env []string, args ...string) (*StdioServer, error) {
	c, err := mcpclient.NewStdioMCPClient(command, env, args...)
	if err != nil {
		return nil, fmt.Errorf("start mcp server: %w", err)
	}

	initReq := mcpgo.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcpgo.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcpgo.Implementation{Name: "codeagent", Version: "0.1.0"}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		c.Close()
		return nil, fmt.Errorf("initialize mcp server: %w", err)
	}
	return &StdioServer{client: c}, nil
}

// ListTools fetches the server's tool descriptors in discovery order.
func (s *StdioServer) ListTools(ctx context.Context) ([]Descriptor, error) {
	res, err := s.client.ListTools(ctx, mcpgo.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	descs := make([]Descriptor, 0, len(res.Tools))
	for _, t := range res.Tools {
		raw, err := json.Marshal(t.InputSchema)
		if err != nil {
			raw = nil
		}
		descs = append(descs, Descriptor{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: raw,
		})
	}
	return descs, nil
}

// CallTool invokes a remote tool and returns its textual content. A
// result flagged as an error by the server surfaces as an error here,
// keeping remote execution failures distinct from validation failures.
func (s *StdioServer) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	req := mcpgo.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := s.client.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("call tool %s: %w", name, err)
	}

	var sb strings.Builder
	for _, content := range res.Content {
		switch tc := content.(type) {
		case mcpgo.TextContent:
			sb.WriteString(tc.Text)
		case *mcpgo.TextContent:
			sb.WriteString(tc.Text)
		}
	}
	if res.IsError {
		return "", fmt.Errorf("tool %s failed: %s", name, sb.String())
	}
	return sb.String(), nil
}

// Close shuts down the server process.
func (s *StdioServer) Close() error {
	return s.client.Close()
}
