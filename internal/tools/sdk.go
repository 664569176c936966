package tools

import (
	"context"
	"encoding/json"
	"fmt"

	sdkjsonrpc "github.com/modelcontextprotocol/go-sdk/jsonrpc"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	ServerName    = "incident-triage"
	ServerVersion = "1.0.0"
)

// NewMCPServer builds an MCP server exposing every tool in reg.
func NewMCPServer(reg *Registry) (*sdkmcp.Server, error) {
	if reg == nil {
		return nil, fmt.Errorf("registry is required")
	}
	server := sdkmcp.NewServer(&sdkmcp.Implementation{Name: ServerName, Version: ServerVersion}, nil)
	for _, spec := range reg.Specs() {
		schema := spec.InputSchema
		if schema == nil {
			schema = map[string]any{"type": "object"}
		}
		server.AddTool(&sdkmcp.Tool{
			Name:        spec.Name,
			Description: spec.Description,
			InputSchema: schema,
		}, reg.toolHandler(spec))
	}
	return server, nil
}

// ServeStdio serves reg over stdin/stdout until ctx is cancelled or the client disconnects.
func ServeStdio(ctx context.Context, reg *Registry) error {
	server, err := NewMCPServer(reg)
	if err != nil {
		return err
	}
	return server.Run(ctx, &sdkmcp.StdioTransport{})
}

func (r *Registry) toolHandler(spec ToolSpec) sdkmcp.ToolHandler {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest) (*sdkmcp.CallToolResult, error) {
		args := map[string]any{}
		if req != nil && req.Params != nil && len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return nil, &sdkjsonrpc.Error{Code: sdkjsonrpc.CodeInvalidParams, Message: fmt.Sprintf("invalid arguments: %v", err)}
			}
		}

		result := r.invoke(ctx, spec, args)
		return &sdkmcp.CallToolResult{
			Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: result.Text}},
			IsError: result.IsError,
		}, nil
	}
}
