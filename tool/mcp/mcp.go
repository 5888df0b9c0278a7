// Package mcp adapts tools served over the Model Context Protocol to the
// engine's tool interface. The actual transport (stdio, SSE, ...) is owned by
// the caller, who connects a client session and hands it to this package.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hupe1980/mcpagent/tool"
)

// Tool exposes one remote MCP tool through the local tool contract. Safe for
// concurrent use; all state is immutable after construction.
type Tool struct {
	def     *sdk.Tool
	session *sdk.ClientSession
}

var _ tool.Tool = (*Tool)(nil)

// NewTool wraps a tool descriptor obtained from the given client session.
func NewTool(def *sdk.Tool, session *sdk.ClientSession) *Tool {
	return &Tool{def: def, session: session}
}

// FromSession lists the server's tools and adapts them all.
func FromSession(ctx context.Context, session *sdk.ClientSession) ([]tool.Tool, error) {
	res, err := session.ListTools(ctx, &sdk.ListToolsParams{})
	if err != nil {
		return nil, fmt.Errorf("list mcp tools: %w", err)
	}

	tools := make([]tool.Tool, 0, len(res.Tools))
	for _, def := range res.Tools {
		tools = append(tools, NewTool(def, session))
	}
	return tools, nil
}

// Name implements tool.Tool.
func (t *Tool) Name() string { return t.def.Name }

// Description implements tool.Tool.
func (t *Tool) Description() string { return t.def.Description }

// Parameters implements tool.Tool by surfacing the server-declared input
// schema as a plain map.
func (t *Tool) Parameters() map[string]any {
	if m, ok := t.def.InputSchema.(map[string]any); ok {
		return m
	}
	b, err := json.Marshal(t.def.InputSchema)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return map[string]any{"type": "object"}
	}
	return m
}

// Call implements tool.Tool. The remote result's text content blocks are
// concatenated into the observation string; a result flagged as an error
// becomes a Go error carrying that text.
func (t *Tool) Call(ctx context.Context, input string) (string, error) {
	res, err := t.session.CallTool(ctx, &sdk.CallToolParams{
		Name:      t.def.Name,
		Arguments: tool.ParseInput(input),
	})
	if err != nil {
		return "", fmt.Errorf("call mcp tool %s: %w", t.def.Name, err)
	}

	var sb strings.Builder
	for _, content := range res.Content {
		if tc, ok := content.(*sdk.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}

	if res.IsError {
		return "", fmt.Errorf("mcp tool %s returned an error: %s", t.def.Name, sb.String())
	}
	return sb.String(), nil
}
