package client

import (
	"context"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/x402mcp/x402mcp"
)

// MCPCaller adapts an mcp-go *client.Client to the ToolCaller interface
// CallPaidTool drives against, converting at the transport boundary the
// same way server/mcp.go does for the wrapper.
type MCPCaller struct {
	Client *client.Client
}

// NewMCPCaller wraps c.
func NewMCPCaller(c *client.Client) *MCPCaller {
	return &MCPCaller{Client: c}
}

func (m *MCPCaller) CallTool(ctx context.Context, name string, arguments map[string]any, meta map[string]any) (x402mcp.ToolResult, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = arguments
	if meta != nil {
		req.Params.Meta = &mcp.Meta{AdditionalFields: meta}
	}

	result, err := m.Client.CallTool(ctx, req)
	if err != nil {
		return x402mcp.ToolResult{}, err
	}
	return fromCallToolResult(result), nil
}

func fromCallToolResult(result *mcp.CallToolResult) x402mcp.ToolResult {
	if result == nil {
		return x402mcp.ToolResult{}
	}
	out := x402mcp.ToolResult{
		Content:           make([]x402mcp.ContentItem, 0, len(result.Content)),
		IsError:           result.IsError,
		StructuredContent: result.StructuredContent,
	}
	if result.Meta != nil {
		out.Meta = result.Meta.AdditionalFields
	}
	for _, c := range result.Content {
		if tc, ok := mcp.AsTextContent(c); ok {
			out.Content = append(out.Content, x402mcp.ContentItem{Type: "text", Text: tc.Text})
		}
	}
	return out
}
