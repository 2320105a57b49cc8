package server

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/x402mcp/x402mcp"
)

// WrapTool adapts Wrap's transport-agnostic Middleware to mcp-go's
// server.ToolHandlerMiddleware, converting mcp.CallToolRequest/Result at
// the boundary so the state machine in wrapper.go never imports mcp-go
// types directly (spec §1's framing of the transport as an external
// collaborator).
func WrapTool(facilitator Facilitator, config Config) (mcpserver.ToolHandlerMiddleware, error) {
	mw, err := Wrap(facilitator, config)
	if err != nil {
		return nil, err
	}

	return func(next mcpserver.ToolHandlerFunc) mcpserver.ToolHandlerFunc {
		coreNext := func(ctx context.Context, call x402mcp.CallEnvelope) (x402mcp.ToolResult, error) {
			req := toCallToolRequest(call)
			result, err := next(ctx, req)
			if err != nil {
				return x402mcp.ToolResult{}, err
			}
			return fromCallToolResult(result), nil
		}

		wrapped := mw(coreNext)

		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			call := toCallEnvelope(req)
			result, err := wrapped(ctx, call)
			if err != nil {
				return nil, err
			}
			return toCallToolResult(result), nil
		}
	}, nil
}

func toCallEnvelope(req mcp.CallToolRequest) x402mcp.CallEnvelope {
	var meta map[string]any
	if req.Params.Meta != nil {
		meta = req.Params.Meta.AdditionalFields
	}
	return x402mcp.CallEnvelope{
		Name:      req.Params.Name,
		Arguments: argumentsAsMap(req.Params.Arguments),
		Meta:      meta,
	}
}

func argumentsAsMap(args any) map[string]any {
	if m, ok := args.(map[string]any); ok {
		return m
	}
	if args == nil {
		return nil
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(encoded, &m); err != nil {
		return nil
	}
	return m
}

// toCallToolRequest reconstructs a minimal mcp.CallToolRequest from a
// CallEnvelope to pass along to the wrapped handler. Meta is round-tripped
// so a handler that itself reads _meta sees the original map.
func toCallToolRequest(call x402mcp.CallEnvelope) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = call.Name
	req.Params.Arguments = call.Arguments
	if call.Meta != nil {
		req.Params.Meta = &mcp.Meta{AdditionalFields: call.Meta}
	}
	return req
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

func toCallToolResult(result x402mcp.ToolResult) *mcp.CallToolResult {
	content := make([]mcp.Content, 0, len(result.Content))
	for _, item := range result.Content {
		if item.Type == "text" {
			content = append(content, mcp.NewTextContent(item.Text))
		}
	}

	out := &mcp.CallToolResult{
		Content:           content,
		IsError:           result.IsError,
		StructuredContent: result.StructuredContent,
	}
	if result.Meta != nil {
		out.Meta = &mcp.Meta{AdditionalFields: result.Meta}
	}
	return out
}
