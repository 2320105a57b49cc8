package client

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/x402mcp/x402mcp"
	"github.com/x402mcp/x402mcp/paymentid"
)

// ToolCaller is the minimal transport surface the driver needs: make one
// tool call with an optional _meta payment attachment. server/mcp.go's
// counterpart for this package, client/mcp.go, adapts an mcp-go
// *client.Client to this interface.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, arguments map[string]any, meta map[string]any) (x402mcp.ToolResult, error)
}

// ApprovalFunc gates an automatic payment. Returning false declines the
// payment; the driver then returns the original 402 result unchanged.
type ApprovalFunc func(ctx context.Context, requirement x402mcp.PaymentRequirement, resource x402mcp.ResourceInfo) bool

// Result is the outcome of CallPaidTool: the final ToolResult plus the
// auto-pay bookkeeping spec §4.4 asks callers to be able to observe.
type Result struct {
	x402mcp.ToolResult
	PaymentMade     bool
	PaymentResponse *x402mcp.SettleResponse
}

// Driver implements C4, the client auto-pay driver.
type Driver struct {
	Caller   ToolCaller
	Registry *Registry
	Approve  ApprovalFunc

	// Logger receives one Debug line per state transition and one
	// Info/Warn line per terminal outcome (SPEC_FULL §10's ambient logging
	// commitment). Defaults to slog.Default() when nil. Never logs payment
	// signatures, private keys, or the raw scheme payload.
	Logger *slog.Logger
}

func (d *Driver) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// CallPaidTool implements the C4 algorithm of spec §4.4: call once; on a
// well-formed PaymentRequired result, build and attach a payment via the
// registered scheme client, and retry exactly once.
func (d *Driver) CallPaidTool(ctx context.Context, toolName string, args map[string]any) (Result, error) {
	log := d.logger()

	first, err := d.Caller.CallTool(ctx, toolName, args, nil)
	if err != nil {
		log.Warn("tool call failed", "tool", toolName, "err", err)
		return Result{}, err
	}
	if !first.IsError {
		log.Info("tool call succeeded without payment", "tool", toolName)
		return Result{ToolResult: first, PaymentResponse: extractSettlement(first)}, nil
	}

	required, ok := parsePaymentRequired(first)
	if !ok || len(required.Accepts) == 0 {
		wrapErr := x402mcp.NewWrapError(x402mcp.CodeMalformedPayload, "error result carries no parseable PaymentRequired body", toolName, x402mcp.ErrMalformedRequired)
		log.Warn("payment required parse failed", "tool", wrapErr.Tool, "code", wrapErr.Code, "err", wrapErr)
		return Result{ToolResult: first}, nil
	}

	requirement := required.Accepts[0]
	log.Debug("payment_required", "tool", toolName, "network", requirement.Network, "scheme", requirement.Scheme)

	scheme, ok := d.Registry.Lookup(requirement.Network)
	if !ok {
		wrapErr := x402mcp.NewWrapError(x402mcp.CodePaymentMissing, "no scheme client registered for network", toolName, x402mcp.ErrNoSchemeClient)
		log.Warn("no scheme client for network", "tool", wrapErr.Tool, "network", requirement.Network, "code", wrapErr.Code)
		return Result{ToolResult: first}, nil
	}

	if d.Approve != nil && !d.Approve(ctx, requirement, required.Resource) {
		wrapErr := x402mcp.NewWrapError(x402mcp.CodePaymentMissing, "auto-pay approval callback declined payment", toolName, x402mcp.ErrPaymentDeclined)
		log.Warn("payment declined by approval callback", "tool", wrapErr.Tool, "network", requirement.Network, "code", wrapErr.Code)
		return Result{ToolResult: first}, nil
	}

	extensions := cloneExtensions(required.Extensions)
	if err := paymentid.Append(extensions, ""); err != nil {
		log.Warn("payment-identifier append failed", "tool", toolName, "err", err)
		return Result{ToolResult: first}, err
	}

	log.Debug("creating_payment", "tool", toolName, "network", requirement.Network, "scheme", requirement.Scheme)
	payload, err := scheme.CreatePaymentPayload(ctx, requirement, &required.Resource, extensions)
	if err != nil {
		log.Warn("payment creation failed", "tool", toolName, "network", requirement.Network, "err", err)
		return Result{ToolResult: first}, err
	}

	if d.Approve != nil && !d.Approve(ctx, requirement, required.Resource) {
		wrapErr := x402mcp.NewWrapError(x402mcp.CodePaymentMissing, "auto-pay approval callback declined payment", toolName, x402mcp.ErrPaymentDeclined)
		log.Warn("payment declined by approval callback", "tool", wrapErr.Tool, "network", requirement.Network, "code", wrapErr.Code)
		return Result{ToolResult: first}, nil
	}

	retryMeta := map[string]any{x402mcp.MetaKeyPayment: payload}
	log.Debug("retry", "tool", toolName, "network", requirement.Network)
	second, err := d.Caller.CallTool(ctx, toolName, args, retryMeta)
	if err != nil {
		log.Warn("paid retry failed", "tool", toolName, "err", err)
		return Result{}, err
	}

	if second.IsError {
		wrapErr := x402mcp.NewWrapError(x402mcp.CodePaymentInvalid, "server returned payment-required again after a paid retry", toolName, x402mcp.ErrAlreadyPaidRetry)
		log.Warn("paid retry still denied", "tool", wrapErr.Tool, "network", requirement.Network, "code", wrapErr.Code)
	} else {
		log.Info("payment made and tool call succeeded", "tool", toolName, "network", requirement.Network)
	}

	return Result{
		ToolResult:      second,
		PaymentMade:     true,
		PaymentResponse: extractSettlement(second),
	}, nil
}

func cloneExtensions(extensions map[string]any) map[string]any {
	if extensions == nil {
		return nil
	}
	out := make(map[string]any, len(extensions))
	for k, v := range extensions {
		out[k] = v
	}
	return out
}

// parsePaymentRequired implements spec §4.4 step 3: try structuredContent
// first, then the first content item whose text decodes into an object
// carrying both accepts and x402Version.
func parsePaymentRequired(result x402mcp.ToolResult) (*x402mcp.PaymentRequired, bool) {
	if pr, ok := decodePaymentRequired(result.StructuredContent); ok {
		return pr, true
	}
	for _, item := range result.Content {
		if item.Type != "text" {
			continue
		}
		if pr, ok := decodePaymentRequiredJSON([]byte(item.Text)); ok {
			return pr, true
		}
	}
	return nil, false
}

func decodePaymentRequired(v any) (*x402mcp.PaymentRequired, bool) {
	if v == nil {
		return nil, false
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	return decodePaymentRequiredJSON(encoded)
}

func decodePaymentRequiredJSON(data []byte) (*x402mcp.PaymentRequired, bool) {
	var pr x402mcp.PaymentRequired
	if err := json.Unmarshal(data, &pr); err != nil {
		return nil, false
	}
	if pr.X402Version < 1 || len(pr.Accepts) == 0 {
		return nil, false
	}
	return &pr, true
}

func extractSettlement(result x402mcp.ToolResult) *x402mcp.SettleResponse {
	if result.Meta == nil {
		return nil
	}
	raw, ok := result.Meta[x402mcp.MetaKeyPaymentResponse]
	if !ok {
		return nil
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var settle x402mcp.SettleResponse
	if err := json.Unmarshal(encoded, &settle); err != nil {
		return nil
	}
	return &settle
}
