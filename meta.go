package x402mcp

import "encoding/json"

// CallEnvelope is the minimal shape of an inbound tool call this package's
// codec needs: the reserved _meta map plus the fields hooks are told about.
// server.WrapTool constructs this from mcp.CallToolRequest at the transport
// boundary before handing it to the server.Wrap state machine.
type CallEnvelope struct {
	Name      string
	Arguments map[string]any
	Meta      map[string]any
}

// ExtractPayment implements C1's extractPayment: it reads
// Meta["x402/payment"] and decodes it as a PaymentPayload. A missing key or
// a value that fails to decode into the PaymentPayload shape both return
// (nil, false) — malformed payloads are deliberately indistinguishable from
// absent ones, so the wrapper continues down the "no payment" path instead
// of erroring out (this is the spec's explicit anti-DoS rule for
// MALFORMED_PAYLOAD, §7).
func ExtractPayment(call CallEnvelope) (*PaymentPayload, bool) {
	if call.Meta == nil {
		return nil, false
	}
	raw, ok := call.Meta[MetaKeyPayment]
	if !ok || raw == nil {
		return nil, false
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, false
	}

	var payload PaymentPayload
	if err := json.Unmarshal(encoded, &payload); err != nil {
		return nil, false
	}
	// The accepted requirement and scheme payload are the load-bearing
	// fields of a payment; a decode that leaves both zero is as good as
	// absent.
	if payload.Accepted.Scheme == "" && payload.Payload == nil {
		return nil, false
	}
	return &payload, true
}

// AttachSettlement implements C1's attachSettlement: it sets
// result.Meta["x402/payment-response"], creating Meta if it was nil and
// preserving any pre-existing keys.
func AttachSettlement(result *ToolResult, settle SettleResponse) {
	if result.Meta == nil {
		result.Meta = make(map[string]any)
	}
	result.Meta[MetaKeyPaymentResponse] = settle
}

// ToolResourceURL implements C1's toolResourceUrl: it returns override if
// non-empty, else the default "mcp://tool/{toolName}" form. No escaping is
// performed beyond the caller's own characters.
func ToolResourceURL(toolName, override string) string {
	if override != "" {
		return override
	}
	return "mcp://tool/" + toolName
}
