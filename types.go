// Package x402mcp implements the x402 micropayment protocol over the MCP
// tool-call transport: a server-side wrapper that gates a tool handler
// behind a verify/execute/settle state machine, and the shared data model
// both the server wrapper (x402mcp/server) and the client driver
// (x402mcp/client) read and write through the call's _meta envelope.
package x402mcp

// ProtocolVersion is the current x402-over-MCP protocol version stamped
// into every PaymentRequired and PaymentPayload produced by this module.
const ProtocolVersion = 2

// Reserved _meta keys, per the wire contract (spec §6).
const (
	MetaKeyPayment         = "x402/payment"
	MetaKeyPaymentResponse = "x402/payment-response"
)

// PaymentRequirement is one payment option a server will accept for a tool
// call. Immutable once constructed — callers should treat values of this
// type as read-only after they are handed to a server.Config or a
// client.Registry.
type PaymentRequirement struct {
	Scheme            string            `json:"scheme"`
	Network           string            `json:"network"`
	MaxAmountRequired string            `json:"maxAmountRequired"`
	Asset             string            `json:"asset"`
	PayTo             string            `json:"payTo"`
	MaxTimeoutSeconds int               `json:"maxTimeoutSeconds,omitempty"`
	Extra             map[string]string `json:"extra,omitempty"`
}

// ResourceInfo identifies the resource a PaymentRequired advertisement is
// for. Immutable.
type ResourceInfo struct {
	URL         string `json:"url"`
	Description string `json:"description"`
	MimeType    string `json:"mimeType"`
}

// PaymentRequired is the structured body of a 402-equivalent tool result:
// it is delivered both as CallToolResult.StructuredContent and, JSON
// encoded, as the text of CallToolResult.Content[0], with IsError true.
type PaymentRequired struct {
	X402Version int                  `json:"x402Version"`
	Accepts     []PaymentRequirement `json:"accepts"`
	Resource    ResourceInfo         `json:"resource"`
	Error       string               `json:"error"`
	Extensions  map[string]any       `json:"extensions,omitempty"`
}

// PaymentPayload is the client-constructed, scheme-specific payment
// authorization carried in a single tool call's _meta["x402/payment"].
// Consumed at most once by the server.
type PaymentPayload struct {
	X402Version int                `json:"x402Version"`
	Accepted    PaymentRequirement `json:"accepted"`
	Payload     any                `json:"payload"`
	Resource    *ResourceInfo      `json:"resource,omitempty"`
	Extensions  map[string]any     `json:"extensions,omitempty"`
}

// SettleResponse is the facilitator's acknowledgement of a settled
// payment, embedded in a successful tool result's
// _meta["x402/payment-response"].
type SettleResponse struct {
	Success     bool   `json:"success"`
	Transaction string `json:"transaction"`
	Network     string `json:"network"`
	Payer       string `json:"payer,omitempty"`
	ErrorReason string `json:"errorReason,omitempty"`
	Extra       any    `json:"extra,omitempty"`
}

// HookContext is passed by value to the before-execution hook. Mutations
// made by a hook do not affect subsequent phases (§4.5).
type HookContext struct {
	ToolName    string
	Arguments   map[string]any
	Requirement PaymentRequirement
	Payload     PaymentPayload
}

// AfterExecutionContext extends HookContext with the handler's result.
type AfterExecutionContext struct {
	HookContext
	Result ToolResult
}

// AfterSettlementContext extends HookContext with the settlement outcome.
type AfterSettlementContext struct {
	HookContext
	Settle SettleResponse
}

// ToolResult is this module's concrete view of the transport result shape
// (spec §3): a sequence of tagged content items, an error flag, optional
// structured content, and the reserved _meta envelope. Code that talks to
// mcp-go converts to/from mcp.CallToolResult at the package boundary
// (x402mcp/server and x402mcp/client); the codec in this package and the
// state machine in x402mcp/server work against ToolResult so they stay
// transport-agnostic,
// per spec §1's framing of the transport as an external collaborator.
type ToolResult struct {
	Content           []ContentItem
	IsError           bool
	StructuredContent any
	Meta              map[string]any
}

// ContentItem is one entry of ToolResult.Content. Only the "text" type is
// produced by this module; the mcp-go conversions in x402mcp/server and
// x402mcp/client keep text items only and drop content of other types.
type ContentItem struct {
	Type string
	Text string
}

// NewTextResult builds a ToolResult carrying a single text content item.
func NewTextResult(text string) ToolResult {
	return ToolResult{Content: []ContentItem{{Type: "text", Text: text}}}
}
