package x402mcp

import (
	"encoding/json"
	"fmt"
)

// SplitRecipient is one payee of a "split" scheme PaymentRequirement: bps
// is its share in basis points of the total payment.
type SplitRecipient struct {
	Address string `json:"address"`
	Bps     int    `json:"bps"`
}

// ValidateSplitRequirement enforces spec §3's split-scheme invariant:
// recipients carried as JSON in requirement.Extra["recipients"] must sum to
// exactly 10000 bps, each in [1, 10000]. Requirements using any other
// scheme are left alone.
func ValidateSplitRequirement(requirement PaymentRequirement) error {
	if requirement.Scheme != "split" {
		return nil
	}

	raw, ok := requirement.Extra["recipients"]
	if !ok {
		return fmt.Errorf("%w: split requirement missing extra.recipients", ErrInvalidSplitBps)
	}

	var recipients []SplitRecipient
	if err := json.Unmarshal([]byte(raw), &recipients); err != nil {
		return fmt.Errorf("%w: extra.recipients is not a valid recipient list: %v", ErrInvalidSplitBps, err)
	}

	total := 0
	for _, r := range recipients {
		if r.Bps < 1 || r.Bps > 10000 {
			return fmt.Errorf("%w: recipient %s has bps %d outside [1, 10000]", ErrInvalidSplitBps, r.Address, r.Bps)
		}
		total += r.Bps
	}
	if total != 10000 {
		return fmt.Errorf("%w: recipient bps sum to %d, want 10000", ErrInvalidSplitBps, total)
	}
	return nil
}

// BuildPaymentRequired implements C2: it assembles the PaymentRequired
// body from the configured accepts list, resource info, and an error
// message. Pure — performs no I/O.
func BuildPaymentRequired(accepts []PaymentRequirement, resource ResourceInfo, errMessage string, extensions map[string]any) PaymentRequired {
	return PaymentRequired{
		X402Version: ProtocolVersion,
		Accepts:     accepts,
		Resource:    resource,
		Error:       errMessage,
		Extensions:  extensions,
	}
}

// NewPaymentRequiredResult wraps a PaymentRequired into the ToolResult
// shape spec §3 and §4.2 mandate for every 402-equivalent response:
// IsError true, StructuredContent the object itself, and Content[0] its
// JSON encoding. Marshal failure is not expected for this type (it has no
// cyclic or unmarshalable fields) but is handled defensively by falling
// back to the error string alone, since this builder must never panic on
// a caller-controlled error message.
func NewPaymentRequiredResult(body PaymentRequired) ToolResult {
	encoded, err := json.Marshal(body)
	text := string(encoded)
	if err != nil {
		text = body.Error
	}
	return ToolResult{
		Content:           []ContentItem{{Type: "text", Text: text}},
		IsError:           true,
		StructuredContent: body,
	}
}
