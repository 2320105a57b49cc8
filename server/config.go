package server

import (
	"fmt"
	"log/slog"

	"github.com/x402mcp/x402mcp"
)

// Config configures one wrapped tool (spec §4.3's option table).
type Config struct {
	// Accepts is the non-empty list of requirements this tool will take
	// payment against. Accepts[0] is authoritative for verify/settle; the
	// full list is advertised to clients on every failure path.
	Accepts []x402mcp.PaymentRequirement

	// Resource overrides the advertised resource info. Zero-value fields
	// fall back to defaults computed from the tool name at wrap time.
	Resource x402mcp.ResourceInfo

	// Hooks are the before/after/after-settle callbacks (§4.5).
	Hooks x402mcp.Hooks

	// Extensions, when non-nil, is merged verbatim into every
	// PaymentRequired advertisement's Extensions map. Use
	// paymentid.Declare to populate the "payment-identifier" entry.
	Extensions map[string]any

	// Logger receives one Debug line per state transition (verify, settle,
	// hook_blocked) and one Info/Warn line per terminal outcome (settle
	// failures are logged as "settle_failed" at Warn). Defaults to slog.Default() when nil. Never logs payment
	// signatures, private keys, or the raw scheme payload.
	Logger *slog.Logger
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// validate rejects a Config with no accepted payment options, or with any
// malformed "split" scheme requirement, at construction time, per spec
// §8's "fatal at construction, not runtime."
func (c Config) validate() error {
	if len(c.Accepts) == 0 {
		return fmt.Errorf("%w", x402mcp.ErrEmptyAccepts)
	}
	for _, requirement := range c.Accepts {
		if err := x402mcp.ValidateSplitRequirement(requirement); err != nil {
			return err
		}
	}
	return nil
}

// resourceFor fills in Resource defaults ("Tool: {toolName}",
// "application/json") for any field the caller left zero.
func (c Config) resourceFor(toolName string) x402mcp.ResourceInfo {
	r := c.Resource
	if r.URL == "" {
		r.URL = x402mcp.ToolResourceURL(toolName, "")
	}
	if r.Description == "" {
		r.Description = fmt.Sprintf("Tool: %s", toolName)
	}
	if r.MimeType == "" {
		r.MimeType = "application/json"
	}
	return r
}
