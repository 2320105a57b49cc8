package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/x402mcp/x402mcp"
)

// SchemeClient is the external scheme-client collaborator of spec §2/§6:
// given a requirement, it produces a signed, scheme-specific payment
// payload. Implementations live in evm and svm.
type SchemeClient interface {
	CreatePaymentPayload(ctx context.Context, requirement x402mcp.PaymentRequirement, resource *x402mcp.ResourceInfo, extensions map[string]any) (*x402mcp.PaymentPayload, error)
}

// Registry resolves a network identifier to a registered SchemeClient using
// glob patterns with longest-match precedence (spec §9's "prefix/wildcard
// matcher with longest-match precedence"), generalizing x402-go's
// selector.go candidate-ranking idea to the client-side registry.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]SchemeClient
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]SchemeClient)}
}

// Register associates pattern (an exact network id like "eip155:84532" or a
// namespace wildcard like "eip155:*") with a SchemeClient. A later
// Register call for the same pattern replaces the previous client.
func (r *Registry) Register(pattern string, c SchemeClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[pattern] = c
}

// Lookup returns the most specific SchemeClient whose pattern matches
// network, or (nil, false) if none is registered.
func (r *Registry) Lookup(network string) (SchemeClient, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best SchemeClient
	bestSpecificity := -1
	for pattern, c := range r.clients {
		if !x402mcp.MatchNetwork(pattern, network) {
			continue
		}
		if s := x402mcp.Specificity(pattern); s > bestSpecificity {
			best, bestSpecificity = c, s
		}
	}
	return best, best != nil
}

// MustLookup is a convenience wrapper returning an error instead of a bool,
// for callers that want a Go error to wrap or log.
func (r *Registry) MustLookup(network string) (SchemeClient, error) {
	c, ok := r.Lookup(network)
	if !ok {
		return nil, fmt.Errorf("%w: %s", x402mcp.ErrNoSchemeClient, network)
	}
	return c, nil
}
