package x402mcp

import "context"

// Hooks is the capability set of user-provided callbacks the wrapper
// dispatches at fixed points in the state machine (§4.5). An absent entry
// short-circuits — the phase is simply skipped. This generalizes the
// teacher's own callback-struct idiom (HandlerConfig.PaymentCallback,
// Config.OnPaymentAttempt/Success/Failure in transport.go) rather than
// introducing a new event-dispatch mechanism.
type Hooks struct {
	// OnBeforeExecution may block execution by returning false. Any other
	// return value, including a nil/void-equivalent result, proceeds. Not
	// invoked when the wrapper short-circuits earlier (no payment, failed
	// verify).
	OnBeforeExecution func(ctx context.Context, hc HookContext) bool

	// OnAfterExecution is observational; it cannot alter the result.
	OnAfterExecution func(ctx context.Context, hc AfterExecutionContext)

	// OnAfterSettlement is observational and runs only after a successful
	// settle.
	OnAfterSettlement func(ctx context.Context, hc AfterSettlementContext)
}

// RunBefore dispatches the before-execution hook if configured. It returns
// true (proceed) when no hook is set, matching the "absent entries
// short-circuit to continue" rule. Hook panics are not recovered here:
// §4.3 and §9's Open Question 3 both specify that hook exceptions are not
// caught by the wrapper, so they propagate to the caller unchanged.
func (h Hooks) RunBefore(ctx context.Context, hc HookContext) bool {
	if h.OnBeforeExecution == nil {
		return true
	}
	return h.OnBeforeExecution(ctx, hc)
}

// RunAfter dispatches the after-execution hook if configured.
func (h Hooks) RunAfter(ctx context.Context, hc AfterExecutionContext) {
	if h.OnAfterExecution != nil {
		h.OnAfterExecution(ctx, hc)
	}
}

// RunAfterSettlement dispatches the after-settlement hook if configured.
func (h Hooks) RunAfterSettlement(ctx context.Context, hc AfterSettlementContext) {
	if h.OnAfterSettlement != nil {
		h.OnAfterSettlement(ctx, hc)
	}
}
