package server

import (
	"context"
	"fmt"

	"github.com/x402mcp/x402mcp"
)

// Handler is the transport-agnostic tool handler Wrap gates: it consumes a
// CallEnvelope and produces a ToolResult or an error. The transport
// boundary (mcp-go's server.ToolHandlerFunc) adapts to and from this shape.
type Handler func(ctx context.Context, call x402mcp.CallEnvelope) (x402mcp.ToolResult, error)

// Middleware wraps a Handler with the payment state machine.
type Middleware func(next Handler) Handler

// Wrap builds the S0-S7 state machine of spec §4.3 against facilitator and
// config, returning a Middleware. It rejects an empty accepts list at
// construction time rather than at call time.
func Wrap(facilitator Facilitator, config Config) (Middleware, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	log := config.logger()

	return func(next Handler) Handler {
		return func(ctx context.Context, call x402mcp.CallEnvelope) (x402mcp.ToolResult, error) {
			requirement := config.Accepts[0]
			resource := config.resourceFor(call.Name)

			// S0 EXTRACT
			payload, ok := x402mcp.ExtractPayment(call)
			if !ok {
				wrapErr := x402mcp.NewWrapError(x402mcp.CodePaymentMissing, "no payment attached to call", call.Name, nil)
				log.Warn("payment missing", "tool", wrapErr.Tool, "code", wrapErr.Code)
				return denyResult(config, resource, "Payment required to access this tool"), nil
			}

			// S1 VERIFY. A scheme/network mismatch against accepts[0] is
			// not special-cased here: the facilitator is the authority on
			// match criteria and is expected to report isValid=false.
			log.Debug("verify", "tool", call.Name, "network", requirement.Network, "scheme", requirement.Scheme)
			verifyResp, err := facilitator.Verify(ctx, payload, &requirement)
			if err != nil {
				wrapErr := x402mcp.NewWrapError(x402mcp.CodePaymentInvalid, "facilitator verify call failed", call.Name, err)
				log.Warn("verify failed", "tool", wrapErr.Tool, "code", wrapErr.Code, "err", wrapErr)
				return denyResult(config, resource, err.Error()), nil
			}
			if !verifyResp.IsValid {
				reason := verifyResp.InvalidReason
				if reason == "" {
					reason = "Payment verification failed"
				}
				wrapErr := x402mcp.NewWrapError(x402mcp.CodePaymentInvalid, reason, call.Name, nil)
				log.Warn("verify rejected", "tool", wrapErr.Tool, "code", wrapErr.Code, "reason", reason)
				return denyResult(config, resource, reason), nil
			}

			hc := x402mcp.HookContext{
				ToolName:    call.Name,
				Arguments:   call.Arguments,
				Requirement: requirement,
				Payload:     *payload,
			}

			// S2 HOOK.BEFORE
			if !config.Hooks.RunBefore(ctx, hc) {
				wrapErr := x402mcp.NewWrapError(x402mcp.CodeHookBlocked, "execution blocked by before-hook", call.Name, nil)
				log.Debug("hook_blocked", "tool", wrapErr.Tool, "code", wrapErr.Code)
				return denyResult(config, resource, "Execution blocked by hook"), nil
			}

			// S3 EXECUTE. Handler errors propagate unchanged; settlement is
			// skipped, equivalent to the handler returning result.IsError.
			result, err := next(ctx, call)
			if err != nil {
				log.Warn("handler error", "tool", call.Name, "err", err)
				return x402mcp.ToolResult{}, err
			}

			// S4 HOOK.AFTER (observational)
			config.Hooks.RunAfter(ctx, x402mcp.AfterExecutionContext{HookContext: hc, Result: result})

			// S5 EARLY_EXIT
			if result.IsError {
				log.Info("handler returned error result, settle skipped", "tool", call.Name)
				return result, nil
			}

			// Cancellation between verify and settle: drop the connection
			// without attempting settle or emitting a receipt.
			if ctx.Err() != nil {
				log.Info("context cancelled before settle, settle skipped", "tool", call.Name)
				return result, nil
			}

			// S6 SETTLE
			log.Debug("settle", "tool", call.Name, "network", requirement.Network, "scheme", requirement.Scheme)
			settleResp, err := facilitator.Settle(ctx, payload, &requirement)
			if err != nil {
				wrapErr := x402mcp.NewWrapError(x402mcp.CodeSettleFailed, "facilitator settle call failed", call.Name, err)
				log.Warn("settle_failed", "tool", wrapErr.Tool, "code", wrapErr.Code, "err", wrapErr)
				return settleFailResult(config, resource, err.Error()), nil
			}
			if !settleResp.Success {
				reason := settleResp.ErrorReason
				if reason == "" {
					reason = "unknown error"
				}
				wrapErr := x402mcp.NewWrapError(x402mcp.CodeSettleFailed, reason, call.Name, nil)
				log.Warn("settle_failed", "tool", wrapErr.Tool, "code", wrapErr.Code, "reason", reason)
				return settleFailResult(config, resource, reason), nil
			}

			// S7 HOOK.AFTER_SETTLE (observational)
			config.Hooks.RunAfterSettlement(ctx, x402mcp.AfterSettlementContext{HookContext: hc, Settle: *settleResp})

			log.Info("settled successfully", "tool", call.Name, "network", requirement.Network, "transaction", settleResp.Transaction)
			x402mcp.AttachSettlement(&result, *settleResp)
			return result, nil
		}
	}, nil
}

func denyResult(config Config, resource x402mcp.ResourceInfo, message string) x402mcp.ToolResult {
	body := x402mcp.BuildPaymentRequired(config.Accepts, resource, message, config.Extensions)
	return x402mcp.NewPaymentRequiredResult(body)
}

// settleFailResult builds the 402-shaped settlement-failure result. It
// never embeds a SettleResponse, preventing a client from mistaking it for
// a paid result and retrying forever.
func settleFailResult(config Config, resource x402mcp.ResourceInfo, reason string) x402mcp.ToolResult {
	message := fmt.Sprintf("Payment settlement failed: %s", reason)
	body := x402mcp.BuildPaymentRequired(config.Accepts, resource, message, config.Extensions)
	return x402mcp.NewPaymentRequiredResult(body)
}
