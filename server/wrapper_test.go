package server

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x402mcp/x402mcp"
)

// MockFacilitator is a hand-stubbed Facilitator for tests, mirroring the
// teacher's server/middleware_test.go MockFacilitator.
type MockFacilitator struct {
	verifyResponse *VerifyResponse
	verifyErr      error
	settleResponse *x402mcp.SettleResponse
	settleErr      error

	verifyCalls int
	settleCalls int
}

func (m *MockFacilitator) Verify(ctx context.Context, payload *x402mcp.PaymentPayload, requirement *x402mcp.PaymentRequirement) (*VerifyResponse, error) {
	m.verifyCalls++
	return m.verifyResponse, m.verifyErr
}

func (m *MockFacilitator) Settle(ctx context.Context, payload *x402mcp.PaymentPayload, requirement *x402mcp.PaymentRequirement) (*x402mcp.SettleResponse, error) {
	m.settleCalls++
	return m.settleResponse, m.settleErr
}

func (m *MockFacilitator) GetSupported(ctx context.Context) ([]SupportedKind, error) {
	return nil, nil
}

func testAccepts() []x402mcp.PaymentRequirement {
	return []x402mcp.PaymentRequirement{{
		Scheme:            "exact",
		Network:           "eip155:84532",
		MaxAmountRequired: "100000",
		Asset:             "0xUSDC",
		PayTo:             "0xPayee",
		MaxTimeoutSeconds: 60,
	}}
}

func validPayload() *x402mcp.PaymentPayload {
	return &x402mcp.PaymentPayload{
		X402Version: x402mcp.ProtocolVersion,
		Accepted:    testAccepts()[0],
		Payload:     map[string]any{"signature": "0xsig"},
	}
}

func callWithPayment(payload *x402mcp.PaymentPayload) x402mcp.CallEnvelope {
	return x402mcp.CallEnvelope{
		Name: "get_weather",
		Meta: map[string]any{x402mcp.MetaKeyPayment: payload},
	}
}

func weatherHandler(called *bool) Handler {
	return func(ctx context.Context, call x402mcp.CallEnvelope) (x402mcp.ToolResult, error) {
		*called = true
		return x402mcp.NewTextResult(`{"city":"SF","weather":"sunny","temperature":68}`), nil
	}
}

// Scenario 1: happy path.
func TestWrap_HappyPath(t *testing.T) {
	facilitator := &MockFacilitator{
		verifyResponse: &VerifyResponse{IsValid: true},
		settleResponse: &x402mcp.SettleResponse{Success: true, Transaction: "0xabc", Network: "eip155:84532"},
	}

	mw, err := Wrap(facilitator, Config{Accepts: testAccepts()})
	require.NoError(t, err)

	var handlerCalled bool
	handler := mw(weatherHandler(&handlerCalled))

	// First call: no payment.
	denied, err := handler(context.Background(), x402mcp.CallEnvelope{Name: "get_weather"})
	require.NoError(t, err)
	assert.True(t, denied.IsError)
	assert.False(t, handlerCalled)

	body, ok := denied.StructuredContent.(x402mcp.PaymentRequired)
	require.True(t, ok)
	assert.Equal(t, testAccepts(), body.Accepts)

	// Second call: paid.
	result, err := handler(context.Background(), callWithPayment(validPayload()))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.True(t, handlerCalled)
	assert.Equal(t, 1, facilitator.verifyCalls)
	assert.Equal(t, 1, facilitator.settleCalls)

	settle, ok := result.Meta[x402mcp.MetaKeyPaymentResponse].(x402mcp.SettleResponse)
	require.True(t, ok)
	assert.True(t, settle.Success)
	assert.Equal(t, "0xabc", settle.Transaction)
}

// Scenario 2: verification failure.
func TestWrap_VerificationFailure(t *testing.T) {
	facilitator := &MockFacilitator{verifyResponse: &VerifyResponse{IsValid: false, InvalidReason: "bad signature"}}
	mw, err := Wrap(facilitator, Config{Accepts: testAccepts()})
	require.NoError(t, err)

	var handlerCalled bool
	handler := mw(weatherHandler(&handlerCalled))

	result, err := handler(context.Background(), callWithPayment(validPayload()))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.False(t, handlerCalled)
	assert.Equal(t, 0, facilitator.settleCalls)

	body := result.StructuredContent.(x402mcp.PaymentRequired)
	assert.Equal(t, "bad signature", body.Error)
}

// Scenario 3: hook blocks execution.
func TestWrap_HookBlock(t *testing.T) {
	facilitator := &MockFacilitator{verifyResponse: &VerifyResponse{IsValid: true}}
	mw, err := Wrap(facilitator, Config{
		Accepts: testAccepts(),
		Hooks: x402mcp.Hooks{
			OnBeforeExecution: func(ctx context.Context, hc x402mcp.HookContext) bool { return false },
		},
	})
	require.NoError(t, err)

	var handlerCalled bool
	handler := mw(weatherHandler(&handlerCalled))

	result, err := handler(context.Background(), callWithPayment(validPayload()))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.False(t, handlerCalled)
	assert.Equal(t, 0, facilitator.settleCalls)

	body := result.StructuredContent.(x402mcp.PaymentRequired)
	assert.Equal(t, "Execution blocked by hook", body.Error)
}

// Scenario 4: handler error propagates unchanged, no settle.
func TestWrap_HandlerError(t *testing.T) {
	facilitator := &MockFacilitator{verifyResponse: &VerifyResponse{IsValid: true}}
	mw, err := Wrap(facilitator, Config{Accepts: testAccepts()})
	require.NoError(t, err)

	errorResult := x402mcp.ToolResult{
		Content: []x402mcp.ContentItem{{Type: "text", Text: "not found"}},
		IsError: true,
	}
	handler := mw(func(ctx context.Context, call x402mcp.CallEnvelope) (x402mcp.ToolResult, error) {
		return errorResult, nil
	})

	result, err := handler(context.Background(), callWithPayment(validPayload()))
	require.NoError(t, err)
	assert.Equal(t, errorResult, result)
	assert.Equal(t, 0, facilitator.settleCalls)
	assert.NotContains(t, result.Meta, x402mcp.MetaKeyPaymentResponse)
}

// Scenario 5: settle failure.
func TestWrap_SettleFailure(t *testing.T) {
	facilitator := &MockFacilitator{
		verifyResponse: &VerifyResponse{IsValid: true},
		settleResponse: &x402mcp.SettleResponse{Success: false, ErrorReason: "insufficient balance"},
	}
	mw, err := Wrap(facilitator, Config{Accepts: testAccepts()})
	require.NoError(t, err)

	var handlerCalled bool
	handler := mw(weatherHandler(&handlerCalled))

	result, err := handler(context.Background(), callWithPayment(validPayload()))
	require.NoError(t, err)
	assert.True(t, handlerCalled)
	assert.True(t, result.IsError)

	body := result.StructuredContent.(x402mcp.PaymentRequired)
	assert.Equal(t, "Payment settlement failed: insufficient balance", body.Error)
	assert.Equal(t, testAccepts(), body.Accepts)
	assert.NotContains(t, result.Meta, x402mcp.MetaKeyPaymentResponse)
}

func TestWrap_SettleTransportError(t *testing.T) {
	facilitator := &MockFacilitator{
		verifyResponse: &VerifyResponse{IsValid: true},
		settleErr:      errors.New("facilitator unreachable"),
	}
	mw, err := Wrap(facilitator, Config{Accepts: testAccepts()})
	require.NoError(t, err)

	var handlerCalled bool
	handler := mw(weatherHandler(&handlerCalled))

	result, err := handler(context.Background(), callWithPayment(validPayload()))
	require.NoError(t, err)
	body := result.StructuredContent.(x402mcp.PaymentRequired)
	assert.Equal(t, "Payment settlement failed: facilitator unreachable", body.Error)
}

func TestWrap_RejectsEmptyAccepts(t *testing.T) {
	_, err := Wrap(&MockFacilitator{}, Config{})
	assert.Error(t, err)
}

func TestWrap_RejectsMalformedSplitRequirement(t *testing.T) {
	_, err := Wrap(&MockFacilitator{}, Config{
		Accepts: []x402mcp.PaymentRequirement{{Scheme: "split"}},
	})
	assert.ErrorIs(t, err, x402mcp.ErrInvalidSplitBps)
}

func TestWrap_HandlerExceptionSkipsSettle(t *testing.T) {
	facilitator := &MockFacilitator{verifyResponse: &VerifyResponse{IsValid: true}}
	mw, err := Wrap(facilitator, Config{Accepts: testAccepts()})
	require.NoError(t, err)

	boom := errors.New("boom")
	handler := mw(func(ctx context.Context, call x402mcp.CallEnvelope) (x402mcp.ToolResult, error) {
		return x402mcp.ToolResult{}, boom
	})

	_, err = handler(context.Background(), callWithPayment(validPayload()))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, facilitator.settleCalls)
}

func TestWrap_CancelledBeforeSettleSkipsSettle(t *testing.T) {
	facilitator := &MockFacilitator{verifyResponse: &VerifyResponse{IsValid: true}}
	mw, err := Wrap(facilitator, Config{Accepts: testAccepts()})
	require.NoError(t, err)

	var handlerCalled bool
	handler := mw(weatherHandler(&handlerCalled))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := handler(ctx, callWithPayment(validPayload()))
	require.NoError(t, err)
	assert.True(t, handlerCalled)
	assert.Equal(t, 0, facilitator.settleCalls)
	assert.False(t, result.IsError)
	assert.NotContains(t, result.Meta, x402mcp.MetaKeyPaymentResponse)
}
