package x402mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func samplePayload() PaymentPayload {
	return PaymentPayload{
		X402Version: ProtocolVersion,
		Accepted: PaymentRequirement{
			Scheme:            "exact",
			Network:           "eip155:84532",
			MaxAmountRequired: "100000",
			Asset:             "0xUSDC",
			PayTo:             "0xPayee",
		},
		Payload: map[string]any{"signature": "0xdead"},
	}
}

func TestExtractPayment_RoundTrip(t *testing.T) {
	payload := samplePayload()
	call := CallEnvelope{
		Name: "get_weather",
		Meta: map[string]any{MetaKeyPayment: payload},
	}

	got, ok := ExtractPayment(call)
	assert.True(t, ok)
	assert.Equal(t, payload.Accepted, got.Accepted)
}

func TestExtractPayment_AbsentMeta(t *testing.T) {
	_, ok := ExtractPayment(CallEnvelope{})
	assert.False(t, ok)
}

func TestExtractPayment_MalformedTreatedAsAbsent(t *testing.T) {
	call := CallEnvelope{Meta: map[string]any{MetaKeyPayment: 12345}}
	_, ok := ExtractPayment(call)
	assert.False(t, ok)
}

func TestExtractPayment_EmptyObjectTreatedAsAbsent(t *testing.T) {
	call := CallEnvelope{Meta: map[string]any{MetaKeyPayment: map[string]any{}}}
	_, ok := ExtractPayment(call)
	assert.False(t, ok)
}

func TestAttachSettlement_CreatesMeta(t *testing.T) {
	result := ToolResult{}
	settle := SettleResponse{Success: true, Transaction: "0xabc", Network: "eip155:84532"}
	AttachSettlement(&result, settle)

	assert.Equal(t, settle, result.Meta[MetaKeyPaymentResponse])
}

func TestAttachSettlement_PreservesExistingKeys(t *testing.T) {
	result := ToolResult{Meta: map[string]any{"other": "value"}}
	AttachSettlement(&result, SettleResponse{Success: true})

	assert.Equal(t, "value", result.Meta["other"])
	assert.Contains(t, result.Meta, MetaKeyPaymentResponse)
}

func TestToolResourceURL(t *testing.T) {
	assert.Equal(t, "mcp://tool/get_weather", ToolResourceURL("get_weather", ""))
	assert.Equal(t, "https://example.com/custom", ToolResourceURL("get_weather", "https://example.com/custom"))
}
