package x402mcp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPaymentRequired(t *testing.T) {
	accepts := []PaymentRequirement{{Scheme: "exact", Network: "eip155:84532", MaxAmountRequired: "100000", Asset: "0xUSDC", PayTo: "0xPayee"}}
	resource := ResourceInfo{URL: "mcp://tool/get_weather", Description: "Tool: get_weather", MimeType: "application/json"}

	body := BuildPaymentRequired(accepts, resource, "Payment required to access this tool", nil)

	assert.Equal(t, ProtocolVersion, body.X402Version)
	assert.Equal(t, accepts, body.Accepts)
	assert.Equal(t, resource, body.Resource)
	assert.Equal(t, "Payment required to access this tool", body.Error)
}

func TestNewPaymentRequiredResult_Shape(t *testing.T) {
	accepts := []PaymentRequirement{{Scheme: "exact", Network: "eip155:84532", MaxAmountRequired: "1", Asset: "a", PayTo: "b"}}
	body := BuildPaymentRequired(accepts, ResourceInfo{}, "denied", nil)
	result := NewPaymentRequiredResult(body)

	assert.True(t, result.IsError)
	require.Len(t, result.Content, 1)
	assert.Equal(t, "text", result.Content[0].Type)
	assert.Equal(t, body, result.StructuredContent)

	var decoded PaymentRequired
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &decoded))
	assert.Equal(t, body, decoded)
}

func TestValidateSplitRequirement_IgnoresNonSplitScheme(t *testing.T) {
	assert.NoError(t, ValidateSplitRequirement(PaymentRequirement{Scheme: "exact"}))
}

func TestValidateSplitRequirement_RejectsMissingRecipients(t *testing.T) {
	err := ValidateSplitRequirement(PaymentRequirement{Scheme: "split"})
	assert.ErrorIs(t, err, ErrInvalidSplitBps)
}

func TestValidateSplitRequirement_RejectsBadBpsSum(t *testing.T) {
	req := PaymentRequirement{
		Scheme: "split",
		Extra:  map[string]string{"recipients": `[{"address":"a","bps":4000},{"address":"b","bps":4000}]`},
	}
	err := ValidateSplitRequirement(req)
	assert.ErrorIs(t, err, ErrInvalidSplitBps)
}

func TestValidateSplitRequirement_RejectsOutOfRangeBps(t *testing.T) {
	req := PaymentRequirement{
		Scheme: "split",
		Extra:  map[string]string{"recipients": `[{"address":"a","bps":0},{"address":"b","bps":10000}]`},
	}
	err := ValidateSplitRequirement(req)
	assert.ErrorIs(t, err, ErrInvalidSplitBps)
}

func TestValidateSplitRequirement_AcceptsValidSplit(t *testing.T) {
	req := PaymentRequirement{
		Scheme: "split",
		Extra:  map[string]string{"recipients": `[{"address":"a","bps":6000},{"address":"b","bps":4000}]`},
	}
	assert.NoError(t, ValidateSplitRequirement(req))
}

func TestNewPaymentRequiredResult_Idempotent(t *testing.T) {
	accepts := []PaymentRequirement{{Scheme: "exact", Network: "eip155:84532", MaxAmountRequired: "1", Asset: "a", PayTo: "b"}}
	body := BuildPaymentRequired(accepts, ResourceInfo{URL: "mcp://tool/x"}, "Payment required to access this tool", nil)

	first := NewPaymentRequiredResult(body)
	second := NewPaymentRequiredResult(body)

	assert.Equal(t, first.Content[0].Text, second.Content[0].Text)
}
