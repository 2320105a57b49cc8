package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/x402mcp/x402mcp"
)

// VerifyResponse is the facilitator's answer to a verify call (spec §6).
type VerifyResponse struct {
	IsValid       bool   `json:"isValid"`
	InvalidReason string `json:"invalidReason,omitempty"`
}

// Facilitator is the external verify/settle collaborator (spec §2's
// "external collaborators"). The wrapper never retries a facilitator call;
// callers needing retry should wrap their own Facilitator implementation.
type Facilitator interface {
	Verify(ctx context.Context, payload *x402mcp.PaymentPayload, requirement *x402mcp.PaymentRequirement) (*VerifyResponse, error)
	Settle(ctx context.Context, payload *x402mcp.PaymentPayload, requirement *x402mcp.PaymentRequirement) (*x402mcp.SettleResponse, error)
	GetSupported(ctx context.Context) ([]SupportedKind, error)
}

// SupportedKind is one scheme/network pair a facilitator advertises.
type SupportedKind struct {
	X402Version int    `json:"x402Version"`
	Scheme      string `json:"scheme"`
	Network     string `json:"network"`
}

type verifyRequest struct {
	X402Version int                       `json:"x402Version"`
	Payment     *x402mcp.PaymentPayload    `json:"paymentPayload"`
	Requirement *x402mcp.PaymentRequirement `json:"paymentRequirements"`
}

type settleRequest struct {
	X402Version int                       `json:"x402Version"`
	Payment     *x402mcp.PaymentPayload    `json:"paymentPayload"`
	Requirement *x402mcp.PaymentRequirement `json:"paymentRequirements"`
}

// HTTPFacilitator talks to a facilitator over HTTP, POSTing to /verify and
// /settle and GETting /supported, adapted from the teacher's HTTPFacilitator.
type HTTPFacilitator struct {
	baseURL string
	client  *http.Client
}

// NewHTTPFacilitator builds an HTTPFacilitator against baseURL with a
// 30-second request timeout.
func NewHTTPFacilitator(baseURL string) *HTTPFacilitator {
	return &HTTPFacilitator{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (f *HTTPFacilitator) Verify(ctx context.Context, payload *x402mcp.PaymentPayload, requirement *x402mcp.PaymentRequirement) (*VerifyResponse, error) {
	body, err := json.Marshal(verifyRequest{
		X402Version: x402mcp.ProtocolVersion,
		Payment:     payload,
		Requirement: requirement,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal verify request: %w", err)
	}

	resp, err := f.post(ctx, "/verify", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out VerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode verify response: %w", err)
	}
	return &out, nil
}

func (f *HTTPFacilitator) Settle(ctx context.Context, payload *x402mcp.PaymentPayload, requirement *x402mcp.PaymentRequirement) (*x402mcp.SettleResponse, error) {
	body, err := json.Marshal(settleRequest{
		X402Version: x402mcp.ProtocolVersion,
		Payment:     payload,
		Requirement: requirement,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal settle request: %w", err)
	}

	resp, err := f.post(ctx, "/settle", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out x402mcp.SettleResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode settle response: %w", err)
	}
	return &out, nil
}

func (f *HTTPFacilitator) GetSupported(ctx context.Context) ([]SupportedKind, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/supported", nil)
	if err != nil {
		return nil, fmt.Errorf("create supported request: %w", err)
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("supported request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("supported failed with status %d", resp.StatusCode)
	}

	var result struct {
		Kinds []SupportedKind `json:"kinds"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode supported response: %w", err)
	}
	return result.Kinds, nil
}

func (f *HTTPFacilitator) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", path, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", path, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%s failed with status %d: %s", path, resp.StatusCode, string(bodyBytes))
	}
	return resp, nil
}
