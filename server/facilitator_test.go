package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x402mcp/x402mcp"
)

func TestHTTPFacilitator_Verify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/verify", r.URL.Path)
		var req verifyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, x402mcp.ProtocolVersion, req.X402Version)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(VerifyResponse{IsValid: true})
	}))
	defer srv.Close()

	f := NewHTTPFacilitator(srv.URL)
	resp, err := f.Verify(context.Background(), &x402mcp.PaymentPayload{}, &x402mcp.PaymentRequirement{})
	require.NoError(t, err)
	assert.True(t, resp.IsValid)
}

func TestHTTPFacilitator_Settle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/settle", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(x402mcp.SettleResponse{Success: true, Transaction: "0xabc", Network: "eip155:84532"})
	}))
	defer srv.Close()

	f := NewHTTPFacilitator(srv.URL)
	resp, err := f.Settle(context.Background(), &x402mcp.PaymentPayload{}, &x402mcp.PaymentRequirement{})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "0xabc", resp.Transaction)
}

func TestHTTPFacilitator_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	f := NewHTTPFacilitator(srv.URL)
	_, err := f.Verify(context.Background(), &x402mcp.PaymentPayload{}, &x402mcp.PaymentRequirement{})
	assert.Error(t, err)
}

func TestHTTPFacilitator_GetSupported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/supported", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"kinds": []SupportedKind{{X402Version: x402mcp.ProtocolVersion, Scheme: "exact", Network: "eip155:84532"}},
		})
	}))
	defer srv.Close()

	f := NewHTTPFacilitator(srv.URL)
	kinds, err := f.GetSupported(context.Background())
	require.NoError(t, err)
	require.Len(t, kinds, 1)
	assert.Equal(t, "exact", kinds[0].Scheme)
}
