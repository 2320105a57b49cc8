package server

import "github.com/x402mcp/x402mcp"

// Helper constructors for common USDC payment requirements, adapted from
// the teacher's RequireUSDCBase/RequireUSDCBaseSepolia to the CAIP-2-like
// network identifiers and "exact" scheme this protocol version uses.

// RequireUSDCBase builds a requirement for USDC on Base mainnet (eip155:8453).
func RequireUSDCBase(payTo, amount string) x402mcp.PaymentRequirement {
	return x402mcp.PaymentRequirement{
		Scheme:            "exact",
		Network:           "eip155:8453",
		Asset:             "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		PayTo:             payTo,
		MaxAmountRequired: amount,
		MaxTimeoutSeconds: 60,
		Extra: map[string]string{
			"name":    "USD Coin",
			"version": "2",
		},
	}
}

// RequireUSDCBaseSepolia builds a requirement for USDC on Base Sepolia
// (eip155:84532), the network used throughout the spec's literal scenarios.
func RequireUSDCBaseSepolia(payTo, amount string) x402mcp.PaymentRequirement {
	return x402mcp.PaymentRequirement{
		Scheme:            "exact",
		Network:           "eip155:84532",
		Asset:             "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
		PayTo:             payTo,
		MaxAmountRequired: amount,
		MaxTimeoutSeconds: 60,
		Extra: map[string]string{
			"name":    "USDC",
			"version": "2",
		},
	}
}

// RequireUSDCSolana builds a requirement for USDC on Solana mainnet,
// enriching the teacher's EVM-only helper set with the svm package's
// Solana scheme client per SPEC_FULL.md's domain-stack wiring.
func RequireUSDCSolana(payTo, amount string) x402mcp.PaymentRequirement {
	return x402mcp.PaymentRequirement{
		Scheme:            "exact",
		Network:           "solana:5eykt4UsFv8P8NJdTREpY1vzqKqZKvdp",
		Asset:             "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		PayTo:             payTo,
		MaxAmountRequired: amount,
		MaxTimeoutSeconds: 60,
	}
}
