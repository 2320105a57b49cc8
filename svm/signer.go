// Package svm implements the SPL-token "exact" scheme client for solana
// networks, adapted from the teacher's signer_solana.go to the
// client.SchemeClient contract.
package svm

import (
	"context"
	"encoding/base64"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/x402mcp/x402mcp"
)

const defaultDecimals = 6

// Client signs SPL-token transfers with a single Solana keypair. It
// implements client.SchemeClient.
type Client struct {
	privateKey solana.PrivateKey
	publicKey  solana.PublicKey
	rpcClient  *rpc.Client
}

// NewPrivateKeyClient builds a Client from a base58-encoded Solana private
// key, talking to the facilitator-agnostic RPC endpoint rpcURL (e.g.
// rpc.MainNetBeta_RPC or rpc.DevNet_RPC).
func NewPrivateKeyClient(privateKeyBase58, rpcURL string) (*Client, error) {
	privateKey, err := solana.PrivateKeyFromBase58(privateKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("svm: invalid private key: %w", err)
	}

	return &Client{
		privateKey: privateKey,
		publicKey:  privateKey.PublicKey(),
		rpcClient:  rpc.New(rpcURL),
	}, nil
}

// Address returns the signer's base58 public key.
func (c *Client) Address() string {
	return c.publicKey.String()
}

// CreatePaymentPayload builds and partially signs an SPL TransferChecked
// transaction for requirement, returning its base64 wire encoding as the
// scheme payload. It implements client.SchemeClient.
func (c *Client) CreatePaymentPayload(ctx context.Context, requirement x402mcp.PaymentRequirement, resource *x402mcp.ResourceInfo, extensions map[string]any) (*x402mcp.PaymentPayload, error) {
	recent, err := c.rpcClient.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return nil, fmt.Errorf("svm: get latest blockhash: %w", err)
	}

	mintAddr, err := solana.PublicKeyFromBase58(requirement.Asset)
	if err != nil {
		return nil, fmt.Errorf("svm: invalid mint address: %w", err)
	}
	toAddr, err := solana.PublicKeyFromBase58(requirement.PayTo)
	if err != nil {
		return nil, fmt.Errorf("svm: invalid recipient address: %w", err)
	}
	feePayerAddr, err := solana.PublicKeyFromBase58(requirement.Extra["feePayer"])
	if err != nil {
		return nil, fmt.Errorf("svm: invalid fee payer address: %w", err)
	}

	fromATA, _, err := solana.FindAssociatedTokenAddress(c.publicKey, mintAddr)
	if err != nil {
		return nil, fmt.Errorf("svm: derive sender ATA: %w", err)
	}
	toATA, _, err := solana.FindAssociatedTokenAddress(toAddr, mintAddr)
	if err != nil {
		return nil, fmt.Errorf("svm: derive recipient ATA: %w", err)
	}

	amount := new(big.Int)
	if _, ok := amount.SetString(requirement.MaxAmountRequired, 10); !ok {
		return nil, fmt.Errorf("svm: invalid amount: %s", requirement.MaxAmountRequired)
	}
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("svm: payment amount must be positive: %s", requirement.MaxAmountRequired)
	}

	decimals := uint8(defaultDecimals)
	if decStr, ok := requirement.Extra["decimals"]; ok {
		_, _ = fmt.Sscanf(decStr, "%d", &decimals)
	}

	instructions := []solana.Instruction{
		solana.NewInstruction(
			solana.MustPublicKeyFromBase58("ComputeBudget111111111111111111111111111111"),
			solana.AccountMetaSlice{},
			[]byte{2, 0x40, 0x0d, 0x03, 0x00}, // SetComputeUnitLimit: 200,000 units
		),
		solana.NewInstruction(
			solana.MustPublicKeyFromBase58("ComputeBudget111111111111111111111111111111"),
			solana.AccountMetaSlice{},
			[]byte{3, 0x10, 0x27, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}, // SetComputeUnitPrice: 10,000 microlamports
		),
		token.NewTransferCheckedInstructionBuilder().
			SetAmount(amount.Uint64()).
			SetDecimals(decimals).
			SetSourceAccount(fromATA).
			SetDestinationAccount(toATA).
			SetMintAccount(mintAddr).
			SetOwnerAccount(c.publicKey).
			Build(),
	}

	tx, err := solana.NewTransaction(instructions, recent.Value.Blockhash, solana.TransactionPayer(feePayerAddr))
	if err != nil {
		return nil, fmt.Errorf("svm: build transaction: %w", err)
	}

	if _, err := tx.PartialSign(func(key solana.PublicKey) *solana.PrivateKey {
		if c.publicKey.Equals(key) {
			return &c.privateKey
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("svm: partial sign: %w", err)
	}

	txBytes, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("svm: serialize transaction: %w", err)
	}

	return &x402mcp.PaymentPayload{
		X402Version: x402mcp.ProtocolVersion,
		Accepted:    requirement,
		Payload: map[string]any{
			"transaction": base64.StdEncoding.EncodeToString(txBytes),
		},
		Resource:   resource,
		Extensions: extensions,
	}, nil
}
