// Package evm implements the EIP-3009 "exact" scheme client for eip155
// networks, adapted from the teacher's signer.go to the client.SchemeClient
// contract (spec §6's "scheme-client contract").
package evm

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"

	"github.com/x402mcp/x402mcp"
)

// ExactAuthorization is the EIP-3009 TransferWithAuthorization payload
// carried as x402mcp.PaymentPayload.Payload for the "exact" scheme.
type ExactAuthorization struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	ValidAfter  string `json:"validAfter"`
	ValidBefore string `json:"validBefore"`
	Nonce       string `json:"nonce"`
}

// ExactPayload is the scheme payload object: a signature over an
// ExactAuthorization.
type ExactPayload struct {
	Signature     string              `json:"signature"`
	Authorization ExactAuthorization `json:"authorization"`
}

const clockSkewBuffer = 30 * time.Second

// Client signs EIP-3009 authorizations with a single ECDSA key. It
// implements client.SchemeClient.
type Client struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewPrivateKeyClient builds a Client from a hex-encoded private key
// (with or without a leading "0x").
func NewPrivateKeyClient(privateKeyHex string) (*Client, error) {
	privateKeyHex = strings.TrimPrefix(privateKeyHex, "0x")

	raw, err := hex.DecodeString(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("evm: invalid private key: %w", err)
	}
	privateKey, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("evm: invalid private key: %w", err)
	}

	return &Client{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
	}, nil
}

// NewMnemonicClient derives a Client from a BIP-39 mnemonic using BIP-32 HD
// derivation along path (default "m/44'/60'/0'/0/0" when empty).
func NewMnemonicClient(mnemonic, derivationPath string) (*Client, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("evm: invalid mnemonic")
	}
	if derivationPath == "" {
		derivationPath = "m/44'/60'/0'/0/0"
	}
	path, err := accounts.ParseDerivationPath(derivationPath)
	if err != nil {
		return nil, fmt.Errorf("evm: invalid derivation path: %w", err)
	}

	seed := bip39.NewSeed(mnemonic, "")
	privateKey, err := derivePrivateKey(seed, path)
	if err != nil {
		return nil, fmt.Errorf("evm: derive private key: %w", err)
	}

	return &Client{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
	}, nil
}

// NewKeystoreClient builds a Client from an encrypted keystore JSON file.
func NewKeystoreClient(keystoreJSON []byte, password string) (*Client, error) {
	key, err := keystore.DecryptKey(keystoreJSON, password)
	if err != nil {
		return nil, fmt.Errorf("evm: decrypt keystore: %w", err)
	}
	return &Client{privateKey: key.PrivateKey, address: key.Address}, nil
}

func derivePrivateKey(seed []byte, path accounts.DerivationPath) (*ecdsa.PrivateKey, error) {
	masterKey, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("create master key: %w", err)
	}

	key := masterKey
	for _, n := range path {
		key, err = key.NewChildKey(n)
		if err != nil {
			return nil, fmt.Errorf("derive child key: %w", err)
		}
	}

	return crypto.ToECDSA(key.Key)
}

// Address returns the signer's 0x-prefixed address.
func (c *Client) Address() string {
	return c.address.Hex()
}

// CreatePaymentPayload signs an EIP-3009 TransferWithAuthorization for
// requirement and returns the x402mcp.PaymentPayload to attach to a retried
// call. It implements client.SchemeClient.
func (c *Client) CreatePaymentPayload(ctx context.Context, requirement x402mcp.PaymentRequirement, resource *x402mcp.ResourceInfo, extensions map[string]any) (*x402mcp.PaymentPayload, error) {
	chainID, err := chainIDFromNetwork(requirement.Network)
	if err != nil {
		return nil, err
	}

	value := new(big.Int)
	if _, ok := value.SetString(requirement.MaxAmountRequired, 10); !ok {
		return nil, fmt.Errorf("evm: invalid payment amount: %s", requirement.MaxAmountRequired)
	}
	if value.Sign() <= 0 {
		return nil, fmt.Errorf("evm: payment amount must be positive: %s", requirement.MaxAmountRequired)
	}

	nonceBytes := crypto.Keccak256([]byte(fmt.Sprintf("%d-%s-%s", time.Now().UnixNano(), requirement.Asset, c.address.Hex())))
	nonce := "0x" + hex.EncodeToString(nonceBytes)

	validAfter := time.Now().Add(-clockSkewBuffer).Unix()
	timeout := requirement.MaxTimeoutSeconds
	if timeout < 60 {
		timeout = 60
	} else if timeout > 3600 {
		timeout = 3600
	}
	validBefore := time.Now().Add(time.Duration(timeout) * time.Second).Unix()

	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"TransferWithAuthorization": []apitypes.Type{
				{Name: "from", Type: "address"},
				{Name: "to", Type: "address"},
				{Name: "value", Type: "uint256"},
				{Name: "validAfter", Type: "uint256"},
				{Name: "validBefore", Type: "uint256"},
				{Name: "nonce", Type: "bytes32"},
			},
		},
		PrimaryType: "TransferWithAuthorization",
		Domain: apitypes.TypedDataDomain{
			Name:              requirement.Extra["name"],
			Version:           requirement.Extra["version"],
			ChainId:           (*math.HexOrDecimal256)(chainID),
			VerifyingContract: requirement.Asset,
		},
		Message: apitypes.TypedDataMessage{
			"from":        c.address.Hex(),
			"to":          common.HexToAddress(requirement.PayTo).Hex(),
			"value":       (*math.HexOrDecimal256)(value),
			"validAfter":  (*math.HexOrDecimal256)(big.NewInt(validAfter)),
			"validBefore": (*math.HexOrDecimal256)(big.NewInt(validBefore)),
			"nonce":       nonce,
		},
	}

	sigHash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return nil, fmt.Errorf("evm: hash typed data: %w", err)
	}

	signature, err := crypto.Sign(sigHash, c.privateKey)
	if err != nil {
		return nil, fmt.Errorf("evm: sign: %w", err)
	}
	signature[64] += 27

	payload := ExactPayload{
		Signature: "0x" + hex.EncodeToString(signature),
		Authorization: ExactAuthorization{
			From:        c.address.Hex(),
			To:          requirement.PayTo,
			Value:       requirement.MaxAmountRequired,
			ValidAfter:  strconv.FormatInt(validAfter, 10),
			ValidBefore: strconv.FormatInt(validBefore, 10),
			Nonce:       nonce,
		},
	}

	return &x402mcp.PaymentPayload{
		X402Version: x402mcp.ProtocolVersion,
		Accepted:    requirement,
		Payload:     payload,
		Resource:    resource,
		Extensions:  extensions,
	}, nil
}

// chainIDFromNetwork parses the numeric chain ID out of a CAIP-2 eip155
// network identifier, e.g. "eip155:84532" -> 84532.
func chainIDFromNetwork(network string) (*big.Int, error) {
	_, idPart, ok := strings.Cut(network, ":")
	if !ok {
		return nil, fmt.Errorf("evm: not an eip155 network: %s", network)
	}
	chainID, ok := new(big.Int).SetString(idPart, 10)
	if !ok {
		return nil, fmt.Errorf("evm: invalid chain id in network %s", network)
	}
	return chainID, nil
}
