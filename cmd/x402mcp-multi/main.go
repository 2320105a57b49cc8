package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	x402client "github.com/x402mcp/x402mcp/client"
	"github.com/x402mcp/x402mcp/evm"
	"github.com/x402mcp/x402mcp/svm"
)

// x402mcp-multi demonstrates registering scheme clients for more than one
// chain family against a single Registry, so a server free to advertise
// either an eip155 or a solana payment option gets paid on whichever one
// it asks for.
func main() {
	var (
		serverURL    = flag.String("server", "http://localhost:8080", "MCP server URL")
		evmKeyFlag   = flag.String("evm-key", "", "EVM private key hex (or EVM_PRIVATE_KEY env var)")
		svmKeyFlag   = flag.String("svm-key", "", "Solana base58 private key (or SOLANA_PRIVATE_KEY env var)")
		solanaRPCURL = flag.String("solana-rpc", "https://api.mainnet-beta.solana.com", "Solana RPC URL")
		toolName     = flag.String("tool", "search", "tool to call")
	)
	flag.Parse()

	registry := x402client.NewRegistry()

	evmKey := *evmKeyFlag
	if evmKey == "" {
		evmKey = os.Getenv("EVM_PRIVATE_KEY")
	}
	if evmKey != "" {
		evmSigner, err := evm.NewPrivateKeyClient(evmKey)
		if err != nil {
			log.Fatal("failed to create EVM signer:", err)
		}
		registry.Register("eip155:*", evmSigner)
		log.Printf("registered EVM signer %s for eip155:*", evmSigner.Address())
	}

	svmKey := *svmKeyFlag
	if svmKey == "" {
		svmKey = os.Getenv("SOLANA_PRIVATE_KEY")
	}
	if svmKey != "" {
		svmSigner, err := svm.NewPrivateKeyClient(svmKey, *solanaRPCURL)
		if err != nil {
			log.Fatal("failed to create Solana signer:", err)
		}
		registry.Register("solana:*", svmSigner)
		log.Printf("registered Solana signer %s for solana:*", svmSigner.Address())
	}

	mcpClient, err := client.NewStreamableHttpClient(*serverURL)
	if err != nil {
		log.Fatal("failed to create MCP client:", err)
	}

	ctx := context.Background()
	if err := mcpClient.Start(ctx); err != nil {
		log.Fatal("failed to start client:", err)
	}
	defer mcpClient.Close()

	if _, err := mcpClient.Initialize(ctx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: "1.0.0",
			ClientInfo:      mcp.Implementation{Name: "x402mcp-multi-client", Version: "1.0.0"},
		},
	}); err != nil {
		log.Fatal("failed to initialize:", err)
	}

	driver := &x402client.Driver{Caller: x402client.NewMCPCaller(mcpClient), Registry: registry}

	result, err := driver.CallPaidTool(ctx, *toolName, map[string]any{"query": "x402"})
	if err != nil {
		log.Fatalf("tool call failed: %v", err)
	}

	if result.PaymentMade {
		log.Printf("paid for %s", *toolName)
		if result.PaymentResponse != nil {
			log.Printf("settlement transaction: %s", result.PaymentResponse.Transaction)
		}
	}
	for _, item := range result.Content {
		if item.Type == "text" {
			log.Printf("%s response: %s", *toolName, item.Text)
		}
	}
}
