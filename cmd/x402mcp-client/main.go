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
)

func main() {
	var (
		privateKeyFlag = flag.String("key", "", "private key hex (or set WALLET_PRIVATE_KEY env var)")
		serverURL      = flag.String("server", "http://localhost:8080", "MCP server URL")
		maxPayment     = flag.String("max-payment", "1000000", "maximum amount to auto-pay per call, in the asset's smallest unit")
		verbose        = flag.Bool("v", false, "verbose output")
	)
	flag.Parse()

	privateKey := *privateKeyFlag
	if privateKey == "" {
		privateKey = os.Getenv("WALLET_PRIVATE_KEY")
		if privateKey == "" {
			log.Fatal("private key required: use -key flag or set WALLET_PRIVATE_KEY environment variable")
		}
	}

	signer, err := evm.NewPrivateKeyClient(privateKey)
	if err != nil {
		log.Fatal("failed to create signer:", err)
	}
	log.Printf("using wallet address: %s", signer.Address())

	budget, err := x402client.NewBudgetManager(*maxPayment, &x402client.RateLimits{MaxPaymentsPerMinute: 10})
	if err != nil {
		log.Fatal("failed to create budget manager:", err)
	}

	registry := x402client.NewRegistry()
	registry.Register("eip155:*", signer)

	mcpClient, err := client.NewStreamableHttpClient(*serverURL)
	if err != nil {
		log.Fatal("failed to create MCP client:", err)
	}

	ctx := context.Background()
	if err := mcpClient.Start(ctx); err != nil {
		log.Fatal("failed to start client:", err)
	}
	defer mcpClient.Close()

	initResp, err := mcpClient.Initialize(ctx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: "1.0.0",
			ClientInfo:      mcp.Implementation{Name: "x402mcp-example-client", Version: "1.0.0"},
		},
	})
	if err != nil {
		log.Fatal("failed to initialize:", err)
	}
	log.Printf("connected to server: %s v%s", initResp.ServerInfo.Name, initResp.ServerInfo.Version)

	driver := &x402client.Driver{
		Caller:   x402client.NewMCPCaller(mcpClient),
		Registry: registry,
		Approve:  budget.Approve,
	}

	log.Println("calling echo tool (free)...")
	echoResult, err := driver.CallPaidTool(ctx, "echo", map[string]any{"message": "Hello from x402mcp client!"})
	if err != nil {
		log.Printf("echo failed: %v", err)
	} else {
		logResult("echo", echoResult, *verbose)
	}

	log.Println("calling search tool (paid)...")
	searchResult, err := driver.CallPaidTool(ctx, "search", map[string]any{"query": "x402"})
	if err != nil {
		log.Fatalf("search failed: %v", err)
	}
	logResult("search", searchResult, *verbose)

	if *verbose {
		metrics := budget.GetMetrics()
		log.Printf("payment metrics: total=%s hourly=%s count=%d", metrics.TotalSpent, metrics.HourlySpent, metrics.PaymentCount)
	}
}

func logResult(tool string, result x402client.Result, verbose bool) {
	if result.PaymentMade && verbose {
		log.Printf("%s: paid for this call", tool)
		if result.PaymentResponse != nil {
			log.Printf("%s: settlement transaction %s", tool, result.PaymentResponse.Transaction)
		}
	}
	if result.IsError {
		log.Printf("%s returned an error result", tool)
		return
	}
	for _, item := range result.Content {
		if item.Type == "text" {
			log.Printf("%s response: %s", tool, item.Text)
		}
	}
}
