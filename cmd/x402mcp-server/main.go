package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/x402mcp/x402mcp"
	"github.com/x402mcp/x402mcp/server"
)

func main() {
	var (
		addr           = flag.String("addr", ":8080", "address to listen on")
		facilitatorURL = flag.String("facilitator", "https://facilitator.x402.rs", "x402 facilitator URL")
		payTo          = flag.String("pay-to", "", "payment recipient wallet address (required)")
		testnet        = flag.Bool("testnet", false, "require payment on Base Sepolia instead of Base mainnet")
	)
	flag.Parse()

	if *payTo == "" {
		log.Fatal("Error: -pay-to flag is required")
	}

	facilitator := server.NewHTTPFacilitator(*facilitatorURL)
	mcpServer := mcpserver.NewMCPServer("x402mcp-example-server", "1.0.0")

	mcpServer.AddTool(
		mcp.NewTool("echo",
			mcp.WithDescription("echoes the input message back"),
			mcp.WithString("message", mcp.Required(), mcp.Description("the message to echo")),
		),
		echoHandler,
	)

	requirement := server.RequireUSDCBase(*payTo, "10000")
	if *testnet {
		requirement = server.RequireUSDCBaseSepolia(*payTo, "10000")
	}

	mustAddPayableTool(mcpServer, facilitator,
		mcp.NewTool("search",
			mcp.WithDescription("search for information on any topic, 0.01 USDC per call"),
			mcp.WithString("query", mcp.Required(), mcp.Description("the search query")),
		),
		searchHandler,
		server.Config{Accepts: []x402mcp.PaymentRequirement{requirement}},
	)

	log.Printf("x402mcp example server listening on %s", *addr)
	log.Printf("tools: echo (free), search (paid, %s on %s)", requirement.MaxAmountRequired, requirement.Network)

	httpServer := mcpserver.NewStreamableHTTPServer(mcpServer)
	if err := http.ListenAndServe(*addr, httpServer); err != nil {
		log.Fatal(err)
	}
}

// mustAddPayableTool wraps handler in the x402 middleware for tool and
// registers it, exiting the process if the config is invalid.
func mustAddPayableTool(mcpServer *mcpserver.MCPServer, facilitator server.Facilitator, tool mcp.Tool, handler mcpserver.ToolHandlerFunc, cfg server.Config) {
	mw, err := server.WrapTool(facilitator, cfg)
	if err != nil {
		log.Fatalf("invalid payment config for tool %s: %v", tool.Name, err)
	}
	mcpServer.AddTool(tool, mw(handler))
}

func echoHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message := req.GetString("message", "")
	if message == "" {
		return nil, fmt.Errorf("message parameter is required")
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(fmt.Sprintf("Echo: %s", message))},
	}, nil
}

func searchHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return nil, fmt.Errorf("query parameter is required")
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(fmt.Sprintf("Search results for %q: 1. Overview  2. Tutorials  3. Advanced topics", query))},
	}, nil
}
