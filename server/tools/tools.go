package tools

import (
	"context"

	"github.com/cnosuke/multi-get/fetcher"
	"github.com/cnosuke/multi-get/headers"
	mcp "github.com/metoro-io/mcp-golang"
)

// RegisterAllTools - Register all tools with the server
func RegisterAllTools(ctx context.Context, mcpServer *mcp.Server, f fetcher.Fetcher, agg Aggregator, defaults headers.Defaults) error {
	// Register get tool
	if err := RegisterGetTool(ctx, mcpServer, f, defaults); err != nil {
		return err
	}

	// Register multi_get tool
	if err := RegisterMultiGetTool(ctx, mcpServer, agg, defaults); err != nil {
		return err
	}

	return nil
}
