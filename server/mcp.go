package server

import (
	"context"

	"github.com/cnosuke/multi-get/aggregator"
	"github.com/cnosuke/multi-get/config"
	"github.com/cnosuke/multi-get/fetcher"
	"github.com/cnosuke/multi-get/server/tools"
	"github.com/cockroachdb/errors"
	mcp "github.com/metoro-io/mcp-golang"
	"github.com/metoro-io/mcp-golang/transport/stdio"
	"go.uber.org/zap"
)

// RunMCP - Execute the MCP server over stdio until ctx is done
func RunMCP(ctx context.Context, cfg *config.Config, name string, version string, revision string) error {
	zap.S().Infow("starting MCP server",
		"name", name,
		"version", versionString(version, revision))

	f := fetcher.NewHTTPFetcher(&fetcher.Config{
		Timeout:   cfg.Fetch.Timeout,
		UserAgent: cfg.Fetch.UserAgent,
	})
	agg := aggregator.New(f, nil)

	mcpServer := mcp.NewServer(stdio.NewStdioServerTransport())

	// Register all tools
	zap.S().Debugw("registering tools")
	if err := tools.RegisterAllTools(ctx, mcpServer, f, agg, cfg.Headers); err != nil {
		zap.S().Errorw("failed to register tools", "error", err)
		return err
	}

	// Start the server with stdio transport
	if err := mcpServer.Serve(); err != nil {
		zap.S().Errorw("failed to start server", "error", err)
		return errors.Wrap(err, "failed to start server")
	}

	// Serve returns once the transport is running
	<-ctx.Done()
	zap.S().Infow("server shutting down")
	return nil
}
