package tools

import (
	"context"
	"encoding/json"

	"github.com/cnosuke/multi-get/headers"
	"github.com/cnosuke/multi-get/types"
	"github.com/cockroachdb/errors"
	mcp "github.com/metoro-io/mcp-golang"
	"go.uber.org/zap"
)

// MultiGetArgs - Arguments for multi_get tool
type MultiGetArgs struct {
	URLs    []string          `json:"urls" jsonschema:"description=URLs to GET concurrently,required=true"`
	Headers map[string]string `json:"headers,omitempty" jsonschema:"description=Headers sent with every request; an empty value removes a default"`
	Cookie  string            `json:"cookie,omitempty" jsonschema:"description=Cookie header sent with every request"`
}

// Aggregator merges the GET responses of many URLs into one envelope
type Aggregator interface {
	Aggregate(ctx context.Context, urls []string, headers map[string]string) (*types.ResponseEnvelope, error)
}

// RegisterMultiGetTool - Register the multi_get tool
func RegisterMultiGetTool(ctx context.Context, mcpServer *mcp.Server, agg Aggregator, defaults headers.Defaults) error {
	zap.S().Debugw("registering multi_get tool")
	err := mcpServer.RegisterTool("multi_get",
		"GET many URLs concurrently with shared headers and merge their JSON record collections (bare arrays or objects with a results array) into one response",
		func(args MultiGetArgs) (*mcp.ToolResponse, error) {
			return multiGet(ctx, agg, defaults, args)
		})

	if err != nil {
		zap.S().Errorw("failed to register multi_get tool", "error", err)
		return errors.Wrap(err, "failed to register multi_get tool")
	}

	return nil
}

func multiGet(ctx context.Context, agg Aggregator, defaults headers.Defaults, args MultiGetArgs) (*mcp.ToolResponse, error) {
	zap.S().Infow("executing multi_get",
		"urls_count", len(args.URLs),
		"header_count", len(args.Headers))

	envelope, err := agg.Aggregate(ctx, args.URLs, headers.Resolve(defaults, args.Headers, args.Cookie))
	if err != nil {
		zap.S().Errorw("failed to aggregate requests", "error", err)
		return nil, errors.Wrap(err, "failed to aggregate requests")
	}

	// Convert response to JSON
	jsonResponse, err := json.Marshal(envelope)
	if err != nil {
		zap.S().Errorw("failed to marshal response to JSON",
			"error", err)
		return nil, errors.Wrap(err, "failed to marshal response to JSON")
	}

	return mcp.NewToolResponse(mcp.NewTextContent(string(jsonResponse))), nil
}
