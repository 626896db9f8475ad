package tools

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/cnosuke/multi-get/fetcher"
	"github.com/cnosuke/multi-get/headers"
	"github.com/cnosuke/multi-get/types"
	"github.com/cockroachdb/errors"
	"github.com/go-shiori/go-readability"
	mcp "github.com/metoro-io/mcp-golang"
	"go.uber.org/zap"
)

// GetArgs - Arguments for get tool
type GetArgs struct {
	URL      string            `json:"url" jsonschema:"description=URL to GET,required=true"`
	Headers  map[string]string `json:"headers,omitempty" jsonschema:"description=Request headers; an empty value removes a default"`
	Cookie   string            `json:"cookie,omitempty" jsonschema:"description=Cookie header"`
	Markdown bool              `json:"markdown,omitempty" jsonschema:"description=Convert HTML responses to markdown"`
}

// RegisterGetTool - Register the get tool
func RegisterGetTool(ctx context.Context, mcpServer *mcp.Server, f fetcher.Fetcher, defaults headers.Defaults) error {
	zap.S().Debugw("registering get tool")
	err := mcpServer.RegisterTool("get",
		"GET a single URL and return its status, headers and body; HTML can be converted to markdown",
		func(args GetArgs) (*mcp.ToolResponse, error) {
			return get(ctx, f, defaults, args)
		})

	if err != nil {
		zap.S().Errorw("failed to register get tool", "error", err)
		return errors.Wrap(err, "failed to register get tool")
	}

	return nil
}

func get(ctx context.Context, f fetcher.Fetcher, defaults headers.Defaults, args GetArgs) (*mcp.ToolResponse, error) {
	zap.S().Infow("executing get",
		"url", args.URL,
		"markdown", args.Markdown)

	// Validate URL
	if args.URL == "" {
		return nil, errors.New("URL is required")
	}

	response := &types.GetResponse{URL: args.URL}
	switch o := f.Fetch(ctx, args.URL, headers.Resolve(defaults, args.Headers, args.Cookie)).(type) {
	case *fetcher.Success:
		response.Status = types.StatusCode(o.StatusCode)
		response.StatusText = o.StatusText
		response.Headers = o.Headers
		response.ContentType = o.ContentType
		response.Content = string(o.Body)
		if args.Markdown && strings.Contains(o.ContentType, "text/html") {
			response.Content = htmlToMarkdown(response.Content, args.URL)
		}
	case *fetcher.Failure:
		response.Status = types.StatusError
		response.Error = o.Message
	}

	// Convert response to JSON
	jsonResponse, err := json.Marshal(response)
	if err != nil {
		zap.S().Errorw("failed to marshal response to JSON",
			"error", err)
		return nil, errors.Wrap(err, "failed to marshal response to JSON")
	}

	return mcp.NewToolResponse(mcp.NewTextContent(string(jsonResponse))), nil
}

// htmlToMarkdown extracts the main content with readability and converts it
// to markdown. It falls back to a plain conversion, then to the raw HTML.
func htmlToMarkdown(htmlContent, urlStr string) string {
	converted, err := readableMarkdown(htmlContent, urlStr)
	if err == nil {
		return converted
	}
	zap.S().Warnw("failed to process HTML content with readability, falling back to basic conversion", "url", urlStr, "error", err)

	converted, err = md.NewConverter("", true, nil).ConvertString(htmlContent)
	if err != nil {
		zap.S().Warnw("fallback HTML conversion also failed", "url", urlStr, "error", err)
		return htmlContent
	}
	return converted
}

func readableMarkdown(htmlContent, urlStr string) (string, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", errors.Wrap(err, "failed to parse URL")
	}

	article, err := readability.FromReader(strings.NewReader(htmlContent), parsedURL)
	if err != nil {
		return "", errors.Wrap(err, "failed to extract content with readability")
	}

	markdown, err := md.NewConverter("", true, nil).ConvertString(article.Content)
	if err != nil {
		return "", errors.Wrap(err, "failed to convert extracted content to Markdown")
	}

	if article.Title != "" {
		markdown = "# " + article.Title + "\n\n" + markdown
	}

	zap.S().Debugw("processed HTML content",
		"url", urlStr,
		"title", article.Title,
		"length", len(markdown))

	return markdown, nil
}
