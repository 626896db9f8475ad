package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	ierrors "github.com/cnosuke/multi-get/internal/errors"
	"go.uber.org/zap"
)

// Config - Settings for the HTTP fetcher
type Config struct {
	Timeout   int    // Seconds; 0 leaves requests bounded only by the caller's context
	UserAgent string // Sent when the caller supplies no User-Agent
	Transport http.RoundTripper
}

// Fetcher performs a single GET for one URL.
type Fetcher interface {
	// Fetch issues GET urlStr with headers applied and never returns an error:
	// any HTTP response, including 4xx and 5xx, is a *Success, and transport
	// faults become a *Failure.
	Fetch(ctx context.Context, urlStr string, headers map[string]string) Outcome
}

// Outcome is either *Success or *Failure.
type Outcome interface {
	outcome()
}

// Success - An HTTP response was received
type Success struct {
	StatusCode  int
	StatusText  string
	Headers     map[string]string // Lower-cased names, multiple values joined by ", "
	ContentType string
	Body        []byte // Decoded according to Content-Encoding
}

// Failure - No HTTP response could be obtained
type Failure struct {
	Message string
	Kind    string // timeout, dns, connection, tls, canceled, protocol or other
}

func (*Success) outcome() {}
func (*Failure) outcome() {}

// httpFetcher implements the Fetcher interface using net/http.
type httpFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher creates a new httpFetcher.
func NewHTTPFetcher(cfg *Config) Fetcher {
	zap.S().Infow("creating new HTTP fetcher",
		"timeout", cfg.Timeout,
		"user_agent", cfg.UserAgent)

	client := &http.Client{
		Timeout:   time.Duration(cfg.Timeout) * time.Second,
		Transport: cfg.Transport,
	}

	return &httpFetcher{
		client:    client,
		userAgent: cfg.UserAgent,
	}
}

func (f *httpFetcher) Fetch(ctx context.Context, urlStr string, headers map[string]string) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			zap.S().Errorw("recovered panic while fetching", "url", urlStr, "panic", r)
			out = &Failure{Message: fmt.Sprintf("internal error: %v", r), Kind: kindOther}
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return newFailure(ierrors.Wrap(err, "failed to create request"))
	}
	applyHeaders(req, headers)
	if req.Header.Get("User-Agent") == "" && f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return newFailure(ierrors.Wrap(err, "failed to execute request"))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return newFailure(ierrors.Wrap(err, "failed to read response body"))
	}

	encoding := resp.Header.Get("Content-Encoding")
	body, err := decodeBody(encoding, raw)
	if err != nil {
		return newFailure(err)
	}

	zap.S().Debugw(
		"response received",
		"url", urlStr,
		"status", resp.StatusCode,
		"content-length", resp.ContentLength,
		"bytes", len(body),
		"content_encoding", encoding,
		"content_type", resp.Header.Get("Content-Type"),
	)

	respHeaders := flattenHeaders(resp.Header)
	if encoding != "" {
		delete(respHeaders, "content-encoding")
	}

	return &Success{
		StatusCode:  resp.StatusCode,
		StatusText:  statusText(resp),
		Headers:     respHeaders,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}
}

// applyHeaders sets headers on req. Host is routed to req.Host since
// net/http ignores it in the header map.
func applyHeaders(req *http.Request, headers map[string]string) {
	for k, v := range headers {
		if http.CanonicalHeaderKey(k) == "Host" {
			req.Host = v
			continue
		}
		req.Header.Set(k, v)
	}
}

func flattenHeaders(h http.Header) map[string]string {
	m := make(map[string]string, len(h))
	for k, v := range h {
		m[strings.ToLower(k)] = strings.Join(v, ", ")
	}
	return m
}

// statusText returns the reason phrase the server sent, falling back to the
// standard text for the code.
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}
