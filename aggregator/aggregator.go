// Package aggregator fans a GET out to many URLs and merges the outcomes into
// one response envelope.
package aggregator

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cnosuke/multi-get/fetcher"
	ierrors "github.com/cnosuke/multi-get/internal/errors"
	"github.com/cnosuke/multi-get/types"
	"go.uber.org/zap"
)

// MixedStatusText is the representative status text when no request succeeded.
const MixedStatusText = "Multiple Requests"

// ErrNoURLs is returned before any dispatch when the URL list is empty.
var ErrNoURLs = ierrors.Validation("At least one URL is required")

// Aggregator dispatches one fetch per URL and merges the outcomes.
type Aggregator struct {
	fetcher fetcher.Fetcher
	metrics *Metrics
}

// New creates an Aggregator. metrics may be nil.
func New(f fetcher.Fetcher, metrics *Metrics) *Aggregator {
	return &Aggregator{
		fetcher: f,
		metrics: metrics,
	}
}

// Aggregate fetches every URL concurrently with the same headers and returns
// the merged envelope once all of them have settled. A transport failure of
// one URL is recorded in its detail entry and never affects the others. If ctx
// is done by the time all fetches settle, the outcomes are discarded and the
// context error is returned.
func (a *Aggregator) Aggregate(ctx context.Context, urls []string, headers map[string]string) (*types.ResponseEnvelope, error) {
	if len(urls) == 0 {
		a.metrics.IncAggregation("invalid")
		return nil, ErrNoURLs
	}

	zap.S().Debugw("fetching multiple URLs",
		"count", len(urls),
		"header_count", len(headers))

	outcomes := make([]fetcher.Outcome, len(urls))

	wg := &sync.WaitGroup{}
	for i, u := range urls {
		wg.Add(1)
		go func(index int, urlStr string) {
			defer wg.Done()
			outcomes[index] = a.fetch(ctx, urlStr, headers)
		}(i, u)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		a.metrics.IncAggregation("canceled")
		return nil, ierrors.Wrap(err, "aggregation canceled")
	}

	envelope := a.merge(urls, outcomes)
	a.metrics.IncAggregation("ok")

	zap.S().Infow("completed fetching multiple URLs",
		"total_requests", envelope.Data.TotalRequests,
		"successful_requests", envelope.Data.SuccessfulRequests,
		"merged_results", len(envelope.Data.Results))

	return envelope, nil
}

func (a *Aggregator) fetch(ctx context.Context, urlStr string, headers map[string]string) fetcher.Outcome {
	zap.S().Debugw("initiating fetch for URL", "url", urlStr)

	start := time.Now()
	out := a.fetcher.Fetch(ctx, urlStr, headers)
	a.metrics.ObserveDuration(time.Since(start))

	switch o := out.(type) {
	case *fetcher.Success:
		a.metrics.IncRequest("success")
		zap.S().Debugw("fetch successful", "url", urlStr, "status", o.StatusCode)
	case *fetcher.Failure:
		a.metrics.IncRequest("failure")
		a.metrics.IncTransportError(o.Kind)
		zap.S().Debugw("fetch failed", "url", urlStr, "error", o.Message, "kind", o.Kind)
	}
	return out
}

// merge builds the envelope walking outcomes in input order.
func (a *Aggregator) merge(urls []string, outcomes []fetcher.Outcome) *types.ResponseEnvelope {
	data := types.ResponseData{
		Results:         []json.RawMessage{},
		ResponseDetails: make([]types.ResponseDetail, 0, len(urls)),
		TotalRequests:   len(urls),
	}

	var representative *fetcher.Success
	for i, out := range outcomes {
		switch o := out.(type) {
		case *fetcher.Success:
			data.SuccessfulRequests++
			if representative == nil {
				representative = o
			}
			data.ResponseDetails = append(data.ResponseDetails, types.ResponseDetail{
				URL:        urls[i],
				Status:     types.StatusCode(o.StatusCode),
				StatusText: o.StatusText,
			})
			data.Results = append(data.Results, a.records(urls[i], o)...)
		case *fetcher.Failure:
			data.ResponseDetails = append(data.ResponseDetails, types.ResponseDetail{
				URL:    urls[i],
				Status: types.StatusError,
				Error:  o.Message,
			})
		default:
			zap.S().Errorw("encountered unexpected fetch outcome", "index", i, "url", urls[i], "outcome", out)
			data.ResponseDetails = append(data.ResponseDetails, types.ResponseDetail{
				URL:    urls[i],
				Status: types.StatusError,
				Error:  "internal error: no fetch outcome",
			})
		}
	}

	envelope := &types.ResponseEnvelope{
		Status:     types.StatusMixed,
		StatusText: MixedStatusText,
		Headers:    map[string]string{},
		Data:       data,
	}
	if representative != nil {
		envelope.Status = types.StatusCode(representative.StatusCode)
		envelope.StatusText = representative.StatusText
		for k, v := range representative.Headers {
			envelope.Headers[k] = v
		}
	}
	return envelope
}

// records returns the records s contributes. A panic while decoding drops
// this URL's contribution only.
func (a *Aggregator) records(urlStr string, s *fetcher.Success) (records []json.RawMessage) {
	defer func() {
		if r := recover(); r != nil {
			zap.S().Warnw("failed to decode records, skipping", "url", urlStr, "panic", r)
			records = nil
		}
	}()

	set := DecodeRecords(s.Body)
	a.metrics.AddRecords(set.Kind, len(set.Records))
	if set.Kind == KindNone {
		zap.S().Debugw("response body is not a record collection", "url", urlStr, "content_type", s.ContentType)
	}
	return set.Records
}
