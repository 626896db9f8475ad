package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/cnosuke/multi-get/fetcher"
	ierrors "github.com/cnosuke/multi-get/internal/errors"
	"github.com/cnosuke/multi-get/types"
	"github.com/cockroachdb/errors"
	"github.com/jarcoal/httpmock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubFetcher returns canned outcomes, optionally after a delay.
type stubFetcher struct {
	outcomes map[string]fetcher.Outcome
	delays   map[string]time.Duration

	mu      sync.Mutex
	calls   []string
	headers []map[string]string
}

func (f *stubFetcher) Fetch(ctx context.Context, urlStr string, headers map[string]string) fetcher.Outcome {
	f.mu.Lock()
	f.calls = append(f.calls, urlStr)
	f.headers = append(f.headers, headers)
	f.mu.Unlock()

	if d, ok := f.delays[urlStr]; ok {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return &fetcher.Failure{Message: ctx.Err().Error(), Kind: "canceled"}
		}
	}
	if out, ok := f.outcomes[urlStr]; ok {
		return out
	}
	return &fetcher.Failure{Message: "no stub for " + urlStr, Kind: "other"}
}

func jsonSuccess(status int, body string) *fetcher.Success {
	return &fetcher.Success{
		StatusCode:  status,
		StatusText:  http.StatusText(status),
		Headers:     map[string]string{"content-type": "application/json"},
		ContentType: "application/json",
		Body:        []byte(body),
	}
}

func rawStrings(records []json.RawMessage) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, string(r))
	}
	return out
}

func TestAggregate_EmptyURLs(t *testing.T) {
	stub := &stubFetcher{}
	metrics := NewMetrics()
	agg := New(stub, metrics)

	for _, urls := range [][]string{nil, {}} {
		env, err := agg.Aggregate(context.Background(), urls, nil)

		require.Error(t, err)
		assert.Nil(t, env)
		assert.True(t, errors.Is(err, ErrNoURLs))
		assert.True(t, ierrors.IsValidation(err))
	}
	assert.Empty(t, stub.calls, "no fetch may be issued")
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.AggregationsTotal.WithLabelValues("invalid")))
}

func TestAggregate_OrderIndependentOfCompletion(t *testing.T) {
	urls := []string{"https://a.test/1", "https://b.test/2", "https://c.test/3"}
	stub := &stubFetcher{
		outcomes: map[string]fetcher.Outcome{
			urls[0]: jsonSuccess(200, `[{"n":1},{"n":2}]`),
			urls[1]: jsonSuccess(200, `{"results":[{"n":3}]}`),
			urls[2]: jsonSuccess(200, `[{"n":4}]`),
		},
		// First URL finishes last
		delays: map[string]time.Duration{
			urls[0]: 60 * time.Millisecond,
			urls[1]: 30 * time.Millisecond,
		},
	}

	env, err := New(stub, nil).Aggregate(context.Background(), urls, nil)
	require.NoError(t, err)

	require.Len(t, env.Data.ResponseDetails, 3)
	for i, d := range env.Data.ResponseDetails {
		assert.Equal(t, urls[i], d.URL)
	}
	assert.Equal(t, []string{`{"n":1}`, `{"n":2}`, `{"n":3}`, `{"n":4}`}, rawStrings(env.Data.Results))
	assert.Equal(t, 3, env.Data.TotalRequests)
	assert.Equal(t, 3, env.Data.SuccessfulRequests)
}

func TestAggregate_FaultIsolation(t *testing.T) {
	urls := []string{"https://down.test/a", "https://a.test/ok", "https://down.test/b", "https://c.test/ok"}
	stub := &stubFetcher{
		outcomes: map[string]fetcher.Outcome{
			urls[0]: &fetcher.Failure{Message: "dial tcp: connection refused", Kind: "connection"},
			urls[1]: jsonSuccess(200, `{"results":[{"id":1}]}`),
			urls[2]: &fetcher.Failure{Message: "context deadline exceeded", Kind: "timeout"},
			urls[3]: jsonSuccess(404, `[{"id":2}]`),
		},
	}
	metrics := NewMetrics()

	env, err := New(stub, metrics).Aggregate(context.Background(), urls, nil)
	require.NoError(t, err)

	assert.Equal(t, 4, env.Data.TotalRequests)
	assert.Equal(t, 2, env.Data.SuccessfulRequests)
	assert.Equal(t, []string{`{"id":1}`, `{"id":2}`}, rawStrings(env.Data.Results))

	// Representative is the first success in input order, not the first URL
	assert.Equal(t, types.StatusCode(200), env.Status)
	assert.Equal(t, "OK", env.StatusText)
	assert.Equal(t, map[string]string{"content-type": "application/json"}, env.Headers)

	assert.Equal(t, []types.ResponseDetail{
		{URL: urls[0], Status: types.StatusError, Error: "dial tcp: connection refused"},
		{URL: urls[1], Status: types.StatusCode(200), StatusText: "OK"},
		{URL: urls[2], Status: types.StatusError, Error: "context deadline exceeded"},
		{URL: urls[3], Status: types.StatusCode(404), StatusText: "Not Found"},
	}, env.Data.ResponseDetails)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.RequestsTotal.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.RequestsTotal.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.TransportErrorTotal.WithLabelValues("timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RecordsMergedTotal.WithLabelValues("results")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RecordsMergedTotal.WithLabelValues("array")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AggregationsTotal.WithLabelValues("ok")))
}

func TestAggregate_AllFailures(t *testing.T) {
	urls := []string{"https://down.test/1", "https://down.test/2"}
	stub := &stubFetcher{}

	env, err := New(stub, nil).Aggregate(context.Background(), urls, nil)
	require.NoError(t, err)

	assert.Equal(t, types.StatusMixed, env.Status)
	assert.Equal(t, MixedStatusText, env.StatusText)
	assert.NotNil(t, env.Headers)
	assert.Empty(t, env.Headers)
	assert.NotNil(t, env.Data.Results)
	assert.Empty(t, env.Data.Results)
	assert.Equal(t, 2, env.Data.TotalRequests)
	assert.Equal(t, 0, env.Data.SuccessfulRequests)
	for _, d := range env.Data.ResponseDetails {
		assert.Equal(t, types.StatusError, d.Status)
		assert.NotEmpty(t, d.Error)
	}
}

func TestAggregate_NonCollectionBodies(t *testing.T) {
	urls := []string{"https://a.test/obj", "https://a.test/html", "https://a.test/results-object", "https://a.test/empty"}
	stub := &stubFetcher{
		outcomes: map[string]fetcher.Outcome{
			urls[0]: jsonSuccess(200, `{"id":1}`),
			urls[1]: &fetcher.Success{StatusCode: 200, StatusText: "OK", ContentType: "text/html", Body: []byte("<html></html>")},
			urls[2]: jsonSuccess(200, `{"results":{"id":1}}`),
			urls[3]: &fetcher.Success{StatusCode: 204, StatusText: "No Content"},
		},
	}

	env, err := New(stub, nil).Aggregate(context.Background(), urls, nil)
	require.NoError(t, err)

	assert.Equal(t, 4, env.Data.SuccessfulRequests)
	assert.Empty(t, env.Data.Results)
	assert.Len(t, env.Data.ResponseDetails, 4)
	assert.Equal(t, map[string]string{"content-type": "application/json"}, env.Headers)
}

func TestAggregate_DuplicateURLs(t *testing.T) {
	u := "https://a.test/ok"
	stub := &stubFetcher{
		outcomes: map[string]fetcher.Outcome{u: jsonSuccess(200, `[1,2]`)},
	}

	env, err := New(stub, nil).Aggregate(context.Background(), []string{u, u}, nil)
	require.NoError(t, err)

	assert.Len(t, stub.calls, 2)
	assert.Equal(t, 2, env.Data.TotalRequests)
	assert.Equal(t, []string{"1", "2", "1", "2"}, rawStrings(env.Data.Results))
}

func TestAggregate_SharedHeaders(t *testing.T) {
	urls := []string{"https://a.test/1", "https://b.test/2", "https://c.test/3"}
	hdrs := map[string]string{"Accept": "application/json", "Cookie": "session=1"}
	stub := &stubFetcher{}

	_, err := New(stub, nil).Aggregate(context.Background(), urls, hdrs)
	require.NoError(t, err)

	require.Len(t, stub.headers, 3)
	for _, h := range stub.headers {
		assert.Equal(t, hdrs, h)
	}
	assert.ElementsMatch(t, urls, stub.calls)
}

func TestAggregate_Canceled(t *testing.T) {
	urls := []string{"https://slow.test/1", "https://a.test/ok"}
	stub := &stubFetcher{
		outcomes: map[string]fetcher.Outcome{urls[1]: jsonSuccess(200, `[1]`)},
		delays:   map[string]time.Duration{urls[0]: time.Minute},
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	env, err := New(stub, nil).Aggregate(ctx, urls, nil)

	require.Error(t, err)
	assert.Nil(t, env, "no partial envelope after cancellation")
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, ierrors.IsValidation(err))
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestAggregate_ManyURLs(t *testing.T) {
	n := 200
	urls := make([]string, n)
	outcomes := map[string]fetcher.Outcome{}
	for i := range urls {
		urls[i] = fmt.Sprintf("https://a.test/%d", i)
		if i%3 == 0 {
			continue // no stub, fails
		}
		outcomes[urls[i]] = jsonSuccess(200, fmt.Sprintf(`[%d]`, i))
	}

	env, err := New(&stubFetcher{outcomes: outcomes}, nil).Aggregate(context.Background(), urls, nil)
	require.NoError(t, err)

	assert.Equal(t, n, env.Data.TotalRequests)
	assert.LessOrEqual(t, env.Data.SuccessfulRequests, env.Data.TotalRequests)
	require.Len(t, env.Data.ResponseDetails, n)

	expected := []string{}
	for i := range urls {
		assert.Equal(t, urls[i], env.Data.ResponseDetails[i].URL)
		if i%3 != 0 {
			expected = append(expected, fmt.Sprintf("%d", i))
		}
	}
	assert.Equal(t, expected, rawStrings(env.Data.Results))
	assert.Equal(t, len(expected), env.Data.SuccessfulRequests)
}

// --- Scenarios through the HTTP fetcher with a mocked transport ---

func newMockedAggregator(t *testing.T, register func(*httpmock.MockTransport)) *Aggregator {
	t.Helper()
	transport := httpmock.NewMockTransport()
	register(transport)
	return New(fetcher.NewHTTPFetcher(&fetcher.Config{UserAgent: "test-agent/1.0", Transport: transport}), NewMetrics())
}

func TestAggregate_ScenarioA_SingleResultsObject(t *testing.T) {
	agg := newMockedAggregator(t, func(tr *httpmock.MockTransport) {
		tr.RegisterResponder("GET", "https://a.test/ok",
			httpmock.NewStringResponder(http.StatusOK, `{"results":[{"id":1}]}`))
	})

	env, err := agg.Aggregate(context.Background(), []string{"https://a.test/ok"}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, env.Data.SuccessfulRequests)
	assert.Equal(t, []string{`{"id":1}`}, rawStrings(env.Data.Results))
	assert.Equal(t, types.StatusCode(http.StatusOK), env.Status)
	assert.Equal(t, "OK", env.StatusText)
}

func TestAggregate_ScenarioB_UnreachableURL(t *testing.T) {
	agg := newMockedAggregator(t, func(tr *httpmock.MockTransport) {
		tr.RegisterResponder("GET", "https://a.test/ok",
			httpmock.NewStringResponder(http.StatusOK, `{"results":[{"id":1},{"id":2}]}`))
		tr.RegisterResponder("GET", "https://b.test/down",
			httpmock.NewErrorResponder(&net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}))
	})

	env, err := agg.Aggregate(context.Background(), []string{"https://a.test/ok", "https://b.test/down"}, nil)
	require.NoError(t, err)

	require.Len(t, env.Data.ResponseDetails, 2)
	assert.Equal(t, types.StatusCode(http.StatusOK), env.Data.ResponseDetails[0].Status)
	assert.Equal(t, types.StatusError, env.Data.ResponseDetails[1].Status)
	assert.Contains(t, env.Data.ResponseDetails[1].Error, "connection refused")
	assert.Equal(t, 1, env.Data.SuccessfulRequests)
	assert.Equal(t, []string{`{"id":1}`, `{"id":2}`}, rawStrings(env.Data.Results))
}

func TestAggregate_ScenarioD_BareArray(t *testing.T) {
	agg := newMockedAggregator(t, func(tr *httpmock.MockTransport) {
		tr.RegisterResponder("GET", "https://a.test/list",
			httpmock.NewStringResponder(http.StatusOK, `[{"x":1},{"x":2}]`))
	})

	env, err := agg.Aggregate(context.Background(), []string{"https://a.test/list"}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{`{"x":1}`, `{"x":2}`}, rawStrings(env.Data.Results))
}

func TestAggregate_Idempotent(t *testing.T) {
	calls := 0
	agg := newMockedAggregator(t, func(tr *httpmock.MockTransport) {
		tr.RegisterResponder("GET", "https://a.test/ok", func(req *http.Request) (*http.Response, error) {
			calls++
			resp := httpmock.NewStringResponse(http.StatusOK, `{"results":[{"id":1},{"id":2}]}`)
			resp.Header.Set("Date", time.Now().Add(time.Duration(calls)*time.Second).Format(http.TimeFormat))
			return resp, nil
		})
		tr.RegisterResponder("GET", "https://a.test/more",
			httpmock.NewStringResponder(http.StatusOK, `[{"id":3}]`))
	})
	urls := []string{"https://a.test/ok", "https://a.test/more"}

	first, err := agg.Aggregate(context.Background(), urls, nil)
	require.NoError(t, err)
	second, err := agg.Aggregate(context.Background(), urls, nil)
	require.NoError(t, err)

	assert.Equal(t, rawStrings(first.Data.Results), rawStrings(second.Data.Results))
	assert.Equal(t, first.Data.ResponseDetails, second.Data.ResponseDetails)
}
