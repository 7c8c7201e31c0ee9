package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/nameres/ai/mock"
	"github.com/poiesic/nameres/core"
	"github.com/poiesic/nameres/resolve"
	"github.com/poiesic/nameres/storage"
	"github.com/poiesic/nameres/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubResolver records the queries it receives.
type stubResolver struct {
	mu       sync.Mutex
	queries  []resolve.Query
	results  []core.LookupResult
	err      error
	statsErr error
	block    bool
}

func (s *stubResolver) Lookup(ctx context.Context, q resolve.Query) ([]core.LookupResult, error) {
	s.mu.Lock()
	s.queries = append(s.queries, q)
	s.mu.Unlock()
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

func (s *stubResolver) Stats(context.Context) (resolve.Stats, error) {
	if s.statsErr != nil {
		return resolve.Stats{}, s.statsErr
	}
	return resolve.Stats{Collection: "concept-resolver", Points: 42, Model: "mock", Dimensions: 384}, nil
}

func (s *stubResolver) calls() []resolve.Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]resolve.Query(nil), s.queries...)
}

func newTestServer(t *testing.T, resolver Resolver, opts ...Option) *httptest.Server {
	t.Helper()
	srv, err := New(resolver, opts...)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func noRedirect(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

func decodeDetail(t *testing.T, body io.Reader) string {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.NewDecoder(body).Decode(&resp))
	return resp.Detail
}

func TestNew(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrResolverRequired)

	_, err = New(&stubResolver{}, WithRequestTimeout(0))
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = New(&stubResolver{}, WithShutdownTimeout(-time.Second))
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = New(&stubResolver{}, WithAddr(""))
	assert.ErrorIs(t, err, ErrInvalidParameter)

	srv, err := New(&stubResolver{}, WithAddr("127.0.0.1:9999"), WithLogger(nil))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", srv.Addr())
}

func TestLookup_Parameters(t *testing.T) {
	stub := &stubResolver{results: []core.LookupResult{}}
	ts := newTestServer(t, stub)

	resp, err := http.Get(ts.URL + "/lookup?" + url.Values{
		"string":           {"flu"},
		"autocomplete":     {"false"},
		"offset":           {"3"},
		"limit":            {"25"},
		"biolink_type":     {"biolink:Disease"},
		"only_prefixes":    {"MONDO|EFO"},
		"exclude_prefixes": {"UMLS"},
	}.Encode())
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	calls := stub.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, resolve.Query{
		Text:            "flu",
		Autocomplete:    false,
		Offset:          3,
		Limit:           25,
		BiolinkType:     "biolink:Disease",
		OnlyPrefixes:    []string{"MONDO", "EFO"},
		ExcludePrefixes: []string{"UMLS"},
	}, calls[0])
}

func TestLookup_Defaults(t *testing.T) {
	stub := &stubResolver{results: []core.LookupResult{}}
	ts := newTestServer(t, stub)

	resp, err := http.Get(ts.URL + "/lookup?string=flu")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(body))

	calls := stub.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, resolve.NewQuery("flu"), calls[0])
}

func TestLookup_InvalidParameters(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		detail string
	}{
		{"missing string", "limit=5", "missing parameter: string"},
		{"blank string", "string=%20%20", "must not be blank"},
		{"limit too large", "string=flu&limit=1001", "limit"},
		{"negative limit", "string=flu&limit=-1", "limit"},
		{"limit not a number", "string=flu&limit=ten", "must be an integer"},
		{"negative offset", "string=flu&offset=-2", "offset"},
		{"bad autocomplete", "string=flu&autocomplete=maybe", "must be a boolean"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubResolver{}
			ts := newTestServer(t, stub)

			resp, err := http.Get(ts.URL + "/lookup?" + tt.query)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
			assert.Contains(t, decodeDetail(t, resp.Body), tt.detail)
			assert.Empty(t, stub.calls(), "resolver must not be invoked")
		})
	}
}

func TestLookup_Post(t *testing.T) {
	t.Run("url parameters", func(t *testing.T) {
		stub := &stubResolver{results: []core.LookupResult{}}
		ts := newTestServer(t, stub)

		resp, err := http.Post(ts.URL+"/lookup?string=flu&limit=4", "", nil)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Len(t, stub.calls(), 1)
		assert.Equal(t, 4, stub.calls()[0].Limit)
	})

	t.Run("form body overrides url", func(t *testing.T) {
		stub := &stubResolver{results: []core.LookupResult{}}
		ts := newTestServer(t, stub)

		resp, err := http.PostForm(ts.URL+"/lookup?string=cold&limit=4", url.Values{
			"string":        {"flu"},
			"only_prefixes": {"MONDO"},
		})
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		q := stub.calls()[0]
		assert.Equal(t, "flu", q.Text)
		assert.Equal(t, 4, q.Limit)
		assert.Equal(t, []string{"MONDO"}, q.OnlyPrefixes)
	})

	t.Run("json body", func(t *testing.T) {
		stub := &stubResolver{results: []core.LookupResult{}}
		ts := newTestServer(t, stub)

		body := `{"string": "flu", "limit": 7, "autocomplete": false, "exclude_prefixes": ["UMLS", "EFO"], "biolink_type": null}`
		resp, err := http.Post(ts.URL+"/lookup", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		q := stub.calls()[0]
		assert.Equal(t, "flu", q.Text)
		assert.Equal(t, 7, q.Limit)
		assert.False(t, q.Autocomplete)
		assert.Equal(t, []string{"UMLS", "EFO"}, q.ExcludePrefixes)
		assert.Empty(t, q.BiolinkType)
	})

	t.Run("malformed json", func(t *testing.T) {
		stub := &stubResolver{}
		ts := newTestServer(t, stub)

		resp, err := http.Post(ts.URL+"/lookup", "application/json", strings.NewReader(`{"string":`))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		assert.Contains(t, decodeDetail(t, resp.Body), "JSON body")
		assert.Empty(t, stub.calls())
	})

	t.Run("fractional limit in json", func(t *testing.T) {
		stub := &stubResolver{}
		ts := newTestServer(t, stub)

		resp, err := http.Post(ts.URL+"/lookup", "application/json", strings.NewReader(`{"string":"flu","limit":2.5}`))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})
}

func TestLookup_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		status     int
		retryAfter string
	}{
		{"embedder unavailable", fmt.Errorf("embed query: %w", core.ErrUnavailable), http.StatusServiceUnavailable, "1"},
		{"missing collection", fmt.Errorf("search index: %w", storage.ErrCollectionNotFound), http.StatusServiceUnavailable, "1"},
		{"deadline", context.DeadlineExceeded, http.StatusServiceUnavailable, "1"},
		{"dimension mismatch", core.ErrDimensionMismatch, http.StatusInternalServerError, ""},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, &stubResolver{err: tt.err})

			resp, err := http.Get(ts.URL + "/lookup?string=flu")
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.retryAfter, resp.Header.Get("Retry-After"))
			assert.NotEmpty(t, decodeDetail(t, resp.Body))
		})
	}
}

func TestLookup_RequestTimeout(t *testing.T) {
	stub := &stubResolver{block: true}
	ts := newTestServer(t, stub, WithRequestTimeout(20*time.Millisecond))

	resp, err := http.Get(ts.URL + "/lookup?string=flu")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))
}

func TestHealth(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		ts := newTestServer(t, &stubResolver{})

		resp, err := http.Get(ts.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"status":"ok","collection":"concept-resolver","points":42,"model":"mock","dimensions":384}`, string(body))
	})

	t.Run("index unavailable", func(t *testing.T) {
		ts := newTestServer(t, &stubResolver{statsErr: storage.ErrStorageClosed})

		resp, err := http.Get(ts.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})
}

func TestDocsAndRedirect(t *testing.T) {
	ts := newTestServer(t, &stubResolver{})
	client := &http.Client{CheckRedirect: noRedirect}

	resp, err := client.Get(ts.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, "/docs", resp.Header.Get("Location"))

	resp, err = client.Get(ts.URL + "/docs")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "/lookup")

	resp, err = client.Get(ts.URL + "/nowhere")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMiddleware(t *testing.T) {
	ts := newTestServer(t, &stubResolver{results: []core.LookupResult{}})

	t.Run("preflight", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodOptions, ts.URL+"/lookup", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "https://example.org")
		req.Header.Set("Access-Control-Request-Method", "POST")
		req.Header.Set("Access-Control-Request-Headers", "Content-Type")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.Equal(t, "https://example.org", resp.Header.Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "POST", resp.Header.Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "Content-Type", resp.Header.Get("Access-Control-Allow-Headers"))
	})

	t.Run("simple request without origin", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/lookup?string=flu")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	})

	t.Run("request id generated", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/health")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Len(t, resp.Header.Get(requestIDHeader), 36)
	})

	t.Run("request id echoed", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
		require.NoError(t, err)
		req.Header.Set(requestIDHeader, "abc-123")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, "abc-123", resp.Header.Get(requestIDHeader))
	})

	t.Run("unsupported method", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodDelete, ts.URL+"/lookup?string=flu", nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}

func TestLookup_EndToEnd(t *testing.T) {
	ctx := context.Background()
	const dims = 32

	index, err := badger.NewMemoryIndex("concept-resolver")
	require.NoError(t, err)
	t.Cleanup(func() { index.Close() })
	require.NoError(t, index.Recreate(ctx, dims))

	records := []*core.ConceptRecord{
		{CURIE: "MONDO:0005812", Names: []string{"flu", "influenza"}, PreferredName: "influenza", Types: []string{"Disease"}, Category: "Disease"},
		{CURIE: "HP:0001945", Names: []string{"fever"}, PreferredName: "fever", Types: []string{"PhenotypicFeature"}, Category: "PhenotypicFeature"},
	}
	var points []core.IndexedPoint
	for _, record := range records {
		for _, name := range record.Names {
			points = append(points, core.IndexedPoint{
				Identity: uint64(len(points)),
				Vector:   mock.Vector(name, dims),
				Payload:  record.Payload(name),
			})
		}
	}
	require.NoError(t, index.Upsert(ctx, points))

	resolver, err := resolve.NewResolver(index, mock.NewMockProviderWithEmbedder(mock.NewMockEmbedderWithDimensions(dims)))
	require.NoError(t, err)
	ts := newTestServer(t, resolver)

	get, err := http.Get(ts.URL + "/lookup?string=flu&limit=3")
	require.NoError(t, err)
	defer get.Body.Close()
	require.Equal(t, http.StatusOK, get.StatusCode)
	getBody, err := io.ReadAll(get.Body)
	require.NoError(t, err)

	post, err := http.PostForm(ts.URL+"/lookup", url.Values{"string": {"flu"}, "limit": {"3"}})
	require.NoError(t, err)
	defer post.Body.Close()
	require.Equal(t, http.StatusOK, post.StatusCode)
	postBody, err := io.ReadAll(post.Body)
	require.NoError(t, err)

	assert.JSONEq(t, string(getBody), string(postBody))

	var results []core.LookupResult
	require.NoError(t, json.Unmarshal(getBody, &results))
	require.Len(t, results, 2)
	assert.Equal(t, "MONDO:0005812", results[0].Curie)
	assert.InDelta(t, 1.0, results[0].Score, 1e-5)
	assert.Equal(t, "HP:0001945", results[1].Curie)
	assert.NotContains(t, string(getBody), "embedded_label")
}

func TestServe_GracefulShutdown(t *testing.T) {
	srv, err := New(&stubResolver{}, WithShutdownTimeout(time.Second))
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRun_ListenError(t *testing.T) {
	srv, err := New(&stubResolver{}, WithAddr("127.0.0.1:-1"))
	require.NoError(t, err)
	assert.Error(t, srv.Run(context.Background()))
}
