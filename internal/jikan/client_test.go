package jikan

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return New(zerolog.Nop(), Options{
		BaseURL:           server.URL,
		RequestsPerSecond: 1000,
		HTTPClient:        server.Client(),
	})
}

func TestClient_SearchQuery(t *testing.T) {
	var got *http.Request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Write([]byte(`{"data":[{"mal_id":1,"title":"Cowboy Bebop","score":8.75,"genres":[{"mal_id":1,"name":"Action"}]}]}`))
	})

	results, err := c.Search(context.Background(), "bebop & co", 2)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].MalID)
	assert.Equal(t, 8.75, *results[0].Score)
	assert.Nil(t, results[0].Episodes)

	require.NotNil(t, got)
	assert.Equal(t, "/anime", got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, "bebop & co", q.Get("q"))
	assert.Equal(t, "true", q.Get("sfw"))
	assert.Equal(t, "score", q.Get("order_by"))
	assert.Equal(t, "desc", q.Get("sort"))
	assert.Equal(t, "24", q.Get("limit"))
	assert.Equal(t, "2", q.Get("page"))
	assert.NotEmpty(t, got.Header.Get("User-Agent"))
}

func TestClient_SearchMissingDataIsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	results, err := c.Search(context.Background(), "nothing", 1)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestClient_ByGenresQuery(t *testing.T) {
	var got *http.Request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Write([]byte(`{"data":[]}`))
	})

	_, err := c.ByGenres(context.Background(), "1,4", 1)
	require.NoError(t, err)

	q := got.URL.Query()
	assert.Equal(t, "1,4", q.Get("genres"))
	assert.Equal(t, "7", q.Get("min_score"))
	assert.Equal(t, "true", q.Get("sfw"))
	assert.Equal(t, "1", q.Get("page"))
	assert.Empty(t, q.Get("q"))
}

func TestClient_StatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"status":404,"message":"Resource does not exist"}`))
	})

	_, err := c.Details(context.Background(), 999999)
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Status)
	assert.Contains(t, err.Error(), `HTTP 404: {"status":404,"message":"Resource does not exist"}`)
}

func TestClient_Details(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/anime/5114/full", r.URL.Path)
		w.Write([]byte(`{"data":{"mal_id":5114,"title":"Fullmetal Alchemist: Brotherhood","synopsis":"Two brothers.","episodes":64,"type":"TV"}}`))
	})

	a, err := c.Details(context.Background(), 5114)
	require.NoError(t, err)
	assert.Equal(t, "Two brothers.", a.Synopsis)
	assert.Equal(t, 64, *a.Episodes)
	assert.Equal(t, "TV", *a.Type)
}

func TestClient_DetailsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":null}`))
	})

	_, err := c.Details(context.Background(), 1)
	assert.Error(t, err)
}

func TestClient_RecommendationsDropsMalformed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/anime/1/recommendations", r.URL.Path)
		w.Write([]byte(`{"data":[
			{"entry":{"mal_id":2,"title":"Trigun"}},
			null,
			{"entry":null},
			{"entry":"broken"},
			{"votes":3},
			{"entry":{"mal_id":3,"title":"Outlaw Star"}}
		]}`))
	})

	related, err := c.Recommendations(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, related, 2)
	assert.Equal(t, 2, related[0].MalID)
	assert.Equal(t, 3, related[1].MalID)
}

func TestClient_CoalescesIdenticalRequests(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		w.Write([]byte(`{"data":[]}`))
	})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Search(context.Background(), "same", 1)
			assert.NoError(t, err)
		}()
	}

	// let the callers pile up on the in-flight request
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, hits.Load(), int32(5))
	assert.GreaterOrEqual(t, hits.Load(), int32(1))
}

func TestClient_BreakerIgnoresClientErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	for i := 0; i < 15; i++ {
		_, err := c.Search(context.Background(), "x", i+1)
		var se *StatusError
		require.True(t, errors.As(err, &se), "request %d: %v", i, err)
	}
}

func TestClient_BreakerOpensOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	for i := 0; i < 20; i++ {
		_, err := c.Search(context.Background(), "x", i+1)
		require.Error(t, err)
	}

	assert.Equal(t, int32(10), hits.Load())
}

func TestNew_KeepsCallerClient(t *testing.T) {
	var agents []string
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		agents = append(agents, r.Header.Get("User-Agent"))
		mu.Unlock()
		w.Write([]byte(`{"data":[]}`))
	}))
	t.Cleanup(server.Close)

	shared := server.Client()
	transport := shared.Transport

	first := New(zerolog.Nop(), Options{BaseURL: server.URL, RequestsPerSecond: 1000, HTTPClient: shared})
	second := New(zerolog.Nop(), Options{BaseURL: server.URL, RequestsPerSecond: 1000, HTTPClient: shared})

	assert.Same(t, transport, shared.Transport)
	assert.Same(t, transport, second.http.Transport.(*userAgentTransport).Transport)

	_, err := first.Search(context.Background(), "a", 1)
	require.NoError(t, err)
	_, err = second.Search(context.Background(), "b", 1)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{userAgent, userAgent}, agents)
}
