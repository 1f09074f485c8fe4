package jikan

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/varoOP/shinkrorec/internal/domain"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.jikan.moe/v4"
	userAgent      = "shinkrorec (+https://github.com/varoOP/shinkrorec)"

	// maxBodySize bounds how much of a response is read
	maxBodySize = 8 << 20
)

// StatusError is returned for any non-2xx response
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Body)
}

// Options configures a Client
type Options struct {
	BaseURL           string
	RequestsPerSecond float64
	Timeout           time.Duration
	// HTTPClient overrides the default client, tests point it at httptest servers
	HTTPClient *http.Client
}

// Client talks to the Jikan v4 REST API. Requests are rate limited, guarded
// by a circuit breaker, and identical in-flight GETs share one round trip.
type Client struct {
	log     zerolog.Logger
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[[]byte]
	group   singleflight.Group
}

var _ domain.CatalogClient = (*Client)(nil)

type userAgentTransport struct {
	Transport http.RoundTripper
	UserAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Transport == nil {
		t.Transport = http.DefaultTransport
	}
	req.Header.Set("User-Agent", t.UserAgent)
	req.Header.Set("Accept", "application/json")
	return t.Transport.RoundTrip(req)
}

// NewClient builds a Client from the application config
func NewClient(log zerolog.Logger, cfg *domain.Config) *Client {
	return New(log, Options{
		BaseURL:           cfg.JikanBaseURL,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Timeout:           cfg.HTTPTimeout,
	})
}

func New(log zerolog.Logger, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 3
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}

	// a copy, so the caller's client keeps its own transport
	httpClient := &http.Client{Timeout: opts.Timeout}
	if opts.HTTPClient != nil {
		cp := *opts.HTTPClient
		httpClient = &cp
	}
	httpClient.Transport = &userAgentTransport{Transport: httpClient.Transport, UserAgent: userAgent}

	burst := int(opts.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}

	c := &Client{
		log:     log.With().Str("module", "jikan").Logger(),
		baseURL: opts.BaseURL,
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst),
	}
	c.cb = newBreaker(c.log)

	return c
}

func newBreaker(log zerolog.Logger) *gobreaker.CircuitBreaker[[]byte] {
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "jikan-api",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,

		// Opens when failure rate >= 60% with minimum 10 requests
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},

		// client errors say nothing about the health of the API
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var se *StatusError
			if errors.As(err, &se) {
				return se.Status < 500 && se.Status != http.StatusTooManyRequests
			}
			return errors.Is(err, context.Canceled)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state transition")
		},
	})
}

// get fetches path with query and returns the raw body of a 2xx response
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	v, err, shared := c.group.Do(target, func() (interface{}, error) {
		return c.cb.Execute(func() ([]byte, error) {
			return c.fetch(ctx, target)
		})
	})
	if err != nil {
		return nil, err
	}

	if shared {
		c.log.Trace().Str("url", target).Msg("shared in-flight response")
	}

	return v.([]byte), nil
}

func (c *Client) fetch(ctx context.Context, target string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limit")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	c.log.Debug().Str("url", target).Msg("fetching")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Status: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}
