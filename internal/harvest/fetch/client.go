// Package fetch performs cached, paced and retried GETs against upstream
// data services.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"civitas/internal/harvest/cache"
	"civitas/internal/harvest/metrics"
	"civitas/pkg/platform/sentinel"
)

// UserAgent identifies harvest traffic to upstream services.
const UserAgent = "civitas-official-harvest/0.1"

const (
	AcceptJSON = "application/json"
	AcceptXML  = "application/xml,text/xml;q=0.9,*/*;q=0.8"
)

const maxBodyBytes = 64 << 20

// Client fetches upstream resources.
type Client struct {
	http            *http.Client
	cache           cache.Store
	limiter         *rate.Limiter
	maxRetries      int
	initialInterval time.Duration
	forceRefresh    bool
	logger          *slog.Logger
	metrics         *metrics.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithCache enables response caching.
func WithCache(s cache.Store) Option {
	return func(cl *Client) {
		cl.cache = s
	}
}

// WithRateLimit paces requests to rps per second. Zero disables pacing.
func WithRateLimit(rps float64) Option {
	return func(cl *Client) {
		if rps > 0 {
			cl.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithRetries sets how many times a retryable failure is retried and the
// first backoff interval.
func WithRetries(retries int, initial time.Duration) Option {
	return func(cl *Client) {
		if retries >= 0 {
			cl.maxRetries = retries
		}
		if initial > 0 {
			cl.initialInterval = initial
		}
	}
}

// WithForceRefresh bypasses cache reads. Fresh bodies are still written.
func WithForceRefresh(force bool) Option {
	return func(cl *Client) {
		cl.forceRefresh = force
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		if logger != nil {
			cl.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(cl *Client) {
		cl.metrics = m
	}
}

// DefaultHTTPClient returns an HTTP client with the given overall request
// timeout, 30s when zero.
func DefaultHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// New builds a Client with a 30s HTTP timeout and three retries.
func New(opts ...Option) *Client {
	cl := &Client{
		http:            DefaultHTTPClient(0),
		maxRetries:      3,
		initialInterval: 500 * time.Millisecond,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cl)
		}
	}
	return cl
}

// GetJSON fetches url and decodes the JSON body into v.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	body, err := c.Get(ctx, url, "json", AcceptJSON)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// Get returns the body of url, from cache when present. ext selects the
// cache entry kind.
func (c *Client) Get(ctx context.Context, url, ext, accept string) ([]byte, error) {
	key := cache.Key(url, ext)

	if c.cache != nil && !c.forceRefresh {
		body, err := c.cache.Get(ctx, key)
		switch {
		case err == nil:
			c.metrics.IncrementFetch("hit")
			return body, nil
		case !errors.Is(err, sentinel.ErrNotFound):
			c.logger.WarnContext(ctx, "cache read failed", "url", url, "error", err)
		}
	}

	start := time.Now()
	body, err := c.fetch(ctx, url, accept)
	c.metrics.ObserveFetch(time.Since(start))
	if err != nil {
		c.metrics.IncrementFetch("error")
		return nil, err
	}
	c.metrics.IncrementFetch("fetched")

	if c.cache != nil {
		if err := c.cache.Put(ctx, key, body); err != nil {
			c.logger.WarnContext(ctx, "cache write failed", "url", url, "error", err)
		}
	}
	return body, nil
}

func (c *Client) fetch(ctx context.Context, url, accept string) ([]byte, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.initialInterval
	var policy backoff.BackOff = backoff.WithContext(
		backoff.WithMaxRetries(eb, uint64(c.maxRetries)), //nolint:gosec // maxRetries is never negative
		ctx,
	)

	var body []byte
	op := func() error {
		b, err := c.once(ctx, url, accept)
		if err != nil {
			if !IsRetryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		body = b
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.metrics.IncrementRetry()
		c.logger.DebugContext(ctx, "retrying upstream request", "url", url, "wait", wait, "error", err)
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) once(ctx context.Context, url, accept string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &Error{URL: url, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", accept)

	resp, err := c.http.Do(req)
	if err != nil {
		// Transport failures are retried unless the caller gave up.
		return nil, &Error{URL: url, Err: err, Retryable: ctx.Err() == nil}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		return nil, statusError(url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &Error{URL: url, Err: err, Retryable: true}
	}
	return body, nil
}
