// Package transport executes signed requests over HTTP. It is the single
// point where rate limiting, timeouts, and network-level retry are enforced;
// backend-reported errors pass through untouched for the classifier.
package transport

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"resty.dev/v3"

	"omniex/internal/circuitbreaker"
	"omniex/internal/ratelimit"
	"omniex/pkg/core"
)

// Options configure a transport client.
type Options struct {
	Backend      string
	Timeout      time.Duration
	MaxRetries   int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// Client executes requests for one backend instance. All calls share the
// instance's rate limiter; none bypass it.
type Client struct {
	http    *resty.Client
	limiter *ratelimit.Limiter
	breaker *circuitbreaker.Breaker
	backend string
	logger  zerolog.Logger
	calls   atomic.Int64
}

// Response is the raw outcome of one HTTP exchange.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    map[string]string
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// NewClient creates a transport client. Retries apply only to network-level
// failures; responses carrying backend-reported errors are returned to the
// caller exactly once.
func NewClient(opts Options, limiter *ratelimit.Limiter, breaker *circuitbreaker.Breaker, logger zerolog.Logger) *Client {
	http := resty.New()
	http.SetTimeout(opts.Timeout)
	http.SetRetryCount(opts.MaxRetries)
	http.SetRetryWaitTime(opts.RetryWaitMin)
	http.SetRetryMaxWaitTime(opts.RetryWaitMax)
	http.AddRetryConditions(func(resp *resty.Response, err error) bool {
		// err != nil means the exchange itself failed: timeout, reset,
		// DNS. Anything with a response is the backend talking.
		return err != nil
	})

	return &Client{
		http:    http,
		limiter: limiter,
		breaker: breaker,
		backend: opts.Backend,
		logger:  logger,
	}
}

// Do executes one request after acquiring a rate-limit slot. Network-level
// failures come back as Transport-kind errors; any completed HTTP exchange is
// returned as a Response regardless of status code.
func (c *Client) Do(ctx context.Context, req *core.Request) (*Response, error) {
	c.calls.Add(1)

	if c.breaker != nil && !c.breaker.Allow() {
		e := core.NewBackendError(c.backend, core.KindServiceUnavailable, "circuit breaker is open")
		return nil, e
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	r := c.http.R().SetContext(ctx)
	for k, v := range req.Headers {
		r.SetHeader(k, v)
	}
	if len(req.Query) > 0 {
		r.SetQueryParams(req.Query)
	}
	if req.Body != nil {
		if req.ContentType != "" {
			r.SetHeader("Content-Type", req.ContentType)
		}
		r.SetBody(req.Body)
	}

	c.logger.Debug().
		Str("method", req.Method).
		Str("url", req.URL).
		Msg("http request")

	resp, err := r.Execute(req.Method, req.URL)
	if c.breaker != nil {
		c.breaker.Record(err == nil)
	}
	if err != nil {
		c.logger.Error().Err(err).
			Str("method", req.Method).
			Str("url", req.URL).
			Msg("http exchange failed")
		be := core.NewBackendError(c.backend, core.KindTransport, err.Error())
		return nil, be
	}

	c.logger.Debug().
		Str("method", req.Method).
		Str("url", req.URL).
		Int("status", resp.StatusCode()).
		Int("size", len(resp.Bytes())).
		Msg("http response")

	headers := make(map[string]string)
	for k, v := range resp.Header() {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}

	return &Response{
		StatusCode: resp.StatusCode(),
		Body:       resp.Bytes(),
		Headers:    headers,
	}, nil
}

// Calls returns how many times Do has been invoked. Used by tests to prove
// precondition failures never reach the network.
func (c *Client) Calls() int64 {
	return c.calls.Load()
}

// Close releases the underlying HTTP client.
func (c *Client) Close() error {
	return c.http.Close()
}
