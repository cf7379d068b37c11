// Package httpretry retries idempotent HTTP calls on transient failures
// with capped exponential backoff and full jitter.
package httpretry

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/ignite/outreach-engine/internal/pkg/logger"
)

// HTTPDoer is satisfied by *http.Client and *RetryClient.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RetryClient wraps an HTTPDoer with retries.
type RetryClient struct {
	client     HTTPDoer
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// Option configures a RetryClient.
type Option func(*RetryClient)

// WithBackoff overrides the base and maximum delay between attempts.
func WithBackoff(base, max time.Duration) Option {
	return func(rc *RetryClient) {
		rc.baseDelay = base
		rc.maxDelay = max
	}
}

// NewRetryClient wraps client, or a 30s-timeout http.Client when nil.
// maxRetries <= 0 means 3.
func NewRetryClient(client HTTPDoer, maxRetries int, opts ...Option) *RetryClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	rc := &RetryClient{
		client:     client,
		maxRetries: maxRetries,
		baseDelay:  500 * time.Millisecond,
		maxDelay:   10 * time.Second,
	}
	for _, o := range opts {
		o(rc)
	}
	return rc
}

// Do sends req, retrying on 429/502/503/504 and network errors. Requests
// whose body cannot be replayed are sent once. A 500 is not retried because
// the engine returns it after a transition may already have been written.
// The last retryable response is returned as-is so callers can read it.
func (rc *RetryClient) Do(req *http.Request) (*http.Response, error) {
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return rc.client.Do(req)
	}

	var lastErr error
	var wait time.Duration
	for attempt := 0; attempt <= rc.maxRetries; attempt++ {
		if attempt > 0 {
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, fmt.Errorf("httpretry: reset body: %w", err)
				}
				req.Body = body
			}
			if wait == 0 {
				wait = rc.backoff(attempt)
			}
			logger.Debug("retrying request", "method", req.Method, "path", req.URL.Path, "attempt", attempt, "wait", wait)

			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-req.Context().Done():
				timer.Stop()
				return nil, req.Context().Err()
			}
			wait = 0
		}

		resp, err := rc.client.Do(req)
		if err != nil {
			if req.Context().Err() != nil {
				return nil, err
			}
			lastErr = err
			continue
		}
		if !retryable(resp.StatusCode) || attempt == rc.maxRetries {
			return resp, nil
		}
		wait = retryAfter(resp.Header.Get("Retry-After"), rc.maxDelay)
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		lastErr = fmt.Errorf("httpretry: status %d", resp.StatusCode)
	}
	return nil, lastErr
}

// backoff is random(0, min(maxDelay, baseDelay*2^(attempt-1))) with a 10ms
// floor.
func (rc *RetryClient) backoff(attempt int) time.Duration {
	d := float64(rc.baseDelay) * math.Pow(2, float64(attempt-1))
	if d > float64(rc.maxDelay) {
		d = float64(rc.maxDelay)
	}
	j := time.Duration(rand.Float64() * d)
	if j < 10*time.Millisecond {
		j = 10 * time.Millisecond
	}
	return j
}

// retryAfter parses a Retry-After header in seconds, capped at max. Zero
// means "use the computed backoff".
func retryAfter(v string, max time.Duration) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	d := time.Duration(secs) * time.Second
	if d > max {
		return max
	}
	return d
}

func retryable(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
