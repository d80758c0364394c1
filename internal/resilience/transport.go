package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net"
	"net/http"
	"time"
)

// RetryConfig configures retries of idempotent HTTP requests.
type RetryConfig struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	// Jitter adds randomness to backoff (0.0 to 1.0).
	Jitter               float64
	RetryableStatusCodes []int
}

// DefaultRetryConfig returns sensible defaults for retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            0.1,
		RetryableStatusCodes: []int{
			http.StatusTooManyRequests,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		},
	}
}

// Transport is an http.RoundTripper that retries safe requests and fails
// fast while the breaker is open. Requests with a body-changing method are
// sent exactly once.
type Transport struct {
	Base    http.RoundTripper
	Retry   RetryConfig
	Breaker *Breaker
}

// NewTransport wraps base (http.DefaultTransport when nil).
func NewTransport(base http.RoundTripper, retry RetryConfig, breaker *Breaker) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if breaker == nil {
		breaker = NewBreaker(DefaultBreakerConfig())
	}
	return &Transport{Base: base, Retry: retry, Breaker: breaker}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.Breaker.Allow(); err != nil {
		return nil, err
	}

	attempts := 1
	if isSafeMethod(req.Method) {
		attempts += t.Retry.MaxRetries
	}

	var (
		resp    *http.Response
		lastErr error
	)
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(t.backoff(attempt)):
			}
			req = req.Clone(req.Context())
		}

		resp, lastErr = t.Base.RoundTrip(req)
		if lastErr != nil {
			if isRetryableError(lastErr) {
				continue
			}
			t.Breaker.RecordFailure(lastErr)
			return nil, lastErr
		}

		if t.isRetryableStatus(resp.StatusCode) {
			lastErr = &HTTPError{StatusCode: resp.StatusCode}
			if attempt < attempts-1 {
				resp.Body.Close()
				continue
			}
			t.Breaker.RecordFailure(lastErr)
			return resp, nil
		}

		t.Breaker.RecordSuccess()
		return resp, nil
	}

	t.Breaker.RecordFailure(lastErr)
	return nil, lastErr
}

func (t *Transport) backoff(attempt int) time.Duration {
	backoff := float64(t.Retry.InitialBackoff) * math.Pow(t.Retry.BackoffMultiplier, float64(attempt-1))
	if backoff > float64(t.Retry.MaxBackoff) {
		backoff = float64(t.Retry.MaxBackoff)
	}
	if t.Retry.Jitter > 0 {
		backoff += backoff * t.Retry.Jitter * (rand.Float64()*2 - 1)
	}
	return time.Duration(backoff)
}

func (t *Transport) isRetryableStatus(code int) bool {
	for _, retryable := range t.Retry.RetryableStatusCodes {
		if code == retryable {
			return true
		}
	}
	return false
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func isRetryableError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

// HTTPError represents a retryable HTTP status that exhausted its retries.
type HTTPError struct {
	StatusCode int
}

func (e *HTTPError) Error() string {
	return http.StatusText(e.StatusCode)
}
