package tracker

import (
	"math/rand/v2"
	"net/http"
	"time"
)

// retryTransport retries idempotent tracker requests on transient
// failures (network errors and 5xx responses) with exponential backoff
// and jitter. Client errors and rate-limit responses are returned to the
// caller unchanged so the gateway can classify them.
type retryTransport struct {
	base              http.RoundTripper
	maxAttempts       int
	backoffBase       time.Duration
	backoffMultiplier float64
	maxBackoff        time.Duration
}

func newRetryTransport(base http.RoundTripper) *retryTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &retryTransport{
		base:              base,
		maxAttempts:       3,
		backoffBase:       500 * time.Millisecond,
		backoffMultiplier: 2.0,
		maxBackoff:        5 * time.Second,
	}
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error

	for attempt := 1; attempt <= t.maxAttempts; attempt++ {
		resp, err = t.base.RoundTrip(req)
		if !t.shouldRetry(resp, err) {
			return resp, err
		}

		if attempt == t.maxAttempts {
			break
		}

		if resp != nil {
			resp.Body.Close()
		}

		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(t.backoff(attempt)):
		}
	}

	return resp, err
}

// shouldRetry retries network failures and server errors. Only GET
// requests reach this transport, so replay is safe.
func (t *retryTransport) shouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	return resp.StatusCode >= 500
}

// backoff computes exponential backoff with +/- 25% jitter to avoid
// synchronized retries against the tracker.
func (t *retryTransport) backoff(attempt int) time.Duration {
	multiplier := 1.0
	for i := 1; i < attempt; i++ {
		multiplier *= t.backoffMultiplier
	}

	d := time.Duration(float64(t.backoffBase) * multiplier)
	if d > t.maxBackoff {
		d = t.maxBackoff
	}

	jitter := float64(d) * 0.25 * (rand.Float64()*2 - 1)
	return d + time.Duration(jitter)
}
