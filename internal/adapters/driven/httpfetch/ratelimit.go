package httpfetch

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HeaderRetryAfter is the retry-after header (seconds or HTTP date).
const HeaderRetryAfter = "Retry-After"

// maxPause caps how long a Retry-After header may stall a provider.
const maxPause = 5 * time.Minute

// RateLimiter combines proactive throttling with the provider's own
// Retry-After hints.
type RateLimiter struct {
	bucket *rate.Limiter

	mu      sync.Mutex
	resetAt time.Time
}

// NewRateLimiter creates a limiter allowing perSecond requests with burst.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{bucket: rate.NewLimiter(limit, burst)}
}

// Wait blocks until a request may be sent.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := r.bucket.Wait(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	resetAt := r.resetAt
	r.mu.Unlock()

	if wait := time.Until(resetAt); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

// Observe records a Retry-After hint from a 429 or 503 response.
func (r *RateLimiter) Observe(resp *http.Response, now time.Time) {
	if resp == nil {
		return
	}
	if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode != http.StatusServiceUnavailable {
		return
	}
	wait, ok := parseRetryAfter(resp.Header.Get(HeaderRetryAfter), now)
	if !ok {
		return
	}
	if wait > maxPause {
		wait = maxPause
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if until := now.Add(wait); until.After(r.resetAt) {
		r.resetAt = until
	}
}

// ResetAt returns when a Retry-After pause ends.
func (r *RateLimiter) ResetAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resetAt
}

func parseRetryAfter(v string, now time.Time) (time.Duration, bool) {
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(v); err == nil {
		return at.Sub(now), at.After(now)
	}
	return 0, false
}
