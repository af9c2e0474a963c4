package services

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/custodia-labs/sercha-intel/internal/core/domain"
	"github.com/custodia-labs/sercha-intel/internal/logger"
	"github.com/custodia-labs/sercha-intel/internal/metrics"
)

// RetryPolicy retries transient integration failures with exponential backoff.
// Permanent failures and successes return immediately.
type RetryPolicy struct {
	// MaxAttempts is the total number of calls, including the first.
	MaxAttempts int
	// InitialInterval is the wait before the first retry.
	InitialInterval time.Duration
	// MaxInterval caps the wait between retries.
	MaxInterval time.Duration
}

// NewRetryPolicy builds a policy from settings.
func NewRetryPolicy(s domain.RetrySettings) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     s.MaxAttempts,
		InitialInterval: s.InitialInterval,
		MaxInterval:     s.MaxInterval,
	}
}

// NoRetry makes exactly one attempt.
var NoRetry = RetryPolicy{MaxAttempts: 1}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		eb.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		eb.MaxInterval = p.MaxInterval
	}
	eb.MaxElapsedTime = 0

	retries := 0
	if p.MaxAttempts > 1 {
		retries = p.MaxAttempts - 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(retries)), ctx)
}

// Do runs op until it succeeds, fails permanently, exhausts MaxAttempts,
// or ctx ends. It returns the number of attempts made and the last error.
// Errors that are not transient integration failures are never retried.
func (p RetryPolicy) Do(ctx context.Context, provider string, op func(ctx context.Context) error) (int, error) {
	attempts := 0
	var last error

	err := backoff.RetryNotify(func() error {
		attempts++
		last = op(ctx)
		if last == nil {
			return nil
		}
		if !domain.IsTransient(last) {
			return backoff.Permanent(last)
		}
		return last
	}, p.backOff(ctx), func(err error, wait time.Duration) {
		metrics.Retries.WithLabelValues(provider).Inc()
		logger.Debug("%s: retrying in %s after: %v", provider, wait, err)
	})

	if err == nil {
		return attempts, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		if last != nil {
			return attempts, last
		}
		return attempts, domain.NewTransient(provider, 0, "", err)
	}
	return attempts, err
}
