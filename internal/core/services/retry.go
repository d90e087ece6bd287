package services

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

// Default retry settings.
const (
	DefaultMaxAttempts    = 4
	DefaultInitialBackoff = 500 * time.Millisecond
	DefaultMaxBackoff     = 30 * time.Second
)

// RetryPolicy bounds retries of transient ingestion failures.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int

	// InitialBackoff is the wait before the second try.
	InitialBackoff time.Duration

	// MaxBackoff caps the wait between tries.
	MaxBackoff time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = DefaultInitialBackoff
	}
	if p.MaxBackoff < p.InitialBackoff {
		p.MaxBackoff = max(DefaultMaxBackoff, p.InitialBackoff)
	}
	return p
}

// retry runs op until it succeeds, fails with an error that is not
// domain.IsRetriable, or exhausts the policy. onRetry is called before
// each wait with the error that caused it.
func retry[T any](ctx context.Context, policy RetryPolicy, onRetry func(error, time.Duration), op func() (T, error)) (T, error) {
	policy = policy.withDefaults()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.InitialBackoff
	b.MaxInterval = policy.MaxBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0.2

	opts := []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(policy.MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
	}
	if onRetry != nil {
		opts = append(opts, backoff.WithNotify(onRetry))
	}

	return backoff.Retry[T](ctx, func() (T, error) {
		v, err := op()
		if err != nil && !domain.IsRetriable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, opts...)
}
