package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	var notified []error

	v, err := retry(context.Background(), fastPolicy(4), func(err error, _ time.Duration) {
		notified = append(notified, err)
	}, func() (string, error) {
		calls++
		if calls < 3 {
			return "", fmt.Errorf("embed: %w", domain.ErrEmbeddingUnavailable)
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 3, calls)
	assert.Len(t, notified, 2)
}

func TestRetry_StopsOnNonRetriable(t *testing.T) {
	calls := 0
	_, err := retry(context.Background(), fastPolicy(5), nil, func() (int, error) {
		calls++
		return 0, fmt.Errorf("parse: %w", domain.ErrParseFailure)
	})

	assert.ErrorIs(t, err, domain.ErrParseFailure)
	assert.Equal(t, 1, calls)
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := retry(context.Background(), fastPolicy(3), nil, func() (int, error) {
		calls++
		return 0, domain.ErrIndexUnavailable
	})

	assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
	assert.Equal(t, 3, calls)
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{MaxAttempts: 10, InitialBackoff: time.Hour, MaxBackoff: time.Hour}

	_, err := retry(ctx, policy, func(error, time.Duration) { cancel() }, func() (int, error) {
		return 0, domain.ErrEmbeddingUnavailable
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled) || errors.Is(err, domain.ErrEmbeddingUnavailable))
}

func TestRetryPolicy_Defaults(t *testing.T) {
	p := RetryPolicy{}.withDefaults()
	assert.Equal(t, DefaultMaxAttempts, p.MaxAttempts)
	assert.Equal(t, DefaultInitialBackoff, p.InitialBackoff)
	assert.Equal(t, DefaultMaxBackoff, p.MaxBackoff)

	p = RetryPolicy{InitialBackoff: time.Minute, MaxBackoff: time.Second}.withDefaults()
	assert.GreaterOrEqual(t, p.MaxBackoff, p.InitialBackoff)
}
