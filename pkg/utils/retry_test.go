package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig(maxAttempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:  maxAttempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("returns immediately on success", func(t *testing.T) {
		calls := 0
		err := Retry(ctx, fastRetryConfig(3), func() error {
			calls++
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries until success", func(t *testing.T) {
		calls := 0
		err := Retry(ctx, fastRetryConfig(5), func() error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("returns the last error after the attempt budget", func(t *testing.T) {
		calls := 0
		lastErr := errors.New("still failing")
		err := Retry(ctx, fastRetryConfig(3), func() error {
			calls++
			return lastErr
		})

		require.Error(t, err)
		assert.ErrorIs(t, err, lastErr)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops when the context is canceled", func(t *testing.T) {
		cancelCtx, cancel := context.WithCancel(ctx)

		calls := 0
		err := Retry(cancelCtx, RetryConfig{
			MaxAttempts:  0, // unlimited
			InitialDelay: 10 * time.Millisecond,
			MaxDelay:     10 * time.Millisecond,
			Multiplier:   1.0,
		}, func() error {
			calls++
			if calls == 2 {
				cancel()
			}
			return errors.New("never succeeds")
		})

		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestCalculateDelay(t *testing.T) {
	config := RetryConfig{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
	}

	assert.Equal(t, 100*time.Millisecond, calculateDelay(1, config))
	assert.Equal(t, 200*time.Millisecond, calculateDelay(2, config))
	assert.Equal(t, 400*time.Millisecond, calculateDelay(3, config))
	// Capped at MaxDelay
	assert.Equal(t, time.Second, calculateDelay(10, config))
}
