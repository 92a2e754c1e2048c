package utils

import (
	"context"
	"fmt"
	"math"
	"time"
)

// RetryConfig controls exponential backoff retry behavior.
type RetryConfig struct {
	MaxAttempts  int           // Maximum number of attempts (0 = unlimited until ctx cancel)
	InitialDelay time.Duration // Delay before the first retry
	MaxDelay     time.Duration // Upper bound on the backoff delay
	Multiplier   float64       // Backoff multiplier between attempts
}

// DefaultRetryConfig returns a retry configuration suitable for
// transient failures: 3 attempts, 100ms initial delay, doubling up to
// 2 seconds.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
	}
}

// DiscoveryRetryConfig returns the retry configuration used for OpenID
// provider discovery at startup: patient, unlimited attempts, capped at
// 30-second intervals. Discovery keeps retrying until the provider
// answers or the process shuts down; login attempts meanwhile fail
// with a distinguishable "not ready" error.
func DiscoveryRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  0,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// Retry executes fn with exponential backoff until it succeeds, the
// attempt budget is exhausted, or the context is canceled. The last
// error is returned on failure.
//
// Example:
//
//	err := utils.Retry(ctx, utils.DefaultRetryConfig(), func() error {
//	    return client.Ping(ctx).Err()
//	})
func Retry(ctx context.Context, config RetryConfig, fn func() error) error {
	var lastErr error

	for attempt := 0; config.MaxAttempts == 0 || attempt < config.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := calculateDelay(attempt, config)
			select {
			case <-ctx.Done():
				return fmt.Errorf("retry canceled: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		if err := fn(); err != nil {
			lastErr = err
			continue
		}
		return nil
	}

	return fmt.Errorf("all %d attempts failed: %w", config.MaxAttempts, lastErr)
}

// calculateDelay computes the backoff delay for the given attempt,
// capped at MaxDelay.
func calculateDelay(attempt int, config RetryConfig) time.Duration {
	delay := float64(config.InitialDelay) * math.Pow(config.Multiplier, float64(attempt-1))
	if delay > float64(config.MaxDelay) {
		return config.MaxDelay
	}
	return time.Duration(delay)
}
