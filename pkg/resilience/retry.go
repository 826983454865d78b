package resilience

import (
	"context"
	"time"

	"github.com/richxcame/ride-pooling/pkg/logger"
	"go.uber.org/zap"
)

// RetryConfig defines the configuration for retry behavior.
type RetryConfig struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int
	// BaseDelay is the delay before the first retry; subsequent retries
	// back off exponentially (BaseDelay * 2^attempt).
	BaseDelay time.Duration
	// RetryableChecker decides whether an error is worth retrying.
	// When nil, every error is retried.
	RetryableChecker func(error) bool
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  100 * time.Millisecond,
	}
}

// Retry runs operation up to MaxRetries+1 times with exponential backoff.
// The last failure is surfaced after exhaustion.
func Retry[T any](ctx context.Context, config RetryConfig, operationName string, operation func(context.Context) (T, error)) (T, error) {
	var zero T
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = 100 * time.Millisecond
	}

	var lastErr error
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := config.BaseDelay * (1 << (attempt - 1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}

		result, err := operation(ctx)
		if err == nil {
			if attempt > 0 {
				logger.Debug("operation succeeded after retry",
					zap.String("operation", operationName),
					zap.Int("attempt", attempt),
				)
			}
			recordRetry(operationName, attempt, true)
			return result, nil
		}
		lastErr = err

		if config.RetryableChecker != nil && !config.RetryableChecker(err) {
			recordRetry(operationName, attempt, false)
			return zero, err
		}
	}

	logger.Warn("operation failed after retries",
		zap.String("operation", operationName),
		zap.Int("max_retries", config.MaxRetries),
		zap.Error(lastErr),
	)
	recordRetry(operationName, config.MaxRetries, false)
	return zero, lastErr
}
