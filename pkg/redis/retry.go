package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/richxcame/ride-pooling/pkg/resilience"
)

// RetryableOperation executes a Redis operation, retrying transient failures.
func RetryableOperation[T any](ctx context.Context, operationName string, operation func(context.Context) (T, error)) (T, error) {
	config := resilience.RetryConfig{
		MaxRetries:       2,
		BaseDelay:        50 * time.Millisecond,
		RetryableChecker: isRedisRetryable,
	}
	return resilience.Retry(ctx, config, operationName, operation)
}

// RetryableSet sets a key-value pair with retry logic.
func (c *Client) RetryableSet(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	_, err := RetryableOperation(ctx, "redis.set", func(ctx context.Context) (interface{}, error) {
		return nil, c.Set(ctx, key, value, expiration).Err()
	})
	return err
}

// RetryableGet gets a string value by key with retry logic.
func (c *Client) RetryableGet(ctx context.Context, key string) (string, error) {
	return RetryableOperation(ctx, "redis.get", func(ctx context.Context) (string, error) {
		return c.Get(ctx, key).Result()
	})
}

// RetryableDelete deletes keys with retry logic.
func (c *Client) RetryableDelete(ctx context.Context, keys ...string) error {
	_, err := RetryableOperation(ctx, "redis.delete", func(ctx context.Context) (interface{}, error) {
		return nil, c.Del(ctx, keys...).Err()
	})
	return err
}

// isRedisRetryable determines if a Redis error should be retried.
func isRedisRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	// Key not found is expected behavior, not a fault.
	if errors.Is(err, redis.Nil) {
		return false
	}

	errMsg := strings.ToLower(err.Error())
	retryableMessages := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"network is unreachable",
		"timeout",
		"server closed",
		"unexpected eof",
		"pool timeout",
		"loading",     // Redis is loading dataset
		"busy",        // script execution in progress
		"tryagain",    // Redis asking to retry
		"clusterdown", // cluster is down
	}
	for _, msg := range retryableMessages {
		if strings.Contains(errMsg, msg) {
			return true
		}
	}

	nonRetryableMessages := []string{
		"wrongtype",
		"noauth",
		"wrongpass",
		"noperm",
		"err syntax",
	}
	for _, msg := range nonRetryableMessages {
		if strings.Contains(errMsg, msg) {
			return false
		}
	}

	// Retry by default for unknown errors (conservative approach for cache).
	return true
}
