package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestRetrySurfacesLastErrorAfterExhaustion(t *testing.T) {
	config := RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond}

	calls := 0
	_, err := Retry(context.Background(), config, "test.exhaustion", func(context.Context) (int, error) {
		calls++
		return 0, fmt.Errorf("boom %d", calls)
	})

	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	if err == nil || err.Error() != "boom 3" {
		t.Fatalf("expected the last failure to surface, got %v", err)
	}
}

func TestRetrySucceedsAfterTransientFailure(t *testing.T) {
	config := RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond}

	calls := 0
	result, err := Retry(context.Background(), config, "test.transient", func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" {
		t.Fatalf("expected ok, got %q", result)
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
}

func TestRetryBacksOffExponentially(t *testing.T) {
	config := RetryConfig{MaxRetries: 2, BaseDelay: 20 * time.Millisecond}

	start := time.Now()
	_, err := Retry(context.Background(), config, "test.backoff", func(context.Context) (int, error) {
		return 0, errors.New("boom")
	})
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected failure")
	}
	// Two retries at 20ms and 40ms: at least 60ms of delay in total.
	if elapsed < 60*time.Millisecond {
		t.Fatalf("expected exponential delays, finished after %v", elapsed)
	}
}

func TestRetryNonRetryableShortCircuits(t *testing.T) {
	sentinel := errors.New("constraint violation")
	config := RetryConfig{
		MaxRetries:       5,
		BaseDelay:        time.Millisecond,
		RetryableChecker: func(error) bool { return false },
	}

	calls := 0
	_, err := Retry(context.Background(), config, "test.short_circuit", func(context.Context) (int, error) {
		calls++
		return 0, sentinel
	})

	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	config := RetryConfig{MaxRetries: 5, BaseDelay: time.Second}

	_, err := Retry(ctx, config, "test.cancel", func(context.Context) (int, error) {
		cancel()
		return 0, errors.New("boom")
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
