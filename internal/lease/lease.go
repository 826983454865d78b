package lease

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/richxcame/ride-pooling/pkg/logger"
)

// ErrUnavailable is returned when a lease could not be acquired within the
// retry budget. Callers treat it as recoverable.
var ErrUnavailable = errors.New("lease unavailable")

// Store persists lease records. Acquire must evaluate the expiry check and
// the write atomically so an expired lease can be stolen without a race.
type Store interface {
	Acquire(ctx context.Context, name, holder string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name, holder string) error
	Sweep(ctx context.Context) (int64, error)
}

// Options tune lease acquisition.
type Options struct {
	TTL        time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// DefaultOptions returns the standard lease parameters.
func DefaultOptions() Options {
	return Options{
		TTL:        30 * time.Second,
		MaxRetries: 3,
		RetryDelay: 50 * time.Millisecond,
	}
}

// Manager serializes pool mutations: at most one holder per lease name at any
// moment.
type Manager struct {
	store Store
	opts  Options
	sleep func(time.Duration)
}

// NewManager creates a manager over the given store.
func NewManager(store Store, opts Options) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = DefaultOptions().TTL
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = DefaultOptions().MaxRetries
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultOptions().RetryDelay
	}
	return &Manager{store: store, opts: opts, sleep: time.Sleep}
}

// Acquire makes a single acquisition attempt.
func (m *Manager) Acquire(ctx context.Context, name, holder string) (bool, error) {
	return m.store.Acquire(ctx, name, holder, m.opts.TTL)
}

// Release gives the lease back. A mismatched holder is a silent no-op.
func (m *Manager) Release(ctx context.Context, name, holder string) error {
	return m.store.Release(ctx, name, holder)
}

// WithLease acquires the named lease, retrying with linearly increasing
// delay, runs fn while holding it, and releases on every path including
// panic. Exhausted retries yield ErrUnavailable.
func (m *Manager) WithLease(ctx context.Context, name, holder string, fn func(ctx context.Context) error) error {
	for attempt := 0; attempt <= m.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * m.opts.RetryDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			m.sleep(delay)
		}

		acquired, err := m.store.Acquire(ctx, name, holder, m.opts.TTL)
		if err != nil {
			return fmt.Errorf("acquire lease %s: %w", name, err)
		}
		if !acquired {
			continue
		}
		return m.runHeld(ctx, name, holder, fn)
	}
	return ErrUnavailable
}

func (m *Manager) runHeld(ctx context.Context, name, holder string, fn func(ctx context.Context) error) (err error) {
	// The deferred release runs on the panic path too.
	defer func() {
		if relErr := m.store.Release(ctx, name, holder); relErr != nil {
			logger.WithContext(ctx).Error("lease release failed",
				zap.String("lease", name), zap.Error(relErr))
			if err == nil {
				err = relErr
			}
		}
	}()
	return fn(ctx)
}

// Sweep deletes every expired lease record. Steal-on-expiry keeps things
// correct without it; the sweep only bounds storage growth.
func (m *Manager) Sweep(ctx context.Context) (int64, error) {
	return m.store.Sweep(ctx)
}
