package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/richxcame/ride-pooling/internal/dispatch"
	"github.com/richxcame/ride-pooling/pkg/config"
)

// Worker drives the periodic dispatch loops: matching cycles, surge zone
// refreshes, expired pool cleanup and lease sweeping. The matching cycle
// runs on the main tick; the maintenance tasks piggyback on it and fire
// when their own interval has elapsed.
type Worker struct {
	svc    *dispatch.Service
	cfg    config.DispatchConfig
	logger *zap.Logger
	done   chan struct{}

	lastSurgeRefresh time.Time
	lastLeaseSweep   time.Time
	lastPoolCleanup  time.Time
}

// NewWorker creates a scheduler worker around the dispatch service.
func NewWorker(svc *dispatch.Service, cfg config.DispatchConfig, logger *zap.Logger) *Worker {
	return &Worker{
		svc:    svc,
		cfg:    cfg,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start begins the matching loop and maintenance tasks. It blocks until the
// context is cancelled or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Starting dispatch scheduler",
		zap.Duration("match_interval", w.cfg.MatchInterval))

	ticker := time.NewTicker(w.cfg.MatchInterval)
	defer ticker.Stop()

	// Run immediately on start
	w.tick(ctx)

	for {
		select {
		case <-ticker.C:
			w.tick(ctx)
		case <-ctx.Done():
			w.logger.Info("Dispatch scheduler stopped")
			return
		case <-w.done:
			w.logger.Info("Dispatch scheduler shutdown requested")
			return
		}
	}
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() {
	close(w.done)
}

func (w *Worker) tick(ctx context.Context) {
	w.runMatchingCycle(ctx)
	w.runMaintenance(ctx)
}

func (w *Worker) runMatchingCycle(ctx context.Context) {
	result, err := w.svc.RunMatchingCycle(ctx)
	if err != nil {
		w.logger.Error("Matching cycle failed", zap.Error(err))
		return
	}
	if result.Matched > 0 {
		w.logger.Info("Matching cycle complete",
			zap.Int("matched", result.Matched),
			zap.Int("pools_created", result.PoolsCreated))
	} else {
		w.logger.Debug("Matching cycle complete, nothing to match")
	}
}

func (w *Worker) runMaintenance(ctx context.Context) {
	now := time.Now()

	if now.Sub(w.lastSurgeRefresh) >= w.cfg.SurgeRefreshInterval {
		if err := w.svc.RefreshSurgeZones(ctx); err != nil {
			w.logger.Error("Surge zone refresh failed", zap.Error(err))
		} else {
			w.lastSurgeRefresh = now
		}
	}

	if now.Sub(w.lastPoolCleanup) >= w.cfg.FormingPoolMaxAge {
		cleaned, err := w.svc.CleanupExpiredForming(ctx)
		if err != nil {
			w.logger.Error("Expired pool cleanup failed", zap.Error(err))
		} else {
			w.lastPoolCleanup = now
			if cleaned > 0 {
				w.logger.Info("Dissolved expired forming pools", zap.Int("count", cleaned))
			}
		}
	}

	if now.Sub(w.lastLeaseSweep) >= w.cfg.LeaseSweepInterval {
		swept, err := w.svc.SweepLeases(ctx)
		if err != nil {
			w.logger.Error("Lease sweep failed", zap.Error(err))
		} else {
			w.lastLeaseSweep = now
			if swept > 0 {
				w.logger.Info("Swept expired leases", zap.Int64("count", swept))
			}
		}
	}
}
