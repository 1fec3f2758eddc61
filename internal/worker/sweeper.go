package worker

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper defines the pending store operation needed by the sweep worker.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// PendingSweepWorker periodically removes expired pending actions.
type PendingSweepWorker struct {
	store    Sweeper
	interval time.Duration
}

// NewPendingSweepWorker creates a worker sweeping store every interval.
func NewPendingSweepWorker(store Sweeper, interval time.Duration) *PendingSweepWorker {
	return &PendingSweepWorker{
		store:    store,
		interval: interval,
	}
}

// Run starts the worker loop. Blocks until ctx is cancelled.
// Does NOT run immediately on start; nothing can have expired yet.
func (w *PendingSweepWorker) Run(ctx context.Context) {
	slog.Info("worker started",
		"component", "worker",
		"worker", "pending-sweep",
		"interval", w.interval.String(),
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped",
				"component", "worker",
				"worker", "pending-sweep",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep executes a single sweep cycle.
func (w *PendingSweepWorker) sweep(ctx context.Context) {
	start := time.Now()

	removed, err := w.store.Sweep(ctx)
	if err != nil {
		// Check for graceful shutdown
		if ctx.Err() != nil {
			return
		}
		slog.Error("sweep failed",
			"component", "worker",
			"action", "sweep_failed",
			"error", err,
		)
		return
	}

	if removed == 0 {
		return
	}
	slog.Info("sweep cycle completed",
		"component", "worker",
		"action", "sweep_complete",
		"removed", removed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
