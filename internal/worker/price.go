package worker

import (
	"context"
	"log/slog"
	"time"
)

// PriceRefresher refreshes the shared price table.
type PriceRefresher interface {
	Refresh(ctx context.Context) error
}

// PriceWorker polls the ticker endpoint for the life of the process.
type PriceWorker struct {
	refresher PriceRefresher
	interval  time.Duration
}

// NewPriceWorker creates a new PriceWorker.
func NewPriceWorker(refresher PriceRefresher, interval time.Duration) *PriceWorker {
	return &PriceWorker{
		refresher: refresher,
		interval:  interval,
	}
}

// Run starts the price worker loop. It blocks until the context is cancelled.
func (w *PriceWorker) Run(ctx context.Context) {
	slog.Info("PriceWorker: starting", "interval", w.interval)

	h := Start(ctx, w.interval, func(ctx context.Context) bool {
		if err := w.refresher.Refresh(ctx); err != nil {
			if ctx.Err() == nil {
				slog.Error("PriceWorker: refresh failed", "error", err)
			}
		} else {
			slog.Debug("PriceWorker: refresh completed")
		}
		return false
	})
	h.Wait()

	slog.Info("PriceWorker: shutting down")
}
