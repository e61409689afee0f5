package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/coinsforcollege/intuitionexchange-sub003/internal/domain"
)

// HistoryRecorder stores the current valuation of every live session.
type HistoryRecorder interface {
	RecordAll(ctx context.Context, date time.Time) ([]domain.HistoryEntry, error)
}

// AfterRecordHook is called after each successful recording round.
type AfterRecordHook interface {
	Export(ctx context.Context, entries []domain.HistoryEntry) error
}

// HistoryWorker periodically records portfolio valuations.
type HistoryWorker struct {
	recorder HistoryRecorder
	interval time.Duration
	hook     AfterRecordHook // optional
}

// NewHistoryWorker creates a new HistoryWorker with an optional post-record hook.
func NewHistoryWorker(recorder HistoryRecorder, interval time.Duration, hook AfterRecordHook) *HistoryWorker {
	return &HistoryWorker{
		recorder: recorder,
		interval: interval,
		hook:     hook,
	}
}

// utcDate returns the current date normalized to midnight UTC.
func utcDate() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func (w *HistoryWorker) record(ctx context.Context) {
	entries, err := w.recorder.RecordAll(ctx, utcDate())
	if err != nil {
		slog.Error("HistoryWorker: recording failed", "error", err)
		return
	}
	slog.Info("HistoryWorker: recording completed", "entries", len(entries))

	if w.hook == nil || len(entries) == 0 {
		return
	}
	if err := w.hook.Export(ctx, entries); err != nil {
		slog.Error("HistoryWorker: export hook failed", "error", err)
	} else {
		slog.Info("HistoryWorker: export hook completed")
	}
}

// Run starts the history worker loop. It blocks until the context is cancelled.
func (w *HistoryWorker) Run(ctx context.Context) {
	slog.Info("HistoryWorker: starting", "interval", w.interval)

	Start(ctx, w.interval, func(ctx context.Context) bool {
		w.record(ctx)
		return false
	}).Wait()

	slog.Info("HistoryWorker: shutting down")
}
