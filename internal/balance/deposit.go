package balance

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coinsforcollege/intuitionexchange-sub003/internal/domain"
	"github.com/coinsforcollege/intuitionexchange-sub003/internal/worker"
)

// ErrInvalidDelta is returned when the expected deposit amount is not positive.
var ErrInvalidDelta = errors.New("expected deposit amount must be positive")

// DepositWatch describes a bounded wait for a deposit to land.
type DepositWatch struct {
	Asset       string
	Delta       decimal.Decimal
	Interval    time.Duration
	MaxAttempts int
}

// DepositResult is the outcome of a deposit watch.
type DepositResult struct {
	Asset     string          `json:"asset"`
	Before    decimal.Decimal `json:"before"`
	After     decimal.Decimal `json:"after"`
	Attempts  int             `json:"attempts"`
	Confirmed bool            `json:"confirmed"`
}

// DepositPoll is a running deposit watch.
type DepositPoll struct {
	handle *worker.Handle
	result chan DepositResult
}

// Stop cancels the watch early. Result still delivers the partial outcome.
func (p *DepositPoll) Stop() {
	p.handle.Stop()
}

// Done is closed when polling has ended.
func (p *DepositPoll) Done() <-chan struct{} {
	return p.handle.Done()
}

// Result blocks until polling ends and returns its outcome.
func (p *DepositPoll) Result() DepositResult {
	res := <-p.result
	p.result <- res
	return res
}

// WatchDeposit refreshes the snapshot every interval, at most MaxAttempts
// times, and stops early once the asset balance has grown by at least Delta
// over the balance seen when the watch started.
func (s *Snapshot) WatchDeposit(ctx context.Context, w DepositWatch) (*DepositPoll, error) {
	if !w.Delta.IsPositive() {
		return nil, ErrInvalidDelta
	}
	if w.MaxAttempts < 1 {
		w.MaxAttempts = 1
	}
	asset := domain.NormalizeSymbol(w.Asset)

	res := DepositResult{Asset: asset, Before: s.BalanceOf(asset)}
	res.After = res.Before
	target := res.Before.Add(w.Delta)
	out := make(chan DepositResult, 1)

	handle := worker.Start(ctx, w.Interval, func(ctx context.Context) bool {
		res.Attempts++
		if err := s.Refresh(ctx); err != nil {
			slog.Debug("BalanceSnapshot: deposit poll refresh failed", "asset", asset, "attempt", res.Attempts, "error", err)
		} else {
			res.After = s.BalanceOf(asset)
			if res.After.GreaterThanOrEqual(target) {
				res.Confirmed = true
				return true
			}
		}
		return res.Attempts >= w.MaxAttempts
	})

	go func() {
		<-handle.Done()
		slog.Info("BalanceSnapshot: deposit watch finished",
			"asset", asset, "attempts", res.Attempts, "confirmed", res.Confirmed)
		out <- res
	}()

	return &DepositPoll{handle: handle, result: out}, nil
}

// AwaitDeposit runs WatchDeposit and blocks until it finishes.
func (s *Snapshot) AwaitDeposit(ctx context.Context, w DepositWatch) (DepositResult, error) {
	poll, err := s.WatchDeposit(ctx, w)
	if err != nil {
		return DepositResult{}, err
	}
	return poll.Result(), nil
}
