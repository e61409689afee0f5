// Package balance keeps the authenticated account's balances.
package balance

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coinsforcollege/intuitionexchange-sub003/internal/domain"
	"github.com/coinsforcollege/intuitionexchange-sub003/internal/events"
)

// Fetcher loads the account balances.
type Fetcher interface {
	FetchBalances(ctx context.Context) ([]domain.AssetBalance, error)
}

// RefreshObserver is notified of every refresh outcome.
type RefreshObserver interface {
	ObserveRefresh(component string, err error)
}

// Snapshot holds the last successfully fetched balances. Every refresh is a
// full replace; a failed refresh keeps the previous balances visible.
type Snapshot struct {
	fetcher  Fetcher
	updates  *events.Broadcaster[[]domain.AssetBalance]
	observer RefreshObserver

	mu        sync.RWMutex
	balances  []domain.AssetBalance
	updatedAt time.Time
	lastErr   error
}

// NewSnapshot creates an empty Snapshot. An optional RefreshObserver records refresh outcomes.
func NewSnapshot(fetcher Fetcher, observers ...RefreshObserver) *Snapshot {
	var observer RefreshObserver
	if len(observers) > 0 {
		observer = observers[0]
	}
	return &Snapshot{
		fetcher:  fetcher,
		updates:  events.NewBroadcaster[[]domain.AssetBalance](4),
		observer: observer,
	}
}

// Refresh fetches balances and replaces the snapshot.
func (s *Snapshot) Refresh(ctx context.Context) error {
	balances, err := s.fetcher.FetchBalances(ctx)
	if s.observer != nil {
		s.observer.ObserveRefresh("balances", err)
	}

	s.mu.Lock()
	if err != nil {
		s.lastErr = err
		s.mu.Unlock()
		slog.Warn("BalanceSnapshot: refresh failed, keeping previous balances", "error", err)
		return fmt.Errorf("refreshing balances: %w", err)
	}
	s.balances = append([]domain.AssetBalance(nil), balances...)
	s.updatedAt = time.Now()
	s.lastErr = nil
	published := append([]domain.AssetBalance(nil), s.balances...)
	s.mu.Unlock()

	s.updates.Publish(published)
	return nil
}

// Balances returns a copy of the current balances.
func (s *Snapshot) Balances() []domain.AssetBalance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.AssetBalance(nil), s.balances...)
}

// BalanceOf returns the current total balance of asset.
func (s *Snapshot) BalanceOf(asset string) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.BalanceOf(s.balances, asset)
}

// AvailableOf returns the spendable balance of asset.
func (s *Snapshot) AvailableOf(asset string) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	asset = domain.NormalizeSymbol(asset)
	result := decimal.Zero
	for _, b := range s.balances {
		if domain.NormalizeSymbol(b.Asset) == asset {
			result = b.AvailableBalance
		}
	}
	return result
}

// UpdatedAt reports the time of the last successful refresh, zero if none.
func (s *Snapshot) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

// Err returns the error of the most recent refresh.
func (s *Snapshot) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Stale reports whether the last refresh failed or none has succeeded yet.
func (s *Snapshot) Stale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr != nil || s.updatedAt.IsZero()
}

// Subscribe returns a channel receiving the balances after every successful refresh.
func (s *Snapshot) Subscribe() chan []domain.AssetBalance {
	return s.updates.Subscribe()
}

// Unsubscribe stops delivery to ch and closes it.
func (s *Snapshot) Unsubscribe(ch chan []domain.AssetBalance) {
	s.updates.Unsubscribe(ch)
}

// Close closes every subscription.
func (s *Snapshot) Close() {
	s.updates.Close()
}
