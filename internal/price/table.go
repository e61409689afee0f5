// Package price holds the exchange-wide price table refreshed from the ticker endpoint.
package price

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

// TickerSource fetches the full pair table.
type TickerSource interface {
	FetchTickers(ctx context.Context) ([]domain.TradingPair, error)
}

// RefreshObserver is notified of every refresh outcome.
type RefreshObserver interface {
	ObserveRefresh(component string, err error)
}

// Snapshot is the table content published after each successful refresh.
type Snapshot struct {
	Pairs     []domain.TradingPair `json:"pairs"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

// Table is the price table cache. Readers always see the last successful
// snapshot; a failed refresh keeps it and raises the error flag.
type Table struct {
	source   TickerSource
	cache    *pairCache
	updates  *events.Broadcaster[Snapshot]
	observer RefreshObserver
	now      func() time.Time

	mu      sync.RWMutex
	lastErr error
}

// NewTable creates a Table. An optional RefreshObserver records refresh outcomes.
func NewTable(source TickerSource, observers ...RefreshObserver) *Table {
	var observer RefreshObserver
	if len(observers) > 0 {
		observer = observers[0]
	}
	return &Table{
		source:   source,
		cache:    newPairCache(),
		updates:  events.NewBroadcaster[Snapshot](4),
		observer: observer,
		now:      time.Now,
	}
}

// Refresh fetches the ticker table and replaces the cache wholesale.
// On failure the previous snapshot is retained and the error is returned and recorded.
func (t *Table) Refresh(ctx context.Context) error {
	pairs, err := t.source.FetchTickers(ctx)
	if t.observer != nil {
		t.observer.ObserveRefresh("prices", err)
	}
	if err != nil {
		t.setErr(err)
		slog.Warn("PriceTable: refresh failed, serving stale prices", "error", err)
		return fmt.Errorf("refreshing price table: %w", err)
	}

	at := t.now()
	t.cache.replace(pairs, at)
	t.setErr(nil)

	t.updates.Publish(t.Snapshot())
	return nil
}

// Pairs returns a copy of the current pair list.
func (t *Table) Pairs() []domain.TradingPair {
	pairs, _ := t.cache.all()
	return pairs
}

// Snapshot returns the current pairs and when they were fetched.
func (t *Table) Snapshot() Snapshot {
	pairs, at := t.cache.all()
	return Snapshot{Pairs: pairs, UpdatedAt: at}
}

// USDPrice returns the USD price of symbol. USD itself is always 1.
func (t *Table) USDPrice(symbol string) (decimal.Decimal, bool) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == domain.USDSymbol {
		return decimal.NewFromInt(1), true
	}
	p, ok := t.cache.get(symbol, domain.USDSymbol)
	if !ok {
		return decimal.Zero, false
	}
	return p.Price, true
}

// Pair returns the pair for base/quote.
func (t *Table) Pair(base, quote string) (domain.TradingPair, bool) {
	return t.cache.get(domain.NormalizeSymbol(base), domain.NormalizeSymbol(quote))
}

// UpdatedAt reports the time of the last successful refresh, zero if none.
func (t *Table) UpdatedAt() time.Time {
	_, at := t.cache.all()
	return at
}

// Err returns the error of the most recent refresh, nil after a success.
func (t *Table) Err() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastErr
}

// Stale reports whether the last refresh failed or none has succeeded yet.
func (t *Table) Stale() bool {
	return t.Err() != nil || t.UpdatedAt().IsZero()
}

// Subscribe returns a channel receiving every new snapshot.
func (t *Table) Subscribe() chan Snapshot {
	return t.updates.Subscribe()
}

// Unsubscribe stops delivery to ch and closes it.
func (t *Table) Unsubscribe(ch chan Snapshot) {
	t.updates.Unsubscribe(ch)
}

func (t *Table) setErr(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastErr = err
}
