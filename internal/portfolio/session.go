// Package portfolio holds the per-user session context that ties balances,
// the shared price table and the watchlist to a live valuation.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/coinsforcollege/intuitionexchange-sub003/internal/balance"
	"github.com/coinsforcollege/intuitionexchange-sub003/internal/domain"
	"github.com/coinsforcollege/intuitionexchange-sub003/internal/events"
	"github.com/coinsforcollege/intuitionexchange-sub003/internal/fiat"
	"github.com/coinsforcollege/intuitionexchange-sub003/internal/presentation"
	"github.com/coinsforcollege/intuitionexchange-sub003/internal/price"
	"github.com/coinsforcollege/intuitionexchange-sub003/internal/valuation"
)

// ErrSessionClosed is returned by operations on a torn down session.
var ErrSessionClosed = errors.New("session closed")

// Gateway is the authenticated exchange API of one user.
type Gateway interface {
	balance.Fetcher
	presentation.WatchlistService
	fiat.Gateway
	FetchOrders(ctx context.Context, limit int) ([]domain.Order, error)
}

// PriceSource is the shared price table as seen by a session.
type PriceSource interface {
	Pairs() []domain.TradingPair
	Stale() bool
	Subscribe() chan price.Snapshot
	Unsubscribe(ch chan price.Snapshot)
}

// Config tunes session behavior.
type Config struct {
	RequiredAssets     []string
	DepositInterval    time.Duration
	DepositMaxAttempts int
	FiatLimits         fiat.Limits
}

// DefaultConfig returns the standard session settings.
func DefaultConfig() Config {
	return Config{
		RequiredAssets:     domain.RequiredAssets(),
		DepositInterval:    3 * time.Second,
		DepositMaxAttempts: 10,
		FiatLimits:         fiat.DefaultLimits(),
	}
}

// Session is one authenticated user's context. Init must be called before
// use and Teardown when the user leaves.
type Session struct {
	key        string
	gateway    Gateway
	prices     PriceSource
	aggregator *valuation.Aggregator
	cfg        Config

	balances  *balance.Snapshot
	watchlist *presentation.Watchlist
	fiat      *fiat.Service
	updates   *events.Broadcaster[domain.Portfolio]

	mu        sync.RWMutex
	portfolio domain.Portfolio
	computed  time.Time
	deposits  map[*balance.DepositPoll]struct{}
	cancel    context.CancelFunc
	loopDone  chan struct{}
	closed    bool
}

// NewSession creates an uninitialized session. observer may be nil.
func NewSession(key string, gateway Gateway, prices PriceSource, aggregator *valuation.Aggregator, cfg Config, observer balance.RefreshObserver) *Session {
	var snapshot *balance.Snapshot
	if observer != nil {
		snapshot = balance.NewSnapshot(gateway, observer)
	} else {
		snapshot = balance.NewSnapshot(gateway)
	}
	if len(cfg.RequiredAssets) == 0 {
		cfg.RequiredAssets = domain.RequiredAssets()
	}
	return &Session{
		key:        key,
		gateway:    gateway,
		prices:     prices,
		aggregator: aggregator,
		cfg:        cfg,
		balances:   snapshot,
		watchlist:  presentation.NewWatchlist(gateway),
		fiat:       fiat.NewService(gateway, cfg.FiatLimits, snapshot),
		updates:    events.NewBroadcaster[domain.Portfolio](4),
		deposits:   make(map[*balance.DepositPoll]struct{}),
	}
}

// Key identifies the session in the registry.
func (s *Session) Key() string {
	return s.key
}

// Init loads balances and the watchlist concurrently, computes the first
// valuation and starts recomputing on every price or balance replacement.
// A watchlist failure is logged and does not fail Init.
func (s *Session) Init(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.balances.Refresh(gctx)
	})
	g.Go(func() error {
		if err := s.watchlist.Refresh(gctx); err != nil {
			slog.Warn("Session: watchlist unavailable", "session", s.short(), "error", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("initializing session: %w", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.cancel != nil {
		s.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.loopDone = make(chan struct{})
	priceCh := s.prices.Subscribe()
	balanceCh := s.balances.Subscribe()
	s.mu.Unlock()

	s.recompute()
	go s.loop(runCtx, priceCh, balanceCh)

	slog.Info("Session: initialized", "session", s.short())
	return nil
}

func (s *Session) loop(ctx context.Context, priceCh chan price.Snapshot, balanceCh chan []domain.AssetBalance) {
	defer close(s.loopDone)
	defer s.prices.Unsubscribe(priceCh)

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-priceCh:
			if !ok {
				return
			}
			s.recompute()
		case _, ok := <-balanceCh:
			if !ok {
				return
			}
			s.recompute()
		}
	}
}

// Revalue recomputes the valuation from the current inputs and returns it.
func (s *Session) Revalue() domain.Portfolio {
	s.recompute()
	return s.Portfolio()
}

// recompute aggregates the current inputs and publishes the result.
func (s *Session) recompute() {
	p := s.aggregator.Aggregate(s.balances.Balances(), s.prices.Pairs(), s.cfg.RequiredAssets)
	p.PricesStale = s.prices.Stale()
	p.BalancesStale = s.balances.Stale()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.portfolio = p
	s.computed = time.Now()
	s.mu.Unlock()

	s.updates.Publish(p)
}

// Teardown stops every poller owned by the session and closes all
// subscriber channels. It is safe to call more than once.
func (s *Session) Teardown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cancel, loopDone := s.cancel, s.loopDone
	polls := make([]*balance.DepositPoll, 0, len(s.deposits))
	for p := range s.deposits {
		polls = append(polls, p)
	}
	s.deposits = nil
	s.mu.Unlock()

	for _, p := range polls {
		p.Stop()
	}
	if cancel != nil {
		cancel()
		<-loopDone
	}
	s.balances.Close()
	s.updates.Close()
	slog.Info("Session: torn down", "session", s.short())
}

// Closed reports whether Teardown has run.
func (s *Session) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Portfolio returns the latest valuation.
func (s *Session) Portfolio() domain.Portfolio {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.portfolio
}

// ComputedAt returns when the latest valuation was produced.
func (s *Session) ComputedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.computed
}

// Subscribe returns a channel receiving every new valuation.
func (s *Session) Subscribe() chan domain.Portfolio {
	return s.updates.Subscribe()
}

// Unsubscribe stops delivery to ch.
func (s *Session) Unsubscribe(ch chan domain.Portfolio) {
	s.updates.Unsubscribe(ch)
}

// RefreshBalances reloads balances. Recomputation follows through the subscription.
func (s *Session) RefreshBalances(ctx context.Context) error {
	if s.Closed() {
		return ErrSessionClosed
	}
	return s.balances.Refresh(ctx)
}

// AwaitDeposit polls balances until delta of asset has arrived or the
// configured attempt cap is reached. The watch stops on Teardown.
func (s *Session) AwaitDeposit(ctx context.Context, asset string, delta decimal.Decimal) (balance.DepositResult, error) {
	poll, err := s.WatchDeposit(ctx, asset, delta)
	if err != nil {
		return balance.DepositResult{}, err
	}
	return poll.Result(), nil
}

// WatchDeposit starts a deposit watch owned by the session.
func (s *Session) WatchDeposit(ctx context.Context, asset string, delta decimal.Decimal) (*balance.DepositPoll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}

	poll, err := s.balances.WatchDeposit(ctx, balance.DepositWatch{
		Asset:       asset,
		Delta:       delta,
		Interval:    s.cfg.DepositInterval,
		MaxAttempts: s.cfg.DepositMaxAttempts,
	})
	if err != nil {
		return nil, err
	}
	s.deposits[poll] = struct{}{}

	go func() {
		<-poll.Done()
		s.mu.Lock()
		delete(s.deposits, poll)
		s.mu.Unlock()
	}()
	return poll, nil
}

// Watchlist returns the current watchlist members.
func (s *Session) Watchlist() []string {
	return s.watchlist.Members()
}

// ToggleWatchlist flips asset membership, server answer wins.
func (s *Session) ToggleWatchlist(ctx context.Context, asset string) (bool, error) {
	if s.Closed() {
		return false, ErrSessionClosed
	}
	return s.watchlist.Toggle(ctx, asset)
}

// RefreshWatchlist reloads the watchlist from the server.
func (s *Session) RefreshWatchlist(ctx context.Context) error {
	return s.watchlist.Refresh(ctx)
}

// CreateDepositIntent validates and opens a fiat deposit. Balances are
// refreshed by a later AwaitDeposit once the payment settles.
func (s *Session) CreateDepositIntent(ctx context.Context, in fiat.DepositInput) (domain.DepositIntent, error) {
	if s.Closed() {
		return domain.DepositIntent{}, ErrSessionClosed
	}
	return s.fiat.CreateDepositIntent(ctx, in)
}

// CreateWithdrawal validates and requests a payout, then refreshes balances
// so the locked amount shows up.
func (s *Session) CreateWithdrawal(ctx context.Context, in fiat.WithdrawalInput) (domain.Withdrawal, error) {
	if s.Closed() {
		return domain.Withdrawal{}, ErrSessionClosed
	}
	w, err := s.fiat.CreateWithdrawal(ctx, in)
	if err != nil {
		return domain.Withdrawal{}, err
	}
	if err := s.balances.Refresh(ctx); err != nil {
		slog.Warn("Session: balance refresh after withdrawal failed", "session", s.short(), "error", err)
	}
	return w, nil
}

// Transactions lists fiat payment history.
func (s *Session) Transactions(ctx context.Context) ([]domain.FiatTransaction, error) {
	return s.fiat.Transactions(ctx)
}

// Orders lists the most recent exchange orders.
func (s *Session) Orders(ctx context.Context, limit int) ([]domain.Order, error) {
	return s.gateway.FetchOrders(ctx, limit)
}

func (s *Session) short() string {
	if len(s.key) > 8 {
		return s.key[:8]
	}
	return s.key
}
