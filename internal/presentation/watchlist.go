package presentation

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/coinsforcollege/intuitionexchange-sub003/internal/domain"
)

// WatchlistService is the server side of the watchlist.
type WatchlistService interface {
	FetchWatchlist(ctx context.Context) ([]string, error)
	ToggleWatchlist(ctx context.Context, asset string) (bool, error)
}

// Watchlist overlays optimistic toggles on the server-confirmed membership.
// The server answer always wins: a toggle response overwrites the pending
// flip and Refresh discards every pending flip.
type Watchlist struct {
	service WatchlistService

	mu        sync.RWMutex
	confirmed map[string]struct{}
	pending   map[string]bool
	lastErr   error
}

// NewWatchlist creates an empty overlay.
func NewWatchlist(service WatchlistService) *Watchlist {
	return &Watchlist{
		service:   service,
		confirmed: make(map[string]struct{}),
		pending:   make(map[string]bool),
	}
}

// Refresh replaces confirmed membership with the server list.
func (w *Watchlist) Refresh(ctx context.Context) error {
	assets, err := w.service.FetchWatchlist(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.lastErr = err
		slog.Warn("Watchlist: refresh failed, keeping previous list", "error", err)
		return fmt.Errorf("refreshing watchlist: %w", err)
	}

	w.confirmed = make(map[string]struct{}, len(assets))
	for _, a := range assets {
		if a = domain.NormalizeSymbol(a); a != "" {
			w.confirmed[a] = struct{}{}
		}
	}
	w.pending = make(map[string]bool)
	w.lastErr = nil
	return nil
}

// Toggle flips membership of asset locally, then asks the server. On success
// membership is set to the server's answer; on failure the local flip is
// reverted. Returns whether the asset is now watched.
func (w *Watchlist) Toggle(ctx context.Context, asset string) (bool, error) {
	asset = domain.NormalizeSymbol(asset)
	if asset == "" {
		return false, &domain.ValidationError{Field: "asset", Message: "is required"}
	}

	w.mu.Lock()
	want := !w.isMember(asset)
	w.pending[asset] = want
	w.mu.Unlock()

	added, err := w.service.ToggleWatchlist(ctx, asset)

	w.mu.Lock()
	defer w.mu.Unlock()
	if flip, ok := w.pending[asset]; ok && flip == want {
		delete(w.pending, asset)
	}
	if err != nil {
		slog.Warn("Watchlist: toggle failed, reverting", "asset", asset, "error", err)
		return w.isMember(asset), fmt.Errorf("toggling watchlist %s: %w", asset, err)
	}

	if added {
		w.confirmed[asset] = struct{}{}
	} else {
		delete(w.confirmed, asset)
	}
	return added, nil
}

// Contains reports whether asset is a member, pending flips included.
func (w *Watchlist) Contains(asset string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.isMember(domain.NormalizeSymbol(asset))
}

// Members returns confirmed membership with pending flips applied, sorted.
func (w *Watchlist) Members() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	members := make([]string, 0, len(w.confirmed)+len(w.pending))
	for a := range w.confirmed {
		if flip, ok := w.pending[a]; ok && !flip {
			continue
		}
		members = append(members, a)
	}
	for a, flip := range w.pending {
		if _, ok := w.confirmed[a]; flip && !ok {
			members = append(members, a)
		}
	}
	slices.Sort(members)
	return members
}

// Pending reports whether asset has an unconfirmed flip.
func (w *Watchlist) Pending(asset string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.pending[domain.NormalizeSymbol(asset)]
	return ok
}

// Err returns the error of the most recent refresh.
func (w *Watchlist) Err() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastErr
}

func (w *Watchlist) isMember(asset string) bool {
	if flip, ok := w.pending[asset]; ok {
		return flip
	}
	_, ok := w.confirmed[asset]
	return ok
}
