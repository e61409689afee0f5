package portfolio

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/coinsforcollege/intuitionexchange-sub003/internal/domain"
)

// ErrNoSession is returned when no live session exists for a token.
var ErrNoSession = errors.New("no session for token")

// Factory builds an uninitialized session for a registry key and bearer token.
type Factory func(key, token string) *Session

// SessionObserver tracks the number of live sessions.
type SessionObserver interface {
	SetActiveSessions(n int)
}

// Registry holds live sessions keyed by a hash of the bearer token. Idle
// sessions expire after the TTL and are torn down on eviction.
type Registry struct {
	sessions *cache.Cache
	factory  Factory
	observer SessionObserver
	opening  singleflight.Group
}

// NewRegistry creates a registry whose sessions expire after idleTTL without use.
func NewRegistry(idleTTL time.Duration, factory Factory, observer SessionObserver) *Registry {
	if idleTTL <= 0 {
		idleTTL = 30 * time.Minute
	}
	return newRegistry(idleTTL, idleTTL/2, factory, observer)
}

func newRegistry(idleTTL, cleanup time.Duration, factory Factory, observer SessionObserver) *Registry {
	r := &Registry{
		sessions: cache.New(idleTTL, cleanup),
		factory:  factory,
		observer: observer,
	}
	r.sessions.OnEvicted(func(key string, v any) {
		if s, ok := v.(*Session); ok {
			s.Teardown()
		}
		slog.Info("SessionRegistry: session evicted", "session", key[:min(8, len(key))])
		r.observe()
	})
	return r
}

// Key derives the registry key of a bearer token.
func Key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Open returns the live session for token, creating and initializing one if
// needed. Concurrent opens for the same token share one initialization.
func (r *Registry) Open(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrNoSession
	}
	key := Key(token)
	if s, ok := r.lookup(key); ok {
		return s, nil
	}

	v, err, _ := r.opening.Do(key, func() (any, error) {
		if s, ok := r.lookup(key); ok {
			return s, nil
		}
		// An expired entry is invisible to Get but still stored until the
		// janitor runs, and overwriting it skips OnEvicted.
		r.sessions.DeleteExpired()

		s := r.factory(key, token)
		if err := s.Init(ctx); err != nil {
			s.Teardown()
			return nil, err
		}
		r.sessions.SetDefault(key, s)
		r.observe()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

// Get returns the live session for token and extends its idle deadline.
func (r *Registry) Get(token string) (*Session, error) {
	if token == "" {
		return nil, ErrNoSession
	}
	s, ok := r.lookup(Key(token))
	if !ok {
		return nil, ErrNoSession
	}
	return s, nil
}

// Close tears down the session for token. Closing an unknown token is a no-op.
func (r *Registry) Close(token string) {
	r.sessions.Delete(Key(token))
}

// Sessions returns all live sessions ordered by key.
func (r *Registry) Sessions() []*Session {
	items := r.sessions.Items()
	out := make([]*Session, 0, len(items))
	for _, item := range items {
		if s, ok := item.Object.(*Session); ok {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// Portfolios returns the latest valuation of every live session keyed by session key.
func (r *Registry) Portfolios() map[string]domain.Portfolio {
	out := make(map[string]domain.Portfolio)
	for _, s := range r.Sessions() {
		if !s.Closed() {
			out[s.Key()] = s.Portfolio()
		}
	}
	return out
}

// Len returns the number of live sessions, expired ones included until the janitor runs.
func (r *Registry) Len() int {
	return r.sessions.ItemCount()
}

// Shutdown tears down every session.
func (r *Registry) Shutdown() {
	for key := range r.sessions.Items() {
		r.sessions.Delete(key)
	}
}

// DeleteExpired evicts expired sessions now instead of waiting for the janitor.
func (r *Registry) DeleteExpired() {
	r.sessions.DeleteExpired()
}

func (r *Registry) lookup(key string) (*Session, bool) {
	v, ok := r.sessions.Get(key)
	if !ok {
		return nil, false
	}
	s := v.(*Session)
	if s.Closed() {
		return nil, false
	}
	r.sessions.SetDefault(key, s)
	return s, true
}

func (r *Registry) observe() {
	if r.observer != nil {
		r.observer.SetActiveSessions(r.sessions.ItemCount())
	}
}
