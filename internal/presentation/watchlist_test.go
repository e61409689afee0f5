package presentation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinsforcollege/intuitionexchange-sub003/internal/domain"
)

// fakeWatchlistServer toggles membership of a server-side set.
type fakeWatchlistServer struct {
	mu      sync.Mutex
	members map[string]bool
	err     error
	gate    chan struct{}
	entered chan struct{}
}

func newFakeWatchlistServer(initial ...string) *fakeWatchlistServer {
	s := &fakeWatchlistServer{members: make(map[string]bool)}
	for _, a := range initial {
		s.members[a] = true
	}
	return s
}

func (s *fakeWatchlistServer) FetchWatchlist(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]string, 0, len(s.members))
	for a := range s.members {
		out = append(out, a)
	}
	return out, nil
}

func (s *fakeWatchlistServer) ToggleWatchlist(_ context.Context, asset string) (bool, error) {
	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	if s.members[asset] {
		delete(s.members, asset)
		return false, nil
	}
	s.members[asset] = true
	return true, nil
}

func (s *fakeWatchlistServer) list() []string {
	got, _ := s.FetchWatchlist(context.Background())
	return got
}

func TestWatchlistToggleRoundTrip(t *testing.T) {
	server := newFakeWatchlistServer("BTC", "ETH")
	w := NewWatchlist(server)
	require.NoError(t, w.Refresh(context.Background()))
	original := w.Members()

	added, err := w.Toggle(context.Background(), "sol")
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, []string{"BTC", "ETH", "SOL"}, w.Members())
	assert.ElementsMatch(t, server.list(), w.Members())

	added, err = w.Toggle(context.Background(), "SOL")
	require.NoError(t, err)
	assert.False(t, added)

	assert.Equal(t, original, w.Members())
	assert.ElementsMatch(t, server.list(), w.Members())
	assert.False(t, w.Pending("SOL"))
}

func TestWatchlistToggleIsOptimistic(t *testing.T) {
	server := newFakeWatchlistServer()
	server.gate = make(chan struct{})
	server.entered = make(chan struct{})
	w := NewWatchlist(server)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = w.Toggle(context.Background(), "TUIT")
	}()

	<-server.entered
	assert.True(t, w.Contains("TUIT"), "flip should be visible before the server answers")
	assert.True(t, w.Pending("TUIT"))

	close(server.gate)
	<-done
	assert.True(t, w.Contains("TUIT"))
	assert.False(t, w.Pending("TUIT"))
}

func TestWatchlistToggleRevertsOnError(t *testing.T) {
	server := newFakeWatchlistServer("BTC")
	w := NewWatchlist(server)
	require.NoError(t, w.Refresh(context.Background()))

	server.err = domain.ErrNetwork
	watched, err := w.Toggle(context.Background(), "BTC")

	require.ErrorIs(t, err, domain.ErrNetwork)
	assert.True(t, watched)
	assert.Equal(t, []string{"BTC"}, w.Members())
	assert.False(t, w.Pending("BTC"))
}

func TestWatchlistServerAnswerWins(t *testing.T) {
	// Server already has ETH but the local list has not been refreshed.
	server := newFakeWatchlistServer("ETH")
	w := NewWatchlist(server)

	added, err := w.Toggle(context.Background(), "ETH")
	require.NoError(t, err)
	assert.False(t, added)
	assert.False(t, w.Contains("ETH"))
	assert.Empty(t, w.Members())
}

func TestWatchlistRefreshKeepsListOnFailure(t *testing.T) {
	server := newFakeWatchlistServer("USDT")
	w := NewWatchlist(server)
	require.NoError(t, w.Refresh(context.Background()))

	server.err = errors.New("boom")
	require.Error(t, w.Refresh(context.Background()))

	assert.Equal(t, []string{"USDT"}, w.Members())
	assert.Error(t, w.Err())
}

func TestWatchlistToggleRejectsBlankAsset(t *testing.T) {
	w := NewWatchlist(newFakeWatchlistServer())
	_, err := w.Toggle(context.Background(), "  ")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
