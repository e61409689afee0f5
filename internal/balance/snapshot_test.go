package balance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coinsforcollege/intuitionexchange-sub003/internal/domain"
)

// scriptedFetcher returns the scripted responses in order and repeats the last one.
type scriptedFetcher struct {
	mu        sync.Mutex
	responses []fetchResponse
	calls     int
}

type fetchResponse struct {
	balances []domain.AssetBalance
	err      error
}

func (f *scriptedFetcher) FetchBalances(_ context.Context) ([]domain.AssetBalance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := min(f.calls, len(f.responses)-1)
	f.calls++
	return f.responses[i].balances, f.responses[i].err
}

func (f *scriptedFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func usd(amount string) []domain.AssetBalance {
	d := decimal.RequireFromString(amount)
	return []domain.AssetBalance{{Asset: "USD", Balance: d, AvailableBalance: d}}
}

func TestSnapshotRefreshReplaces(t *testing.T) {
	f := &scriptedFetcher{responses: []fetchResponse{
		{balances: []domain.AssetBalance{{Asset: "BTC", Balance: decimal.NewFromInt(1)}, {Asset: "ETH", Balance: decimal.NewFromInt(2)}}},
		{balances: []domain.AssetBalance{{Asset: "BTC", Balance: decimal.NewFromInt(3)}}},
	}}
	s := NewSnapshot(f)

	if !s.Stale() {
		t.Error("Stale() = false before first refresh")
	}
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := s.Balances()
	if len(got) != 1 || !got[0].Balance.Equal(decimal.NewFromInt(3)) {
		t.Errorf("balances = %+v, want only BTC 3", got)
	}
	if !s.BalanceOf("ETH").IsZero() {
		t.Error("ETH survived a full replace")
	}
	if s.Stale() {
		t.Error("Stale() = true after successful refresh")
	}
}

func TestSnapshotKeepsBalancesOnFailure(t *testing.T) {
	boom := errors.New("timeout")
	f := &scriptedFetcher{responses: []fetchResponse{
		{balances: usd("100")},
		{err: boom},
	}}
	s := NewSnapshot(f)

	_ = s.Refresh(context.Background())
	err := s.Refresh(context.Background())

	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if !s.BalanceOf("USD").Equal(decimal.NewFromInt(100)) {
		t.Errorf("USD = %s, want stale 100", s.BalanceOf("USD"))
	}
	if !s.Stale() || !errors.Is(s.Err(), boom) {
		t.Errorf("Stale() = %v, Err() = %v; want true, %v", s.Stale(), s.Err(), boom)
	}
}

func TestSnapshotPublishesOnRefresh(t *testing.T) {
	s := NewSnapshot(&scriptedFetcher{responses: []fetchResponse{{balances: usd("5")}}})
	ch := s.Subscribe()
	defer s.Unsubscribe(ch)

	_ = s.Refresh(context.Background())

	select {
	case got := <-ch:
		if len(got) != 1 || got[0].Asset != "USD" {
			t.Errorf("published = %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("no balances published")
	}
}

func TestAwaitDepositStopsEarly(t *testing.T) {
	f := &scriptedFetcher{responses: []fetchResponse{
		{balances: usd("100")},
		{balances: usd("100")},
		{balances: usd("100")},
		{balances: usd("150")},
	}}
	s := NewSnapshot(f)
	_ = s.Refresh(context.Background())

	res, err := s.AwaitDeposit(context.Background(), DepositWatch{
		Asset: "usd", Delta: decimal.NewFromInt(50), Interval: time.Millisecond, MaxAttempts: 10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !res.Confirmed {
		t.Error("Confirmed = false, want true")
	}
	if res.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", res.Attempts)
	}
	if !res.Before.Equal(decimal.NewFromInt(100)) || !res.After.Equal(decimal.NewFromInt(150)) {
		t.Errorf("before/after = %s/%s, want 100/150", res.Before, res.After)
	}
	if got := f.callCount(); got != 4 {
		t.Errorf("fetch calls = %d, want 4", got)
	}
}

func TestAwaitDepositCapsAttempts(t *testing.T) {
	f := &scriptedFetcher{responses: []fetchResponse{
		{balances: usd("100")},
		{balances: usd("120")},
		{err: errors.New("blip")},
	}}
	s := NewSnapshot(f)
	_ = s.Refresh(context.Background())

	res, err := s.AwaitDeposit(context.Background(), DepositWatch{
		Asset: "USD", Delta: decimal.NewFromInt(50), Interval: time.Millisecond, MaxAttempts: 4,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Confirmed {
		t.Error("Confirmed = true, want false")
	}
	if res.Attempts != 4 {
		t.Errorf("attempts = %d, want 4", res.Attempts)
	}
	if !res.After.Equal(decimal.NewFromInt(120)) {
		t.Errorf("after = %s, want last observed 120", res.After)
	}
}

func TestWatchDepositStop(t *testing.T) {
	f := &scriptedFetcher{responses: []fetchResponse{{balances: usd("0")}}}
	s := NewSnapshot(f)

	poll, err := s.WatchDeposit(context.Background(), DepositWatch{
		Asset: "USD", Delta: decimal.NewFromInt(1), Interval: time.Hour, MaxAttempts: 5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	poll.Stop()

	select {
	case <-poll.Done():
	case <-time.After(time.Second):
		t.Fatal("watch did not stop")
	}
	res := poll.Result()
	if res.Confirmed || res.Attempts != 1 {
		t.Errorf("result = %+v, want one unconfirmed attempt", res)
	}
	if again := poll.Result(); again.Attempts != res.Attempts {
		t.Error("Result() not repeatable")
	}
}

func TestWatchDepositRejectsNonPositiveDelta(t *testing.T) {
	s := NewSnapshot(&scriptedFetcher{responses: []fetchResponse{{}}})
	if _, err := s.WatchDeposit(context.Background(), DepositWatch{Asset: "USD", Delta: decimal.Zero}); !errors.Is(err, ErrInvalidDelta) {
		t.Errorf("err = %v, want ErrInvalidDelta", err)
	}
}
