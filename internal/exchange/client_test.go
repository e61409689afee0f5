package exchange

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coinsforcollege/intuitionexchange-sub003/internal/domain"
)

func newTestClient(url string) *Client {
	return NewClient(url, 3, time.Millisecond, 0)
}

func TestFetchTickers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tickers" {
			t.Errorf("path = %q, want /tickers", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"ETH": {"USD": {"price": "3000", "openDay": "2500", "pair": "ETH-USD"}},
			"BTC": {
				"USD": {"price": 50000, "openDay": 50000, "pair": "BTC-USD", "name": "Bitcoin"},
				"EUR": {"price": "46000", "openDay": "0", "pair": "BTC-EUR"}
			}
		}`))
	}))
	defer server.Close()

	pairs, err := newTestClient(server.URL).FetchTickers(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"BTC-EUR", "BTC-USD", "ETH-USD"}
	if len(pairs) != len(want) {
		t.Fatalf("len(pairs) = %d, want %d", len(pairs), len(want))
	}
	for i, p := range pairs {
		if p.Symbol() != want[i] {
			t.Errorf("pairs[%d] = %s, want %s", i, p.Symbol(), want[i])
		}
	}

	eth := pairs[2]
	if !eth.Price.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("ETH price = %s, want 3000", eth.Price)
	}
	if !eth.Change.Equal(decimal.NewFromInt(20)) {
		t.Errorf("ETH change = %s, want 20", eth.Change)
	}
	if pairs[1].Name != "Bitcoin" {
		t.Errorf("BTC name = %q, want Bitcoin", pairs[1].Name)
	}
	if !pairs[0].Change.IsZero() {
		t.Errorf("BTC-EUR change = %s, want 0 with zero open", pairs[0].Change)
	}
}

func TestFetchBalancesSendsToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer user-token" {
			t.Errorf("Authorization = %q, want Bearer user-token", got)
		}
		w.Write([]byte(`[{"asset":"btc","balance":"1.5","availableBalance":"1","lockedBalance":"0.5"}]`))
	}))
	defer server.Close()

	balances, err := newTestClient(server.URL).WithToken("user-token").FetchBalances(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(balances) != 1 || balances[0].Asset != "BTC" {
		t.Fatalf("balances = %+v, want one BTC entry", balances)
	}
	if !balances[0].LockedBalance.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("locked = %s, want 0.5", balances[0].LockedBalance)
	}
}

func TestGetRetriesOn429And5xx(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch attempts.Add(1) {
		case 1:
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.Write([]byte(`[{"asset":"ETH"}]`))
		}
	}))
	defer server.Close()

	got, err := newTestClient(server.URL).FetchWatchlist(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] != "ETH" {
		t.Errorf("watchlist = %v, want [ETH]", got)
	}
	if n := attempts.Load(); n != 3 {
		t.Errorf("attempts = %d, want 3", n)
	}
}

func TestGetMaxRetriesExceeded(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, 2, time.Millisecond, 0).FetchOrders(context.Background(), 10)
	if !errors.Is(err, domain.ErrNetwork) {
		t.Fatalf("err = %v, want ErrNetwork", err)
	}
	if n := attempts.Load(); n != 3 {
		t.Errorf("attempts = %d, want 3", n)
	}
}

func TestPostDoesNotRetryServerError(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).CreateWithdrawal(context.Background(), WithdrawalRequest{
		Amount: decimal.NewFromInt(50), Currency: "USD", BankAccountID: "ba_1", ClientReference: "ref-1",
	})
	if !errors.Is(err, domain.ErrNetwork) {
		t.Fatalf("err = %v, want ErrNetwork", err)
	}
	if n := attempts.Load(); n != 1 {
		t.Errorf("attempts = %d, want 1", n)
	}
}

func TestBusinessRuleRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"code":"INSUFFICIENT_BALANCE","message":"Insufficient balance"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).CreateWithdrawal(context.Background(), WithdrawalRequest{
		Amount: decimal.NewFromInt(5000), Currency: "USD", BankAccountID: "ba_1", ClientReference: "ref-2",
	})
	if !errors.Is(err, domain.ErrBusinessRule) {
		t.Fatalf("err = %v, want ErrBusinessRule", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Code != "INSUFFICIENT_BALANCE" || apiErr.Message != "Insufficient balance" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"token expired"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchBalances(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if !strings.Contains(err.Error(), "token expired") {
		t.Errorf("err = %q, want upstream message", err.Error())
	}
}

func TestToggleWatchlist(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"asset":"SOL"}` {
			t.Errorf("body = %s", body)
		}
		w.Write([]byte(`{"added":true}`))
	}))
	defer server.Close()

	added, err := newTestClient(server.URL).ToggleWatchlist(context.Background(), "sol")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !added {
		t.Error("added = false, want true")
	}
}

func TestCreateDepositIntentSendsIdempotencyKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fiat/deposit-intent" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Idempotency-Key"); got != "ref-9" {
			t.Errorf("Idempotency-Key = %q, want ref-9", got)
		}
		w.Write([]byte(`{"id":"pi_1","amount":"25","currency":"USD","status":"requires_payment","clientSecret":"sec"}`))
	}))
	defer server.Close()

	intent, err := newTestClient(server.URL).CreateDepositIntent(context.Background(), DepositIntentRequest{
		Amount: decimal.NewFromInt(25), Currency: "USD", ClientReference: "ref-9",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if intent.ID != "pi_1" || intent.ClientReference != "ref-9" {
		t.Errorf("intent = %+v", intent)
	}
}

func TestFetchOrdersLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("limit"); got != "5" {
			t.Errorf("limit = %q, want 5", got)
		}
		w.Write([]byte(`[{"id":"o1","pair":"BTC-USD","side":"buy","type":"limit","price":"50000","quantity":"0.1","filled":"0.05","status":"partially_filled","createdAt":"2026-01-02T03:04:05Z"}]`))
	}))
	defer server.Close()

	orders, err := newTestClient(server.URL).FetchOrders(context.Background(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 1 || orders[0].Pair != "BTC-USD" {
		t.Fatalf("orders = %+v", orders)
	}
	if orders[0].CreatedAt.Year() != 2026 {
		t.Errorf("createdAt = %v", orders[0].CreatedAt)
	}
}

func TestMalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchFiatTransactions(context.Background())
	if !errors.Is(err, domain.ErrNetwork) {
		t.Errorf("err = %v, want ErrNetwork", err)
	}
}
