package exchange

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/coinsforcollege/intuitionexchange-sub003/internal/domain"
)

// tickerQuote is one quote entry of GET /tickers.
type tickerQuote struct {
	Price   decimal.Decimal `json:"price"`
	OpenDay decimal.Decimal `json:"openDay"`
	Pair    string          `json:"pair"`
	Name    string          `json:"name"`
	IconURL string          `json:"iconUrl"`
}

// FetchTickers returns every pair of the ticker table, sorted by base then quote.
// Response shape: {"BTC":{"USD":{"price":"64000","openDay":"63000","pair":"BTC-USD"}}}.
func (c *Client) FetchTickers(ctx context.Context) ([]domain.TradingPair, error) {
	var raw map[string]map[string]tickerQuote
	if err := c.getJSON(ctx, "/tickers", &raw); err != nil {
		return nil, fmt.Errorf("fetching tickers: %w", err)
	}

	pairs := make([]domain.TradingPair, 0, len(raw))
	for base, quotes := range raw {
		for quote, q := range quotes {
			pairs = append(pairs, domain.TradingPair{
				BaseCurrency: domain.NormalizeSymbol(base),
				Quote:        domain.NormalizeSymbol(quote),
				Price:        q.Price,
				Change:       domain.ChangePercent(q.Price, q.OpenDay),
				Name:         q.Name,
				IconURL:      q.IconURL,
			})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].BaseCurrency != pairs[j].BaseCurrency {
			return pairs[i].BaseCurrency < pairs[j].BaseCurrency
		}
		return pairs[i].Quote < pairs[j].Quote
	})
	return pairs, nil
}

// FetchBalances returns the authenticated account's balances.
func (c *Client) FetchBalances(ctx context.Context) ([]domain.AssetBalance, error) {
	var balances []domain.AssetBalance
	if err := c.getJSON(ctx, "/balances", &balances); err != nil {
		return nil, fmt.Errorf("fetching balances: %w", err)
	}
	return lo.Map(balances, func(b domain.AssetBalance, _ int) domain.AssetBalance {
		b.Asset = domain.NormalizeSymbol(b.Asset)
		return b
	}), nil
}

// FetchWatchlist returns the watched asset symbols.
func (c *Client) FetchWatchlist(ctx context.Context) ([]string, error) {
	var entries []domain.WatchlistEntry
	if err := c.getJSON(ctx, "/watchlist", &entries); err != nil {
		return nil, fmt.Errorf("fetching watchlist: %w", err)
	}
	return lo.Uniq(lo.Map(entries, func(e domain.WatchlistEntry, _ int) string {
		return domain.NormalizeSymbol(e.Asset)
	})), nil
}

// ToggleWatchlist flips membership of asset and reports whether it is now watched.
func (c *Client) ToggleWatchlist(ctx context.Context, asset string) (bool, error) {
	var resp struct {
		Added bool `json:"added"`
	}
	body := domain.WatchlistEntry{Asset: domain.NormalizeSymbol(asset)}
	if err := c.postJSON(ctx, "/watchlist", body, nil, &resp); err != nil {
		return false, fmt.Errorf("toggling watchlist for %s: %w", body.Asset, err)
	}
	return resp.Added, nil
}

// DepositIntentRequest is the body of POST /fiat/deposit-intent.
type DepositIntentRequest struct {
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	ClientReference string          `json:"clientReference"`
}

// CreateDepositIntent opens a deposit at the payment processor.
func (c *Client) CreateDepositIntent(ctx context.Context, req DepositIntentRequest) (domain.DepositIntent, error) {
	var intent domain.DepositIntent
	headers := map[string]string{"Idempotency-Key": req.ClientReference}
	if err := c.postJSON(ctx, "/fiat/deposit-intent", req, headers, &intent); err != nil {
		return domain.DepositIntent{}, fmt.Errorf("creating deposit intent: %w", err)
	}
	if intent.ClientReference == "" {
		intent.ClientReference = req.ClientReference
	}
	return intent, nil
}

// WithdrawalRequest is the body of POST /fiat/withdrawals.
type WithdrawalRequest struct {
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	BankAccountID   string          `json:"bankAccountId"`
	ClientReference string          `json:"clientReference"`
}

// CreateWithdrawal requests a fiat payout.
func (c *Client) CreateWithdrawal(ctx context.Context, req WithdrawalRequest) (domain.Withdrawal, error) {
	var w domain.Withdrawal
	headers := map[string]string{"Idempotency-Key": req.ClientReference}
	if err := c.postJSON(ctx, "/fiat/withdrawals", req, headers, &w); err != nil {
		return domain.Withdrawal{}, fmt.Errorf("creating withdrawal: %w", err)
	}
	if w.ClientReference == "" {
		w.ClientReference = req.ClientReference
	}
	return w, nil
}

// FetchFiatTransactions returns the fiat payment history.
func (c *Client) FetchFiatTransactions(ctx context.Context) ([]domain.FiatTransaction, error) {
	var txs []domain.FiatTransaction
	if err := c.getJSON(ctx, "/fiat/transactions", &txs); err != nil {
		return nil, fmt.Errorf("fetching fiat transactions: %w", err)
	}
	return txs, nil
}

// FetchOrders returns recent orders, newest first as served. limit <= 0 lets the server decide.
func (c *Client) FetchOrders(ctx context.Context, limit int) ([]domain.Order, error) {
	path := "/orders"
	if limit > 0 {
		path += "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	}
	var orders []domain.Order
	if err := c.getJSON(ctx, path, &orders); err != nil {
		return nil, fmt.Errorf("fetching orders: %w", err)
	}
	return orders, nil
}
