// Package presentation shapes portfolio valuations into view models and
// reconciles user intents such as watchlist stars.
package presentation

import (
	"fmt"
	"net/url"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/coinsforcollege/intuitionexchange-sub003/internal/domain"
)

const defaultTopAssets = 3

// Card is the compact dashboard summary.
type Card struct {
	Total       string    `json:"total"`
	Crypto      string    `json:"crypto"`
	Cash        string    `json:"cash"`
	Subtitle    string    `json:"subtitle"`
	TopAssets   []CardRow `json:"topAssets"`
	PricesStale bool      `json:"pricesStale"`
}

// CardRow is one asset line on the card.
type CardRow struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Value  string `json:"value"`
	Share  string `json:"share"`
	Color  string `json:"color"`
}

// TableRow is one row of the full portfolio table.
type TableRow struct {
	Symbol  string `json:"symbol"`
	Name    string `json:"name"`
	Balance string `json:"balance"`
	Price   string `json:"price"`
	Value   string `json:"value"`
	Change  string `json:"change"`
	Color   string `json:"color"`
	IconURL string `json:"iconUrl,omitempty"`
	Watched bool   `json:"watched"`
	BuyPath string `json:"buyPath,omitempty"`
}

// TableView is the full wallet table with its totals.
type TableView struct {
	Rows          []TableRow `json:"rows"`
	Total         string     `json:"total"`
	Crypto        string     `json:"crypto"`
	Cash          string     `json:"cash"`
	PricesStale   bool       `json:"pricesStale"`
	BalancesStale bool       `json:"balancesStale"`
}

// WatchlistRow is one watched asset, held or not.
type WatchlistRow struct {
	Symbol  string `json:"symbol"`
	Name    string `json:"name"`
	Price   string `json:"price"`
	Change  string `json:"change"`
	Held    bool   `json:"held"`
	Balance string `json:"balance,omitempty"`
	Color   string `json:"color"`
	IconURL string `json:"iconUrl,omitempty"`
	BuyPath string `json:"buyPath,omitempty"`
	Listed  bool   `json:"listed"`
}

// Adapter builds view models. It holds no mutable state.
type Adapter struct {
	catalog   *domain.Catalog
	topAssets int
}

// NewAdapter creates an Adapter. topAssets <= 0 uses the default of three.
func NewAdapter(catalog *domain.Catalog, topAssets int) *Adapter {
	if topAssets <= 0 {
		topAssets = defaultTopAssets
	}
	return &Adapter{catalog: catalog, topAssets: topAssets}
}

// Card builds the compact summary. Top assets are the highest valued
// non-zero rows, cash included.
func (a *Adapter) Card(p domain.Portfolio) Card {
	held := lo.Filter(p.Assets, func(v domain.ValuedAsset, _ int) bool {
		return v.USDValue.IsPositive()
	})

	top := lo.Map(lo.Slice(held, 0, a.topAssets), func(v domain.ValuedAsset, _ int) CardRow {
		return CardRow{
			Symbol: v.Symbol,
			Name:   v.Name,
			Value:  domain.FormatUSD(v.USDValue),
			Share:  share(v.USDValue, p.Totals.TotalValue),
			Color:  v.Color,
		}
	})

	return Card{
		Total:       domain.FormatUSD(p.Totals.TotalValue),
		Crypto:      domain.FormatUSD(p.Totals.CryptoValue),
		Cash:        domain.FormatUSD(p.Totals.CashValue),
		Subtitle:    subtitle(len(held), p.PricesStale || p.BalancesStale),
		TopAssets:   top,
		PricesStale: p.PricesStale,
	}
}

// Table builds the full table. watched marks rows whose symbol is in the watchlist.
func (a *Adapter) Table(p domain.Portfolio, watched []string) TableView {
	set := lo.SliceToMap(watched, func(s string) (string, struct{}) {
		return domain.NormalizeSymbol(s), struct{}{}
	})

	rows := lo.Map(p.Assets, func(v domain.ValuedAsset, _ int) TableRow {
		_, isWatched := set[v.Symbol]
		row := TableRow{
			Symbol:  v.Symbol,
			Name:    v.Name,
			Balance: v.BalanceDisplay,
			Price:   domain.FormatUSD(v.Price),
			Value:   domain.FormatUSD(v.USDValue),
			Change:  domain.FormatPercent(v.ChangePercent),
			Color:   v.Color,
			IconURL: v.IconURL,
			Watched: isWatched,
		}
		if !v.IsCash() {
			row.BuyPath = BuyShortcut(v.Symbol)
		}
		return row
	})

	return TableView{
		Rows:          rows,
		Total:         domain.FormatUSD(p.Totals.TotalValue),
		Crypto:        domain.FormatUSD(p.Totals.CryptoValue),
		Cash:          domain.FormatUSD(p.Totals.CashValue),
		PricesStale:   p.PricesStale,
		BalancesStale: p.BalancesStale,
	}
}

// WatchlistRows builds one row per member in member order. Assets without a
// USD pair are shown with a zero price and Listed false.
func (a *Adapter) WatchlistRows(members []string, pairs []domain.TradingPair, p domain.Portfolio) []WatchlistRow {
	return lo.Map(members, func(symbol string, _ int) WatchlistRow {
		symbol = domain.NormalizeSymbol(symbol)
		meta := a.catalog.Lookup(symbol)
		row := WatchlistRow{
			Symbol:  symbol,
			Name:    meta.Name,
			Price:   domain.FormatUSD(decimal.Zero),
			Change:  domain.FormatPercent(decimal.Zero),
			Color:   meta.Color,
			IconURL: meta.IconURL,
		}

		if pair, ok := domain.FindUSDPair(pairs, symbol); ok {
			row.Listed = true
			row.Price = domain.FormatUSD(pair.Price)
			row.Change = domain.FormatPercent(pair.Change)
			if pair.Name != "" {
				row.Name = pair.Name
			}
			if pair.IconURL != "" {
				row.IconURL = pair.IconURL
			}
			row.BuyPath = BuyShortcut(symbol)
		}

		if asset, ok := p.Asset(symbol); ok && !asset.Balance.IsZero() {
			row.Held = true
			row.Balance = asset.BalanceDisplay
		}
		return row
	})
}

// BuyShortcut returns the trade page path for buying asset with USD.
func BuyShortcut(asset string) string {
	return "/trade/" + url.PathEscape(domain.NormalizeSymbol(asset)+"-"+domain.USDSymbol)
}

func share(value, total decimal.Decimal) string {
	if !total.IsPositive() {
		return "0.0%"
	}
	return value.Div(total).Mul(decimal.NewFromInt(100)).StringFixed(1) + "%"
}

func subtitle(held int, stale bool) string {
	var s string
	switch held {
	case 0:
		s = "No assets yet"
	case 1:
		s = "1 asset"
	default:
		s = fmt.Sprintf("%d assets", held)
	}
	if stale {
		s += " (prices may be out of date)"
	}
	return s
}
