// Package valuation turns balances and a price table into the sorted,
// USD-valued asset list shown on the dashboard, wallet and watchlist pages.
package valuation

import (
	"cmp"
	"slices"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/coinsforcollege/intuitionexchange-sub003/internal/domain"
)

// Aggregator derives portfolios using a display catalog.
// It holds no state besides the catalog, so Aggregate may be called at any time.
type Aggregator struct {
	catalog *domain.Catalog
}

// NewAggregator creates an Aggregator. A nil catalog falls back to symbols as names.
func NewAggregator(catalog *domain.Catalog) *Aggregator {
	return &Aggregator{catalog: catalog}
}

// Aggregate values every required asset and every other held asset in USD,
// sorts them and computes the totals. Identical inputs give identical output.
func (a *Aggregator) Aggregate(balances []domain.AssetBalance, pairs []domain.TradingPair, requiredAssets []string) domain.Portfolio {
	required := lo.Uniq(lo.Map(requiredAssets, func(s string, _ int) string {
		return domain.NormalizeSymbol(s)
	}))
	requiredRank := make(map[string]int, len(required))
	for i, s := range required {
		requiredRank[s] = i
	}

	bySymbol := make(map[string]domain.AssetBalance, len(balances))
	var order []string
	for _, b := range balances {
		symbol := domain.NormalizeSymbol(b.Asset)
		if _, seen := bySymbol[symbol]; !seen {
			order = append(order, symbol)
		}
		bySymbol[symbol] = b
	}

	// The first USD pair per base wins, matching domain.FindUSDPair.
	usdPairs := lo.SliceToMap(lo.UniqBy(lo.Filter(pairs, func(p domain.TradingPair, _ int) bool {
		return p.IsUSD()
	}), func(p domain.TradingPair) string {
		return domain.NormalizeSymbol(p.BaseCurrency)
	}), func(p domain.TradingPair) (string, domain.TradingPair) {
		return domain.NormalizeSymbol(p.BaseCurrency), p
	})

	rows := make([]domain.ValuedAsset, 0, len(required)+len(order))
	for _, symbol := range required {
		qty := decimal.Zero
		if b, ok := bySymbol[symbol]; ok {
			qty = b.Balance
		}
		rows = append(rows, a.value(symbol, qty, usdPairs, true))
	}
	for _, symbol := range order {
		if _, isRequired := requiredRank[symbol]; isRequired {
			continue
		}
		qty := bySymbol[symbol].Balance
		if qty.IsZero() {
			continue
		}
		rows = append(rows, a.value(symbol, qty, usdPairs, false))
	}

	index := make(map[string]int, len(rows))
	for i, r := range rows {
		index[r.Symbol] = i
	}
	slices.SortStableFunc(rows, func(x, y domain.ValuedAsset) int {
		if c := y.USDValue.Cmp(x.USDValue); c != 0 {
			return c
		}
		switch {
		case x.Required && y.Required:
			return cmp.Compare(requiredRank[x.Symbol], requiredRank[y.Symbol])
		case x.Required:
			return -1
		case y.Required:
			return 1
		default:
			return cmp.Compare(index[x.Symbol], index[y.Symbol])
		}
	})

	return domain.Portfolio{
		Assets: rows,
		Totals: Totals(rows),
	}
}

// Totals sums row values, counting the USD row as cash and everything else as crypto.
func Totals(rows []domain.ValuedAsset) domain.PortfolioTotals {
	cash := lo.Reduce(rows, func(acc decimal.Decimal, r domain.ValuedAsset, _ int) decimal.Decimal {
		if r.IsCash() {
			return acc.Add(r.USDValue)
		}
		return acc
	}, decimal.Zero)

	crypto := lo.Reduce(rows, func(acc decimal.Decimal, r domain.ValuedAsset, _ int) decimal.Decimal {
		if r.IsCash() {
			return acc
		}
		return acc.Add(r.USDValue)
	}, decimal.Zero)

	return domain.PortfolioTotals{
		TotalValue:  crypto.Add(cash),
		CryptoValue: crypto,
		CashValue:   cash,
	}
}

func (a *Aggregator) value(symbol string, qty decimal.Decimal, usdPairs map[string]domain.TradingPair, required bool) domain.ValuedAsset {
	meta := a.catalog.Lookup(symbol)

	price := decimal.Zero
	change := decimal.Zero
	if symbol == domain.USDSymbol {
		price = decimal.NewFromInt(1)
	} else if pair, ok := usdPairs[symbol]; ok {
		price = pair.Price
		change = pair.Change
		if pair.Name != "" {
			meta.Name = pair.Name
		}
		if pair.IconURL != "" {
			meta.IconURL = pair.IconURL
		}
	}

	return domain.ValuedAsset{
		Symbol:         symbol,
		Name:           meta.Name,
		Balance:        qty,
		BalanceDisplay: domain.FormatAmount(symbol, qty),
		Price:          price,
		USDValue:       qty.Mul(price),
		ChangePercent:  change,
		Color:          meta.Color,
		IconURL:        meta.IconURL,
		Required:       required,
	}
}
