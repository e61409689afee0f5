package export

import (
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/coinsforcollege/intuitionexchange-sub003/internal/domain"
)

var (
	portfolioHeader = []any{"Asset", "Name", "Balance", "Price USD", "Value USD", "24h Change %", "Share %"}
	historyHeader   = []any{"Date", "Account", "Total USD", "Crypto USD", "Cash USD", "Assets"}
)

// buildPortfolioRows builds the PORTFOLIO sheet: header, one row per asset,
// a blank separator and the three totals.
func buildPortfolioRows(p domain.Portfolio) [][]any {
	data := make([][]any, 0, len(p.Assets)+5)
	data = append(data, portfolioHeader)

	for _, a := range p.Assets {
		data = append(data, []any{
			a.Symbol,
			a.Name,
			toFloat(a.Balance),
			toFloat(a.Price),
			toFloat(a.USDValue),
			toFloat(a.ChangePercent),
			toFloat(sharePercent(a.USDValue, p.Totals.TotalValue)),
		})
	}

	data = append(data,
		[]any{},
		[]any{"Total", "", "", "", toFloat(p.Totals.TotalValue)},
		[]any{"Crypto", "", "", "", toFloat(p.Totals.CryptoValue)},
		[]any{"Cash", "", "", "", toFloat(p.Totals.CashValue)},
	)
	return data
}

// buildHistoryRows builds data rows for the history sheet, one per entry,
// oldest first. Account keys are shortened to their first eight characters.
func buildHistoryRows(entries []domain.HistoryEntry) [][]any {
	sorted := append([]domain.HistoryEntry(nil), entries...)
	slices.SortStableFunc(sorted, func(a, b domain.HistoryEntry) int {
		return a.Date.Compare(b.Date)
	})

	return lo.Map(sorted, func(e domain.HistoryEntry, _ int) []any {
		held := lo.Map(e.Assets, func(a domain.ValuedAsset, _ int) string { return a.Symbol })
		return []any{
			e.Date.UTC().Format(time.DateOnly),
			shortKey(e.AccountKey),
			toFloat(e.Totals.TotalValue),
			toFloat(e.Totals.CryptoValue),
			toFloat(e.Totals.CashValue),
			strings.Join(held, ","),
		}
	})
}

func sharePercent(value, total decimal.Decimal) decimal.Decimal {
	if !total.IsPositive() {
		return decimal.Zero
	}
	return value.Div(total).Mul(decimal.NewFromInt(100)).Round(2)
}

func shortKey(key string) string {
	if len(key) > 8 {
		return key[:8]
	}
	return key
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
