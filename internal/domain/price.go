package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// TradingPair is the latest ticker for a base/quote combination.
type TradingPair struct {
	BaseCurrency string          `json:"baseCurrency"`
	Quote        string          `json:"quote"`
	Price        decimal.Decimal `json:"price"`
	Change       decimal.Decimal `json:"change"` // percent since the open of the day
	Name         string          `json:"name,omitempty"`
	IconURL      string          `json:"iconUrl,omitempty"`
}

// Symbol returns the "BASE-QUOTE" form used by the trade screens.
func (p TradingPair) Symbol() string {
	return p.BaseCurrency + "-" + p.Quote
}

// IsUSD reports whether the pair can be used for USD valuation.
func (p TradingPair) IsUSD() bool {
	return NormalizeSymbol(p.Quote) == USDSymbol
}

// ChangePercent computes the percentage move from open to price.
// Returns zero when open is zero.
func ChangePercent(price, open decimal.Decimal) decimal.Decimal {
	if open.IsZero() {
		return decimal.Zero
	}
	return price.Sub(open).Div(open).Mul(hundred)
}

// FindUSDPair returns the first USD-quoted pair for base, if any.
func FindUSDPair(pairs []TradingPair, base string) (TradingPair, bool) {
	base = NormalizeSymbol(base)
	for _, p := range pairs {
		if p.IsUSD() && NormalizeSymbol(p.BaseCurrency) == base {
			return p, true
		}
	}
	return TradingPair{}, false
}
