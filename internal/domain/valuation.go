package domain

import "github.com/shopspring/decimal"

// ValuedAsset is one displayable row of the portfolio. Always derived from
// balances and pairs, never mutated.
type ValuedAsset struct {
	Symbol         string          `json:"symbol"`
	Name           string          `json:"name"`
	Balance        decimal.Decimal `json:"balance"`
	BalanceDisplay string          `json:"balanceDisplay"`
	Price          decimal.Decimal `json:"price"`
	USDValue       decimal.Decimal `json:"usdValue"`
	ChangePercent  decimal.Decimal `json:"changePercent"`
	Color          string          `json:"color"`
	IconURL        string          `json:"iconUrl,omitempty"`
	Required       bool            `json:"required"`
}

// IsCash reports whether the row is the USD cash asset.
func (v ValuedAsset) IsCash() bool {
	return v.Symbol == USDSymbol
}

// PortfolioTotals splits the portfolio value into crypto and cash.
// TotalValue always equals CryptoValue plus CashValue.
type PortfolioTotals struct {
	TotalValue  decimal.Decimal `json:"totalValue"`
	CryptoValue decimal.Decimal `json:"cryptoValue"`
	CashValue   decimal.Decimal `json:"cashValue"`
}

// Portfolio is the aggregator output for one account.
type Portfolio struct {
	Assets        []ValuedAsset   `json:"assets"`
	Totals        PortfolioTotals `json:"totals"`
	PricesStale   bool            `json:"pricesStale"`
	BalancesStale bool            `json:"balancesStale"`
}

// Asset returns the row for symbol, if present.
func (p Portfolio) Asset(symbol string) (ValuedAsset, bool) {
	symbol = NormalizeSymbol(symbol)
	for _, a := range p.Assets {
		if a.Symbol == symbol {
			return a, true
		}
	}
	return ValuedAsset{}, false
}
