package domain

import "github.com/shopspring/decimal"

// AssetBalance is the account holding of a single asset.
// Available plus locked equals balance; the server guarantees it.
type AssetBalance struct {
	Asset            string          `json:"asset"`
	Balance          decimal.Decimal `json:"balance"`
	AvailableBalance decimal.Decimal `json:"availableBalance"`
	LockedBalance    decimal.Decimal `json:"lockedBalance"`
}

// BalanceOf returns the total balance of symbol, or zero when it is not held.
// Later entries win when a symbol appears more than once.
func BalanceOf(balances []AssetBalance, symbol string) decimal.Decimal {
	symbol = NormalizeSymbol(symbol)
	result := decimal.Zero
	for _, b := range balances {
		if NormalizeSymbol(b.Asset) == symbol {
			result = b.Balance
		}
	}
	return result
}
