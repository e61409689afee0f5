package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is a recent exchange order shown in history views.
type Order struct {
	ID        string          `json:"id"`
	Pair      string          `json:"pair"`
	Side      string          `json:"side"`
	Type      string          `json:"type"`
	Price     decimal.Decimal `json:"price"`
	Quantity  decimal.Decimal `json:"quantity"`
	Filled    decimal.Decimal `json:"filled"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
}

// WatchlistEntry is one asset the user flagged for tracking.
type WatchlistEntry struct {
	Asset string `json:"asset"`
}
