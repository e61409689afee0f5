package domain

import "time"

// HistoryEntry is the recorded end-of-day valuation of one account.
type HistoryEntry struct {
	AccountKey string          `json:"accountKey"`
	Date       time.Time       `json:"date"`
	Totals     PortfolioTotals `json:"totals"`
	Assets     []ValuedAsset   `json:"assets"`
	CreatedAt  time.Time       `json:"createdAt,omitempty"`
}
