package presentation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinsforcollege/intuitionexchange-sub003/internal/domain"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func samplePortfolio() domain.Portfolio {
	return domain.Portfolio{
		Assets: []domain.ValuedAsset{
			{Symbol: "BTC", Name: "Bitcoin", Balance: d("0.1"), BalanceDisplay: "0.1", Price: d("50000"), USDValue: d("5000"), ChangePercent: d("2.5"), Color: "#F7931A", Required: true},
			{Symbol: "USD", Name: "US Dollar", Balance: d("1000"), BalanceDisplay: "1,000.00", Price: d("1"), USDValue: d("1000"), Color: "#85BB65"},
			{Symbol: "ETH", Name: "Ethereum", Balance: decimal.Zero, BalanceDisplay: "0", Price: d("3000"), USDValue: decimal.Zero, Required: true},
		},
		Totals: domain.PortfolioTotals{
			TotalValue:  d("6000"),
			CryptoValue: d("5000"),
			CashValue:   d("1000"),
		},
	}
}

func TestCard(t *testing.T) {
	card := NewAdapter(nil, 1).Card(samplePortfolio())

	assert.Equal(t, "$6,000.00", card.Total)
	assert.Equal(t, "$5,000.00", card.Crypto)
	assert.Equal(t, "$1,000.00", card.Cash)
	assert.Equal(t, "2 assets", card.Subtitle)
	require.Len(t, card.TopAssets, 1)
	assert.Equal(t, "BTC", card.TopAssets[0].Symbol)
	assert.Equal(t, "83.3%", card.TopAssets[0].Share)
}

func TestCardEmptyAndStale(t *testing.T) {
	card := NewAdapter(nil, 0).Card(domain.Portfolio{PricesStale: true})

	assert.Equal(t, "$0.00", card.Total)
	assert.Equal(t, "No assets yet (prices may be out of date)", card.Subtitle)
	assert.Empty(t, card.TopAssets)
	assert.True(t, card.PricesStale)
}

func TestTableMarksWatched(t *testing.T) {
	view := NewAdapter(nil, 0).Table(samplePortfolio(), []string{"eth"})

	require.Len(t, view.Rows, 3)
	assert.False(t, view.Rows[0].Watched)
	assert.True(t, view.Rows[2].Watched)
	assert.Equal(t, "+2.50%", view.Rows[0].Change)
	assert.Equal(t, "/trade/BTC-USD", view.Rows[0].BuyPath)
	assert.Empty(t, view.Rows[1].BuyPath, "cash has no buy shortcut")
	assert.Equal(t, "$6,000.00", view.Total)
}

func TestWatchlistRows(t *testing.T) {
	pairs := []domain.TradingPair{
		{BaseCurrency: "SOL", Quote: "USD", Price: d("150"), Change: d("-1.2"), Name: "Solana"},
		{BaseCurrency: "BTC", Quote: "USD", Price: d("50000"), Change: d("2.5")},
	}

	rows := NewAdapter(domain.NewCatalog(), 0).WatchlistRows([]string{"SOL", "BTC", "XYZ"}, pairs, samplePortfolio())

	require.Len(t, rows, 3)
	assert.Equal(t, "Solana", rows[0].Name)
	assert.Equal(t, "$150.00", rows[0].Price)
	assert.Equal(t, "-1.20%", rows[0].Change)
	assert.False(t, rows[0].Held)

	assert.True(t, rows[1].Held)
	assert.Equal(t, "0.1", rows[1].Balance)
	assert.Equal(t, "Bitcoin", rows[1].Name)

	assert.False(t, rows[2].Listed)
	assert.Equal(t, "$0.00", rows[2].Price)
	assert.Empty(t, rows[2].BuyPath)
}

func TestBuyShortcut(t *testing.T) {
	assert.Equal(t, "/trade/TUIT-USD", BuyShortcut(" tuit "))
}
