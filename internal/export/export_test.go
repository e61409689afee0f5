package export

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/coinsforcollege/intuitionexchange-sub003/internal/domain"
)

func samplePortfolio() domain.Portfolio {
	return domain.Portfolio{
		Assets: []domain.ValuedAsset{
			{Symbol: "BTC", Name: "Bitcoin", Balance: decimal.RequireFromString("0.1"), Price: decimal.NewFromInt(50000), USDValue: decimal.NewFromInt(5000), ChangePercent: decimal.RequireFromString("2.5")},
			{Symbol: "USD", Name: "US Dollar", Balance: decimal.NewFromInt(5000), Price: decimal.NewFromInt(1), USDValue: decimal.NewFromInt(5000)},
		},
		Totals: domain.PortfolioTotals{
			TotalValue:  decimal.NewFromInt(10000),
			CryptoValue: decimal.NewFromInt(5000),
			CashValue:   decimal.NewFromInt(5000),
		},
	}
}

func TestBuildPortfolioRows(t *testing.T) {
	rows := buildPortfolioRows(samplePortfolio())

	// header + 2 assets + blank + 3 totals
	if len(rows) != 7 {
		t.Fatalf("expected 7 rows, got %d", len(rows))
	}
	if rows[0][0] != "Asset" {
		t.Errorf("header[0] = %v, want Asset", rows[0][0])
	}
	if rows[1][0] != "BTC" || rows[1][4] != 5000.0 || rows[1][6] != 50.0 {
		t.Errorf("BTC row = %v", rows[1])
	}
	if rows[4][0] != "Total" || rows[4][4] != 10000.0 {
		t.Errorf("total row = %v", rows[4])
	}
}

func TestBuildPortfolioRowsZeroTotal(t *testing.T) {
	p := domain.Portfolio{Assets: []domain.ValuedAsset{{Symbol: "ETH"}}}
	rows := buildPortfolioRows(p)
	if rows[1][6] != 0.0 {
		t.Errorf("share = %v, want 0 when total is zero", rows[1][6])
	}
}

func TestBuildHistoryRowsOrdersByDate(t *testing.T) {
	entries := []domain.HistoryEntry{
		{AccountKey: "0123456789abcdef", Date: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), Totals: domain.PortfolioTotals{TotalValue: decimal.NewFromInt(2)}},
		{AccountKey: "k", Date: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), Totals: domain.PortfolioTotals{TotalValue: decimal.NewFromInt(1)},
			Assets: []domain.ValuedAsset{{Symbol: "BTC"}, {Symbol: "USD"}}},
	}

	rows := buildHistoryRows(entries)

	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "2026-03-01" || rows[0][5] != "BTC,USD" {
		t.Errorf("first row = %v", rows[0])
	}
	if rows[1][1] != "01234567" {
		t.Errorf("account = %v, want shortened key", rows[1][1])
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	history := []domain.HistoryEntry{{AccountKey: "k", Date: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}}

	if err := WriteXLSX(&buf, samplePortfolio(), history); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("reopening workbook: %v", err)
	}
	defer f.Close()

	got, err := f.GetCellValue(portfolioSheet, "A2")
	if err != nil || got != "BTC" {
		t.Errorf("A2 = %q, %v, want BTC", got, err)
	}
	got, err = f.GetCellValue(historySheet, "A2")
	if err != nil || got != "2026-03-01" {
		t.Errorf("history A2 = %q, %v", got, err)
	}
}

type mockWriter struct {
	got []domain.HistoryEntry
	err error
}

func (m *mockWriter) AppendHistory(_ context.Context, entries []domain.HistoryEntry) error {
	m.got = entries
	return m.err
}

func TestServiceExport(t *testing.T) {
	w := &mockWriter{}
	svc := NewService(w)

	if err := svc.Export(context.Background(), nil); err != nil || w.got != nil {
		t.Errorf("empty export should be a no-op, got err=%v", err)
	}

	entries := []domain.HistoryEntry{{AccountKey: "k"}}
	if err := svc.Export(context.Background(), entries); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w.got) != 1 {
		t.Errorf("writer got %d entries, want 1", len(w.got))
	}

	w.err = errors.New("quota")
	if err := svc.Export(context.Background(), entries); err == nil {
		t.Error("expected writer error to propagate")
	}
}
