package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/coinsforcollege/intuitionexchange-sub003/internal/domain"
)

const (
	portfolioSheet = "PORTFOLIO"
	historySheet   = "HISTORY"
)

// WriteXLSX writes the portfolio and optional history as an Excel workbook.
func WriteXLSX(w io.Writer, p domain.Portfolio, history []domain.HistoryEntry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), portfolioSheet); err != nil {
		return fmt.Errorf("naming portfolio sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9EAD3"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	if err := writeSheet(f, portfolioSheet, buildPortfolioRows(p), header); err != nil {
		return err
	}
	if err := f.SetColWidth(portfolioSheet, "A", "G", 16); err != nil {
		return fmt.Errorf("sizing portfolio columns: %w", err)
	}

	if len(history) > 0 {
		if _, err := f.NewSheet(historySheet); err != nil {
			return fmt.Errorf("creating history sheet: %w", err)
		}
		rows := append([][]any{historyHeader}, buildHistoryRows(history)...)
		if err := writeSheet(f, historySheet, rows, header); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, rows [][]any, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("resolving cell: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	if len(rows) == 0 {
		return nil
	}
	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return fmt.Errorf("resolving header range: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("styling %s header: %w", sheet, err)
	}
	return nil
}
