// Package export writes portfolio valuations and history to spreadsheets.
package export

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/coinsforcollege/intuitionexchange-sub003/internal/domain"
)

// SheetWriter appends history entries to a spreadsheet destination.
type SheetWriter interface {
	AppendHistory(ctx context.Context, entries []domain.HistoryEntry) error
}

// Service forwards recorded history to a SheetWriter.
type Service struct {
	writer SheetWriter
}

// NewService creates a new export Service.
func NewService(writer SheetWriter) *Service {
	return &Service{writer: writer}
}

// Export appends the entries to the sheet. Implements worker.AfterRecordHook.
func (s *Service) Export(ctx context.Context, entries []domain.HistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := s.writer.AppendHistory(ctx, entries); err != nil {
		return fmt.Errorf("exporting history: %w", err)
	}
	slog.Info("Export: history appended", "entries", len(entries))
	return nil
}
