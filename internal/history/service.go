package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/coinsforcollege/intuitionexchange-sub003/internal/domain"
)

// PortfolioLister exposes the latest valuation of every live account.
type PortfolioLister interface {
	Portfolios() map[string]domain.Portfolio
}

// Service records and reads portfolio history.
type Service struct {
	repo     Repository
	sessions PortfolioLister
	now      func() time.Time
}

// NewService creates a history Service. sessions may be nil when only reads are needed.
func NewService(repo Repository, sessions PortfolioLister) *Service {
	return &Service{repo: repo, sessions: sessions, now: time.Now}
}

// Record stores one account's valuation for date. Zero-balance rows are
// dropped since they carry no history.
func (s *Service) Record(ctx context.Context, accountKey string, date time.Time, p domain.Portfolio) (domain.HistoryEntry, error) {
	entry := domain.HistoryEntry{
		AccountKey: accountKey,
		Date:       date,
		Totals:     p.Totals,
		CreatedAt:  s.now().UTC(),
	}
	for _, a := range p.Assets {
		if !a.Balance.IsZero() {
			entry.Assets = append(entry.Assets, a)
		}
	}
	if err := s.repo.Save(ctx, entry); err != nil {
		return domain.HistoryEntry{}, fmt.Errorf("recording history for %s: %w", accountKey, err)
	}
	return entry, nil
}

// RecordAll stores the valuation of every live session for date. Failures
// are joined; successfully recorded entries are still returned.
func (s *Service) RecordAll(ctx context.Context, date time.Time) ([]domain.HistoryEntry, error) {
	if s.sessions == nil {
		return nil, nil
	}
	portfolios := s.sessions.Portfolios()
	keys := make([]string, 0, len(portfolios))
	for k := range portfolios {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var (
		entries []domain.HistoryEntry
		errs    []error
	)
	for _, key := range keys {
		entry, err := s.Record(ctx, key, date, portfolios[key])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		entries = append(entries, entry)
	}
	if len(errs) > 0 {
		slog.Warn("HistoryService: some entries failed", "recorded", len(entries), "failed", len(errs))
	}
	return entries, errors.Join(errs...)
}

// Latest returns the newest entry of the account.
func (s *Service) Latest(ctx context.Context, accountKey string) (*domain.HistoryEntry, error) {
	return s.repo.Latest(ctx, accountKey)
}

// List returns recent entries of the account.
func (s *Service) List(ctx context.Context, accountKey string, limit int) ([]domain.HistoryEntry, error) {
	return s.repo.List(ctx, accountKey, limit)
}
