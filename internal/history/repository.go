// Package history records daily portfolio valuations.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coinsforcollege/intuitionexchange-sub003/internal/domain"
)

// ErrNotFound indicates that no history entry matched.
var ErrNotFound = errors.New("history entry not found")

// Repository defines persistent storage for history entries.
type Repository interface {
	Save(ctx context.Context, entry domain.HistoryEntry) error
	Latest(ctx context.Context, accountKey string) (*domain.HistoryEntry, error)
	List(ctx context.Context, accountKey string, limit int) ([]domain.HistoryEntry, error)
}

// PgRepository implements Repository with PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a new PostgreSQL history repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Save upserts the entry for its account and date.
func (r *PgRepository) Save(ctx context.Context, e domain.HistoryEntry) error {
	assets, err := json.Marshal(e.Assets)
	if err != nil {
		return fmt.Errorf("marshaling history assets: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO portfolio_history (account_key, snapshot_date, total_value, crypto_value, cash_value, assets)
		 VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric, $6::jsonb)
		 ON CONFLICT (account_key, snapshot_date)
		 DO UPDATE SET total_value = $3::numeric, crypto_value = $4::numeric, cash_value = $5::numeric, assets = $6::jsonb`,
		e.AccountKey, e.Date, e.Totals.TotalValue.String(), e.Totals.CryptoValue.String(), e.Totals.CashValue.String(), assets)
	if err != nil {
		return fmt.Errorf("saving history entry: %w", err)
	}
	return nil
}

const selectEntry = `SELECT account_key, snapshot_date, total_value::text, crypto_value::text, cash_value::text, assets, created_at
	 FROM portfolio_history`

// Latest returns the most recent entry of the account.
func (r *PgRepository) Latest(ctx context.Context, accountKey string) (*domain.HistoryEntry, error) {
	row := r.pool.QueryRow(ctx, selectEntry+`
		 WHERE account_key = $1
		 ORDER BY snapshot_date DESC
		 LIMIT 1`, accountKey)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting latest history entry: %w", err)
	}
	return &e, nil
}

// List returns up to limit entries of the account, newest first.
func (r *PgRepository) List(ctx context.Context, accountKey string, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 {
		limit = 30
	}

	rows, err := r.pool.Query(ctx, selectEntry+`
		 WHERE account_key = $1
		 ORDER BY snapshot_date DESC
		 LIMIT $2`, accountKey, limit)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	defer rows.Close()

	var entries []domain.HistoryEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning history entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history: %w", err)
	}
	return entries, nil
}

func scanEntry(row pgx.Row) (domain.HistoryEntry, error) {
	var (
		e                   domain.HistoryEntry
		total, crypto, cash string
		assets              []byte
	)
	if err := row.Scan(&e.AccountKey, &e.Date, &total, &crypto, &cash, &assets, &e.CreatedAt); err != nil {
		return domain.HistoryEntry{}, err
	}
	e.Totals = domain.PortfolioTotals{
		TotalValue:  domain.SafeParse(total),
		CryptoValue: domain.SafeParse(crypto),
		CashValue:   domain.SafeParse(cash),
	}
	if len(assets) > 0 {
		if err := json.Unmarshal(assets, &e.Assets); err != nil {
			return domain.HistoryEntry{}, fmt.Errorf("decoding assets: %w", err)
		}
	}
	return e, nil
}
