package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/mirrorbot/internal/domain"
)

// CopyTradeStore implements domain.CopyTradeStore using PostgreSQL.
type CopyTradeStore struct {
	pool *pgxpool.Pool
}

// NewCopyTradeStore creates a CopyTradeStore backed by the given pool.
func NewCopyTradeStore(pool *pgxpool.Pool) *CopyTradeStore {
	return &CopyTradeStore{pool: pool}
}

const copyTradeSelectCols = `id, address, position_id, question, outcome, side,
	quantity, price, notional, dry_run, success, order_id, err, executed_at`

func scanCopyTrade(row pgx.Row) (domain.CopyTrade, error) {
	var t domain.CopyTrade
	err := row.Scan(
		&t.ID, &t.Address, &t.PositionID, &t.Question, &t.Outcome, &t.Side,
		&t.Quantity, &t.Price, &t.Notional, &t.DryRun, &t.Success,
		&t.OrderID, &t.Err, &t.ExecutedAt,
	)
	return t, err
}

func scanCopyTradeRows(rows pgx.Rows) ([]domain.CopyTrade, error) {
	var trades []domain.CopyTrade
	for rows.Next() {
		t, err := scanCopyTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Insert persists an executed copy trade.
func (s *CopyTradeStore) Insert(ctx context.Context, trade domain.CopyTrade) error {
	const query = `
		INSERT INTO copy_trades (
			id, address, position_id, question, outcome, side,
			quantity, price, notional, dry_run, success, order_id, err,
			executed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12, $13,
			$14
		)`
	_, err := s.pool.Exec(ctx, query,
		trade.ID, trade.Address, trade.PositionID, trade.Question,
		trade.Outcome, trade.Side, trade.Quantity, trade.Price,
		trade.Notional, trade.DryRun, trade.Success, trade.OrderID,
		trade.Err, trade.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert copy trade %s: %w", trade.ID, err)
	}
	return nil
}

// GetByID returns a single copy trade, or domain.ErrNotFound.
func (s *CopyTradeStore) GetByID(ctx context.Context, id string) (domain.CopyTrade, error) {
	query := `SELECT ` + copyTradeSelectCols + ` FROM copy_trades WHERE id = $1`
	t, err := scanCopyTrade(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.CopyTrade{}, domain.ErrNotFound
		}
		return domain.CopyTrade{}, fmt.Errorf("postgres: get copy trade %s: %w", id, err)
	}
	return t, nil
}

// ListRecent returns copy trades for an address, newest first, with
// pagination and optional time bounds.
func (s *CopyTradeStore) ListRecent(ctx context.Context, address string, opts domain.ListOpts) ([]domain.CopyTrade, error) {
	query := `SELECT ` + copyTradeSelectCols + ` FROM copy_trades WHERE address = $1`
	args := []any{address}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND executed_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND executed_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY executed_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list copy trades: %w", err)
	}
	defer rows.Close()

	trades, err := scanCopyTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan copy trades: %w", err)
	}
	return trades, nil
}

// ListSince returns all copy trades executed at or after the given time,
// oldest first. Used by the report archiver.
func (s *CopyTradeStore) ListSince(ctx context.Context, since time.Time) ([]domain.CopyTrade, error) {
	query := `SELECT ` + copyTradeSelectCols + ` FROM copy_trades
		WHERE executed_at >= $1 ORDER BY executed_at ASC`
	rows, err := s.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("postgres: list copy trades since: %w", err)
	}
	defer rows.Close()

	trades, err := scanCopyTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan copy trades since: %w", err)
	}
	return trades, nil
}

// Count returns the number of copy trades recorded for an address.
func (s *CopyTradeStore) Count(ctx context.Context, address string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM copy_trades WHERE address = $1", address,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: count copy trades: %w", err)
	}
	return n, nil
}

// OpenPositionIDs returns the positions the bot opened for an address and has
// not closed yet, derived from the net of successful buys and sells.
func (s *CopyTradeStore) OpenPositionIDs(ctx context.Context, address string) ([]string, error) {
	const query = `
		SELECT position_id FROM copy_trades
		WHERE address = $1 AND success AND NOT dry_run
		GROUP BY position_id
		HAVING SUM(CASE WHEN side = 'BUY' THEN 1 ELSE -1 END) > 0`

	rows, err := s.pool.Query(ctx, query, address)
	if err != nil {
		return nil, fmt.Errorf("postgres: open position ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres: scan open position id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Compile-time interface check.
var _ domain.CopyTradeStore = (*CopyTradeStore)(nil)
