package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/mirrorbot/internal/domain"
)

// SnapshotStore implements domain.SnapshotStore using PostgreSQL.
type SnapshotStore struct {
	pool *pgxpool.Pool
}

// NewSnapshotStore creates a SnapshotStore backed by the given pool.
func NewSnapshotStore(pool *pgxpool.Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

const snapshotSelectCols = `id, address, position_count, total_value, changed,
	added_count, updated_count, removed_count, captured_at`

func scanSnapshot(row pgx.Row) (domain.SnapshotRecord, error) {
	var r domain.SnapshotRecord
	err := row.Scan(
		&r.ID, &r.Address, &r.PositionCount, &r.TotalValue, &r.Changed,
		&r.AddedCount, &r.UpdatedCount, &r.RemovedCount, &r.CapturedAt,
	)
	return r, err
}

// Insert persists a per-tick snapshot summary.
func (s *SnapshotStore) Insert(ctx context.Context, rec domain.SnapshotRecord) error {
	const query = `
		INSERT INTO snapshots (
			address, position_count, total_value, changed,
			added_count, updated_count, removed_count, captured_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.pool.Exec(ctx, query,
		rec.Address, rec.PositionCount, rec.TotalValue, rec.Changed,
		rec.AddedCount, rec.UpdatedCount, rec.RemovedCount, rec.CapturedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert snapshot: %w", err)
	}
	return nil
}

// Latest returns the most recent snapshot for an address, or
// domain.ErrNotFound when none has been recorded.
func (s *SnapshotStore) Latest(ctx context.Context, address string) (domain.SnapshotRecord, error) {
	query := `SELECT ` + snapshotSelectCols + ` FROM snapshots
		WHERE address = $1 ORDER BY captured_at DESC LIMIT 1`
	rec, err := scanSnapshot(s.pool.QueryRow(ctx, query, address))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SnapshotRecord{}, domain.ErrNotFound
		}
		return domain.SnapshotRecord{}, fmt.Errorf("postgres: latest snapshot: %w", err)
	}
	return rec, nil
}

// List returns snapshots for an address, newest first, with pagination and
// optional time bounds.
func (s *SnapshotStore) List(ctx context.Context, address string, opts domain.ListOpts) ([]domain.SnapshotRecord, error) {
	query := `SELECT ` + snapshotSelectCols + ` FROM snapshots WHERE address = $1`
	args := []any{address}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND captured_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND captured_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY captured_at DESC"

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
		return nil, fmt.Errorf("postgres: list snapshots: %w", err)
	}
	defer rows.Close()

	var recs []domain.SnapshotRecord
	for rows.Next() {
		rec, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan snapshot: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Compile-time interface check.
var _ domain.SnapshotStore = (*SnapshotStore)(nil)
