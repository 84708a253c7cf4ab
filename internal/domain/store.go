package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// CopyTradeStore persists executed copy trades for reporting.
type CopyTradeStore interface {
	Insert(ctx context.Context, trade CopyTrade) error
	GetByID(ctx context.Context, id string) (CopyTrade, error)
	ListRecent(ctx context.Context, address string, opts ListOpts) ([]CopyTrade, error)
	ListSince(ctx context.Context, since time.Time) ([]CopyTrade, error)
	Count(ctx context.Context, address string) (int64, error)

	// OpenPositionIDs returns the IDs of positions this bot opened for the
	// address and has not yet closed, in no particular order.
	OpenPositionIDs(ctx context.Context, address string) ([]string, error)
}

// SnapshotRecord is a persisted per-tick snapshot summary.
type SnapshotRecord struct {
	ID            int64
	Address       string
	PositionCount int
	TotalValue    float64
	Changed       bool
	AddedCount    int
	UpdatedCount  int
	RemovedCount  int
	CapturedAt    time.Time
}

// SnapshotStore persists per-tick snapshot summaries for reporting.
type SnapshotStore interface {
	Insert(ctx context.Context, rec SnapshotRecord) error
	Latest(ctx context.Context, address string) (SnapshotRecord, error)
	List(ctx context.Context, address string, opts ListOpts) ([]SnapshotRecord, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
