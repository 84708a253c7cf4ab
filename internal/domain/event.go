package domain

import "time"

// EventKind identifies a tracker event variant.
type EventKind string

const (
	EventSnapshotUpdate EventKind = "snapshot_update"
	EventTickError      EventKind = "tick_error"
	EventTradeExecuted  EventKind = "trade_executed"
	EventTradeError     EventKind = "trade_error"
)

// TrackerEvent is one message emitted by the tracker over its event channel.
// Exactly one payload field is set per kind: Snapshot and Changes for
// snapshot updates, Err for tick errors, Result for trade outcomes (Position
// and Err additionally set on trade errors).
type TrackerEvent struct {
	Kind     EventKind
	Address  string
	At       time.Time
	Snapshot *AccountSnapshot
	Changes  *ChangeSet
	Result   *ExecutionResult
	Position *Position
	Err      string
}
