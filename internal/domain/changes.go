package domain

// QuantityChange records a material resize of a position present in both
// snapshots.
type QuantityChange struct {
	Position    Position // the current-snapshot position
	OldQuantity float64
	NewQuantity float64
}

// ChangeSet is the classified delta between two consecutive snapshots. All
// four lists are always fully populated regardless of when Changed became
// true, so observers see the complete classification.
type ChangeSet struct {
	Changed bool
	Added   []Position
	Updated []QuantityChange
	Removed []Position
}

// Empty reports whether the change set carries no classified deltas. Changed
// may still be true on an empty set when only the aggregate value drifted.
func (c ChangeSet) Empty() bool {
	return len(c.Added) == 0 && len(c.Updated) == 0 && len(c.Removed) == 0
}
