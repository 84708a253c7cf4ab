// Package tracker polls a target account's open positions, diffs each fresh
// snapshot against the previous one, and drives copy-trade execution on
// material changes.
package tracker

import (
	"math"

	"github.com/alanyoungcy/mirrorbot/internal/domain"
)

// Change-detection thresholds. A quantity delta is material when it exceeds
// one full unit or 1% of the previous quantity, whichever is larger. Total
// account value is material when it drifts more than 1% against the previous
// total (floored at one cent to avoid dividing by ~zero).
const (
	qtyAbsoluteFloor  = 1.0
	qtyRelativeFrac   = 0.01
	valueDriftFrac    = 0.01
	valueDivisorFloor = 0.01
)

// Detect classifies the delta between two consecutive snapshots. It is a pure
// function of its inputs: no hidden state, safe to call from tests in
// isolation. prev == nil is the bootstrap case: every current position is
// reported as added and Changed is always true.
//
// All four classification lists are fully computed even after Changed is
// already known to be true, so observers always see the complete picture.
func Detect(prev *domain.AccountSnapshot, cur domain.AccountSnapshot) domain.ChangeSet {
	var cs domain.ChangeSet

	if prev == nil {
		cs.Changed = true
		cs.Added = make([]domain.Position, 0, len(cur.Positions))
		for _, pos := range cur.Positions {
			cs.Added = append(cs.Added, pos)
		}
		return cs
	}

	// Count mismatch alone is sufficient, independent of identity.
	if len(cur.Positions) != len(prev.Positions) {
		cs.Changed = true
	}

	for id, pos := range cur.Positions {
		old, ok := prev.Positions[id]
		if !ok {
			cs.Added = append(cs.Added, pos)
			cs.Changed = true
			continue
		}
		if materialQuantityChange(old.Quantity, pos.Quantity) {
			cs.Updated = append(cs.Updated, domain.QuantityChange{
				Position:    pos,
				OldQuantity: old.Quantity,
				NewQuantity: pos.Quantity,
			})
			cs.Changed = true
		}
	}

	for id, pos := range prev.Positions {
		if _, ok := cur.Positions[id]; !ok {
			cs.Removed = append(cs.Removed, pos)
			cs.Changed = true
		}
	}

	// Aggregate value drift can flag a change even when no per-position
	// classification fired (price movement with stable holdings).
	if materialValueDrift(prev.TotalValue, cur.TotalValue) {
		cs.Changed = true
	}

	return cs
}

// materialQuantityChange reports whether the quantity moved beyond
// max(1, prevQty*0.01).
func materialQuantityChange(prevQty, curQty float64) bool {
	threshold := math.Max(qtyAbsoluteFloor, prevQty*qtyRelativeFrac)
	return math.Abs(curQty-prevQty) > threshold
}

// materialValueDrift reports whether the total value moved more than 1%
// relative to the previous total.
func materialValueDrift(prevVal, curVal float64) bool {
	return math.Abs(curVal-prevVal)/math.Max(prevVal, valueDivisorFloor) > valueDriftFrac
}
