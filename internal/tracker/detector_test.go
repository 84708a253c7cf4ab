package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/mirrorbot/internal/domain"
)

func snapshot(total float64, positions ...domain.Position) domain.AccountSnapshot {
	snap := domain.AccountSnapshot{
		Address:    "0xabc",
		Positions:  make(map[string]domain.Position, len(positions)),
		TotalValue: total,
		CapturedAt: time.Now(),
	}
	for _, p := range positions {
		snap.Positions[p.ID] = p
	}
	return snap
}

func position(id string, qty, price float64) domain.Position {
	return domain.Position{
		ID:       id,
		Market:   domain.Market{ID: "cond-" + id, Question: "Will it happen?"},
		Outcome:  "Yes",
		Quantity: qty,
		Price:    price,
		Value:    qty * price,
	}
}

func TestDetect_BootstrapReportsEverythingAdded(t *testing.T) {
	cur := snapshot(150, position("a", 100, 0.5), position("b", 200, 0.5))

	cs := Detect(nil, cur)

	assert.True(t, cs.Changed)
	assert.Len(t, cs.Added, 2)
	assert.Empty(t, cs.Updated)
	assert.Empty(t, cs.Removed)
}

func TestDetect_BootstrapEmptySnapshotStillChanged(t *testing.T) {
	cs := Detect(nil, snapshot(0))

	assert.True(t, cs.Changed)
	assert.Empty(t, cs.Added)
}

func TestDetect_IdenticalSnapshotsUnchanged(t *testing.T) {
	prev := snapshot(50, position("a", 100, 0.5))
	cur := snapshot(50, position("a", 100, 0.5))

	cs := Detect(&prev, cur)

	assert.False(t, cs.Changed)
	assert.True(t, cs.Empty())
}

func TestDetect_AddedPosition(t *testing.T) {
	prev := snapshot(50, position("a", 100, 0.5))
	cur := snapshot(100, position("a", 100, 0.5), position("b", 100, 0.5))

	cs := Detect(&prev, cur)

	require.Len(t, cs.Added, 1)
	assert.Equal(t, "b", cs.Added[0].ID)
	assert.True(t, cs.Changed)
}

func TestDetect_RemovedPosition(t *testing.T) {
	prev := snapshot(100, position("a", 100, 0.5), position("b", 100, 0.5))
	cur := snapshot(50, position("a", 100, 0.5))

	cs := Detect(&prev, cur)

	require.Len(t, cs.Removed, 1)
	assert.Equal(t, "b", cs.Removed[0].ID)
	assert.True(t, cs.Changed)
}

func TestDetect_QuantityThreshold(t *testing.T) {
	cases := []struct {
		name     string
		prevQty  float64
		curQty   float64
		material bool
	}{
		// Threshold for qty 100 is max(1, 1) = 1: a delta must exceed 1.
		{"below absolute floor", 100, 100.9, false},
		{"exactly at threshold", 100, 101, false},
		{"just above threshold", 100, 101.01, true},
		// Threshold for qty 1000 is max(1, 10) = 10.
		{"below relative threshold", 1000, 1009, false},
		{"above relative threshold", 1000, 1011, true},
		// Small positions still need a full-unit move.
		{"small position small move", 5, 5.5, false},
		{"small position big move", 5, 6.5, true},
		// Direction does not matter.
		{"material decrease", 1000, 988, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// Pin the total so aggregate drift never interferes.
			prev := snapshot(100, position("a", tc.prevQty, 0))
			cur := snapshot(100, position("a", tc.curQty, 0))

			cs := Detect(&prev, cur)

			if tc.material {
				require.Len(t, cs.Updated, 1)
				assert.Equal(t, tc.prevQty, cs.Updated[0].OldQuantity)
				assert.Equal(t, tc.curQty, cs.Updated[0].NewQuantity)
				assert.True(t, cs.Changed)
			} else {
				assert.Empty(t, cs.Updated)
				assert.False(t, cs.Changed)
			}
		})
	}
}

func TestDetect_AggregateValueDrift(t *testing.T) {
	pos := position("a", 100, 0.5)

	prev := snapshot(1000, pos)

	// 1% exactly is not material.
	cs := Detect(&prev, snapshot(1010, pos))
	assert.False(t, cs.Changed)

	// Just beyond 1% is.
	cs = Detect(&prev, snapshot(1010.2, pos))
	assert.True(t, cs.Changed)
	assert.True(t, cs.Empty(), "value drift alone classifies nothing")

	// Drift down counts the same.
	cs = Detect(&prev, snapshot(989, pos))
	assert.True(t, cs.Changed)
}

func TestDetect_ZeroPreviousTotalUsesFloor(t *testing.T) {
	prev := snapshot(0)
	cur := snapshot(0.5)

	cs := Detect(&prev, cur)

	assert.True(t, cs.Changed)
}

func TestDetect_AllListsPopulatedTogether(t *testing.T) {
	prev := snapshot(100,
		position("stays", 100, 0.2),
		position("resizes", 100, 0.3),
		position("goes", 50, 0.4),
	)
	cur := snapshot(100,
		position("stays", 100, 0.2),
		position("resizes", 150, 0.3),
		position("comes", 10, 0.9),
	)

	cs := Detect(&prev, cur)

	assert.True(t, cs.Changed)
	require.Len(t, cs.Added, 1)
	assert.Equal(t, "comes", cs.Added[0].ID)
	require.Len(t, cs.Updated, 1)
	assert.Equal(t, "resizes", cs.Updated[0].Position.ID)
	require.Len(t, cs.Removed, 1)
	assert.Equal(t, "goes", cs.Removed[0].ID)
}
