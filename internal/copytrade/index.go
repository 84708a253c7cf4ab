// Package copytrade turns classified position deltas into mirrored orders:
// the decision engine maps added/removed positions to open/close intents
// gated by an idempotency index, and the executor sizes, guards, and submits
// them in dry-run or live mode.
package copytrade

import (
	"sort"
	"sync"
)

// Index records which position IDs we have already mirrored with an open
// order. Membership gates duplicate opens and decides whether a disappeared
// position is eligible for a close. The engine owns the index exclusively;
// MarkOpened and MarkClosed are the only mutation sites and are invoked only
// after a successful execution.
type Index struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{ids: make(map[string]struct{})}
}

// Restore seeds the index with position IDs recovered from persisted trade
// history, so a restarted process does not double-open positions it already
// mirrors.
func (x *Index) Restore(ids []string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, id := range ids {
		x.ids[id] = struct{}{}
	}
}

// Has reports whether id has been mirrored with an open order.
func (x *Index) Has(id string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	_, ok := x.ids[id]
	return ok
}

// MarkOpened records a successful open for id.
func (x *Index) MarkOpened(id string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.ids[id] = struct{}{}
}

// MarkClosed removes id after a successful close. Unknown IDs are a no-op.
func (x *Index) MarkClosed(id string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.ids, id)
}

// Size returns the number of mirrored positions.
func (x *Index) Size() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.ids)
}

// IDs returns the mirrored position IDs in sorted order.
func (x *Index) IDs() []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	out := make([]string, 0, len(x.ids))
	for id := range x.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
