package copytrade

import (
	"sync"

	"github.com/alanyoungcy/mirrorbot/internal/domain"
)

// Stats wraps CopyTradeStats with a mutex so the HTTP server can read a
// consistent snapshot while the tick goroutine records results.
type Stats struct {
	mu sync.Mutex
	s  domain.CopyTradeStats
}

// NewStats creates a Stats carrying the configured mode flags.
func NewStats(enabled, dryRun bool) *Stats {
	return &Stats{s: domain.CopyTradeStats{Enabled: enabled, DryRun: dryRun}}
}

// Record folds one execution result into the running totals. Dry-run results
// count toward executed totals and volume identically to live fills.
func (s *Stats) Record(res domain.ExecutionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.s.Record(res)
}

// Snapshot returns a copy of the current totals.
func (s *Stats) Snapshot() domain.CopyTradeStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.s
}
