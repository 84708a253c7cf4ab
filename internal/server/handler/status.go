package handler

import (
	"net/http"
	"time"

	"github.com/alanyoungcy/mirrorbot/internal/domain"
	"github.com/alanyoungcy/mirrorbot/internal/tracker"
)

// TrackerStatus is the narrow tracker surface the status handler reads.
type TrackerStatus interface {
	State() tracker.State
	LastSnapshot() *domain.AccountSnapshot
	Dropped() int64
}

// StatsSource exposes the current copy-trade statistics.
type StatsSource interface {
	Snapshot() domain.CopyTradeStats
}

// StatusHandler serves the bot status and copy-trade statistics.
type StatusHandler struct {
	mode    string
	address string
	tracker TrackerStatus
	stats   StatsSource
}

// NewStatusHandler creates a StatusHandler for the given mode and tracked
// address.
func NewStatusHandler(mode, address string, tracker TrackerStatus, stats StatsSource) *StatusHandler {
	return &StatusHandler{
		mode:    mode,
		address: address,
		tracker: tracker,
		stats:   stats,
	}
}

// GetStatus responds with the current mode, tracker state, and a summary of
// the last captured snapshot.
// GET /api/v1/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"mode":           h.mode,
		"address":        h.address,
		"tracker_state":  h.tracker.State(),
		"dropped_events": h.tracker.Dropped(),
	}

	if snap := h.tracker.LastSnapshot(); snap != nil {
		resp["snapshot"] = map[string]any{
			"position_count": snap.Count(),
			"total_value":    snap.TotalValue,
			"captured_at":    snap.CapturedAt.UTC().Format(time.RFC3339),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetStats responds with process-lifetime copy-trade statistics.
// GET /api/v1/stats
func (h *StatusHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	s := h.stats.Snapshot()

	resp := map[string]any{
		"enabled":  s.Enabled,
		"dry_run":  s.DryRun,
		"executed": s.Executed,
		"failed":   s.Failed,
		"volume":   s.Volume,
	}
	if !s.LastTradeAt.IsZero() {
		resp["last_trade_at"] = s.LastTradeAt.UTC().Format(time.RFC3339)
	}

	writeJSON(w, http.StatusOK, resp)
}
