package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/mirrorbot/internal/domain"
)

// SnapshotsHandler serves the persisted per-tick snapshot history.
type SnapshotsHandler struct {
	store   domain.SnapshotStore
	address string
	logger  *slog.Logger
}

// NewSnapshotsHandler creates a SnapshotsHandler for the tracked address.
// store may be nil when snapshot persistence is disabled.
func NewSnapshotsHandler(store domain.SnapshotStore, address string, logger *slog.Logger) *SnapshotsHandler {
	return &SnapshotsHandler{
		store:   store,
		address: address,
		logger:  logHandler(logger, "snapshots"),
	}
}

// snapshotResponse is the wire form of one snapshot summary.
type snapshotResponse struct {
	ID            int64   `json:"id"`
	PositionCount int     `json:"position_count"`
	TotalValue    float64 `json:"total_value"`
	Changed       bool    `json:"changed"`
	AddedCount    int     `json:"added_count"`
	UpdatedCount  int     `json:"updated_count"`
	RemovedCount  int     `json:"removed_count"`
	CapturedAt    string  `json:"captured_at"`
}

// ListSnapshots returns the snapshot history, newest first.
// GET /api/v1/snapshots?limit=50&offset=0
func (h *SnapshotsHandler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "snapshot persistence is disabled")
		return
	}

	recs, err := h.store.List(r.Context(), h.address, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list snapshots failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list snapshots")
		return
	}

	resp := make([]snapshotResponse, 0, len(recs))
	for _, rec := range recs {
		resp = append(resp, snapshotResponse{
			ID:            rec.ID,
			PositionCount: rec.PositionCount,
			TotalValue:    rec.TotalValue,
			Changed:       rec.Changed,
			AddedCount:    rec.AddedCount,
			UpdatedCount:  rec.UpdatedCount,
			RemovedCount:  rec.RemovedCount,
			CapturedAt:    rec.CapturedAt.UTC().Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"snapshots": resp})
}
