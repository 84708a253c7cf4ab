package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alanyoungcy/mirrorbot/internal/domain"
)

// ReportsHandler lists archived copy-trade reports in object storage.
type ReportsHandler struct {
	blobs  domain.BlobReader
	prefix string
	logger *slog.Logger
}

// NewReportsHandler creates a ReportsHandler. blobs may be nil when archival
// is disabled; the endpoint then returns 503.
func NewReportsHandler(blobs domain.BlobReader, prefix string, logger *slog.Logger) *ReportsHandler {
	return &ReportsHandler{
		blobs:  blobs,
		prefix: strings.Trim(prefix, "/"),
		logger: logHandler(logger, "reports"),
	}
}

// reportResponse describes one archived report object.
type reportResponse struct {
	Path         string `json:"path"`
	Size         int64  `json:"size"`
	LastModified string `json:"last_modified"`
}

// ListReports returns the archived report objects in key order.
// GET /api/v1/reports
func (h *ReportsHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	if h.blobs == nil {
		writeError(w, http.StatusServiceUnavailable, "report archival is disabled")
		return
	}

	prefix := "reports/"
	if h.prefix != "" {
		prefix = h.prefix + "/reports/"
	}

	infos, err := h.blobs.List(r.Context(), prefix)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list reports failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}

	resp := make([]reportResponse, 0, len(infos))
	for _, info := range infos {
		resp = append(resp, reportResponse{
			Path:         info.Path,
			Size:         info.Size,
			LastModified: info.LastModified.UTC().Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"reports": resp})
}
