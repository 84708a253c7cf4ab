package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/mirrorbot/internal/domain"
)

// TradesHandler serves the executed copy-trade history.
type TradesHandler struct {
	store   domain.CopyTradeStore
	address string
	logger  *slog.Logger
}

// NewTradesHandler creates a TradesHandler for the tracked address. store may
// be nil when persistence is disabled; the endpoints then return 503.
func NewTradesHandler(store domain.CopyTradeStore, address string, logger *slog.Logger) *TradesHandler {
	return &TradesHandler{
		store:   store,
		address: address,
		logger:  logHandler(logger, "trades"),
	}
}

// tradeResponse is the wire form of one copy trade.
type tradeResponse struct {
	ID         string  `json:"id"`
	PositionID string  `json:"position_id"`
	Question   string  `json:"question"`
	Outcome    string  `json:"outcome"`
	Side       string  `json:"side"`
	Quantity   float64 `json:"quantity"`
	Price      float64 `json:"price"`
	Notional   float64 `json:"notional"`
	DryRun     bool    `json:"dry_run"`
	Success    bool    `json:"success"`
	OrderID    string  `json:"order_id,omitempty"`
	Err        string  `json:"error,omitempty"`
	ExecutedAt string  `json:"executed_at"`
}

func toTradeResponse(t domain.CopyTrade) tradeResponse {
	return tradeResponse{
		ID:         t.ID,
		PositionID: t.PositionID,
		Question:   t.Question,
		Outcome:    t.Outcome,
		Side:       string(t.Side),
		Quantity:   t.Quantity,
		Price:      t.Price,
		Notional:   t.Notional,
		DryRun:     t.DryRun,
		Success:    t.Success,
		OrderID:    t.OrderID,
		Err:        t.Err,
		ExecutedAt: t.ExecutedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// ListTrades returns the recent copy trades for the tracked account, newest
// first.
// GET /api/v1/trades?limit=50&offset=0
func (h *TradesHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "trade persistence is disabled")
		return
	}

	opts := parseListOpts(r)

	trades, err := h.store.ListRecent(r.Context(), h.address, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list trades failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list trades")
		return
	}

	total, err := h.store.Count(r.Context(), h.address)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "count trades failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to count trades")
		return
	}

	resp := make([]tradeResponse, 0, len(trades))
	for _, t := range trades {
		resp = append(resp, toTradeResponse(t))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"trades": resp,
		"total":  total,
	})
}

// GetTrade returns a single copy trade by ID.
// GET /api/v1/trades/{id}
func (h *TradesHandler) GetTrade(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "trade persistence is disabled")
		return
	}

	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "trade id required")
		return
	}

	trade, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "trade not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "get trade failed",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get trade")
		return
	}

	writeJSON(w, http.StatusOK, toTradeResponse(trade))
}
