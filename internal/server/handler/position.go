package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/alanyoungcy/mirrorbot/internal/domain"
)

// PositionHandler serves the tracked account's current positions out of the
// tracker's in-memory snapshot, enriched with live prices when a cache is
// available.
type PositionHandler struct {
	tracker TrackerStatus
	prices  domain.PriceCache
}

// NewPositionHandler creates a PositionHandler reading from the given tracker.
// prices may be nil, in which case responses carry snapshot prices only.
func NewPositionHandler(tracker TrackerStatus, prices domain.PriceCache) *PositionHandler {
	return &PositionHandler{tracker: tracker, prices: prices}
}

// positionResponse is the wire form of one tracked position.
type positionResponse struct {
	ID        string   `json:"id"`
	Question  string   `json:"question"`
	Outcome   string   `json:"outcome"`
	Quantity  float64  `json:"quantity"`
	Price     float64  `json:"price"`
	Value     float64  `json:"value"`
	LastTrade *float64 `json:"last_trade_price,omitempty"`
}

// ListPositions returns the positions in the most recent snapshot, largest
// value first. Before the first successful tick the list is empty.
// GET /api/v1/positions
func (h *PositionHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	resp := []positionResponse{}

	if snap := h.tracker.LastSnapshot(); snap != nil {
		ids := make([]string, 0, len(snap.Positions))
		for id := range snap.Positions {
			ids = append(ids, id)
		}
		live := h.livePrices(r, ids)

		for _, p := range snap.Positions {
			pr := positionResponse{
				ID:       p.ID,
				Question: p.Market.Question,
				Outcome:  p.Outcome,
				Quantity: p.Quantity,
				Price:    p.Price,
				Value:    p.Value,
			}
			if price, ok := live[p.ID]; ok {
				pr.LastTrade = &price
			}
			resp = append(resp, pr)
		}
		sort.Slice(resp, func(i, j int) bool { return resp[i].Value > resp[j].Value })
	}

	writeJSON(w, http.StatusOK, map[string]any{"positions": resp})
}

// livePrices fetches cached last-trade prices for ids. A missing cache or a
// lookup error degrades to no enrichment rather than failing the request.
func (h *PositionHandler) livePrices(r *http.Request, ids []string) map[string]float64 {
	if h.prices == nil || len(ids) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	prices, err := h.prices.GetPrices(ctx, ids)
	if err != nil {
		return nil
	}
	return prices
}
