package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/mirrorbot/internal/domain"
)

// eventsChannel is the Redis pub/sub channel tracker events are published to.
const eventsChannel = "tracker_events"

// sinkTimeout bounds each per-event side effect so one slow dependency cannot
// stall the consumer behind the tracker's bounded channel.
const sinkTimeout = 10 * time.Second

// busEvent is the wire shape published to the signal bus. One flat record per
// event keeps external consumers free of our internal types.
type busEvent struct {
	Kind    string `json:"kind"`
	Address string `json:"address"`
	At      string `json:"at"`

	// Snapshot updates.
	PositionCount *int     `json:"position_count,omitempty"`
	TotalValue    *float64 `json:"total_value,omitempty"`
	Added         int      `json:"added,omitempty"`
	Updated       int      `json:"updated,omitempty"`
	Removed       int      `json:"removed,omitempty"`

	// Trade outcomes.
	PositionID string  `json:"position_id,omitempty"`
	Side       string  `json:"side,omitempty"`
	Quantity   float64 `json:"quantity,omitempty"`
	Price      float64 `json:"price,omitempty"`
	OrderID    string  `json:"order_id,omitempty"`
	DryRun     bool    `json:"dry_run,omitempty"`

	Error string `json:"error,omitempty"`
}

// consumeEvents drains the tracker's event channel and fans each event out to
// persistence, notifications, and the signal bus. Sink failures are logged and
// never stop the consumer; the tracker must not back up behind a broken
// dependency.
func (a *App) consumeEvents(ctx context.Context, deps *Dependencies) error {
	log := a.logger.With(slog.String("component", "event_consumer"))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-deps.Tracker.Events():
			if !ok {
				return nil
			}
			a.handleEvent(ctx, deps, log, ev)
		}
	}
}

func (a *App) handleEvent(ctx context.Context, deps *Dependencies, log *slog.Logger, ev domain.TrackerEvent) {
	sctx, cancel := context.WithTimeout(ctx, sinkTimeout)
	defer cancel()

	switch ev.Kind {
	case domain.EventSnapshotUpdate:
		a.persistSnapshot(sctx, deps, log, ev)
	case domain.EventTradeExecuted, domain.EventTradeError:
		a.persistTrade(sctx, deps, log, ev)
	}

	if err := deps.Notifier.NotifyEvent(sctx, ev); err != nil {
		log.WarnContext(sctx, "notification failed",
			slog.String("kind", string(ev.Kind)),
			slog.String("error", err.Error()),
		)
	}

	a.publishEvent(sctx, deps, log, ev)
}

// persistSnapshot writes a per-tick summary row when snapshot persistence is
// enabled.
func (a *App) persistSnapshot(ctx context.Context, deps *Dependencies, log *slog.Logger, ev domain.TrackerEvent) {
	if !a.cfg.Tracker.PersistSnapshots || deps.Snapshots == nil || ev.Snapshot == nil || ev.Changes == nil {
		return
	}
	rec := domain.SnapshotRecord{
		Address:       ev.Address,
		PositionCount: ev.Snapshot.Count(),
		TotalValue:    ev.Snapshot.TotalValue,
		Changed:       ev.Changes.Changed,
		AddedCount:    len(ev.Changes.Added),
		UpdatedCount:  len(ev.Changes.Updated),
		RemovedCount:  len(ev.Changes.Removed),
		CapturedAt:    ev.Snapshot.CapturedAt,
	}
	if err := deps.Snapshots.Insert(ctx, rec); err != nil {
		log.WarnContext(ctx, "snapshot persist failed", slog.String("error", err.Error()))
	}
}

// persistTrade records one execution attempt, successful or not.
func (a *App) persistTrade(ctx context.Context, deps *Dependencies, log *slog.Logger, ev domain.TrackerEvent) {
	if deps.Trades == nil || ev.Result == nil {
		return
	}
	res := ev.Result
	trade := domain.CopyTrade{
		ID:         uuid.NewString(),
		Address:    ev.Address,
		PositionID: res.Position.ID,
		Question:   res.Position.Market.Question,
		Outcome:    res.Position.Outcome,
		Side:       res.Kind.OrderSide(),
		Quantity:   res.Quantity,
		Price:      res.Price,
		Notional:   res.Quantity * res.Price,
		DryRun:     res.DryRun,
		Success:    res.Success,
		OrderID:    res.OrderID,
		Err:        res.Err,
		ExecutedAt: ev.At,
	}
	if err := deps.Trades.Insert(ctx, trade); err != nil {
		log.WarnContext(ctx, "trade persist failed",
			slog.String("position_id", trade.PositionID),
			slog.String("error", err.Error()),
		)
	}

	if deps.Audit != nil {
		detail := map[string]any{
			"position_id": trade.PositionID,
			"side":        string(trade.Side),
			"quantity":    trade.Quantity,
			"price":       trade.Price,
			"dry_run":     trade.DryRun,
			"success":     trade.Success,
		}
		if err := deps.Audit.Log(ctx, "copytrade."+string(ev.Kind), detail); err != nil {
			log.DebugContext(ctx, "audit log failed", slog.String("error", err.Error()))
		}
	}
}

// publishEvent pushes the flattened event onto the Redis bus for external
// consumers (dashboards, alerting).
func (a *App) publishEvent(ctx context.Context, deps *Dependencies, log *slog.Logger, ev domain.TrackerEvent) {
	if deps.Bus == nil {
		return
	}

	out := busEvent{
		Kind:    string(ev.Kind),
		Address: ev.Address,
		At:      ev.At.UTC().Format(time.RFC3339),
		Error:   ev.Err,
	}
	if ev.Snapshot != nil {
		count := ev.Snapshot.Count()
		total := ev.Snapshot.TotalValue
		out.PositionCount = &count
		out.TotalValue = &total
	}
	if ev.Changes != nil {
		out.Added = len(ev.Changes.Added)
		out.Updated = len(ev.Changes.Updated)
		out.Removed = len(ev.Changes.Removed)
	}
	if ev.Result != nil {
		out.PositionID = ev.Result.Position.ID
		out.Side = string(ev.Result.Kind.OrderSide())
		out.Quantity = ev.Result.Quantity
		out.Price = ev.Result.Price
		out.OrderID = ev.Result.OrderID
		out.DryRun = ev.Result.DryRun
	}

	payload, err := json.Marshal(out)
	if err != nil {
		log.DebugContext(ctx, "event marshal failed", slog.String("error", err.Error()))
		return
	}
	if err := deps.Bus.Publish(ctx, eventsChannel, payload); err != nil {
		log.DebugContext(ctx, "event publish failed", slog.String("error", err.Error()))
	}
}
