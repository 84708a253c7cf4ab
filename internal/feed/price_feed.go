// Package feed keeps the live price cache warm for the tracked account's
// outcome tokens by consuming the Polymarket CLOB market WebSocket channel.
package feed

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/mirrorbot/internal/domain"
	"github.com/alanyoungcy/mirrorbot/internal/platform/polymarket"
)

// marketChannelPath is appended to the WebSocket host to reach the public
// market channel.
const marketChannelPath = "/ws/market"

// cacheWriteTimeout bounds each price cache write so a slow Redis never backs
// up the WebSocket read loop.
const cacheWriteTimeout = 5 * time.Second

// SnapshotSource exposes the most recent account snapshot; the feed derives
// its subscription set from it.
type SnapshotSource interface {
	LastSnapshot() *domain.AccountSnapshot
}

// PriceFeed subscribes to last-trade-price frames for every token the tracked
// account currently holds and writes them into the price cache. The
// subscription set follows the account: tokens are subscribed as positions
// appear and unsubscribed once they are gone.
type PriceFeed struct {
	wsHost  string
	prices  domain.PriceCache
	source  SnapshotSource
	refresh time.Duration
	logger  *slog.Logger

	// subscribed is only touched by Run's goroutine.
	subscribed map[string]struct{}
}

// NewPriceFeed creates a PriceFeed. refresh controls how often the
// subscription set is reconciled against the latest snapshot.
func NewPriceFeed(wsHost string, prices domain.PriceCache, source SnapshotSource, refresh time.Duration, logger *slog.Logger) *PriceFeed {
	if refresh <= 0 {
		refresh = 30 * time.Second
	}
	return &PriceFeed{
		wsHost:     strings.TrimSuffix(wsHost, "/"),
		prices:     prices,
		source:     source,
		refresh:    refresh,
		logger:     logger.With(slog.String("component", "price_feed")),
		subscribed: make(map[string]struct{}),
	}
}

// Run connects, then reconciles subscriptions on a fixed cadence until ctx is
// cancelled. Reconnection and subscription restore are handled inside the
// WebSocket client.
func (f *PriceFeed) Run(ctx context.Context) error {
	client := polymarket.NewWSClient(f.wsHost + marketChannelPath)
	defer client.Close()

	client.OnLastTrade(func(lt polymarket.LastTrade) {
		if lt.AssetID == "" || lt.Price <= 0 {
			return
		}
		wctx, cancel := context.WithTimeout(context.Background(), cacheWriteTimeout)
		defer cancel()
		if err := f.prices.SetPrice(wctx, lt.AssetID, lt.Price, lt.Timestamp); err != nil {
			f.logger.Debug("price cache write failed",
				slog.String("asset_id", lt.AssetID),
				slog.String("error", err.Error()),
			)
		}
	})

	connCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	err := client.Connect(connCtx)
	cancel()
	if err != nil {
		return err
	}
	f.logger.Info("price feed connected", slog.String("ws_host", f.wsHost))

	f.reconcile(ctx, client)

	ticker := time.NewTicker(f.refresh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			f.reconcile(ctx, client)
		}
	}
}

// reconcile diffs the tracked account's current token set against the feed's
// subscriptions and issues the subscribe/unsubscribe deltas.
func (f *PriceFeed) reconcile(ctx context.Context, client *polymarket.WSClient) {
	snap := f.source.LastSnapshot()
	if snap == nil {
		return
	}

	current := make(map[string]struct{}, len(snap.Positions))
	for id := range snap.Positions {
		if id != "" {
			current[id] = struct{}{}
		}
	}

	var add, remove []string
	for id := range current {
		if _, ok := f.subscribed[id]; !ok {
			add = append(add, id)
		}
	}
	for id := range f.subscribed {
		if _, ok := current[id]; !ok {
			remove = append(remove, id)
		}
	}

	if len(add) > 0 {
		if err := client.SubscribeAssets(ctx, add); err != nil {
			f.logger.Warn("subscribe failed", slog.Int("assets", len(add)), slog.String("error", err.Error()))
		} else {
			for _, id := range add {
				f.subscribed[id] = struct{}{}
			}
		}
	}
	if len(remove) > 0 {
		if err := client.UnsubscribeAssets(ctx, remove); err != nil {
			f.logger.Warn("unsubscribe failed", slog.Int("assets", len(remove)), slog.String("error", err.Error()))
		} else {
			for _, id := range remove {
				delete(f.subscribed, id)
			}
		}
	}

	if len(add) > 0 || len(remove) > 0 {
		f.logger.Debug("subscriptions reconciled",
			slog.Int("subscribed", len(f.subscribed)),
			slog.Int("added", len(add)),
			slog.Int("removed", len(remove)),
		)
	}
}
