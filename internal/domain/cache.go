package domain

import (
	"context"
	"time"
)

// PriceCache holds the most recent trade price per outcome token. Written by
// the websocket price feed, read by the status API to enrich position views.
type PriceCache interface {
	SetPrice(ctx context.Context, assetID string, price float64, ts time.Time) error
	GetPrice(ctx context.Context, assetID string) (float64, time.Time, error)
	GetPrices(ctx context.Context, assetIDs []string) (map[string]float64, error)
}

// MarketCache holds market metadata keyed by condition ID so the data source
// does not hit the Gamma API on every tick.
type MarketCache interface {
	Set(ctx context.Context, market Market) error
	Get(ctx context.Context, id string) (Market, error)
	Invalidate(ctx context.Context, id string) error
}

// LockManager grants a distributed per-account lock so two processes never
// mirror the same address. Acquire fails fast with ErrLockHeld.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SignalBus carries serialized tracker events to out-of-process subscribers.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
