package domain

import "context"

// MarketDataSource fetches the tracked account's open positions. FetchPositions
// must be idempotent and side-effect-free from the caller's perspective; venue
// schema variance is resolved behind this interface.
type MarketDataSource interface {
	FetchPositions(ctx context.Context, address string) (AccountSnapshot, error)
}

// OrderGateway submits mirrored orders to the venue.
type OrderGateway interface {
	// Initialize performs at-most-once credential setup. Idempotent; safe to
	// call before every submission.
	Initialize(ctx context.Context) error
	// SubmitOrder places an order and returns the venue's order identifier.
	SubmitOrder(ctx context.Context, tokenID string, side OrderSide, price, size float64) (string, error)
}
