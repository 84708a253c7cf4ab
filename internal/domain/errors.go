package domain

import "errors"

// Sentinel errors shared across the platform adapters, stores, and caches.
// Callers classify failures with errors.Is at the boundary where they decide
// whether to retry, skip, or surface.
var (
	// ErrNotFound is returned by stores and caches for missing rows or keys,
	// and by the Data API adapters for unknown addresses and markets.
	ErrNotFound = errors.New("not found")

	// ErrRateLimited maps HTTP 429 from the venue.
	ErrRateLimited = errors.New("rate limited")

	// ErrUnauthorized maps HTTP 401/403 from the venue.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidOrder is returned by the order gateway when the venue rejects
	// the order parameters.
	ErrInvalidOrder = errors.New("invalid order parameters")

	// ErrSigningFailed wraps EIP-712 signing failures during order placement.
	ErrSigningFailed = errors.New("signing failed")

	// ErrWSDisconnect is returned by the websocket client when the connection
	// drops and cannot be restored.
	ErrWSDisconnect = errors.New("websocket disconnected")

	// ErrLockHeld indicates another process holds the per-account lock; the
	// tracker skips the tick rather than fetching concurrently.
	ErrLockHeld = errors.New("lock already held")
)
