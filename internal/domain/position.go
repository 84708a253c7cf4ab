package domain

import "time"

// Position is one open position held by the tracked account. ID is unique per
// tradable token/outcome and is the diffing key: it stays stable across polls
// for the same open position, and a changed ID for economically the same
// position is indistinguishable from a close followed by a reopen.
type Position struct {
	ID           string // ERC-1155 token ID of the outcome
	Market       Market
	Outcome      string
	Quantity     float64
	Price        float64
	Value        float64
	InitialValue float64
	ObservedAt   time.Time
}

// Notional returns quantity x price, the USD-equivalent size.
func (p Position) Notional() float64 {
	return p.Quantity * p.Price
}

// AccountSnapshot is the full set of an account's open positions at one poll
// tick. Produced fresh each tick; only the previous generation is retained.
type AccountSnapshot struct {
	Address    string
	Positions  map[string]Position // keyed by Position.ID
	TotalValue float64
	CapturedAt time.Time
}

// Get returns the position for id, if present.
func (s AccountSnapshot) Get(id string) (Position, bool) {
	p, ok := s.Positions[id]
	return p, ok
}

// Count returns the number of open positions in the snapshot.
func (s AccountSnapshot) Count() int {
	return len(s.Positions)
}
