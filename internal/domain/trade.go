package domain

import (
	"math"
	"time"
)

// OrderSide indicates whether an order buys or sells the outcome token.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// IntentKind classifies a trade intent: open mirrors a newly appeared
// position with a buy, close mirrors a disappeared position with a sell.
type IntentKind string

const (
	IntentOpen  IntentKind = "open"
	IntentClose IntentKind = "close"
)

// OrderSide maps the intent kind to the gateway order side.
func (k IntentKind) OrderSide() OrderSide {
	if k == IntentClose {
		return OrderSideSell
	}
	return OrderSideBuy
}

// TradeIntent is a derived instruction to mirror one detected change.
// Ephemeral; never persisted.
type TradeIntent struct {
	Kind     IntentKind
	Position Position
	Quantity float64 // source position quantity, prior to size scaling
	Price    float64
}

// ExecutionResult is the outcome of one executor invocation.
type ExecutionResult struct {
	Success  bool
	DryRun   bool
	Position Position
	Kind     IntentKind
	OrderID  string // empty for dry-run and failed executions
	Quantity float64
	Price    float64
	Err      string
}

// CopyTrade is the persisted record of one execution attempt, kept for
// external reporting only.
type CopyTrade struct {
	ID         string
	Address    string // tracked account the trade mirrors
	PositionID string
	Question   string
	Outcome    string
	Side       OrderSide
	Quantity   float64
	Price      float64
	Notional   float64
	DryRun     bool
	Success    bool
	OrderID    string
	Err        string
	ExecutedAt time.Time
}

// CopyTradeStats aggregates execution outcomes for the process lifetime.
type CopyTradeStats struct {
	Enabled     bool
	DryRun      bool
	Executed    int64
	Failed      int64
	Volume      float64 // cumulative notional, rounded to cents on each add
	LastTradeAt time.Time
}

// Record folds one execution result into the stats.
func (s *CopyTradeStats) Record(res ExecutionResult) {
	if !res.Success {
		s.Failed++
		return
	}
	s.Executed++
	s.Volume = math.Round((s.Volume+res.Quantity*res.Price)*100) / 100
	s.LastTradeAt = time.Now()
}
