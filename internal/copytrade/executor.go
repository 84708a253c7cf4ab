package copytrade

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alanyoungcy/mirrorbot/internal/config"
	"github.com/alanyoungcy/mirrorbot/internal/domain"
)

// Executor sizes a trade intent, applies the risk guard chain, and dispatches
// to either the dry-run path or the live order gateway. It never returns an
// error: every failure mode is folded into a negative ExecutionResult so the
// polling loop survives executor failures.
type Executor struct {
	gateway domain.OrderGateway
	cfg     config.CopyTradeConfig
	logger  *slog.Logger

	initOnce sync.Once
	initErr  error
}

// NewExecutor creates an Executor. gateway may be nil when cfg.DryRun is set;
// live execution requires a working gateway.
func NewExecutor(gateway domain.OrderGateway, cfg config.CopyTradeConfig, logger *slog.Logger) *Executor {
	return &Executor{
		gateway: gateway,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "copytrade_executor")),
	}
}

// Init performs the gateway's one-time credential setup. Idempotent: the
// underlying call runs at most once regardless of how many times Init is
// invoked. Live mode calls this eagerly at startup so a broken gateway is
// fatal before any trade is attempted; dry-run never initializes.
func (ex *Executor) Init(ctx context.Context) error {
	if ex.cfg.DryRun {
		return nil
	}
	ex.initOnce.Do(func() {
		if ex.gateway == nil {
			ex.initErr = fmt.Errorf("copytrade: live execution requires an order gateway")
			return
		}
		ex.initErr = ex.gateway.Initialize(ctx)
	})
	return ex.initErr
}

// Execute carries one intent through sizing, guards, and dispatch.
//
// The guard chain runs in a fixed order and the first violation wins: minimum
// trade size, then maximum trade size, then (opens only) maximum position
// size. A guard violation is a normal negative result, not an error, and no
// order is attempted.
func (ex *Executor) Execute(ctx context.Context, intent domain.TradeIntent) domain.ExecutionResult {
	quantity := intent.Quantity * ex.cfg.SizeMultiplier
	price := intent.Price
	notional := quantity * price

	res := domain.ExecutionResult{
		DryRun:   ex.cfg.DryRun,
		Position: intent.Position,
		Kind:     intent.Kind,
		Quantity: quantity,
		Price:    price,
	}

	log := ex.logger.With(
		slog.String("position_id", intent.Position.ID),
		slog.String("kind", string(intent.Kind)),
		slog.Float64("quantity", quantity),
		slog.Float64("price", price),
		slog.Float64("notional", notional),
	)

	if notional < ex.cfg.MinTradeSize {
		res.Err = fmt.Sprintf("trade size %.2f below minimum %.2f", notional, ex.cfg.MinTradeSize)
		log.Warn("trade rejected", slog.String("reason", res.Err))
		return res
	}
	if ex.cfg.MaxTradeSize > 0 && notional > ex.cfg.MaxTradeSize {
		res.Err = fmt.Sprintf("trade size %.2f above maximum %.2f", notional, ex.cfg.MaxTradeSize)
		log.Warn("trade rejected", slog.String("reason", res.Err))
		return res
	}
	if intent.Kind == domain.IntentOpen && ex.cfg.MaxPositionSize > 0 {
		scaledValue := intent.Position.Value * ex.cfg.SizeMultiplier
		if scaledValue > ex.cfg.MaxPositionSize {
			res.Err = fmt.Sprintf("position size %.2f above maximum %.2f", scaledValue, ex.cfg.MaxPositionSize)
			log.Warn("trade rejected", slog.String("reason", res.Err))
			return res
		}
	}

	if ex.cfg.DryRun {
		// Simulated success: same stats and events as a live fill, no order ID.
		res.Success = true
		log.Info("dry-run trade executed")
		return res
	}

	if err := ex.Init(ctx); err != nil {
		res.Err = fmt.Sprintf("gateway initialization: %v", err)
		log.Error("trade failed", slog.String("error", res.Err))
		return res
	}

	orderID, err := ex.gateway.SubmitOrder(ctx, intent.Position.ID, intent.Kind.OrderSide(), price, quantity)
	if err != nil {
		res.Err = err.Error()
		log.Error("order submission failed", slog.String("error", res.Err))
		return res
	}

	res.Success = true
	res.OrderID = orderID
	log.Info("trade executed", slog.String("order_id", orderID))
	return res
}
