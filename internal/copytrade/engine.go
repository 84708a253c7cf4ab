package copytrade

import (
	"log/slog"

	"github.com/alanyoungcy/mirrorbot/internal/domain"
)

// Engine maps a detected change set to ordered trade intents. It exclusively
// owns the idempotency index: Decide only reads it, Commit mutates it after
// the executor reports success.
type Engine struct {
	index  *Index
	logger *slog.Logger
}

// NewEngine creates an Engine around the given index.
func NewEngine(index *Index, logger *slog.Logger) *Engine {
	return &Engine{
		index:  index,
		logger: logger.With(slog.String("component", "copytrade_engine")),
	}
}

// Index returns the engine's idempotency index for read-only inspection.
func (e *Engine) Index() *Index {
	return e.index
}

// Decide emits trade intents for a change set. Opens are ordered before
// closes within one tick; within each group iteration follows the snapshot's
// map order.
//
//   - An added position already present in the index never produces a second
//     open, even when fed a duplicate classification across ticks.
//   - A removed position not in the index is silently ignored: we never
//     opened it, so there is nothing of ours to close.
//   - Updated (resize) deltas are observational only and produce no intent.
func (e *Engine) Decide(cs domain.ChangeSet) []domain.TradeIntent {
	intents := make([]domain.TradeIntent, 0, len(cs.Added)+len(cs.Removed))

	for _, pos := range cs.Added {
		if e.index.Has(pos.ID) {
			e.logger.Debug("skipping already mirrored position",
				slog.String("position_id", pos.ID),
			)
			continue
		}
		intents = append(intents, domain.TradeIntent{
			Kind:     domain.IntentOpen,
			Position: pos,
			Quantity: pos.Quantity,
			Price:    pos.Price,
		})
	}

	for _, pos := range cs.Removed {
		if !e.index.Has(pos.ID) {
			e.logger.Debug("ignoring close for position we never opened",
				slog.String("position_id", pos.ID),
			)
			continue
		}
		intents = append(intents, domain.TradeIntent{
			Kind:     domain.IntentClose,
			Position: pos,
			Quantity: pos.Quantity,
			Price:    pos.Price,
		})
	}

	return intents
}

// Commit folds a successful execution back into the index: opens insert the
// position ID, closes remove it. Failed executions leave the index untouched
// so the next tick can retry.
func (e *Engine) Commit(res domain.ExecutionResult) {
	if !res.Success {
		return
	}
	switch res.Kind {
	case domain.IntentOpen:
		e.index.MarkOpened(res.Position.ID)
	case domain.IntentClose:
		e.index.MarkClosed(res.Position.ID)
	}
}
