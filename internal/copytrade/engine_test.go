package copytrade

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/mirrorbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.Default()
}

func pos(id string, qty, price float64) domain.Position {
	return domain.Position{
		ID:       id,
		Market:   domain.Market{ID: "cond-" + id, Question: "Will it happen?"},
		Outcome:  "Yes",
		Quantity: qty,
		Price:    price,
		Value:    qty * price,
	}
}

func TestEngineDecide_OpensBeforeCloses(t *testing.T) {
	index := NewIndex()
	index.MarkOpened("old")
	engine := NewEngine(index, testLogger())

	cs := domain.ChangeSet{
		Changed: true,
		Added:   []domain.Position{pos("new", 10, 0.5)},
		Removed: []domain.Position{pos("old", 20, 0.4)},
	}

	intents := engine.Decide(cs)

	require.Len(t, intents, 2)
	assert.Equal(t, domain.IntentOpen, intents[0].Kind)
	assert.Equal(t, "new", intents[0].Position.ID)
	assert.Equal(t, domain.IntentClose, intents[1].Kind)
	assert.Equal(t, "old", intents[1].Position.ID)
}

func TestEngineDecide_SkipsAlreadyMirroredOpen(t *testing.T) {
	index := NewIndex()
	index.MarkOpened("dup")
	engine := NewEngine(index, testLogger())

	intents := engine.Decide(domain.ChangeSet{
		Changed: true,
		Added:   []domain.Position{pos("dup", 10, 0.5)},
	})

	assert.Empty(t, intents)
}

func TestEngineDecide_IgnoresCloseForUnknownPosition(t *testing.T) {
	engine := NewEngine(NewIndex(), testLogger())

	intents := engine.Decide(domain.ChangeSet{
		Changed: true,
		Removed: []domain.Position{pos("never-opened", 10, 0.5)},
	})

	assert.Empty(t, intents)
}

func TestEngineDecide_ResizesProduceNoIntent(t *testing.T) {
	engine := NewEngine(NewIndex(), testLogger())

	intents := engine.Decide(domain.ChangeSet{
		Changed: true,
		Updated: []domain.QuantityChange{{
			Position:    pos("a", 150, 0.5),
			OldQuantity: 100,
			NewQuantity: 150,
		}},
	})

	assert.Empty(t, intents)
}

func TestEngineDecide_CarriesSourceQuantityAndPrice(t *testing.T) {
	engine := NewEngine(NewIndex(), testLogger())

	intents := engine.Decide(domain.ChangeSet{
		Changed: true,
		Added:   []domain.Position{pos("a", 42, 0.37)},
	})

	require.Len(t, intents, 1)
	assert.Equal(t, 42.0, intents[0].Quantity)
	assert.Equal(t, 0.37, intents[0].Price)
}

func TestEngineCommit_SuccessfulOpenInsertsIntoIndex(t *testing.T) {
	index := NewIndex()
	engine := NewEngine(index, testLogger())

	engine.Commit(domain.ExecutionResult{
		Success:  true,
		Kind:     domain.IntentOpen,
		Position: pos("a", 10, 0.5),
	})

	assert.True(t, index.Has("a"))
}

func TestEngineCommit_SuccessfulCloseRemovesFromIndex(t *testing.T) {
	index := NewIndex()
	index.MarkOpened("a")
	engine := NewEngine(index, testLogger())

	engine.Commit(domain.ExecutionResult{
		Success:  true,
		Kind:     domain.IntentClose,
		Position: pos("a", 10, 0.5),
	})

	assert.False(t, index.Has("a"))
}

func TestEngineCommit_FailureLeavesIndexUntouched(t *testing.T) {
	index := NewIndex()
	engine := NewEngine(index, testLogger())

	engine.Commit(domain.ExecutionResult{
		Success:  false,
		Kind:     domain.IntentOpen,
		Position: pos("a", 10, 0.5),
	})

	assert.False(t, index.Has("a"), "failed open must stay retryable")
}

func TestEngineDecide_RetryAfterFailedOpen(t *testing.T) {
	index := NewIndex()
	engine := NewEngine(index, testLogger())
	added := domain.ChangeSet{Changed: true, Added: []domain.Position{pos("a", 10, 0.5)}}

	first := engine.Decide(added)
	require.Len(t, first, 1)
	engine.Commit(domain.ExecutionResult{Success: false, Kind: domain.IntentOpen, Position: added.Added[0]})

	// The same classification next tick must still produce the open.
	second := engine.Decide(added)
	require.Len(t, second, 1)
	assert.Equal(t, domain.IntentOpen, second[0].Kind)
}
