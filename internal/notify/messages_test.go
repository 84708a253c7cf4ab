package notify

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/mirrorbot/internal/domain"
)

// captureSender records everything sent through it.
type captureSender struct {
	mu       sync.Mutex
	messages []string
}

func (c *captureSender) Send(ctx context.Context, title, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, title+"\n"+message)
	return nil
}

func (c *captureSender) Name() string { return "capture" }

func tradeEvent(kind domain.EventKind, success bool) domain.TrackerEvent {
	res := &domain.ExecutionResult{
		Success: success,
		DryRun:  true,
		Kind:    domain.IntentOpen,
		Position: domain.Position{
			ID:      "tok",
			Market:  domain.Market{Question: "Will it rain tomorrow?"},
			Outcome: "Yes",
		},
		Quantity: 25,
		Price:    0.42,
	}
	ev := domain.TrackerEvent{
		Kind:     kind,
		Address:  "0x56687bf447db6ffa42ffe2204a05edaa20f55839",
		At:       time.Now(),
		Result:   res,
		Position: &res.Position,
	}
	if !success {
		ev.Err = "trade size 1.00 below minimum 5.00"
	}
	return ev
}

func TestFormatEvent_UnchangedSnapshotIsSilent(t *testing.T) {
	ev := domain.TrackerEvent{
		Kind:    domain.EventSnapshotUpdate,
		Changes: &domain.ChangeSet{Changed: false},
	}
	_, _, ok := FormatEvent(ev)
	assert.False(t, ok)
}

func TestFormatEvent_SnapshotChanges(t *testing.T) {
	ev := domain.TrackerEvent{
		Kind:    domain.EventSnapshotUpdate,
		Address: "0x56687bf447db6ffa42ffe2204a05edaa20f55839",
		Changes: &domain.ChangeSet{
			Changed: true,
			Added: []domain.Position{{
				ID:       "a",
				Market:   domain.Market{Question: "Will it rain tomorrow?"},
				Outcome:  "Yes",
				Quantity: 100,
				Price:    0.5,
			}},
			Removed: []domain.Position{{
				ID:      "b",
				Market:  domain.Market{Question: "Will it snow?"},
				Outcome: "No",
			}},
		},
	}

	title, msg, ok := FormatEvent(ev)

	require.True(t, ok)
	assert.Equal(t, "Position changes detected", title)
	assert.Contains(t, msg, "0x56687b..5839")
	assert.Contains(t, msg, "Added 1, updated 0, removed 1")
	assert.Contains(t, msg, "+ Will it rain tomorrow? (Yes) qty 100.00 @ 0.500")
	assert.Contains(t, msg, "- Will it snow? (No)")
}

func TestFormatEvent_TradeExecuted(t *testing.T) {
	title, msg, ok := FormatEvent(tradeEvent(domain.EventTradeExecuted, true))

	require.True(t, ok)
	assert.Equal(t, "Copy trade executed", title)
	assert.Contains(t, msg, "OPEN BUY qty 25.00 @ 0.420 (dry-run)")
	assert.Contains(t, msg, "Will it rain tomorrow?")
}

func TestFormatEvent_TradeError(t *testing.T) {
	title, msg, ok := FormatEvent(tradeEvent(domain.EventTradeError, false))

	require.True(t, ok)
	assert.Equal(t, "Copy trade failed", title)
	assert.Contains(t, msg, "Error: trade size 1.00 below minimum 5.00")
}

func TestFormatEvent_TickError(t *testing.T) {
	ev := domain.TrackerEvent{
		Kind:    domain.EventTickError,
		Address: "0x56687bf447db6ffa42ffe2204a05edaa20f55839",
		Err:     "data api down",
	}
	title, msg, ok := FormatEvent(ev)

	require.True(t, ok)
	assert.Equal(t, "Tracker tick failed", title)
	assert.Contains(t, msg, "data api down")
}

func TestNotifier_EventFilter(t *testing.T) {
	sender := &captureSender{}
	n := NewNotifier([]Sender{sender}, []string{"trade_executed"}, slog.Default())

	require.NoError(t, n.NotifyEvent(context.Background(), tradeEvent(domain.EventTradeExecuted, true)))
	require.NoError(t, n.NotifyEvent(context.Background(), tradeEvent(domain.EventTradeError, false)))

	assert.Len(t, sender.messages, 1, "only the allowed event type is delivered")
	assert.Contains(t, sender.messages[0], "Copy trade executed")
}

func TestNotifier_EmptyFilterAllowsEverything(t *testing.T) {
	sender := &captureSender{}
	n := NewNotifier([]Sender{sender}, nil, slog.Default())

	require.NoError(t, n.NotifyEvent(context.Background(), tradeEvent(domain.EventTradeExecuted, true)))
	require.NoError(t, n.NotifyEvent(context.Background(), tradeEvent(domain.EventTradeError, false)))

	assert.Len(t, sender.messages, 2)
}

func TestShortAddr(t *testing.T) {
	assert.Equal(t, "0x56687b..5839", shortAddr("0x56687bf447db6ffa42ffe2204a05edaa20f55839"))
	assert.Equal(t, "0xshort", shortAddr("0xshort"))
}
