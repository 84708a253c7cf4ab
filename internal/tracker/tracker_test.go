package tracker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/mirrorbot/internal/config"
	"github.com/alanyoungcy/mirrorbot/internal/copytrade"
	"github.com/alanyoungcy/mirrorbot/internal/domain"
)

// fakeSource returns scripted snapshots or errors, one per fetch.
type fakeSource struct {
	mu      sync.Mutex
	results []fetchResult
	calls   int
}

type fetchResult struct {
	snap domain.AccountSnapshot
	err  error
}

func (f *fakeSource) FetchPositions(ctx context.Context, address string) (domain.AccountSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls >= len(f.results) {
		// Repeat the last scripted result.
		f.calls++
		last := f.results[len(f.results)-1]
		return last.snap, last.err
	}
	r := f.results[f.calls]
	f.calls++
	return r.snap, r.err
}

// heldLocks always reports the account as locked elsewhere.
type heldLocks struct{}

func (heldLocks) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	return nil, domain.ErrLockHeld
}

func newTestTracker(t *testing.T, source domain.MarketDataSource, copying bool, opts Options) *Tracker {
	t.Helper()
	logger := slog.Default()
	engine := copytrade.NewEngine(copytrade.NewIndex(), logger)
	executor := copytrade.NewExecutor(nil, config.CopyTradeConfig{
		Enabled:        true,
		DryRun:         true,
		SizeMultiplier: 1.0,
		MinTradeSize:   1.0,
	}, logger)
	stats := copytrade.NewStats(true, true)
	// A long interval so only the immediate tick fires during the test.
	return New("0xabc", time.Hour, source, engine, executor, stats, copying, opts, logger)
}

func awaitEvent(t *testing.T, tr *Tracker, kind domain.EventKind) domain.TrackerEvent {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-tr.Events():
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", kind)
		}
	}
}

func TestTracker_FirstTickEmitsBootstrapSnapshot(t *testing.T) {
	snap := snapshot(50, position("a", 100, 0.5))
	source := &fakeSource{results: []fetchResult{{snap: snap}}}
	tr := newTestTracker(t, source, false, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr.Start(ctx)
	defer tr.Stop()

	ev := awaitEvent(t, tr, domain.EventSnapshotUpdate)

	require.NotNil(t, ev.Snapshot)
	require.NotNil(t, ev.Changes)
	assert.True(t, ev.Changes.Changed)
	assert.Len(t, ev.Changes.Added, 1)
	assert.Equal(t, "0xabc", ev.Address)

	last := tr.LastSnapshot()
	require.NotNil(t, last)
	assert.Equal(t, 1, last.Count())
	assert.Equal(t, StateRunning, tr.State())
}

func TestTracker_FetchFailureRetainsPreviousSnapshot(t *testing.T) {
	snap := snapshot(50, position("a", 100, 0.5))
	source := &fakeSource{results: []fetchResult{
		{err: errors.New("data api down")},
	}}
	tr := newTestTracker(t, source, false, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr.Start(ctx)
	defer tr.Stop()

	ev := awaitEvent(t, tr, domain.EventTickError)
	assert.Contains(t, ev.Err, "data api down")
	assert.Nil(t, tr.LastSnapshot())

	_ = snap // documented: the next good fetch diffs against the last good state
}

func TestTracker_CopyingExecutesDryRunTrades(t *testing.T) {
	snap := snapshot(50, position("a", 100, 0.5))
	source := &fakeSource{results: []fetchResult{{snap: snap}}}
	tr := newTestTracker(t, source, true, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr.Start(ctx)
	defer tr.Stop()

	ev := awaitEvent(t, tr, domain.EventTradeExecuted)

	require.NotNil(t, ev.Result)
	assert.True(t, ev.Result.Success)
	assert.True(t, ev.Result.DryRun)
	assert.Equal(t, domain.IntentOpen, ev.Result.Kind)
	assert.Equal(t, "a", ev.Result.Position.ID)
}

func TestTracker_MonitorNeverTrades(t *testing.T) {
	snap := snapshot(50, position("a", 100, 0.5))
	source := &fakeSource{results: []fetchResult{{snap: snap}}}
	tr := newTestTracker(t, source, false, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr.Start(ctx)

	awaitEvent(t, tr, domain.EventSnapshotUpdate)
	tr.Stop()
	<-tr.Done()

	// Drain anything buffered; no trade events may appear.
	for {
		select {
		case ev := <-tr.Events():
			assert.NotEqual(t, domain.EventTradeExecuted, ev.Kind)
			assert.NotEqual(t, domain.EventTradeError, ev.Kind)
		default:
			return
		}
	}
}

func TestTracker_HeldLockSkipsTickSilently(t *testing.T) {
	snap := snapshot(50, position("a", 100, 0.5))
	source := &fakeSource{results: []fetchResult{{snap: snap}}}
	tr := newTestTracker(t, source, false, Options{Locks: heldLocks{}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr.Start(ctx)
	defer tr.Stop()

	// Give the immediate tick time to run and be skipped.
	time.Sleep(100 * time.Millisecond)

	source.mu.Lock()
	calls := source.calls
	source.mu.Unlock()
	assert.Zero(t, calls, "a held lock must prevent the fetch")

	select {
	case ev := <-tr.Events():
		t.Fatalf("unexpected event %s", ev.Kind)
	default:
	}
}

func TestTracker_StartWhileRunningIsNoop(t *testing.T) {
	source := &fakeSource{results: []fetchResult{{snap: snapshot(0)}}}
	tr := newTestTracker(t, source, false, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr.Start(ctx)
	defer tr.Stop()

	first := tr.Done()
	tr.Start(ctx)
	assert.Equal(t, first, tr.Done(), "second start must not replace the loop")
}

func TestTracker_StopTransitionsAndQuiesces(t *testing.T) {
	source := &fakeSource{results: []fetchResult{{snap: snapshot(0)}}}
	tr := newTestTracker(t, source, false, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr.Start(ctx)
	require.Equal(t, StateRunning, tr.State())

	tr.Stop()
	select {
	case <-tr.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("tracker did not quiesce")
	}
	assert.Equal(t, StateStopped, tr.State())

	// Stop again is a no-op.
	tr.Stop()
}

func TestTracker_SecondTickDiffsAgainstFirst(t *testing.T) {
	first := snapshot(50, position("a", 100, 0.5))
	second := snapshot(100, position("a", 100, 0.5), position("b", 100, 0.5))
	source := &fakeSource{results: []fetchResult{{snap: first}, {snap: second}}}

	tr := newTestTracker(t, source, false, Options{})

	// Drive ticks directly; Start's ticker cadence is not under test.
	ctx := context.Background()
	tr.tick(ctx)
	tr.tick(ctx)

	ev1 := awaitEvent(t, tr, domain.EventSnapshotUpdate)
	assert.Len(t, ev1.Changes.Added, 1)

	ev2 := awaitEvent(t, tr, domain.EventSnapshotUpdate)
	require.Len(t, ev2.Changes.Added, 1)
	assert.Equal(t, "b", ev2.Changes.Added[0].ID)
	assert.Equal(t, 2, tr.LastSnapshot().Count())
}

func TestTracker_DroppedCountsWhenBufferFull(t *testing.T) {
	source := &fakeSource{results: []fetchResult{{snap: snapshot(0)}}}
	tr := newTestTracker(t, source, false, Options{})

	// Fill the buffer without a consumer, then overflow it.
	for i := 0; i < eventBuffer+3; i++ {
		tr.emit(domain.TrackerEvent{Kind: domain.EventTickError, Address: "0xabc", At: time.Now()})
	}

	assert.Equal(t, int64(3), tr.Dropped())
}
