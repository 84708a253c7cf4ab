package tracker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/mirrorbot/internal/copytrade"
	"github.com/alanyoungcy/mirrorbot/internal/domain"
)

// State is the tracker lifecycle state.
type State string

const (
	StateStopped State = "stopped"
	StateRunning State = "running"
)

// lockTTL bounds how long the distributed per-account lock is held when the
// process dies mid-tick.
const lockTTL = 2 * time.Minute

// eventBuffer is the capacity of the tracker's event channel. A stalled
// consumer drops further events rather than blocking the tick.
const eventBuffer = 256

// Tracker drives the poll loop for one tracked account: fetch, detect, decide,
// execute, emit. It owns the previous snapshot between ticks and guarantees
// at most one tick in flight per account.
type Tracker struct {
	address  string
	interval time.Duration

	source   domain.MarketDataSource
	engine   *copytrade.Engine
	executor *copytrade.Executor
	stats    *copytrade.Stats
	copying  bool

	// locks is optional; when set, a distributed per-account lock additionally
	// prevents two processes from mirroring the same account.
	locks  domain.LockManager
	logger *slog.Logger

	events  chan domain.TrackerEvent
	dropped int64 // events discarded because the channel was full

	mu    sync.Mutex
	state State
	prev  *domain.AccountSnapshot
	stop  chan struct{}
	done  chan struct{}

	// tickMu is the single-flight guard: a tick whose I/O outlives the poll
	// interval causes the next tick to be skipped, not overlapped.
	tickMu sync.Mutex
}

// Options configures optional tracker collaborators.
type Options struct {
	Locks domain.LockManager
}

// New creates a Tracker for address polling at the given interval. copying
// enables intent generation and execution; when false the tracker only
// detects and emits.
func New(
	address string,
	interval time.Duration,
	source domain.MarketDataSource,
	engine *copytrade.Engine,
	executor *copytrade.Executor,
	stats *copytrade.Stats,
	copying bool,
	opts Options,
	logger *slog.Logger,
) *Tracker {
	return &Tracker{
		address:  address,
		interval: interval,
		source:   source,
		engine:   engine,
		executor: executor,
		stats:    stats,
		copying:  copying,
		locks:    opts.Locks,
		logger:   logger.With(slog.String("component", "tracker"), slog.String("address", address)),
		events:   make(chan domain.TrackerEvent, eventBuffer),
		state:    StateStopped,
	}
}

// Events returns the tracker's event stream. Consumers must keep draining it;
// events are dropped, not blocked on, when the buffer fills.
func (t *Tracker) Events() <-chan domain.TrackerEvent {
	return t.events
}

// State returns the current lifecycle state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// LastSnapshot returns a copy of the most recent successfully fetched
// snapshot, or nil before the first successful tick.
func (t *Tracker) LastSnapshot() *domain.AccountSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.prev == nil {
		return nil
	}
	cp := *t.prev
	return &cp
}

// Start transitions Stopped -> Running: one immediate tick, then a
// fixed-interval ticker. Calling Start while already running logs a warning
// and does nothing.
func (t *Tracker) Start(ctx context.Context) {
	t.mu.Lock()
	if t.state == StateRunning {
		t.mu.Unlock()
		t.logger.Warn("tracker already running, ignoring start")
		return
	}
	t.state = StateRunning
	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	stop, done := t.stop, t.done
	t.mu.Unlock()

	t.logger.Info("tracker started", slog.Duration("interval", t.interval))

	go func() {
		defer close(done)

		t.tick(ctx)

		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				t.logger.Info("tracker context cancelled")
				t.markStopped()
				return
			case <-stop:
				return
			case <-ticker.C:
				t.tick(ctx)
			}
		}
	}()
}

// Stop disarms the ticker and transitions to Stopped. The in-flight tick, if
// any, is not cancelled, merely not rescheduled; await Done for quiescence.
func (t *Tracker) Stop() {
	t.mu.Lock()
	if t.state != StateRunning {
		t.mu.Unlock()
		return
	}
	t.state = StateStopped
	close(t.stop)
	t.mu.Unlock()
	t.logger.Info("tracker stopped")
}

// Dropped returns the number of events discarded because the event channel
// was full.
func (t *Tracker) Dropped() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}

// Done returns a channel closed once the poll goroutine has fully exited.
// Returns nil if the tracker was never started.
func (t *Tracker) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

func (t *Tracker) markStopped() {
	t.mu.Lock()
	if t.state == StateRunning {
		t.state = StateStopped
	}
	t.mu.Unlock()
}

// tick runs one fetch-detect-decide-execute cycle. Every failure is contained
// here: the ticker never stops because of a tick error, and a failed fetch
// leaves the previous snapshot in place so the next comparison runs against
// the last good state instead of a phantom position wipe.
func (t *Tracker) tick(ctx context.Context) {
	if !t.tickMu.TryLock() {
		t.logger.Warn("previous tick still in flight, skipping")
		return
	}
	defer t.tickMu.Unlock()

	if t.locks != nil {
		unlock, err := t.locks.Acquire(ctx, "tracker:"+t.address, lockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				t.logger.Warn("account locked by another process, skipping tick")
			} else {
				t.emitError(err)
			}
			return
		}
		defer unlock()
	}

	cur, err := t.source.FetchPositions(ctx, t.address)
	if err != nil {
		t.logger.Error("position fetch failed", slog.String("error", err.Error()))
		t.emitError(err)
		return
	}

	t.mu.Lock()
	prev := t.prev
	t.mu.Unlock()

	changes := Detect(prev, cur)

	t.mu.Lock()
	t.prev = &cur
	t.mu.Unlock()

	t.logger.Debug("snapshot refreshed",
		slog.Int("positions", cur.Count()),
		slog.Float64("total_value", cur.TotalValue),
		slog.Bool("changed", changes.Changed),
		slog.Int("added", len(changes.Added)),
		slog.Int("updated", len(changes.Updated)),
		slog.Int("removed", len(changes.Removed)),
	)

	t.emit(domain.TrackerEvent{
		Kind:     domain.EventSnapshotUpdate,
		Address:  t.address,
		At:       time.Now().UTC(),
		Snapshot: &cur,
		Changes:  &changes,
	})

	if !t.copying || !changes.Changed {
		return
	}

	for _, intent := range t.engine.Decide(changes) {
		res := t.executor.Execute(ctx, intent)
		t.stats.Record(res)
		t.engine.Commit(res)

		ev := domain.TrackerEvent{
			Address:  t.address,
			At:       time.Now().UTC(),
			Result:   &res,
			Position: &res.Position,
		}
		if res.Success {
			ev.Kind = domain.EventTradeExecuted
		} else {
			ev.Kind = domain.EventTradeError
			ev.Err = res.Err
		}
		t.emit(ev)
	}
}

// emitError reports a tick-level failure without stopping the loop.
func (t *Tracker) emitError(err error) {
	t.emit(domain.TrackerEvent{
		Kind:    domain.EventTickError,
		Address: t.address,
		At:      time.Now().UTC(),
		Err:     err.Error(),
	})
}

// emit performs a non-blocking send. Dropping is preferable to letting a
// stalled consumer wedge the tick.
func (t *Tracker) emit(ev domain.TrackerEvent) {
	select {
	case t.events <- ev:
	default:
		t.mu.Lock()
		t.dropped++
		n := t.dropped
		t.mu.Unlock()
		t.logger.Warn("event channel full, dropping event",
			slog.String("kind", string(ev.Kind)),
			slog.Int64("dropped_total", n),
		)
	}
}
