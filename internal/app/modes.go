package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/mirrorbot/internal/feed"
	"github.com/alanyoungcy/mirrorbot/internal/server"
	"github.com/alanyoungcy/mirrorbot/internal/server/handler"
)

// MonitorMode runs read-only tracking: the poll loop, the event consumer, and
// the HTTP server. No trade intents are generated.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")
	return a.run(ctx, deps)
}

// CopyMode runs the full mirror loop: tracking plus intent generation and
// execution (dry-run or live, per configuration).
func (a *App) CopyMode(ctx context.Context, deps *Dependencies) error {
	if !a.cfg.CopyTrade.Enabled {
		a.logger.WarnContext(ctx, "copy mode selected but copytrade.enabled is false; running as monitor")
	}
	a.logger.InfoContext(ctx, "starting copy mode",
		slog.Bool("dry_run", a.cfg.CopyTrade.DryRun),
		slog.Float64("size_multiplier", a.cfg.CopyTrade.SizeMultiplier),
	)
	return a.run(ctx, deps)
}

// run starts the shared goroutine set and blocks until the first failure or
// context cancellation. The tracker itself decides whether to copy; both modes
// share everything else.
func (a *App) run(ctx context.Context, deps *Dependencies) error {
	g, ctx := errgroup.WithContext(ctx)

	// Tracker poll loop.
	deps.Tracker.Start(ctx)
	g.Go(func() error {
		<-ctx.Done()
		deps.Tracker.Stop()
		<-deps.Tracker.Done()
		return ctx.Err()
	})

	// Event consumer: persistence, notifications, bus publishing.
	g.Go(func() error {
		return a.consumeEvents(ctx, deps)
	})

	// Trade-report archival.
	if deps.Archiver != nil {
		g.Go(func() error {
			deps.Archiver.Run(ctx, a.cfg.S3.ArchiveInterval.Duration)
			return nil
		})
	}

	// Live price feed for tracked tokens.
	if a.cfg.Tracker.PriceFeed && a.cfg.Polymarket.WsHost != "" {
		priceFeed := feed.NewPriceFeed(
			a.cfg.Polymarket.WsHost,
			deps.Prices,
			deps.Tracker,
			a.cfg.Tracker.PollInterval.Duration,
			a.logger,
		)
		g.Go(func() error {
			err := priceFeed.Run(ctx)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("price feed: %w", err)
		})
	}

	// HTTP server.
	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps)
	}

	return g.Wait()
}

// startHTTPServer adds the HTTP server and its shutdown watcher to the group.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	handlers := server.Handlers{
		Health:    handler.NewHealthHandler(a.logger),
		Status:    handler.NewStatusHandler(a.cfg.Mode, a.cfg.Tracker.Address, deps.Tracker, deps.Stats),
		Positions: handler.NewPositionHandler(deps.Tracker, deps.Prices),
		Trades:    handler.NewTradesHandler(deps.Trades, a.cfg.Tracker.Address, a.logger),
		Snapshots: handler.NewSnapshotsHandler(deps.Snapshots, a.cfg.Tracker.Address, a.logger),
		Reports:   handler.NewReportsHandler(deps.BlobReader, a.cfg.S3.Prefix, a.logger),
	}

	srv := server.NewServer(a.cfg.Server, handlers, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
