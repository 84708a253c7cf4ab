package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/alanyoungcy/mirrorbot/internal/blob/s3"
	"github.com/alanyoungcy/mirrorbot/internal/cache/redis"
	"github.com/alanyoungcy/mirrorbot/internal/config"
	"github.com/alanyoungcy/mirrorbot/internal/copytrade"
	"github.com/alanyoungcy/mirrorbot/internal/crypto"
	"github.com/alanyoungcy/mirrorbot/internal/domain"
	"github.com/alanyoungcy/mirrorbot/internal/notify"
	"github.com/alanyoungcy/mirrorbot/internal/platform/polymarket"
	"github.com/alanyoungcy/mirrorbot/internal/store/postgres"
	"github.com/alanyoungcy/mirrorbot/internal/tracker"
)

// Dependencies bundles everything the application modes need to operate. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Stores
	Trades    domain.CopyTradeStore
	Snapshots domain.SnapshotStore
	Audit     domain.AuditStore

	// Caches
	Prices  domain.PriceCache
	Markets domain.MarketCache
	Locks   domain.LockManager
	Bus     domain.SignalBus

	// Blob storage
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader
	Archiver   *s3blob.Archiver

	// Venue access
	Source  domain.MarketDataSource
	Gateway domain.OrderGateway

	// Copy-trading core
	Engine   *copytrade.Engine
	Executor *copytrade.Executor
	Stats    *copytrade.Stats
	Tracker  *tracker.Tracker

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.Trades = postgres.NewCopyTradeStore(pool)
	deps.Snapshots = postgres.NewSnapshotStore(pool)
	deps.Audit = postgres.NewAuditStore(pool)

	// --- Redis ---
	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.Prices = redis.NewPriceCache(redisClient)
	deps.Markets = redis.NewMarketCache(redisClient)
	deps.Locks = redis.NewLockManager(redisClient)
	deps.Bus = redis.NewSignalBus(redisClient)

	// --- S3 blob storage (trade-report archival) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, cfg.S3)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.BlobReader = s3blob.NewReader(s3Client)
		deps.Archiver = s3blob.NewArchiver(deps.BlobWriter, deps.Trades, deps.Audit, cfg.S3.Prefix, logger)
	}

	// --- Venue data source ---
	var gamma *polymarket.GammaClient
	if cfg.Polymarket.GammaHost != "" {
		gamma = polymarket.NewGammaClient(cfg.Polymarket.GammaHost)
	}
	deps.Source = polymarket.NewDataClient(cfg.Polymarket.DataHost, gamma, deps.Markets, logger)

	// --- Copy-trading core ---
	copying := cfg.Mode == "copy" && cfg.CopyTrade.Enabled

	index := copytrade.NewIndex()
	if copying {
		ids, err := deps.Trades.OpenPositionIDs(ctx, cfg.Tracker.Address)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: restore mirrored positions: %w", err)
		}
		index.Restore(ids)
		if len(ids) > 0 {
			logger.Info("restored mirrored positions", slog.Int("count", len(ids)))
		}
	}
	deps.Engine = copytrade.NewEngine(index, logger)

	// Live execution needs a signing key and an initialized order gateway.
	// Dry-run and monitor modes never touch the wallet.
	if copying && !cfg.CopyTrade.DryRun {
		key, err := crypto.LoadKey(crypto.KeyConfig{
			RawPrivateKey:    cfg.Wallet.PrivateKey,
			EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
			KeyPassword:      cfg.Wallet.KeyPassword,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: load wallet key: %w", err)
		}
		signer, err := crypto.NewSigner(key, cfg.Polymarket.ChainID)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: create signer: %w", err)
		}
		deps.Gateway = polymarket.NewClobClient(
			cfg.Polymarket.ClobHost,
			signer,
			cfg.Wallet.FunderAddress,
			cfg.Polymarket.SignatureType,
		)
	}

	deps.Executor = copytrade.NewExecutor(deps.Gateway, cfg.CopyTrade, logger)
	if copying && !cfg.CopyTrade.DryRun {
		// A broken gateway is fatal at startup, not at the first trade.
		if err := deps.Executor.Init(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: initialize order gateway: %w", err)
		}
	}

	deps.Stats = copytrade.NewStats(cfg.CopyTrade.Enabled, cfg.CopyTrade.DryRun)

	deps.Tracker = tracker.New(
		cfg.Tracker.Address,
		cfg.Tracker.PollInterval.Duration,
		deps.Source,
		deps.Engine,
		deps.Executor,
		deps.Stats,
		copying,
		tracker.Options{Locks: deps.Locks},
		logger,
	)

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
