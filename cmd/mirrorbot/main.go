// Command mirrorbot tracks a Polymarket account and mirrors its position
// changes. It loads configuration, validates it, wires dependencies, sets up
// signal handling, and starts the application in the configured mode.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alanyoungcy/mirrorbot/internal/app"
	"github.com/alanyoungcy/mirrorbot/internal/config"
	"github.com/alanyoungcy/mirrorbot/internal/crypto"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	encryptKey := flag.Bool("encrypt-key", false, "encrypt a private key to stdout and exit (reads MIRRORBOT_RAW_KEY and MIRRORBOT_KEY_PASSWORD)")
	flag.Parse()

	// Setup structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if *encryptKey {
		if err := runEncryptKey(); err != nil {
			fmt.Fprintf(os.Stderr, "encrypt-key: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Load configuration.
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", *configPath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// Set log level from config.
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// Validate configuration.
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("mirror bot starting",
		slog.String("mode", cfg.Mode),
		slog.String("address", cfg.Tracker.Address),
		slog.String("config", *configPath),
	)
	logger.Debug("effective configuration", slog.Any("config", config.RedactedConfig(cfg)))

	// Create the application.
	application := app.New(cfg, logger)
	defer application.Close()

	// Setup signal handling for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Run the application.
	if err := application.Run(ctx); err != nil {
		// context.Canceled is expected on clean shutdown.
		if err == context.Canceled {
			logger.Info("application shut down gracefully")
		} else {
			logger.Error("application exited with error",
				slog.String("error", err.Error()),
			)
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
	}

	logger.Info("mirror bot stopped")
}

// runEncryptKey reads the raw key and password from the environment and prints
// the encrypted key JSON, suitable for wallet.encrypted_key_path.
func runEncryptKey() error {
	raw := os.Getenv("MIRRORBOT_RAW_KEY")
	password := os.Getenv("MIRRORBOT_KEY_PASSWORD")
	if raw == "" || password == "" {
		return fmt.Errorf("MIRRORBOT_RAW_KEY and MIRRORBOT_KEY_PASSWORD must be set")
	}

	blob, err := crypto.EncryptKey(raw, password)
	if err != nil {
		return err
	}
	fmt.Println(string(blob))
	return nil
}
