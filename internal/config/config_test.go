package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns defaults patched to pass validation.
func validConfig() Config {
	cfg := Defaults()
	cfg.Tracker.Address = "0x56687bf447db6ffa42ffe2204a05edaa20f55839"
	return cfg
}

func TestDefaults_ValidOnceAddressSet(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidate_MissingAddress(t *testing.T) {
	cfg := Defaults()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address must be set")
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "turbo"
	cfg.LogLevel = "loud"
	cfg.Tracker.PollInterval = duration{500 * time.Millisecond}
	cfg.CopyTrade.SizeMultiplier = 0

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "unknown mode")
	assert.Contains(t, msg, "unknown log_level")
	assert.Contains(t, msg, "poll_interval")
	assert.Contains(t, msg, "size_multiplier")
}

func TestValidate_TradeSizeBounds(t *testing.T) {
	cfg := validConfig()
	cfg.CopyTrade.MinTradeSize = 100
	cfg.CopyTrade.MaxTradeSize = 50

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_trade_size must not exceed max_trade_size")

	// Zero max means unbounded, so a large min is fine.
	cfg.CopyTrade.MaxTradeSize = 0
	assert.NoError(t, cfg.Validate())
}

func TestValidate_LiveCopyRequiresKey(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "copy"
	cfg.CopyTrade.Enabled = true
	cfg.CopyTrade.DryRun = false

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "private_key or encrypted_key_path")

	cfg.Wallet.PrivateKey = "0xdeadbeef"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_EncryptedKeyNeedsPassword(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "copy"
	cfg.CopyTrade.Enabled = true
	cfg.CopyTrade.DryRun = false
	cfg.Wallet.EncryptedKeyPath = "/secrets/key.json"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key_password is required")
}

func TestValidate_DryRunNeedsNoWallet(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "copy"
	cfg.CopyTrade.Enabled = true
	cfg.CopyTrade.DryRun = true

	assert.NoError(t, cfg.Validate())
}

func TestValidate_S3CheckedOnlyWhenEnabled(t *testing.T) {
	cfg := validConfig()
	cfg.S3.Enabled = false
	cfg.S3.Bucket = ""
	assert.NoError(t, cfg.Validate())

	cfg.S3.Enabled = true
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket must not be empty")
}

func TestLoad_TOMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
mode = "copy"
log_level = "debug"

[tracker]
address = "0xabc"
poll_interval = "45s"

[copytrade]
enabled = true
dry_run = true
size_multiplier = 0.5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "copy", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "0xabc", cfg.Tracker.Address)
	assert.Equal(t, 45*time.Second, cfg.Tracker.PollInterval.Duration)
	assert.True(t, cfg.CopyTrade.Enabled)
	assert.Equal(t, 0.5, cfg.CopyTrade.SizeMultiplier)
	// Untouched sections keep their defaults.
	assert.Equal(t, "https://data-api.polymarket.com", cfg.Polymarket.DataHost)
	assert.Equal(t, 137, cfg.Polymarket.ChainID)
}

func TestLoad_EnvOverridesTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[tracker]
address = "0xfromfile"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("MIRRORBOT_TRACKER_ADDRESS", "0xfromenv")
	t.Setenv("MIRRORBOT_COPYTRADE_SIZE_MULTIPLIER", "2.5")
	t.Setenv("MIRRORBOT_TRACKER_PRICE_FEED", "true")
	t.Setenv("MIRRORBOT_NOTIFY_EVENTS", "trade_executed, trade_error")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0xfromenv", cfg.Tracker.Address)
	assert.Equal(t, 2.5, cfg.CopyTrade.SizeMultiplier)
	assert.True(t, cfg.Tracker.PriceFeed)
	assert.Equal(t, []string{"trade_executed", "trade_error"}, cfg.Notify.Events)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestRedactedConfig_MasksSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.Wallet.PrivateKey = "0xsecret"
	cfg.Wallet.KeyPassword = "hunter2"
	cfg.Postgres.Password = "pgpass"
	cfg.Redis.Password = "redispass"
	cfg.S3.SecretKey = "s3secret"
	cfg.Server.APIKey = "apikey"
	cfg.Notify.TelegramToken = "tok"

	red := RedactedConfig(&cfg)

	assert.NotEqual(t, "0xsecret", red.Wallet.PrivateKey)
	assert.NotEqual(t, "hunter2", red.Wallet.KeyPassword)
	assert.NotEqual(t, "pgpass", red.Postgres.Password)
	assert.NotEqual(t, "redispass", red.Redis.Password)
	assert.NotEqual(t, "s3secret", red.S3.SecretKey)
	assert.NotEqual(t, "apikey", red.Server.APIKey)
	assert.NotEqual(t, "tok", red.Notify.TelegramToken)

	// The original is untouched.
	assert.Equal(t, "0xsecret", cfg.Wallet.PrivateKey)
}
