package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	assert.Empty(t, cfg.Sanitize())
	require.NoError(t, cfg.Validate())
}

func TestSanitizeResetsMalformedValues(t *testing.T) {
	cfg := Defaults()
	cfg.LogLevel = "verbose"
	cfg.Session.PollInterval = duration{-time.Second}
	cfg.Server.Port = 99999

	notes := cfg.Sanitize()
	assert.Len(t, notes, 3)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.Session.PollInterval.Duration)
	assert.Equal(t, 8080, cfg.Server.Port)
	require.NoError(t, cfg.Validate())
}

func TestSanitizeRepairsEndpointsAndChainID(t *testing.T) {
	cfg := Defaults()
	cfg.Polymarket.ClobHost = "not a url"
	cfg.Polymarket.WsHost = "http://wrong-scheme.example.com"
	cfg.Polymarket.ChainID = -5

	notes := cfg.Sanitize()
	assert.Len(t, notes, 3)
	assert.Equal(t, "https://clob.polymarket.com", cfg.Polymarket.ClobHost)
	assert.Equal(t, "wss://ws-subscriptions-clob.polymarket.com", cfg.Polymarket.WsHost)
	assert.Equal(t, 137, cfg.Polymarket.ChainID)

	// A malformed chain or endpoint never aborts startup.
	require.NoError(t, cfg.Validate())
}

func TestValidateRequiresAllCredsTogether(t *testing.T) {
	cfg := Defaults()
	cfg.Creds.ApiKey = "key-only"
	require.Error(t, cfg.Validate())

	cfg.Creds.ApiSecret = "secret"
	cfg.Creds.ApiPassphrase = "pass"
	require.NoError(t, cfg.Validate())
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clobdeck.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level = "debug"

[session]
asset_ids = ["asset-1"]
poll_interval = "2s"
`), 0o600))

	t.Setenv("CLOBDECK_SESSION_IDENTITY", "env-trader")
	t.Setenv("CLOBDECK_SESSION_ASSET_IDS", "asset-2, asset-3")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 2*time.Second, cfg.Session.PollInterval.Duration)
	assert.Equal(t, "env-trader", cfg.Session.Identity, "env overrides file")
	assert.Equal(t, []string{"asset-2", "asset-3"}, cfg.Session.AssetIDs)
	assert.Equal(t, "https://clob.polymarket.com", cfg.Polymarket.ClobHost, "defaults survive merge")
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults().Polymarket.ClobHost, cfg.Polymarket.ClobHost)
}

func TestRedactedConfigMasksSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Creds = CredsConfig{ApiKey: "key", ApiSecret: "sec", ApiPassphrase: "pp"}
	cfg.Redis.Password = "hunter2"

	red := RedactedConfig(&cfg)
	assert.Equal(t, "key", red.Creds.ApiKey, "api key is an identifier, not a secret")
	assert.Equal(t, "***", red.Creds.ApiSecret)
	assert.Equal(t, "***", red.Creds.ApiPassphrase)
	assert.Equal(t, "***", red.Redis.Password)

	// The original is untouched.
	assert.Equal(t, "sec", cfg.Creds.ApiSecret)
}

func TestWSURLDerivation(t *testing.T) {
	p := PolymarketConfig{WsHost: "wss://example.com/"}
	assert.Equal(t, "wss://example.com/ws/market", p.MarketWSURL())
	assert.Equal(t, "wss://example.com/ws/user", p.UserWSURL())
}
