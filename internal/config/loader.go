package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies CLOBDECK_* environment variable overrides, and
// returns the final Config. A missing file is not an error; the defaults
// plus environment are enough for a read-only session. The returned Config
// has NOT been sanitized or validated; the caller should invoke
// Config.Sanitize() and Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known CLOBDECK_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Polymarket ──
	setStr(&cfg.Polymarket.ClobHost, "CLOBDECK_POLYMARKET_CLOB_HOST")
	setStr(&cfg.Polymarket.WsHost, "CLOBDECK_POLYMARKET_WS_HOST")
	setInt(&cfg.Polymarket.ChainID, "CLOBDECK_POLYMARKET_CHAIN_ID")

	// ── Session ──
	setStringSlice(&cfg.Session.AssetIDs, "CLOBDECK_SESSION_ASSET_IDS")
	setStringSlice(&cfg.Session.Markets, "CLOBDECK_SESSION_MARKETS")
	setDuration(&cfg.Session.PollInterval, "CLOBDECK_SESSION_POLL_INTERVAL")
	setStr(&cfg.Session.Identity, "CLOBDECK_SESSION_IDENTITY")

	// ── Creds ──
	setStr(&cfg.Creds.ApiKey, "CLOBDECK_CREDS_API_KEY")
	setStr(&cfg.Creds.ApiSecret, "CLOBDECK_CREDS_API_SECRET")
	setStr(&cfg.Creds.ApiPassphrase, "CLOBDECK_CREDS_API_PASSPHRASE")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "CLOBDECK_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "CLOBDECK_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "CLOBDECK_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "CLOBDECK_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "CLOBDECK_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "CLOBDECK_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "CLOBDECK_REDIS_TLS_ENABLED")

	// ── Server ──
	setInt(&cfg.Server.Port, "CLOBDECK_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "CLOBDECK_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "CLOBDECK_SERVER_API_KEY")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "CLOBDECK_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
