// Package config defines the top-level configuration for the sync engine
// and provides sanitization and validation helpers.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by CLOBDECK_* environment
// variables.
type Config struct {
	Polymarket PolymarketConfig `toml:"polymarket"`
	Session    SessionConfig    `toml:"session"`
	Creds      CredsConfig      `toml:"creds"`
	Redis      RedisConfig      `toml:"redis"`
	Server     ServerConfig     `toml:"server"`
	LogLevel   string           `toml:"log_level"`
}

// PolymarketConfig holds Polymarket API endpoints and chain parameters.
type PolymarketConfig struct {
	ClobHost string `toml:"clob_host"`
	WsHost   string `toml:"ws_host"`
	ChainID  int    `toml:"chain_id"`
}

// MarketWSURL is the push endpoint for the market channel.
func (p PolymarketConfig) MarketWSURL() string {
	return strings.TrimRight(p.WsHost, "/") + "/ws/market"
}

// UserWSURL is the push endpoint for the user channel.
func (p PolymarketConfig) UserWSURL() string {
	return strings.TrimRight(p.WsHost, "/") + "/ws/user"
}

// SessionConfig describes what one dashboard session tracks.
type SessionConfig struct {
	AssetIDs     []string `toml:"asset_ids"`
	Markets      []string `toml:"markets"`
	PollInterval duration `toml:"poll_interval"`
	Identity     string   `toml:"identity"`
}

// CredsConfig holds the user-channel API credentials. All three fields must
// be set together, or all empty (market data only).
type CredsConfig struct {
	ApiKey        string `toml:"api_key"`
	ApiSecret     string `toml:"api_secret"`
	ApiPassphrase string `toml:"api_passphrase"`
}

// Empty reports whether no credentials are configured.
func (c CredsConfig) Empty() bool {
	return c.ApiKey == "" && c.ApiSecret == "" && c.ApiPassphrase == ""
}

// RedisConfig holds Redis connection parameters for the signal bus. When
// Enabled is false the engine uses its in-process bus instead.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5s", "1m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5s" or "1m".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Defaults returns the built-in configuration. Everything needed for a
// read-only market-data session works out of the box.
func Defaults() Config {
	return Config{
		Polymarket: PolymarketConfig{
			ClobHost: "https://clob.polymarket.com",
			WsHost:   "wss://ws-subscriptions-clob.polymarket.com",
			ChainID:  137,
		},
		Session: SessionConfig{
			PollInterval: duration{5 * time.Second},
			Identity:     "default",
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{},
		},
		LogLevel: "info",
	}
}

// Sanitize coerces out-of-range or malformed values back to their defaults
// and returns a note per corrected field. A bad knob degrades to the
// built-in default instead of refusing to start.
func (c *Config) Sanitize() []string {
	var notes []string
	def := Defaults()

	if !validHostURL(c.Polymarket.ClobHost, "http", "https") {
		notes = append(notes, fmt.Sprintf("polymarket.clob_host %q reset to %q", c.Polymarket.ClobHost, def.Polymarket.ClobHost))
		c.Polymarket.ClobHost = def.Polymarket.ClobHost
	}
	if !validHostURL(c.Polymarket.WsHost, "ws", "wss") {
		notes = append(notes, fmt.Sprintf("polymarket.ws_host %q reset to %q", c.Polymarket.WsHost, def.Polymarket.WsHost))
		c.Polymarket.WsHost = def.Polymarket.WsHost
	}
	if c.Polymarket.ChainID <= 0 {
		notes = append(notes, fmt.Sprintf("polymarket.chain_id %d reset to %d", c.Polymarket.ChainID, def.Polymarket.ChainID))
		c.Polymarket.ChainID = def.Polymarket.ChainID
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		notes = append(notes, fmt.Sprintf("log_level %q reset to %q", c.LogLevel, def.LogLevel))
		c.LogLevel = def.LogLevel
	}
	if c.Session.PollInterval.Duration <= 0 {
		notes = append(notes, fmt.Sprintf("session.poll_interval reset to %s", def.Session.PollInterval))
		c.Session.PollInterval = def.Session.PollInterval
	}
	if c.Session.Identity == "" {
		c.Session.Identity = def.Session.Identity
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		notes = append(notes, fmt.Sprintf("server.port %d reset to %d", c.Server.Port, def.Server.Port))
		c.Server.Port = def.Server.Port
	}
	if c.Redis.PoolSize < 1 {
		notes = append(notes, fmt.Sprintf("redis.pool_size reset to %d", def.Redis.PoolSize))
		c.Redis.PoolSize = def.Redis.PoolSize
	}
	if c.Redis.MaxRetries < 0 {
		notes = append(notes, fmt.Sprintf("redis.max_retries reset to %d", def.Redis.MaxRetries))
		c.Redis.MaxRetries = def.Redis.MaxRetries
	}
	return notes
}

// validHostURL reports whether raw parses as an absolute URL with one of the
// given schemes and a non-empty host.
func validHostURL(raw string, schemes ...string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return true
		}
	}
	return false
}

// Validate checks the invariants Sanitize cannot repair. It returns a single
// error listing every violation so operators can fix them all at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Polymarket.ClobHost == "" {
		errs = append(errs, "polymarket: clob_host must not be empty")
	}
	if c.Polymarket.WsHost == "" {
		errs = append(errs, "polymarket: ws_host must not be empty")
	}
	if c.Polymarket.ChainID <= 0 {
		errs = append(errs, "polymarket: chain_id must be positive")
	}

	// Creds — all three fields must be set together, or all empty.
	ck := c.Creds.ApiKey != ""
	cs := c.Creds.ApiSecret != ""
	cp := c.Creds.ApiPassphrase != ""
	if (ck || cs || cp) && !(ck && cs && cp) {
		errs = append(errs, "creds: api_key, api_secret, and api_passphrase must all be set together")
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty when enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
