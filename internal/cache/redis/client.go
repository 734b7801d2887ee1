// Package redis implements the signal bus on go-redis/v9 Pub/Sub, letting
// multiple dashboard processes share one engine's fan-out.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"clobdeck/internal/config"
)

// dialTimeout bounds the startup connectivity probe so a dead Redis fails
// the engine fast instead of hanging Wire.
const dialTimeout = 5 * time.Second

// Client wraps a go-redis client configured from the engine's [redis]
// section. It exists so the signal bus and the health probe share one
// connection pool.
type Client struct {
	rdb *redis.Client
}

// New dials Redis per cfg and verifies connectivity before returning. The
// engine refuses to start with an unreachable bus backend rather than
// silently dropping fan-out.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	opts := &redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		PoolSize:   cfg.PoolSize,
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", cfg.Addr, err)
	}

	return &Client{rdb: rdb}, nil
}

// Ping checks the Redis connection.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}
