// Package app provides the top-level application lifecycle for the sync
// engine. It wires the session coordinator, signal bus, and HTTP/WebSocket
// server together and runs them until the context is cancelled.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"clobdeck/internal/config"
	"clobdeck/internal/domain"
)

// shutdownTimeout bounds how long in-flight HTTP requests may take once a
// shutdown begins.
const shutdownTimeout = 10 * time.Second

// App is the root application object. It owns the configuration, logger,
// and a list of cleanup functions that are called in reverse order on
// shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, starts the
// session, the WebSocket hub, and the HTTP server, and blocks until the
// context is cancelled or a component fails. On return the caller should
// invoke Close.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("identity", a.cfg.Session.Identity),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	if err := deps.Session.Start(ctx); err != nil {
		return fmt.Errorf("app: start session: %w", err)
	}
	a.closers = append(a.closers, deps.Session.Stop)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := deps.Hub.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	// Bridge new session-log entries onto the bus for live log streaming.
	g.Go(func() error {
		entries, cancel := deps.Log.Subscribe()
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return nil
			case entry, ok := <-entries:
				if !ok {
					return nil
				}
				data, err := json.Marshal(entry)
				if err != nil {
					continue
				}
				_ = deps.SignalBus.Publish(ctx, domain.BusLog, data)
			}
		}
	})

	g.Go(deps.Server.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return deps.Server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close tears down all resources in reverse registration order. It is safe
// to call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
