package app

import (
	"context"
	"fmt"
	"log/slog"

	"clobdeck/internal/bus"
	"clobdeck/internal/cache/redis"
	"clobdeck/internal/config"
	"clobdeck/internal/crypto"
	"clobdeck/internal/domain"
	"clobdeck/internal/logstore"
	"clobdeck/internal/platform/polymarket"
	"clobdeck/internal/pushchan"
	"clobdeck/internal/reconcile"
	"clobdeck/internal/server"
	"clobdeck/internal/server/handler"
	"clobdeck/internal/server/ws"
	"clobdeck/internal/session"
)

// Dependencies bundles everything the application needs to run. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Log       *logstore.Store
	SignalBus domain.SignalBus
	Session   *session.Session
	Hub       *ws.Hub
	Server    *server.Server
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Session log ---
	deps.Log = logstore.New()

	// --- Signal bus: Redis when configured, in-process otherwise ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		deps.SignalBus = redis.NewSignalBus(redisClient)
	} else {
		deps.SignalBus = bus.NewMemory()
	}

	// --- Exchange pull client, HMAC-signed when credentials are present ---
	var signer polymarket.RequestSigner
	if !cfg.Creds.Empty() {
		signer = &crypto.HMACAuth{
			Key:        cfg.Creds.ApiKey,
			Secret:     cfg.Creds.ApiSecret,
			Passphrase: cfg.Creds.ApiPassphrase,
		}
	}
	client := polymarket.NewClient(cfg.Polymarket.ClobHost, cfg.Session.Identity, signer, deps.Log)

	// --- Reconciler over the canonical collections ---
	rec := reconcile.New(client, cfg.Session.Identity, deps.Log, logger)

	// --- Push channels + session coordinator ---
	manager := pushchan.NewManager(deps.Log, logger)
	deps.Session = session.New(session.Config{
		MarketTarget: cfg.Polymarket.MarketWSURL(),
		UserTarget:   cfg.Polymarket.UserWSURL(),
		AssetIDs:     cfg.Session.AssetIDs,
		Markets:      cfg.Session.Markets,
		Creds: domain.APICreds{
			APIKey:     cfg.Creds.ApiKey,
			Secret:     cfg.Creds.ApiSecret,
			Passphrase: cfg.Creds.ApiPassphrase,
		},
		PollInterval: cfg.Session.PollInterval.Duration,
		Identity:     cfg.Session.Identity,
	}, manager, rec, deps.Log, deps.SignalBus, logger)

	// --- WebSocket hub + HTTP server ---
	deps.Hub = ws.NewHub(deps.SignalBus, logger)
	deps.Server = server.NewServer(server.Config{
		Port:        cfg.Server.Port,
		CORSOrigins: cfg.Server.CORSOrigins,
		APIKey:      cfg.Server.APIKey,
	}, server.Handlers{
		Books:  handler.NewBookHandler(deps.Session, logger),
		Orders: handler.NewOrderHandler(deps.Session, logger),
		Trades: handler.NewTradeHandler(deps.Session),
		Status: handler.NewStatusHandler(deps.Session),
		Logs:   handler.NewLogsHandler(deps.Log, logger),
	}, deps.Hub, logger)

	return deps, cleanup, nil
}
