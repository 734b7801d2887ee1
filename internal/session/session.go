// Package session coordinates one dashboard session: it owns the push
// channels, the canonical collections, and the polling loop, and publishes
// every state change onto the signal bus for UI consumers.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"clobdeck/internal/book"
	"clobdeck/internal/domain"
	"clobdeck/internal/logstore"
	"clobdeck/internal/pushchan"
	"clobdeck/internal/reconcile"
)

// DefaultPollInterval is how often the canonical collections are refreshed
// from the pull API when the config does not say otherwise.
const DefaultPollInterval = 5 * time.Second

// Config carries everything a session needs to connect and authenticate.
type Config struct {
	MarketTarget string
	UserTarget   string
	AssetIDs     []string
	Markets      []string
	Creds        domain.APICreds
	PollInterval time.Duration
	Identity     string
}

// Status is the connection state of both push channels.
type Status struct {
	Market domain.ConnState `json:"market"`
	User   domain.ConnState `json:"user"`
}

// Session wires the push channels, book aggregation, and reconciliation
// together for one trading identity. All read accessors return copies and
// are safe for concurrent use.
type Session struct {
	cfg     Config
	manager *pushchan.Manager
	rec     *reconcile.Reconciler
	log     *logstore.Store
	logger  *slog.Logger
	bus     domain.SignalBus

	mu     sync.RWMutex
	books  map[string]domain.Book
	market *pushchan.Channel
	user   *pushchan.Channel

	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// New builds a Session. Start must be called before the session does
// anything.
func New(cfg Config, manager *pushchan.Manager, rec *reconcile.Reconciler, log *logstore.Store, bus domain.SignalBus, logger *slog.Logger) *Session {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Session{
		cfg:     cfg,
		manager: manager,
		rec:     rec,
		log:     log,
		logger:  logger.With(slog.String("component", "session")),
		bus:     bus,
		books:   make(map[string]domain.Book),
	}
}

// Start opens both push channels, queues their subscriptions, performs an
// initial refresh, and launches the polling loop. It is not safe to call
// twice.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("session: %w: already started", domain.ErrConfig)
	}
	s.started = true
	s.mu.Unlock()

	market, err := s.manager.Open(domain.ChannelMarket, s.cfg.MarketTarget, s.onMarketMessage, s.statusPublisher("market"))
	if err != nil {
		return fmt.Errorf("session: open market channel: %w", err)
	}
	market.Subscribe(pushchan.SubscribeRequest{
		Type:     string(domain.ChannelMarket),
		AssetIDs: s.cfg.AssetIDs,
	})

	user, err := s.manager.Open(domain.ChannelUser, s.cfg.UserTarget, s.onUserMessage, s.statusPublisher("user"))
	if err != nil {
		s.manager.CloseAll()
		return fmt.Errorf("session: open user channel: %w", err)
	}
	creds := s.cfg.Creds
	user.Subscribe(pushchan.SubscribeRequest{
		Type:    string(domain.ChannelUser),
		Markets: s.cfg.Markets,
		Auth:    &creds,
	})

	s.mu.Lock()
	s.market = market
	s.user = user
	s.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(runCtx)

	s.logger.Info("session started",
		slog.String("identity", s.cfg.Identity),
		slog.Int("assets", len(s.cfg.AssetIDs)),
		slog.Duration("poll_interval", s.cfg.PollInterval))
	return nil
}

// Stop tears the session down synchronously: the polling loop has exited
// and both channels are closed by the time it returns. Safe to call more
// than once.
func (s *Session) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	s.manager.CloseAll()
	s.logger.Info("session stopped")
}

// run is the polling loop. The first refresh happens immediately so the
// dashboard is never empty for a full interval after startup.
func (s *Session) run(ctx context.Context) {
	defer close(s.done)

	s.refresh(ctx)

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

func (s *Session) refresh(ctx context.Context) {
	if err := s.rec.TickRefreshOrders(ctx); err != nil {
		s.logger.Warn("order poll failed", slog.String("error", err.Error()))
	}
	if err := s.rec.RefreshTrades(ctx); err != nil {
		s.logger.Warn("trade poll failed", slog.String("error", err.Error()))
	}
	s.publishCollections()
}

// Submit places an order through the reconciler and republishes the
// canonical collections on acceptance.
func (s *Session) Submit(ctx context.Context, spec domain.OrderSpec) (domain.Order, error) {
	order, err := s.rec.Submit(ctx, spec)
	if err != nil {
		return domain.Order{}, err
	}
	s.publishCollections()
	return order, nil
}

// Cancel cancels one order and republishes the canonical collections.
func (s *Session) Cancel(ctx context.Context, orderID string) error {
	err := s.rec.Cancel(ctx, orderID)
	s.publishCollections()
	return err
}

// CancelAll cancels every open order and republishes the canonical
// collections.
func (s *Session) CancelAll(ctx context.Context) error {
	err := s.rec.CancelAll(ctx)
	s.publishCollections()
	return err
}

// Book returns the latest aggregated book for assetID.
func (s *Session) Book(assetID string) (domain.Book, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.books[assetID]
	return b, ok
}

// Books returns the latest aggregated book for every tracked asset.
func (s *Session) Books() []domain.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Book, 0, len(s.books))
	for _, b := range s.books {
		out = append(out, b)
	}
	return out
}

// Orders returns the canonical open-order collection.
func (s *Session) Orders() []domain.Order { return s.rec.Orders() }

// Trades returns the canonical trade collection.
func (s *Session) Trades() []domain.Trade { return s.rec.Trades() }

// Status returns the current connection state of both push channels.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Status{Market: domain.ConnIdle, User: domain.ConnIdle}
	if s.market != nil {
		st.Market = s.market.State()
	}
	if s.user != nil {
		st.User = s.user.State()
	}
	return st
}

// onMarketMessage handles one raw market-channel frame: parse, aggregate,
// replace the stored book wholesale, publish. Malformed level entries are
// logged and skipped without discarding the rest of the snapshot; a frame
// that fails to parse entirely is returned to the channel, which logs and
// drops it.
func (s *Session) onMarketMessage(raw []byte) error {
	snapshots, err := book.ParseFrame(raw)
	if err != nil {
		return err
	}

	for _, snap := range snapshots {
		aggregated, errs := book.Aggregate(snap.AssetID, snap.Bids, snap.Asks)
		for _, e := range errs {
			s.log.Append(domain.LogError, fmt.Sprintf("book %s: %v", snap.AssetID, e), nil)
		}

		s.mu.Lock()
		s.books[snap.AssetID] = aggregated
		s.mu.Unlock()

		s.publishJSON(domain.BusBookPrefix+snap.AssetID, aggregated)
	}
	return nil
}

// userEvent is the minimal envelope needed to classify a user-channel frame.
type userEvent struct {
	EventType string `json:"event_type"`
	Type      string `json:"type"`
}

// onUserMessage notes order and trade push notifications. The frames are
// never merged into the canonical collections; the raw payload is already
// mirrored in the session log by the channel.
func (s *Session) onUserMessage(raw []byte) error {
	var events []userEvent
	if err := json.Unmarshal(raw, &events); err != nil {
		var single userEvent
		if err := json.Unmarshal(raw, &single); err != nil {
			return fmt.Errorf("%w: user frame: %v", domain.ErrParse, err)
		}
		events = []userEvent{single}
	}

	for _, ev := range events {
		kind := ev.EventType
		if kind == "" {
			kind = ev.Type
		}
		if kind == "" {
			kind = "unknown"
		}
		s.rec.NotePushEvent(kind)
	}
	return nil
}

// statusPublisher returns a StateHandler that publishes the combined
// channel status. It must not call back into the channel, so it reports the
// transitioned state directly instead of re-reading it.
func (s *Session) statusPublisher(channel string) pushchan.StateHandler {
	return func(state domain.ConnState) {
		payload := struct {
			Channel string `json:"channel"`
			State   string `json:"state"`
		}{Channel: channel, State: state.String()}
		s.publishJSON(domain.BusStatus, payload)
	}
}

func (s *Session) publishCollections() {
	s.publishJSON(domain.BusOrders, s.rec.Orders())
	s.publishJSON(domain.BusTrades, s.rec.Trades())
}

func (s *Session) publishJSON(channel string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("bus marshal failed", slog.String("channel", channel), slog.String("error", err.Error()))
		return
	}
	if err := s.bus.Publish(context.Background(), channel, data); err != nil {
		s.logger.Warn("bus publish failed", slog.String("channel", channel), slog.String("error", err.Error()))
	}
}
