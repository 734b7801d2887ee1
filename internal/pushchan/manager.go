package pushchan

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"clobdeck/internal/domain"
	"clobdeck/internal/logstore"
)

// Manager owns at most one live push channel per (kind, target) pair.
type Manager struct {
	log    *logstore.Store
	logger *slog.Logger

	backoffBase time.Duration
	backoffCap  time.Duration

	mu       sync.Mutex
	channels map[string]*Channel
}

// NewManager creates a Manager that mirrors all channel activity into the
// given log store.
func NewManager(log *logstore.Store, logger *slog.Logger) *Manager {
	return &Manager{
		log:         log,
		logger:      logger.With(slog.String("component", "pushchan")),
		backoffBase: DefaultBackoffBase,
		backoffCap:  DefaultBackoffCap,
		channels:    make(map[string]*Channel),
	}
}

// Open returns the channel for (kind, target), creating and dialing it if
// none exists. It is idempotent per pair: a second Open returns the existing
// handle. An empty target fails immediately with ErrConfig and never
// attempts a connection.
func (m *Manager) Open(kind domain.ChannelKind, target string, onMessage MessageHandler, onState StateHandler) (*Channel, error) {
	if target == "" {
		m.log.Append(domain.LogError,
			fmt.Sprintf("%s channel endpoint is empty", kind), nil)
		return nil, fmt.Errorf("pushchan: open %s: empty endpoint: %w", kind, domain.ErrConfig)
	}

	key := string(kind) + "|" + target

	m.mu.Lock()
	if existing, ok := m.channels[key]; ok {
		m.mu.Unlock()
		return existing, nil
	}
	ch := &Channel{
		m:         m,
		key:       key,
		params:    dialParams{kind: kind, target: target},
		onMessage: onMessage,
		onState:   onState,
		state:     domain.ConnIdle,
	}
	m.channels[key] = ch
	m.mu.Unlock()

	go ch.connect(ch.params)
	return ch, nil
}

// CloseAll closes every open channel. Reconnect and retry timers are
// disabled synchronously before it returns.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	channels := make([]*Channel, 0, len(m.channels))
	for _, ch := range m.channels {
		channels = append(channels, ch)
	}
	m.mu.Unlock()

	for _, ch := range channels {
		ch.Close()
	}
}

// forget removes a closed channel so a later Open can create a fresh one.
func (m *Manager) forget(key string) {
	m.mu.Lock()
	delete(m.channels, key)
	m.mu.Unlock()
}
