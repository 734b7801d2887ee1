// Package bus provides an in-process domain.SignalBus. It is the default
// bus when no Redis address is configured: same fan-out semantics, no
// external dependency, single-process scope.
package bus

import (
	"context"
	"path"
	"sync"

	"clobdeck/internal/domain"
)

const subscriberBuffer = 128

type subscriber struct {
	pattern string
	ch      chan []byte
}

// Memory is an in-process pub/sub bus. Subscribers with glob patterns
// (path.Match syntax, enough for the per-asset book channels) receive every
// matching publish. A subscriber that cannot keep up drops messages rather
// than blocking the publisher.
type Memory struct {
	mu   sync.RWMutex
	subs map[*subscriber]struct{}
}

// NewMemory creates an empty in-process bus.
func NewMemory() *Memory {
	return &Memory{subs: make(map[*subscriber]struct{})}
}

// Publish delivers payload to every subscriber whose pattern matches
// channel. It never blocks and never fails.
func (m *Memory) Publish(ctx context.Context, channel string, payload []byte) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for sub := range m.subs {
		if !matches(sub.pattern, channel) {
			continue
		}
		select {
		case sub.ch <- payload:
		default:
		}
	}
	return nil
}

// Subscribe registers a subscriber for channel (exact name or glob pattern)
// and returns its delivery channel. The subscription ends and the channel
// closes when ctx is cancelled.
func (m *Memory) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	sub := &subscriber{pattern: channel, ch: make(chan []byte, subscriberBuffer)}

	m.mu.Lock()
	m.subs[sub] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.subs, sub)
		m.mu.Unlock()
		close(sub.ch)
	}()

	return sub.ch, nil
}

func matches(pattern, channel string) bool {
	if pattern == channel {
		return true
	}
	ok, err := path.Match(pattern, channel)
	return err == nil && ok
}

var _ domain.SignalBus = (*Memory)(nil)
