// Package logstore is the session-scoped event recorder. Every network
// interaction of the engine is appended here: the full archive keeps all
// entries for the lifetime of the session, while the display view retains
// only the most recent entries so the UI stays bounded.
package logstore

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"clobdeck/internal/domain"
)

// DisplayWindow is the number of entries retained in the display view.
const DisplayWindow = 100

// subscriberBuffer is the per-subscriber channel capacity. A slow subscriber
// loses entries rather than blocking Append.
const subscriberBuffer = 256

// Store is an append-only log with a bounded display window. The display
// view is always a suffix of the archive.
type Store struct {
	mu      sync.Mutex
	archive []domain.LogEntry
	window  []domain.LogEntry
	subs    map[int]chan domain.LogEntry
	nextSub int
	now     func() time.Time
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		subs: make(map[int]chan domain.LogEntry),
		now:  time.Now,
	}
}

// Append records one entry and returns it. The payload, when non-nil, is
// attached verbatim for later inspection.
func (s *Store) Append(category domain.LogCategory, message string, payload []byte) domain.LogEntry {
	entry := domain.LogEntry{
		ID:        uuid.NewString(),
		Timestamp: s.now().UTC(),
		Category:  category,
		Message:   message,
	}
	if len(payload) > 0 {
		entry.Payload = json.RawMessage(payload)
	}

	s.mu.Lock()
	s.archive = append(s.archive, entry)
	s.window = append(s.window, entry)
	if len(s.window) > DisplayWindow {
		s.window = s.window[len(s.window)-DisplayWindow:]
	}
	for _, ch := range s.subs {
		select {
		case ch <- entry:
		default:
		}
	}
	s.mu.Unlock()

	return entry
}

// Display returns a copy of the bounded display view, oldest first.
func (s *Store) Display() []domain.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.LogEntry, len(s.window))
	copy(out, s.window)
	return out
}

// All returns a copy of the full archive, oldest first.
func (s *Store) All() []domain.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.LogEntry, len(s.archive))
	copy(out, s.archive)
	return out
}

// Len returns the archive length.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.archive)
}

// exportedEntry is the wire shape of one exported entry.
type exportedEntry struct {
	Timestamp string             `json:"timestamp"`
	Type      domain.LogCategory `json:"type"`
	Message   string             `json:"message"`
	Payload   json.RawMessage    `json:"payload,omitempty"`
}

// Export serializes the full archive as a JSON array of
// {timestamp, type, message, payload} with ISO-8601 timestamps.
func (s *Store) Export() ([]byte, error) {
	s.mu.Lock()
	entries := make([]exportedEntry, len(s.archive))
	for i, e := range s.archive {
		entries[i] = exportedEntry{
			Timestamp: e.Timestamp.Format(time.RFC3339Nano),
			Type:      e.Category,
			Message:   e.Message,
			Payload:   e.Payload,
		}
	}
	s.mu.Unlock()

	return json.MarshalIndent(entries, "", "  ")
}

// Clear empties both the archive and the display view.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archive = nil
	s.window = nil
}

// Subscribe returns a channel that receives every entry appended after the
// call, plus a cancel function that must be invoked to release the
// subscription. Entries are dropped for subscribers that fall behind.
func (s *Store) Subscribe() (<-chan domain.LogEntry, func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan domain.LogEntry, subscriberBuffer)
	s.subs[id] = ch
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}
