package logstore

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clobdeck/internal/domain"
)

func TestDisplayWindowIsSuffixOfArchive(t *testing.T) {
	s := New()

	for i := 0; i < 150; i++ {
		s.Append(domain.LogInfo, fmt.Sprintf("entry %d", i), nil)
	}

	all := s.All()
	display := s.Display()

	require.Len(t, all, 150)
	require.Len(t, display, DisplayWindow)
	assert.Equal(t, all[50:], display, "display view must equal the last 100 archive entries")
}

func TestAppendPreservesArrivalOrder(t *testing.T) {
	s := New()

	s.Append(domain.LogSend, "first", nil)
	s.Append(domain.LogReceive, "second", []byte(`{"k":1}`))
	s.Append(domain.LogError, "third", nil)

	all := s.All()
	require.Len(t, all, 3)
	assert.Equal(t, "first", all[0].Message)
	assert.Equal(t, "second", all[1].Message)
	assert.Equal(t, "third", all[2].Message)
	assert.Equal(t, json.RawMessage(`{"k":1}`), all[1].Payload)
	assert.NotEmpty(t, all[0].ID)
	assert.NotEqual(t, all[0].ID, all[1].ID)
}

func TestExport(t *testing.T) {
	s := New()
	s.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

	s.Append(domain.LogSend, "GET /data/orders", []byte(`[{"id":"o1"}]`))
	s.Append(domain.LogError, "socket closed", nil)

	doc, err := s.Export()
	require.NoError(t, err)

	var entries []struct {
		Timestamp string          `json:"timestamp"`
		Type      string          `json:"type"`
		Message   string          `json:"message"`
		Payload   json.RawMessage `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(doc, &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "2025-03-01T12:00:00Z", entries[0].Timestamp)
	assert.Equal(t, "send", entries[0].Type)
	assert.Equal(t, "GET /data/orders", entries[0].Message)
	assert.JSONEq(t, `[{"id":"o1"}]`, string(entries[0].Payload))
	assert.Equal(t, "error", entries[1].Type)
	assert.Nil(t, entries[1].Payload)
}

func TestClear(t *testing.T) {
	s := New()
	for i := 0; i < 10; i++ {
		s.Append(domain.LogInfo, "x", nil)
	}

	s.Clear()

	assert.Empty(t, s.All())
	assert.Empty(t, s.Display())
	assert.Zero(t, s.Len())
}

func TestSubscribeReceivesNewEntries(t *testing.T) {
	s := New()
	ch, cancel := s.Subscribe()
	defer cancel()

	s.Append(domain.LogInfo, "hello", nil)

	select {
	case e := <-ch:
		assert.Equal(t, "hello", e.Message)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive entry")
	}

	cancel()
	_, open := <-ch
	assert.False(t, open, "channel must be closed after cancel")
}

func TestSlowSubscriberDoesNotBlockAppend(t *testing.T) {
	s := New()
	_, cancel := s.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			s.Append(domain.LogInfo, "burst", nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("append blocked on a slow subscriber")
	}
	assert.Equal(t, subscriberBuffer*2, s.Len())
}
