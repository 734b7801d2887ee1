package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clobdeck/internal/domain"
)

func TestPublishReachesExactSubscriber(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := m.Subscribe(ctx, domain.BusOrders)
	require.NoError(t, err)

	require.NoError(t, m.Publish(ctx, domain.BusOrders, []byte("hello")))
	select {
	case msg := <-ch:
		assert.Equal(t, "hello", string(msg))
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}
}

func TestPatternSubscriberMatchesBookChannels(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := m.Subscribe(ctx, domain.BusBookPrefix+"*")
	require.NoError(t, err)

	require.NoError(t, m.Publish(ctx, domain.BusBookPrefix+"asset-1", []byte("a")))
	require.NoError(t, m.Publish(ctx, domain.BusOrders, []byte("b")))

	select {
	case msg := <-ch:
		assert.Equal(t, "a", string(msg))
	case <-time.After(time.Second):
		t.Fatal("pattern subscriber got nothing")
	}
	select {
	case msg := <-ch:
		t.Fatalf("unexpected delivery: %q", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCancelClosesSubscription(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := m.Subscribe(ctx, domain.BusStatus)
	require.NoError(t, err)
	cancel()

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	// Publishing after teardown is a no-op, not a panic.
	require.NoError(t, m.Publish(context.Background(), domain.BusStatus, []byte("late")))
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := m.Subscribe(ctx, domain.BusTrades)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			_ = m.Publish(ctx, domain.BusTrades, []byte("x"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}
