package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clobdeck/internal/bus"
	"clobdeck/internal/domain"
	"clobdeck/internal/logstore"
	"clobdeck/internal/pushchan"
	"clobdeck/internal/reconcile"
)

// wsServer is an in-process WebSocket peer that records inbound frames and
// lets the test push frames back.
type wsServer struct {
	srv      *httptest.Server
	mu       sync.Mutex
	conns    []*websocket.Conn
	received chan []byte
}

func newWSServer(t *testing.T) *wsServer {
	s := &wsServer{received: make(chan []byte, 32)}
	upgrader := websocket.Upgrader{}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, c)
		s.mu.Unlock()
		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			s.received <- msg
		}
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *wsServer) url() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func (s *wsServer) send(t *testing.T, payload string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.conns)
	c := s.conns[len(s.conns)-1]
	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte(payload)))
}

// stubExchange serves fixed collections; mutation calls always succeed.
type stubExchange struct {
	mu     sync.Mutex
	orders []domain.OpenOrderRecord
	trades []domain.TradeRecord
}

func (f *stubExchange) FetchOpenOrders(ctx context.Context) ([]domain.OpenOrderRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.OpenOrderRecord(nil), f.orders...), nil
}

func (f *stubExchange) FetchTrades(ctx context.Context) ([]domain.TradeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.TradeRecord(nil), f.trades...), nil
}

func (f *stubExchange) SubmitOrder(ctx context.Context, spec domain.OrderSpec) (domain.SubmitResult, error) {
	return domain.SubmitResult{Success: true, OrderID: "new-order", Status: "live"}, nil
}

func (f *stubExchange) CancelOrder(ctx context.Context, orderID string) (domain.CancelResult, error) {
	return domain.CancelResult{Success: true}, nil
}

func (f *stubExchange) CancelAll(ctx context.Context) (domain.CancelResult, error) {
	return domain.CancelResult{Success: true}, nil
}

type fixture struct {
	session *Session
	store   *logstore.Store
	bus     *bus.Memory
	market  *wsServer
	user    *wsServer
}

func newFixture(t *testing.T, exchange domain.ExchangeClient) *fixture {
	store := logstore.New()
	memBus := bus.NewMemory()
	market := newWSServer(t)
	user := newWSServer(t)

	manager := pushchan.NewManager(store, slog.Default())
	rec := reconcile.New(exchange, "trader-1", store, slog.Default())

	s := New(Config{
		MarketTarget: market.url(),
		UserTarget:   user.url(),
		AssetIDs:     []string{"asset-1"},
		Markets:      []string{"0xmkt"},
		Creds:        domain.APICreds{APIKey: "key", Secret: "sec", Passphrase: "pp"},
		PollInterval: 20 * time.Millisecond,
		Identity:     "trader-1",
	}, manager, rec, store, memBus, slog.Default())

	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Stop)

	return &fixture{session: s, store: store, bus: memBus, market: market, user: user}
}

func recvFrame(t *testing.T, ch chan []byte) map[string]any {
	select {
	case raw := <-ch:
		var m map[string]any
		require.NoError(t, json.Unmarshal(raw, &m))
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
		return nil
	}
}

func TestStartSubscribesBothChannels(t *testing.T) {
	f := newFixture(t, &stubExchange{})

	sub := recvFrame(t, f.market.received)
	assert.Equal(t, "market", sub["type"])
	assert.Equal(t, []any{"asset-1"}, sub["assets_ids"])

	sub = recvFrame(t, f.user.received)
	assert.Equal(t, "user", sub["type"])
	assert.Equal(t, []any{"0xmkt"}, sub["markets"])
	auth, ok := sub["auth"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "sec", auth["secret"], "real credentials go on the wire")

	require.Eventually(t, func() bool {
		st := f.session.Status()
		return st.Market == domain.ConnOpen && st.User == domain.ConnOpen
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMarketFrameBecomesAggregatedBook(t *testing.T) {
	f := newFixture(t, &stubExchange{})
	recvFrame(t, f.market.received) // wait for the connection

	ctx, cancelSub := context.WithCancel(context.Background())
	defer cancelSub()
	bookCh, err := f.bus.Subscribe(ctx, domain.BusBookPrefix+"*")
	require.NoError(t, err)

	f.market.send(t, `[{"event_type":"book","asset_id":"asset-1",
		"bids":[["0.64","150"],["0.65","100"]],
		"asks":[["0.66","100"]]}]`)

	require.Eventually(t, func() bool {
		_, ok := f.session.Book("asset-1")
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	b, _ := f.session.Book("asset-1")
	best, ok := b.BestBid()
	require.True(t, ok)
	assert.True(t, best.Price.Equal(decimal.RequireFromString("0.65")))
	assert.True(t, b.Spread.Equal(decimal.RequireFromString("0.01")))
	assert.Len(t, b.Bids, 8)
	assert.Len(t, b.Asks, 8)

	published := recvFrame(t, chanOf(bookCh))
	assert.Equal(t, "asset-1", published["asset_id"])
}

// chanOf adapts a receive-only channel for recvFrame.
func chanOf(in <-chan []byte) chan []byte {
	out := make(chan []byte, 1)
	go func() {
		if msg, ok := <-in; ok {
			out <- msg
		}
	}()
	return out
}

func TestSecondSnapshotReplacesBookWholesale(t *testing.T) {
	f := newFixture(t, &stubExchange{})
	recvFrame(t, f.market.received)

	f.market.send(t, `[{"event_type":"book","asset_id":"asset-1",
		"bids":[["0.65","100"]],"asks":[["0.66","100"]]}]`)
	require.Eventually(t, func() bool {
		b, ok := f.session.Book("asset-1")
		if !ok {
			return false
		}
		best, has := b.BestBid()
		return has && best.Price.Equal(decimal.RequireFromString("0.65"))
	}, 2*time.Second, 10*time.Millisecond)

	f.market.send(t, `[{"event_type":"book","asset_id":"asset-1",
		"bids":[["0.60","10"]],"asks":[["0.70","10"]]}]`)
	require.Eventually(t, func() bool {
		b, _ := f.session.Book("asset-1")
		best, ok := b.BestBid()
		return ok && best.Price.Equal(decimal.RequireFromString("0.60"))
	}, 2*time.Second, 10*time.Millisecond)

	b, _ := f.session.Book("asset-1")
	for _, lvl := range b.Bids {
		assert.False(t, lvl.Price.Equal(decimal.RequireFromString("0.65")),
			"old levels must not survive a snapshot replace")
	}
}

func TestUserFrameNotedNotMerged(t *testing.T) {
	f := newFixture(t, &stubExchange{})
	recvFrame(t, f.user.received)

	f.user.send(t, `{"event_type":"order","id":"phantom","status":"LIVE"}`)

	require.Eventually(t, func() bool {
		for _, e := range f.store.All() {
			if e.Category == domain.LogInfo && strings.Contains(e.Message, "order push event") {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	for _, o := range f.session.Orders() {
		assert.NotEqual(t, "phantom", o.ID, "push payloads must never reach the canonical collection")
	}
}

func TestPollLoopPopulatesCollections(t *testing.T) {
	exchange := &stubExchange{
		orders: []domain.OpenOrderRecord{{ID: "o1", Status: "LIVE", Side: "BUY",
			Price: "0.65", OriginalSize: "100", SizeMatched: "0"}},
		trades: []domain.TradeRecord{{ID: "t1", Side: "BUY", TraderSide: "TAKER",
			Price: "0.64", Size: "5", MatchTime: "1700000000"}},
	}
	f := newFixture(t, exchange)

	require.Eventually(t, func() bool {
		return len(f.session.Orders()) == 1 && len(f.session.Trades()) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStopIsSynchronous(t *testing.T) {
	f := newFixture(t, &stubExchange{})
	require.Eventually(t, func() bool {
		return f.session.Status().Market == domain.ConnOpen
	}, 2*time.Second, 10*time.Millisecond)

	f.session.Stop()

	st := f.session.Status()
	assert.Equal(t, domain.ConnClosed, st.Market)
	assert.Equal(t, domain.ConnClosed, st.User)

	// Idempotent.
	f.session.Stop()
}
