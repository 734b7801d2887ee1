// Package pushchan maintains the persistent push channels to the exchange:
// one live connection per (channel kind, target) pair with automatic
// backoff reconnection, optimistic subscription replay, and full frame
// mirroring into the session log.
package pushchan

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"clobdeck/internal/domain"
)

const (
	// handshakeTimeout bounds the WebSocket dial.
	handshakeTimeout = 15 * time.Second

	// writeWait is the time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// Reconnect backoff: delay = min(base * 2^(attempt-1), cap). The attempt
// counter resets on every successful open.
const (
	DefaultBackoffBase = 1 * time.Second
	DefaultBackoffCap  = 30 * time.Second
)

// MessageHandler receives every inbound frame. Returning an error marks the
// frame malformed: it is logged and dropped, and the channel survives.
type MessageHandler func(raw []byte) error

// StateHandler is invoked on every connection state transition. Handlers
// must not call back into the channel.
type StateHandler func(state domain.ConnState)

// SubscribeRequest is the outbound subscription frame. Market subscriptions
// carry asset IDs; user subscriptions carry market IDs and credentials.
type SubscribeRequest struct {
	Type     string           `json:"type"`
	AssetIDs []string         `json:"assets_ids,omitempty"`
	Markets  []string         `json:"markets,omitempty"`
	Auth     *domain.APICreds `json:"auth,omitempty"`
}

// masked returns a copy safe for the session log.
func (r SubscribeRequest) masked() SubscribeRequest {
	if r.Auth == nil {
		return r
	}
	m := r.Auth.Masked()
	r.Auth = &m
	return r
}

// dialParams is the immutable value each retry invocation receives, so a
// reconnect can never capture stale connection parameters.
type dialParams struct {
	kind   domain.ChannelKind
	target string
}

// Channel is one owned push-channel state machine. Callers hold the handle
// returned by Manager.Open; only the channel itself transitions its state or
// writes frames.
type Channel struct {
	m         *Manager
	key       string
	params    dialParams
	onMessage MessageHandler
	onState   StateHandler

	// writeMu serializes frame writes. gorilla/websocket allows only one
	// concurrent writer, and a Subscribe can race a ping tick.
	writeMu sync.Mutex

	mu      sync.Mutex
	state   domain.ConnState
	conn    *websocket.Conn
	pending []SubscribeRequest // queued until the channel reaches Open
	active  []SubscribeRequest // replayed after every reconnect
	attempt int
	retry   *time.Timer
	closed  bool
}

// Kind returns the channel's stream kind.
func (ch *Channel) Kind() domain.ChannelKind { return ch.params.kind }

// Target returns the channel's endpoint.
func (ch *Channel) Target() string { return ch.params.target }

// State returns the live connection state.
func (ch *Channel) State() domain.ConnState {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.state
}

// Subscribe sends the request once the channel is Open. While Connecting the
// request is queued and flushed on open. Subscriptions are optimistic: no
// acknowledgment is awaited. The request is replayed after every reconnect.
func (ch *Channel) Subscribe(req SubscribeRequest) {
	ch.mu.Lock()
	if ch.closed {
		ch.mu.Unlock()
		return
	}
	if ch.state != domain.ConnOpen {
		ch.pending = append(ch.pending, req)
		ch.mu.Unlock()
		ch.logInfo("%s subscription queued until open", ch.params.kind)
		return
	}
	ch.active = append(ch.active, req)
	conn := ch.conn
	ch.mu.Unlock()

	ch.writeRequest(conn, req)
}

// Close transitions Closing then Closed, disables auto-reconnect, and cancels
// any pending retry timer before returning. It is idempotent.
func (ch *Channel) Close() {
	ch.mu.Lock()
	if ch.closed {
		ch.mu.Unlock()
		return
	}
	ch.closed = true
	if ch.retry != nil {
		ch.retry.Stop()
		ch.retry = nil
	}
	conn := ch.conn
	ch.conn = nil
	ch.transitionLocked(domain.ConnClosing)
	ch.mu.Unlock()

	if conn != nil {
		deadline := time.Now().Add(writeWait)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = conn.Close()
	}

	ch.mu.Lock()
	ch.transitionLocked(domain.ConnClosed)
	ch.mu.Unlock()

	ch.m.forget(ch.key)
}

// connect dials the target and, on success, flushes queued subscriptions and
// starts the read and ping loops. On failure it schedules a reconnect.
func (ch *Channel) connect(p dialParams) {
	ch.mu.Lock()
	if ch.closed {
		ch.mu.Unlock()
		return
	}
	ch.transitionLocked(domain.ConnConnecting)
	ch.mu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.Dial(p.target, nil)
	if err != nil {
		ch.m.log.Append(domain.LogError,
			fmt.Sprintf("%s channel connect failed: %v", p.kind, err), nil)
		ch.mu.Lock()
		defer ch.mu.Unlock()
		if ch.closed {
			return
		}
		ch.transitionLocked(domain.ConnClosed)
		ch.scheduleReconnectLocked(p)
		return
	}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	ch.mu.Lock()
	if ch.closed {
		ch.mu.Unlock()
		conn.Close()
		return
	}
	ch.conn = conn
	ch.attempt = 0
	replay := make([]SubscribeRequest, 0, len(ch.active)+len(ch.pending))
	replay = append(replay, ch.active...)
	replay = append(replay, ch.pending...)
	ch.active = replay
	ch.pending = nil
	ch.transitionLocked(domain.ConnOpen)
	ch.mu.Unlock()

	for _, req := range replay {
		ch.writeRequest(conn, req)
	}

	go ch.readLoop(conn, p)
	go ch.pingLoop(conn)
}

// readLoop mirrors every inbound frame to the log and dispatches it. On a
// transport error it schedules a reconnect unless the close was deliberate
// or the server sent a normal closure code.
func (ch *Channel) readLoop(conn *websocket.Conn, p dialParams) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			ch.mu.Lock()
			if ch.closed || ch.conn != conn {
				// Deliberate close or a newer connection owns the channel.
				ch.mu.Unlock()
				return
			}
			ch.conn = nil
			ch.mu.Unlock()
			conn.Close()

			ch.m.log.Append(domain.LogError,
				fmt.Sprintf("%s channel closed: %v", p.kind, err), nil)

			ch.mu.Lock()
			ch.transitionLocked(domain.ConnClosed)
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				ch.scheduleReconnectLocked(p)
			}
			ch.mu.Unlock()
			return
		}

		ch.m.log.Append(domain.LogReceive,
			fmt.Sprintf("%s message received", p.kind), raw)

		if ch.onMessage != nil {
			if err := ch.onMessage(raw); err != nil {
				ch.m.log.Append(domain.LogError,
					fmt.Sprintf("%s message dropped: %v", p.kind, err), raw)
			}
		}
	}
}

// pingLoop keeps the connection alive. It exits when its connection dies.
func (ch *Channel) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for range ticker.C {
		ch.mu.Lock()
		current := ch.conn == conn && !ch.closed
		ch.mu.Unlock()
		if !current {
			return
		}
		ch.writeMu.Lock()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := conn.WriteMessage(websocket.PingMessage, nil)
		ch.writeMu.Unlock()
		if err != nil {
			return
		}
	}
}

// scheduleReconnectLocked arms the single retry timer for this channel,
// cancelling any prior pending timer. Caller must hold ch.mu.
func (ch *Channel) scheduleReconnectLocked(p dialParams) {
	if ch.closed {
		return
	}
	ch.attempt++
	delay := backoffDelay(ch.m.backoffBase, ch.m.backoffCap, ch.attempt)
	if ch.retry != nil {
		ch.retry.Stop()
	}
	ch.m.log.Append(domain.LogInfo,
		fmt.Sprintf("%s reconnect attempt %d scheduled in %s", p.kind, ch.attempt, delay), nil)
	ch.retry = time.AfterFunc(delay, func() { ch.connect(p) })
}

// backoffDelay is min(base * 2^(attempt-1), cap).
func backoffDelay(base, ceiling time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 30 {
		return ceiling
	}
	delay := base << (attempt - 1)
	if delay > ceiling || delay <= 0 {
		return ceiling
	}
	return delay
}

// transitionLocked applies a state change, mirrors it to the log, and
// notifies the state handler. Caller must hold ch.mu.
func (ch *Channel) transitionLocked(s domain.ConnState) {
	if ch.state == s {
		return
	}
	ch.state = s
	ch.m.log.Append(domain.LogInfo, fmt.Sprintf("%s channel %s", ch.params.kind, s), nil)
	ch.m.logger.Debug("channel state",
		slog.String("kind", string(ch.params.kind)),
		slog.String("state", s.String()),
	)
	if ch.onState != nil {
		ch.onState(s)
	}
}

// writeRequest marshals and sends one subscription frame, mirroring the
// masked payload to the log.
func (ch *Channel) writeRequest(conn *websocket.Conn, req SubscribeRequest) {
	if conn == nil {
		return
	}
	data, err := json.Marshal(req)
	if err != nil {
		ch.m.log.Append(domain.LogError,
			fmt.Sprintf("%s subscribe marshal failed: %v", ch.params.kind, err), nil)
		return
	}
	maskedData, _ := json.Marshal(req.masked())
	ch.m.log.Append(domain.LogSend,
		fmt.Sprintf("%s subscribe", ch.params.kind), maskedData)

	ch.writeMu.Lock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	err = conn.WriteMessage(websocket.TextMessage, data)
	ch.writeMu.Unlock()
	if err != nil {
		ch.m.log.Append(domain.LogError,
			fmt.Sprintf("%s subscribe write failed: %v", ch.params.kind, err), nil)
	}
}

func (ch *Channel) logInfo(format string, args ...any) {
	ch.m.log.Append(domain.LogInfo, fmt.Sprintf(format, args...), nil)
}
