package socket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"confhub-chat-client/internal/config"
	"confhub-chat-client/internal/pkg/logger"
	"confhub-chat-client/internal/pkg/token"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024 * 1024
	sendBufferSize = 64
)

var (
	ErrNotConnected   = errors.New("socket not connected")
	ErrTokenExpired   = errors.New("session token expired")
	ErrSendBufferFull = errors.New("send buffer full")
)

// Envelope is the wire framing for every gateway event, in and out.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Wire abstracts the underlying websocket connection so unit tests can
// substitute a fake. *websocket.Conn satisfies it.
type Wire interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(string) error)
	Close() error
}

type DialFunc func(ctx context.Context, url string, header http.Header) (Wire, error)

// GorillaDialer returns the production DialFunc.
func GorillaDialer(handshakeTimeout time.Duration) DialFunc {
	return func(ctx context.Context, url string, header http.Header) (Wire, error) {
		dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
		conn, resp, err := dialer.DialContext(ctx, url, header)
		if err != nil {
			if resp != nil {
				resp.Body.Close()
			}
			return nil, err
		}
		return conn, nil
	}
}

// Client owns the single live connection to the chat gateway. Inbound
// events are routed to the EventHandler; outbound sends go through Emit
// and are rejected (never queued) while disconnected.
type Client struct {
	cfg     config.GatewayConfig
	creds   *token.Store
	handler EventHandler
	logger  logger.ILogger
	dial    DialFunc
	now     func() time.Time

	mu           sync.Mutex
	conn         Wire
	connected    bool
	connToken    string
	send         chan []byte
	done         chan struct{}
	closed       bool
	reconnecting bool
}

// NewClient wires a connection manager. Pass a nil dial to use the real
// websocket dialer.
func NewClient(cfg config.GatewayConfig, creds *token.Store, handler EventHandler, log logger.ILogger, dial DialFunc) *Client {
	if dial == nil {
		dial = GorillaDialer(time.Duration(cfg.HandshakeTimeoutSec) * time.Second)
	}
	return &Client{
		cfg:     cfg,
		creds:   creds,
		handler: handler,
		logger:  log,
		dial:    dial,
		now:     time.Now,
	}
}

// Connect reads the stored session token and opens the connection. It is a
// no-op when already connected with the same token. The token's exp claim
// is checked before dialing so an obviously dead session fails fast.
func (c *Client) Connect(ctx context.Context) error {
	creds, err := c.creds.Load()
	if err != nil {
		return err
	}

	expired, err := token.Expired(creds.Token, c.now())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	}
	if expired {
		return ErrTokenExpired
	}

	c.mu.Lock()
	if c.connected && c.connToken == creds.Token {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	return c.establish(ctx, creds.Token)
}

func (c *Client) establish(ctx context.Context, tok string) error {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+tok)

	conn, err := c.dial(ctx, c.cfg.WsURL, header)
	if err != nil {
		return fmt.Errorf("dial gateway: %w", err)
	}

	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	if c.done != nil {
		close(c.done)
	}
	c.conn = conn
	c.closed = false
	c.connected = true
	c.connToken = tok
	c.send = make(chan []byte, sendBufferSize)
	c.done = make(chan struct{})
	send, done := c.send, c.done
	c.mu.Unlock()

	go c.writePump(conn, send, done)
	go c.readPump(ctx, conn)

	c.logger.Info("Socket", "Connected to gateway", map[string]interface{}{"url": c.cfg.WsURL})
	c.handler.HandleConnectionChange(true)
	return nil
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Emit marshals an {event, data} envelope and queues it for the write
// pump. While disconnected it logs a warning and reports failure; callers
// are expected to check IsConnected first for user-facing actions.
func (c *Client) Emit(event string, payload interface{}) error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		c.logger.Warn("Socket", "Emit while disconnected, dropping", map[string]interface{}{"event": event})
		return ErrNotConnected
	}
	send := c.send
	c.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", event, err)
	}
	raw, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return err
	}

	select {
	case send <- raw:
		return nil
	default:
		c.logger.Warn("Socket", "Send buffer full, dropping", map[string]interface{}{"event": event})
		return ErrSendBufferFull
	}
}

// Close tears the connection down for good. No reconnect follows. The
// send channel is never closed: a concurrent Emit may still hold a
// reference to it, and a send on a closed channel would panic. Orphaned
// messages are simply dropped with the channel.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.connected = false
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// readPump pumps inbound envelopes to the dispatcher until the connection
// dies, then kicks off reconnection unless the client was closed. The
// connection is closed with the read loop so the write pump and the
// underlying socket never outlive it.
func (c *Client) readPump(ctx context.Context, conn Wire) {
	defer conn.Close()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(c.now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(c.now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.logger.Warn("Socket", "Read loop ended", map[string]interface{}{"error": err.Error()})
			break
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.logger.Warn("Socket", "Malformed frame dropped", map[string]interface{}{"error": err.Error()})
			continue
		}
		dispatch(c.handler, c.logger, env)
	}

	c.mu.Lock()
	stale := c.conn != nil && c.conn != conn // a newer connection already took over
	if !stale {
		c.connected = false
		c.conn = nil
		if c.done != nil {
			close(c.done)
			c.done = nil
		}
	}
	closed := c.closed
	alreadyReconnecting := c.reconnecting
	if !stale && !closed {
		c.reconnecting = true
	}
	c.mu.Unlock()

	if stale {
		return
	}

	c.handler.HandleConnectionChange(false)

	if !closed && !alreadyReconnecting && ctx.Err() == nil {
		go c.reconnect(ctx)
	}
}

// writePump owns all writes on one connection: queued envelopes plus the
// ping keepalive. done signals teardown (Close or read-loop exit); the
// send channel itself is never closed.
func (c *Client) writePump(conn Wire, send chan []byte, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case <-done:
			conn.SetWriteDeadline(c.now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message := <-send:
			conn.SetWriteDeadline(c.now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
			// Flush anything already queued behind it.
			n := len(send)
			for i := 0; i < n; i++ {
				if err := conn.WriteMessage(websocket.TextMessage, <-send); err != nil {
					return
				}
			}
		case <-ticker.C:
			conn.SetWriteDeadline(c.now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) reconnect(ctx context.Context) {
	defer func() {
		c.mu.Lock()
		c.reconnecting = false
		c.mu.Unlock()
	}()

	delay := time.Duration(c.cfg.ReconnectInitialDelayMs) * time.Millisecond
	maxDelay := time.Duration(c.cfg.ReconnectMaxDelayMs) * time.Millisecond

	for attempt := 1; attempt <= c.cfg.MaxReconnectAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		creds, err := c.creds.Load()
		if err != nil {
			c.logger.Error("Socket", "Reconnect aborted, credentials unavailable", map[string]interface{}{"error": err.Error()})
			return
		}
		if expired, err := token.Expired(creds.Token, c.now()); err != nil || expired {
			c.logger.Error("Socket", "Reconnect aborted, token expired", nil)
			return
		}

		if err := c.establish(ctx, creds.Token); err == nil {
			c.logger.Info("Socket", "Reconnected", map[string]interface{}{"attempt": attempt})
			return
		} else {
			c.logger.Warn("Socket", "Reconnect attempt failed", map[string]interface{}{
				"attempt": attempt,
				"error":   err.Error(),
			})
		}

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}

	c.logger.Error("Socket", "Giving up on reconnection", map[string]interface{}{"attempts": c.cfg.MaxReconnectAttempts})
}
