package socket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"confhub-chat-client/internal/config"
	"confhub-chat-client/internal/constant"
	"confhub-chat-client/internal/dto"
	"confhub-chat-client/internal/pkg/logger"
	"confhub-chat-client/internal/pkg/token"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
)

type fakeWire struct {
	mu       sync.Mutex
	inbound  chan []byte
	readFail chan struct{}
	written  [][]byte
	closed   bool
}

func newFakeWire() *fakeWire {
	return &fakeWire{
		inbound:  make(chan []byte, 16),
		readFail: make(chan struct{}),
	}
}

func (f *fakeWire) ReadMessage() (int, []byte, error) {
	select {
	case raw, ok := <-f.inbound:
		if !ok {
			return 0, nil, errors.New("connection lost")
		}
		return websocket.TextMessage, raw, nil
	case <-f.readFail:
		return 0, nil, errors.New("read deadline exceeded")
	}
}

// breakRead makes ReadMessage fail while the wire itself stays open,
// like a pong deadline firing on a connection that still accepts writes.
func (f *fakeWire) breakRead() {
	close(f.readFail)
}

func (f *fakeWire) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeWire) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("write on closed wire")
	}
	if messageType == websocket.TextMessage {
		f.written = append(f.written, append([]byte(nil), data...))
	}
	return nil
}

func (f *fakeWire) writtenFrames() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.written...)
}

func (f *fakeWire) SetReadLimit(int64)                {}
func (f *fakeWire) SetReadDeadline(time.Time) error   { return nil }
func (f *fakeWire) SetWriteDeadline(time.Time) error  { return nil }
func (f *fakeWire) SetPongHandler(func(string) error) {}

func (f *fakeWire) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.inbound)
	}
	return nil
}

func (f *fakeWire) push(t *testing.T, event string, payload interface{}) {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	raw, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	f.inbound <- raw
}

func signedToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "u-1",
		"exp":     expiresAt.Unix(),
	})
	signed, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func credsStore(t *testing.T, tok string) *token.Store {
	t.Helper()
	store := token.NewStore(filepath.Join(t.TempDir(), "credentials.json"))
	if err := store.Save(&token.Credentials{Token: tok, User: token.User{Id: "u-1"}}); err != nil {
		t.Fatalf("save creds: %v", err)
	}
	return store
}

func testGatewayConfig() config.GatewayConfig {
	return config.GatewayConfig{
		WsURL:                   "ws://gateway.test/ws/chat",
		ReconnectInitialDelayMs: 1,
		ReconnectMaxDelayMs:     5,
		MaxReconnectAttempts:    3,
		HandshakeTimeoutSec:     1,
	}
}

type dialRecorder struct {
	mu      sync.Mutex
	wires   []*fakeWire
	headers []http.Header
	fail    int // number of leading dials to fail
}

func (d *dialRecorder) dial(ctx context.Context, url string, header http.Header) (Wire, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.headers = append(d.headers, header)
	if d.fail > 0 {
		d.fail--
		return nil, errors.New("refused")
	}
	w := newFakeWire()
	d.wires = append(d.wires, w)
	return w, nil
}

func (d *dialRecorder) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.headers)
}

func (d *dialRecorder) wire(i int) *fakeWire {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.wires[i]
}

func waitConn(t *testing.T, h *recordingHandler, want bool) {
	t.Helper()
	select {
	case got := <-h.connCh:
		if got != want {
			t.Fatalf("connection change = %v, want %v", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no connection change (want %v)", want)
	}
}

func TestConnectAndDispatch(t *testing.T) {
	h := newRecordingHandler()
	rec := &dialRecorder{}
	c := NewClient(testGatewayConfig(), credsStore(t, signedToken(t, time.Now().Add(time.Hour))), h, logger.NewNopLogger(), rec.dial)
	defer c.Close()

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	waitConn(t, h, true)
	if !c.IsConnected() {
		t.Fatal("IsConnected = false after Connect")
	}

	auth := rec.headers[0].Get("Authorization")
	if len(auth) < 8 || auth[:7] != "Bearer " {
		t.Errorf("missing bearer header: %q", auth)
	}

	rec.wire(0).push(t, constant.EventChatResponse, dto.ChatMessage{Id: "b1", Message: "hi", Type: "text"})
	select {
	case msg := <-h.messageCh:
		if msg.Id != "b1" {
			t.Errorf("dispatched message = %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("inbound event never dispatched")
	}
}

func TestConnectNoOpWithSameToken(t *testing.T) {
	h := newRecordingHandler()
	rec := &dialRecorder{}
	c := NewClient(testGatewayConfig(), credsStore(t, signedToken(t, time.Now().Add(time.Hour))), h, logger.NewNopLogger(), rec.dial)
	defer c.Close()

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	waitConn(t, h, true)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("second Connect: %v", err)
	}

	if rec.count() != 1 {
		t.Errorf("dial count = %d, want 1 (same-token reconnect must be a no-op)", rec.count())
	}
}

func TestConnectRejectsExpiredToken(t *testing.T) {
	h := newRecordingHandler()
	rec := &dialRecorder{}
	c := NewClient(testGatewayConfig(), credsStore(t, signedToken(t, time.Now().Add(-time.Hour))), h, logger.NewNopLogger(), rec.dial)

	err := c.Connect(context.Background())
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("err = %v, want ErrTokenExpired", err)
	}
	if rec.count() != 0 {
		t.Error("dialed despite expired token")
	}
}

func TestEmitWhileDisconnected(t *testing.T) {
	h := newRecordingHandler()
	c := NewClient(testGatewayConfig(), credsStore(t, signedToken(t, time.Now().Add(time.Hour))), h, logger.NewNopLogger(), (&dialRecorder{}).dial)

	err := c.Emit(constant.EventSendMessage, dto.SendMessageRequest{MessageId: "m1", Message: "hi"})
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("err = %v, want ErrNotConnected (sends are rejected, not queued)", err)
	}
}

func TestEmitWritesEnvelope(t *testing.T) {
	h := newRecordingHandler()
	rec := &dialRecorder{}
	c := NewClient(testGatewayConfig(), credsStore(t, signedToken(t, time.Now().Add(time.Hour))), h, logger.NewNopLogger(), rec.dial)
	defer c.Close()

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	waitConn(t, h, true)

	if err := c.Emit(constant.EventSendMessage, dto.SendMessageRequest{MessageId: "m1", Message: "hello"}); err != nil {
		t.Fatalf("Emit: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		frames := rec.wire(0).writtenFrames()
		if len(frames) > 0 {
			var env Envelope
			if err := json.Unmarshal(frames[0], &env); err != nil {
				t.Fatalf("written frame not an envelope: %v", err)
			}
			if env.Event != constant.EventSendMessage {
				t.Errorf("event = %q", env.Event)
			}
			var req dto.SendMessageRequest
			if err := json.Unmarshal(env.Data, &req); err != nil || req.Message != "hello" {
				t.Errorf("payload = %s (err %v)", env.Data, err)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("emit never reached the wire")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestReconnectAfterConnectionLoss(t *testing.T) {
	h := newRecordingHandler()
	rec := &dialRecorder{}
	c := NewClient(testGatewayConfig(), credsStore(t, signedToken(t, time.Now().Add(time.Hour))), h, logger.NewNopLogger(), rec.dial)
	defer c.Close()

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	waitConn(t, h, true)

	// Kill the first connection; the client should dial again on its own.
	rec.wire(0).Close()
	waitConn(t, h, false)
	waitConn(t, h, true)

	if rec.count() < 2 {
		t.Errorf("dial count = %d, want a reconnect dial", rec.count())
	}
	if !c.IsConnected() {
		t.Error("IsConnected = false after reconnect")
	}
}

func TestEmitDuringCloseDoesNotPanic(t *testing.T) {
	h := newRecordingHandler()
	rec := &dialRecorder{}
	c := NewClient(testGatewayConfig(), credsStore(t, signedToken(t, time.Now().Add(time.Hour))), h, logger.NewNopLogger(), rec.dial)

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	waitConn(t, h, true)

	// Emit from many goroutines while Close tears the client down. Every
	// call must return an error or succeed; none may panic.
	payload := dto.SendMessageRequest{MessageId: "m1", Message: strings.Repeat("x", 64*1024)}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				c.Emit(constant.EventSendMessage, payload)
			}
		}()
	}
	c.Close()
	wg.Wait()

	if err := c.Emit(constant.EventSendMessage, payload); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Emit after Close = %v, want ErrNotConnected", err)
	}
}

func TestReadFailureClosesConnection(t *testing.T) {
	h := newRecordingHandler()
	rec := &dialRecorder{}
	c := NewClient(testGatewayConfig(), credsStore(t, signedToken(t, time.Now().Add(time.Hour))), h, logger.NewNopLogger(), rec.dial)
	defer c.Close()

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	waitConn(t, h, true)

	// Read side dies while the wire still accepts writes; the dead
	// connection must be closed, not left to its write pump.
	rec.wire(0).breakRead()
	waitConn(t, h, false)

	deadline := time.Now().Add(2 * time.Second)
	for !rec.wire(0).isClosed() {
		if time.Now().After(deadline) {
			t.Fatal("connection never closed after read failure")
		}
		time.Sleep(5 * time.Millisecond)
	}

	waitConn(t, h, true)
	if rec.count() < 2 {
		t.Errorf("dial count = %d, want a reconnect dial", rec.count())
	}
}

func TestCloseStopsReconnection(t *testing.T) {
	h := newRecordingHandler()
	rec := &dialRecorder{}
	c := NewClient(testGatewayConfig(), credsStore(t, signedToken(t, time.Now().Add(time.Hour))), h, logger.NewNopLogger(), rec.dial)

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	waitConn(t, h, true)

	c.Close()
	waitConn(t, h, false)

	dials := rec.count()
	time.Sleep(50 * time.Millisecond)
	if rec.count() != dials {
		t.Error("client kept dialing after Close")
	}
	if c.IsConnected() {
		t.Error("IsConnected = true after Close")
	}
}
