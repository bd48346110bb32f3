package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/quaylabs/syncgate/internal/infrastructure/config"
	"github.com/quaylabs/syncgate/internal/infrastructure/logging"
)

func testLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
}

func testWSConfig() config.WebSocketConfig {
	return config.WebSocketConfig{MaxMessageSize: 1 << 20}
}

// startGroupServer runs an httptest server that accepts every connection
// into the given group.
func startGroupServer(t *testing.T, g *Group) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := g.Accept(w, r, nil, "", testWSConfig(), testLogger()); err != nil {
			t.Errorf("Accept() error = %v", err)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// waitFor polls cond until it is true or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func newTestGroup(handler Handler) *Group {
	return &Group{
		name:       "test",
		pathPrefix: "/ws/test",
		newHandler: func() Handler { return handler },
		members:    make(map[*Session]struct{}),
	}
}

func TestSession_DispatchAndMembership(t *testing.T) {
	h := newRecordingHandler()
	g := newTestGroup(h)
	srv := startGroupServer(t, g)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	waitFor(t, "session registration", func() bool { return g.Count() == 1 })

	if err := conn.WriteMessage(websocket.TextMessage, []byte("hello")); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
	select {
	case msg := <-h.text:
		if msg != "hello" {
			t.Errorf("OnText got %q, want %q", msg, "hello")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for text dispatch")
	}

	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3}); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
	select {
	case data := <-h.binary:
		if len(data) != 3 || data[0] != 1 {
			t.Errorf("OnBinary got %v, want [1 2 3]", data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for binary dispatch")
	}
}

func TestSession_PeerClose(t *testing.T) {
	h := newRecordingHandler()
	g := newTestGroup(h)
	srv := startGroupServer(t, g)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	waitFor(t, "session registration", func() bool { return g.Count() == 1 })

	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	conn.Close()

	select {
	case <-h.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for OnDisconnected")
	}
	waitFor(t, "membership removal", func() bool { return g.Count() == 0 })

	// An orderly close is not a fault.
	select {
	case err := <-h.errs:
		t.Errorf("OnError called for normal close: %v", err)
	default:
	}
}

func TestSession_ServerClose(t *testing.T) {
	h := newRecordingHandler()
	g := newTestGroup(h)
	srv := startGroupServer(t, g)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	waitFor(t, "session registration", func() bool { return g.Count() == 1 })

	sessions := g.Sessions()
	if len(sessions) != 1 {
		t.Fatalf("Sessions() returned %d, want 1", len(sessions))
	}
	s := sessions[0]

	s.Close()
	s.Close() // idempotent

	waitFor(t, "membership removal after Close", func() bool { return g.Count() == 0 })
	if s.Active() {
		t.Error("Active() = true after Close")
	}

	// The peer observes a close frame.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, readErr := conn.ReadMessage()
	if readErr == nil {
		t.Error("client read after server Close: expected close error")
	}

	// Sends on a closed session fail rather than dispatching further work.
	if err := s.SendText("late"); err == nil {
		t.Error("SendText() after Close: expected error")
	}
}

// TestSession_FragmentedMessage forces the client to split one logical
// message across several transport frames and checks the handler receives
// a single concatenated payload.
func TestSession_FragmentedMessage(t *testing.T) {
	h := newRecordingHandler()
	g := newTestGroup(h)
	srv := startGroupServer(t, g)

	// A tiny write buffer makes NextWriter flush intermediate frames.
	dialer := websocket.Dialer{WriteBufferSize: 16}
	conn, _, err := dialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	w, err := conn.NextWriter(websocket.TextMessage)
	if err != nil {
		t.Fatalf("NextWriter() error = %v", err)
	}
	parts := []string{
		strings.Repeat("a", 64),
		strings.Repeat("b", 64),
		strings.Repeat("c", 64),
	}
	for _, p := range parts {
		if _, err := w.Write([]byte(p)); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	select {
	case msg := <-h.text:
		want := strings.Join(parts, "")
		if msg != want {
			t.Errorf("fragmented message delivered as %d bytes, want %d concatenated", len(msg), len(want))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fragmented message")
	}
}

func TestGroup_Broadcast(t *testing.T) {
	g := newTestGroup(NopHandler{})
	srv := startGroupServer(t, g)

	var conns []*websocket.Conn
	for i := 0; i < 2; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
		if err != nil {
			t.Fatalf("Dial() error = %v", err)
		}
		defer conn.Close()
		conns = append(conns, conn)
	}
	waitFor(t, "both sessions registered", func() bool { return g.Count() == 2 })

	g.BroadcastText("announce")

	for i, conn := range conns {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("client %d ReadMessage() error = %v", i, err)
		}
		if string(data) != "announce" {
			t.Errorf("client %d received %q, want %q", i, data, "announce")
		}
	}
}

// TestSession_SubprotocolEcho checks the negotiated auth_ sub-protocol is
// echoed in the handshake response so the browser handshake completes.
func TestSession_SubprotocolEcho(t *testing.T) {
	g := newTestGroup(NopHandler{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := g.Accept(w, r, nil, "auth_token123", testWSConfig(), testLogger()); err != nil {
			t.Errorf("Accept() error = %v", err)
		}
	}))
	t.Cleanup(srv.Close)

	dialer := websocket.Dialer{Subprotocols: []string{"auth_token123"}}
	conn, resp, err := dialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	if got := resp.Header.Get("Sec-WebSocket-Protocol"); got != "auth_token123" {
		t.Errorf("response Sec-WebSocket-Protocol = %q, want echoed auth protocol", got)
	}
	if conn.Subprotocol() != "auth_token123" {
		t.Errorf("negotiated subprotocol = %q, want %q", conn.Subprotocol(), "auth_token123")
	}
}
