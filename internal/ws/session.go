package ws

import (
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/quaylabs/syncgate/internal/auth"
	"github.com/quaylabs/syncgate/internal/infrastructure/config"
	"github.com/quaylabs/syncgate/internal/infrastructure/logging"
)

// writeWait is the deadline applied to individual writes.
const writeWait = 10 * time.Second

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by the CORS middleware.
		return true
	},
}

// Session is one live WebSocket connection belonging to a Group.
//
// A session is exclusively owned by its receive loop goroutine from accept
// until termination; when the loop exits the session is removed from its
// group, which is the only way group membership shrinks.
type Session struct {
	id       string
	group    *Group
	conn     *websocket.Conn
	identity *auth.Identity
	handler  Handler
	logger   *logging.Logger

	active  atomic.Bool
	closing sync.Once
	done    chan struct{}
	writeMu sync.Mutex
}

// Accept upgrades an authorised request into a live Session, registers it
// with the group, and starts its receive loop in a new goroutine.
//
// Authorisation must already have been decided by the caller; Accept only
// performs the transport upgrade. When the credential was negotiated via
// sub-protocol, subprotocol carries the value to echo back so the
// handshake completes.
func (g *Group) Accept(w http.ResponseWriter, r *http.Request, id *auth.Identity, subprotocol string, cfg config.WebSocketConfig, logger *logging.Logger) (*Session, error) {
	var responseHeader http.Header
	if subprotocol != "" {
		responseHeader = http.Header{"Sec-WebSocket-Protocol": {subprotocol}}
	}

	conn, err := upgrader.Upgrade(w, r, responseHeader)
	if err != nil {
		return nil, err
	}

	s := &Session{
		id:       uuid.NewString(),
		group:    g,
		conn:     conn,
		identity: id,
		handler:  g.newHandler(),
		logger:   logger.With("group", g.name),
		done:     make(chan struct{}),
	}
	s.active.Store(true)

	g.add(s)
	go s.run(cfg)
	return s, nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// GroupName returns the name of the owning group.
func (s *Session) GroupName() string { return s.group.name }

// Identity returns the caller identity the session was admitted with, or
// nil for anonymous sessions.
func (s *Session) Identity() *auth.Identity { return s.identity }

// Active reports whether the session's receive loop is still running.
func (s *Session) Active() bool { return s.active.Load() }

// SendText writes a text message to the peer.
func (s *Session) SendText(msg string) error {
	return s.write(websocket.TextMessage, []byte(msg))
}

// SendBinary writes a binary message to the peer.
func (s *Session) SendBinary(data []byte) error {
	return s.write(websocket.BinaryMessage, data)
}

func (s *Session) write(messageType int, data []byte) error {
	if !s.active.Load() {
		return errors.New("session is closed")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteMessage(messageType, data)
}

// Close terminates the session. It sends a best-effort close frame, then
// closes the transport, which promptly unblocks a pending read and drives
// the receive loop to exit. Calling Close more than once is safe.
func (s *Session) Close() {
	s.closing.Do(func() {
		s.active.Store(false)
		s.writeMu.Lock()
		deadline := time.Now().Add(writeWait)
		s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		s.writeMu.Unlock()
		s.conn.Close()
	})
}

// run is the session's receive loop. It reads complete logical messages
// (the transport reassembles fragmented frames) and dispatches each to the
// string or binary handler in its own goroutine so handling never blocks
// further reads.
func (s *Session) run(cfg config.WebSocketConfig) {
	defer func() {
		s.active.Store(false)
		s.group.remove(s)
		s.conn.Close()
		close(s.done)
		s.handler.OnDisconnected(s)
		s.logger.Debug("websocket session closed", "session", s.id, "members", s.group.Count())
	}()

	if cfg.MaxMessageSize > 0 {
		s.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	}

	// Keepalive is off by default; a silent peer then holds the session
	// open indefinitely. Configure ping_interval to bound idle time.
	if cfg.PingInterval > 0 {
		interval := time.Duration(cfg.PingInterval) * time.Second
		wait := time.Duration(cfg.PongTimeout) * time.Second
		s.conn.SetReadDeadline(time.Now().Add(interval + wait))
		s.conn.SetPongHandler(func(string) error {
			return s.conn.SetReadDeadline(time.Now().Add(interval + wait))
		})
		go s.keepalive(interval, wait)
	}

	s.handler.OnConnected(s)
	s.logger.Debug("websocket session open", "session", s.id, "members", s.group.Count())

	for s.active.Load() {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			// A received close frame is answered with a close reply by the
			// transport's default close handler before surfacing here.
			if s.active.Load() && !isExpectedClose(err) {
				s.handler.OnError(s, err)
			}
			// The transport marks the connection failed after any read
			// error, so the loop cannot continue past one.
			return
		}

		switch messageType {
		case websocket.TextMessage:
			go s.handler.OnText(s, string(data))
		case websocket.BinaryMessage:
			go s.handler.OnBinary(s, data)
		}
	}
}

// keepalive sends protocol-level pings until the session ends.
func (s *Session) keepalive(interval, wait time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.writeMu.Lock()
			s.conn.SetWriteDeadline(time.Now().Add(wait))
			err := s.conn.WriteMessage(websocket.PingMessage, nil)
			s.writeMu.Unlock()
			if err != nil {
				s.Close()
				return
			}
		}
	}
}

// isExpectedClose reports whether a read error is part of an orderly
// shutdown rather than a fault worth reporting.
func isExpectedClose(err error) bool {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
		return true
	}
	return errors.Is(err, net.ErrClosed)
}
