package ws

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/oklog/ulid/v2"
)

// Conn is the subset of *websocket.Conn a Session needs.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)
	Close() error
}

type SessionConfig struct {
	SendBuffer     int
	WriteTimeout   time.Duration
	PongWait       time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		SendBuffer:     64,
		WriteTimeout:   5 * time.Second,
		PongWait:       60 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 4096,
	}
}

// Session is one accepted WebSocket connection. Outbound messages go through
// a bounded queue drained by a single writer goroutine, so each client sees
// its messages in the order they were sent and a slow client never blocks
// the sender.
type Session struct {
	id    string
	conn  Conn
	cfg   SessionConfig
	clock clockwork.Clock

	send       chan []byte
	done       chan struct{}
	writerDone chan struct{}

	mu          sync.Mutex
	closed      bool
	closeCode   int
	closeReason string
}

// NewSession wraps conn and starts its writer goroutine.
func NewSession(conn Conn, cfg SessionConfig, clock clockwork.Clock) *Session {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = DefaultSessionConfig().SendBuffer
	}
	s := &Session{
		id:         ulid.Make().String(),
		conn:       conn,
		cfg:        cfg,
		clock:      clock,
		send:       make(chan []byte, cfg.SendBuffer),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
	}

	if cfg.MaxMessageSize > 0 {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}
	if cfg.PongWait > 0 {
		s.extendReadDeadline()
		conn.SetPongHandler(func(string) error {
			s.extendReadDeadline()
			return nil
		})
	}

	go s.writePump()
	return s
}

func (s *Session) ID() string {
	return s.id
}

// Alive reports whether the session still accepts messages.
func (s *Session) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

// Send queues msg for delivery without blocking. It fails with
// ErrSessionClosed after Close and ErrSendBufferFull when the queue is full.
func (s *Session) Send(msg []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	select {
	case s.send <- msg:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Receive blocks until the next inbound message. It returns ErrPeerClosed on
// a close frame, ErrSessionClosed if the session was closed locally, and a
// wrapped read error otherwise.
func (s *Session) Receive() (string, error) {
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
			return "", ErrPeerClosed
		}
		if !s.Alive() {
			return "", ErrSessionClosed
		}
		return "", fmt.Errorf("read: %w", err)
	}
	s.extendReadDeadline()
	return string(data), nil
}

// Close stops the session with a normal-closure frame carrying reason.
// Safe to call more than once; only the first call has an effect.
func (s *Session) Close(reason string) {
	s.closeWith(websocket.CloseNormalClosure, reason)
}

func (s *Session) closeWith(code int, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.closeCode = code
	s.closeReason = reason
	close(s.done)
}

// Done is closed once the writer has exited and the connection is closed.
func (s *Session) Done() <-chan struct{} {
	return s.writerDone
}

func (s *Session) writePump() {
	var pings <-chan time.Time
	if s.cfg.PingInterval > 0 {
		ticker := s.clock.NewTicker(s.cfg.PingInterval)
		defer ticker.Stop()
		pings = ticker.Chan()
	}
	defer close(s.writerDone)
	defer s.conn.Close()

	for {
		select {
		case msg := <-s.send:
			s.setWriteDeadline()
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.closeWith(websocket.CloseAbnormalClosure, "write failed")
				return
			}
		case <-pings:
			s.setWriteDeadline()
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.closeWith(websocket.CloseAbnormalClosure, "ping failed")
				return
			}
		case <-s.done:
			s.writeCloseFrame()
			return
		}
	}
}

func (s *Session) writeCloseFrame() {
	s.mu.Lock()
	code, reason := s.closeCode, s.closeReason
	s.mu.Unlock()

	if code == websocket.CloseAbnormalClosure {
		return
	}
	s.setWriteDeadline()
	// The peer may already be gone; the connection is closed either way.
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
}

func (s *Session) setWriteDeadline() {
	if s.cfg.WriteTimeout > 0 {
		_ = s.conn.SetWriteDeadline(s.clock.Now().Add(s.cfg.WriteTimeout))
	}
}

func (s *Session) extendReadDeadline() {
	if s.cfg.PongWait > 0 {
		_ = s.conn.SetReadDeadline(s.clock.Now().Add(s.cfg.PongWait))
	}
}
