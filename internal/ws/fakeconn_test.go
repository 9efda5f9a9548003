package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

var errFakeClosed = errors.New("use of closed network connection")

type readResult struct {
	data []byte
	err  error
}

// fakeConn records writes and serves reads from a channel.
type fakeConn struct {
	reads chan readResult

	mu        sync.Mutex
	texts     []string
	closeMsgs [][]byte
	writeErr  error
	block     chan struct{}

	closeOnce sync.Once
	closed    chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		reads:  make(chan readResult, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case r := <-c.reads:
		if r.err != nil {
			return 0, nil, r.err
		}
		return websocket.TextMessage, r.data, nil
	case <-c.closed:
		return 0, nil, errFakeClosed
	}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	block := c.block
	c.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-c.closed:
			return errFakeClosed
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	switch messageType {
	case websocket.TextMessage:
		c.texts = append(c.texts, string(data))
	case websocket.CloseMessage:
		c.closeMsgs = append(c.closeMsgs, data)
	}
	return nil
}

func (c *fakeConn) SetReadDeadline(time.Time) error         { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error        { return nil }
func (c *fakeConn) SetReadLimit(int64)                      {}
func (c *fakeConn) SetPongHandler(func(appData string) error) {}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) received() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.texts...)
}

func (c *fakeConn) closeFrames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.closeMsgs...)
}

func (c *fakeConn) failWrites(err error) {
	c.mu.Lock()
	c.writeErr = err
	c.mu.Unlock()
}

// blockWrites makes every write wait until the returned func is called.
func (c *fakeConn) blockWrites() (release func()) {
	ch := make(chan struct{})
	c.mu.Lock()
	c.block = ch
	c.mu.Unlock()
	return func() { close(ch) }
}

func (c *fakeConn) push(text string) {
	c.reads <- readResult{data: []byte(text)}
}

func (c *fakeConn) pushErr(err error) {
	c.reads <- readResult{err: err}
}

// testSessionConfig disables pings and read deadlines so fake connections
// only see the messages a test sends.
func testSessionConfig() SessionConfig {
	return SessionConfig{SendBuffer: 64, WriteTimeout: time.Second}
}

func newTestSession(conn *fakeConn) *Session {
	return NewSession(conn, testSessionConfig(), clockwork.NewRealClock())
}
