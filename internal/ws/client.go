package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ErrClientClosed is returned by Send once the connection is shut down.
var ErrClientClosed = errors.New("ws: client closed")

// errSendBufferFull is returned when a slow consumer's outbound queue is
// exhausted; the connection is closed to keep backpressure bounded.
var errSendBufferFull = errors.New("ws: send buffer full")

// Client wraps a websocket connection and coordinates outbound writes via a
// buffered channel. Exactly one write loop owns the socket for writing; Send
// may be called from any goroutine.
//
// userID is empty until the client announces presence; the hub treats an
// unannounced client as connected but invisible to the relay.
type Client struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	once   sync.Once
	closed chan struct{}

	mu     sync.Mutex
	userID string

	writeWait  time.Duration
	pingPeriod time.Duration
}

// newClient constructs a Client with the hub's buffer and timing settings.
func newClient(conn *websocket.Conn, sendBuffer int, writeWait, pingPeriod time.Duration) *Client {
	if sendBuffer <= 0 {
		sendBuffer = 128
	}
	return &Client{
		id:         uuid.NewString(),
		conn:       conn,
		send:       make(chan []byte, sendBuffer),
		closed:     make(chan struct{}),
		writeWait:  writeWait,
		pingPeriod: pingPeriod,
	}
}

// ID returns the opaque connection handle identifier.
func (c *Client) ID() string { return c.id }

// UserID returns the announced user id, or "" before announcement.
func (c *Client) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// setUserID records the announced identity. The first announcement wins;
// later ones are ignored.
func (c *Client) setUserID(uid string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.userID != "" {
		return false
	}
	c.userID = uid
	return true
}

// Send enqueues payload for delivery. If the client is slow and the buffer is
// full, the connection is closed so backpressure stays bounded.
func (c *Client) Send(payload []byte) error {
	select {
	case <-c.closed:
		return ErrClientClosed
	default:
	}
	select {
	case c.send <- payload:
		return nil
	case <-c.closed:
		return ErrClientClosed
	default:
		relayDropped.Inc()
		c.Close(websocket.CloseGoingAway, "send buffer full")
		return errSendBufferFull
	}
}

// Close terminates the connection and stops the write loop. Safe to call
// multiple times.
func (c *Client) Close(code int, reason string) {
	c.once.Do(func() {
		close(c.closed)
		deadline := time.Now().Add(c.writeWait)
		_ = c.conn.SetWriteDeadline(deadline)
		_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
		_ = c.conn.Close()
	})
}

// writeLoop drains the send channel onto the socket and keeps the connection
// alive with pings. It exits when the client closes or a write fails.
func (c *Client) writeLoop() {
	ticker := time.NewTicker(c.pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.closed:
			return
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				c.Close(websocket.CloseAbnormalClosure, "write failed")
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.Close(websocket.CloseAbnormalClosure, "ping failed")
				return
			}
		}
	}
}

func (c *Client) write(messageType int, payload []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, payload)
}
