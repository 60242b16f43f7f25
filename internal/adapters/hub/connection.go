package hub

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/livescore/internal/domain/types"
	"github.com/okian/livescore/pkg/logger"
)

// Transport is the part of *websocket.Conn the hub relies on.
type Transport interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	SetWriteDeadline(t time.Time) error
	SetReadDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)
	Close() error
}

var _ Transport = (*websocket.Conn)(nil)

// State is the lifecycle stage of a connection.
type State int32

// Connection states. A closed connection is never reopened.
const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Connection is one registered client.
type Connection struct {
	ID          string
	Identity    string
	Role        types.Role
	ConnectedAt time.Time

	hub       *Hub
	transport Transport
	send      chan []byte
	done      chan struct{}
	state     atomic.Int32
	closeOnce sync.Once
}

func newConnection(h *Hub, id, identity string, role types.Role, t Transport) *Connection {
	return &Connection{
		ID:          id,
		Identity:    identity,
		Role:        role,
		ConnectedAt: h.clock.Now().UTC(),
		hub:         h,
		transport:   t,
		send:        make(chan []byte, h.sendBuffer),
		done:        make(chan struct{}),
	}
}

// State returns the current lifecycle stage.
func (c *Connection) State() State {
	return State(c.state.Load())
}

// Done is closed once the connection is closed.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

func (c *Connection) start() {
	c.transport.SetReadLimit(c.hub.maxMessageSize)
	_ = c.transport.SetReadDeadline(c.hub.clock.Now().Add(c.hub.readTimeout))
	c.transport.SetPongHandler(func(string) error {
		return c.transport.SetReadDeadline(c.hub.clock.Now().Add(c.hub.readTimeout))
	})
	if !c.state.CompareAndSwap(int32(StateConnecting), int32(StateOpen)) {
		return
	}

	go c.writePump()
	go c.readPump()
}

// enqueue places frame on the send queue without blocking.
func (c *Connection) enqueue(frame []byte) bool {
	if c.State() != StateOpen {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Connection) close() {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosed))
		close(c.done)
		_ = c.transport.Close()
	})
}

func (c *Connection) writePump() {
	ticker := c.hub.clock.NewTicker(c.hub.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			_ = c.transport.SetWriteDeadline(c.hub.clock.Now().Add(c.hub.writeTimeout))
			if err := c.transport.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.hub.logger.Debug(context.Background(), "write failed",
					logger.String("connection_id", c.ID), logger.Error(err))
				c.hub.drop(c, "write")
				return
			}
		case <-ticker.Chan():
			_ = c.transport.SetWriteDeadline(c.hub.clock.Now().Add(c.hub.writeTimeout))
			if err := c.transport.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.drop(c, "ping")
				return
			}
		}
	}
}

// readPump keeps the read side moving so pongs and close frames are
// processed. Inbound data frames carry no commands and are discarded.
func (c *Connection) readPump() {
	for {
		_, _, err := c.transport.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug(context.Background(), "unexpected close",
					logger.String("connection_id", c.ID), logger.Error(err))
			}
			c.hub.drop(c, "read")
			return
		}
		_ = c.transport.SetReadDeadline(c.hub.clock.Now().Add(c.hub.readTimeout))
	}
}
