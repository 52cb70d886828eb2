package realtime

import (
	"errors"
	"sync"
)

var (
	ErrSendBufferFull   = errors.New("connection send buffer full")
	ErrConnectionClosed = errors.New("connection closed")
)

// Connection is a subscriber handle. Send must never block: it either
// enqueues the payload or reports why it could not.
type Connection interface {
	ID() string
	Send(payload []byte) error
}

// ChannelConn is a Connection backed by a buffered channel. The transport
// drains Outbound and calls Close when the peer goes away.
type ChannelConn struct {
	id     string
	mu     sync.RWMutex
	send   chan []byte
	closed bool
}

func NewChannelConn(id string, buffer int) *ChannelConn {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelConn{id: id, send: make(chan []byte, buffer)}
}

func (c *ChannelConn) ID() string {
	return c.id
}

func (c *ChannelConn) Send(payload []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnectionClosed
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Outbound is closed after Close.
func (c *ChannelConn) Outbound() <-chan []byte {
	return c.send
}

func (c *ChannelConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}
