package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Conn is the outbound half of a websocket connection as the hub sees it.
// Tests substitute in-memory fakes.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

// wsConn wraps a gorilla connection with a write mutex; a user joined to
// several rooms can receive broadcasts from independent room fan-outs, and
// gorilla connections do not tolerate concurrent writers.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// NewConn wraps a websocket connection for hub use.
func NewConn(conn *websocket.Conn) Conn {
	return &wsConn{conn: conn}
}

func (c *wsConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}
