// network/connection.go
package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	ErrNotConnected = errors.New("channel not connected")
	// ErrMalformedFrame marks a frame that is not a JSON envelope. The
	// connection itself is still usable.
	ErrMalformedFrame = errors.New("malformed frame")
)

type Connection interface {
	Send(env Envelope) error
	Ping() error
	Close() error
	RemoteAddr() net.Addr
	SetHeartbeat(interval time.Duration)
	ReadEnvelope() (*Envelope, error)
}

type WSConnection struct {
	conn      *websocket.Conn
	sendMutex sync.Mutex
	heartbeat time.Duration
}

func NewWSConnection(conn *websocket.Conn) *WSConnection {
	return &WSConnection{conn: conn}
}

// Dial opens a websocket to url.
func Dial(ctx context.Context, url string, header http.Header) (*WSConnection, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}
	return NewWSConnection(conn), nil
}

func (c *WSConnection) Send(env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}

	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *WSConnection) Ping() error {
	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
}

func (c *WSConnection) ReadEnvelope() (*Envelope, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	if c.heartbeat > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.heartbeat * 2))
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return &env, nil
}

// SetHeartbeat arms a read deadline of twice the interval, extended by
// every frame and pong.
func (c *WSConnection) SetHeartbeat(interval time.Duration) {
	c.heartbeat = interval
	c.conn.SetReadDeadline(time.Now().Add(interval * 2))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(interval * 2))
	})
}

func (c *WSConnection) Close() error {
	c.sendMutex.Lock()
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.sendMutex.Unlock()
	return c.conn.Close()
}

func (c *WSConnection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
