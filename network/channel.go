package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wfunc/twilightsync/logger"
)

var (
	ErrHandshake        = errors.New("handshake failed")
	ErrHandshakeTimeout = errors.New("handshake timed out")
)

// Handler receives one inbound envelope.
type Handler func(env Envelope)

// DialFunc opens a fresh Connection to the game server.
type DialFunc func(ctx context.Context) (Connection, error)

// WebsocketDialer returns a DialFunc for the given ws:// url.
func WebsocketDialer(url string) DialFunc {
	return func(ctx context.Context) (Connection, error) {
		return Dial(ctx, url, nil)
	}
}

// Channel is the duplex event channel to the server. Handlers are keyed by
// event name, one per name; a later On for the same name replaces the
// earlier one.
type Channel struct {
	dial      DialFunc
	handshake time.Duration
	heartbeat time.Duration

	mu       sync.RWMutex
	conn     Connection
	playerID string
	handlers map[string]Handler
	fallback Handler
	badFrame func(err error)
}

func NewChannel(dial DialFunc, handshake, heartbeat time.Duration) *Channel {
	return &Channel{
		dial:      dial,
		handshake: handshake,
		heartbeat: heartbeat,
		handlers:  make(map[string]Handler),
	}
}

// Connect dials the server and waits for the connected welcome frame that
// carries this client's player id. Calling Connect on a live channel returns
// the existing id without dialing.
func (c *Channel) Connect(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return c.playerID, nil
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return "", fmt.Errorf("dial: %w", err)
	}

	playerID, err := c.awaitWelcome(ctx, conn)
	if err != nil {
		conn.Close()
		return "", err
	}
	if c.heartbeat > 0 {
		conn.SetHeartbeat(c.heartbeat)
	}

	c.conn = conn
	c.playerID = playerID
	logger.Log.Infof("Connected to %s as player %s", conn.RemoteAddr(), playerID)
	return playerID, nil
}

func (c *Channel) awaitWelcome(ctx context.Context, conn Connection) (string, error) {
	type result struct {
		env *Envelope
		err error
	}
	done := make(chan result, 1)
	go func() {
		env, err := conn.ReadEnvelope()
		done <- result{env, err}
	}()

	var timeout <-chan time.Time
	if c.handshake > 0 {
		timer := time.NewTimer(c.handshake)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timeout:
		return "", ErrHandshakeTimeout
	case r := <-done:
		if r.err != nil {
			return "", fmt.Errorf("%w: %v", ErrHandshake, r.err)
		}
		if r.env.Event != EventConnected {
			return "", fmt.Errorf("%w: expected %q, got %q", ErrHandshake, EventConnected, r.env.Event)
		}
		var welcome ConnectedPayload
		if err := r.env.Decode(&welcome); err != nil {
			return "", fmt.Errorf("%w: %v", ErrHandshake, err)
		}
		if welcome.PlayerID == "" {
			return "", fmt.Errorf("%w: empty player id", ErrHandshake)
		}
		return welcome.PlayerID, nil
	}
}

// PlayerID returns the id assigned on connect, or "" before that.
func (c *Channel) PlayerID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// Connected reports whether a live connection is held.
func (c *Channel) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil
}

// Emit sends one event. There is no delivery acknowledgement at this layer.
func (c *Channel) Emit(event, cid string, payload interface{}) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}

	env := Envelope{Event: event, CorrelationID: cid}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", event, err)
		}
		env.Data = data
	}
	return conn.Send(env)
}

// On registers h for event, replacing any previous handler.
func (c *Channel) On(event string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = h
}

// OnUnknown registers the handler for events without a registered handler.
func (c *Channel) OnUnknown(h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fallback = h
}

// OnMalformed registers f for frames Run skips because they do not decode.
func (c *Channel) OnMalformed(f func(err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.badFrame = f
}

// Dispatch runs the handler registered for env.Event. It returns false when
// neither a handler nor a fallback exists.
func (c *Channel) Dispatch(env Envelope) bool {
	c.mu.RLock()
	h, ok := c.handlers[env.Event]
	if !ok {
		h = c.fallback
	}
	c.mu.RUnlock()

	if h == nil {
		return false
	}
	h(env)
	return true
}

// Run reads envelopes until the connection fails or ctx is done, handing
// each one to deliver in arrival order. Frames that do not decode are
// skipped. Handlers are not invoked here; the owner of deliver decides
// where Dispatch runs.
func (c *Channel) Run(ctx context.Context, deliver func(Envelope)) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		var tick <-chan time.Time
		if c.heartbeat > 0 {
			ticker := time.NewTicker(c.heartbeat)
			defer ticker.Stop()
			tick = ticker.C
		}
		for {
			select {
			case <-runCtx.Done():
				// unblocks ReadEnvelope
				conn.Close()
				return
			case <-tick:
				if err := conn.Ping(); err != nil {
					logger.Log.Warnf("Heartbeat ping failed: %v", err)
				}
			}
		}
	}()

	defer c.drop(conn)

	for {
		env, err := conn.ReadEnvelope()
		if errors.Is(err, ErrMalformedFrame) {
			logger.Log.Warnf("Skipping frame from %s: %v", conn.RemoteAddr(), err)
			c.mu.RLock()
			f := c.badFrame
			c.mu.RUnlock()
			if f != nil {
				f(err)
			}
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read: %w", err)
		}
		deliver(*env)
	}
}

func (c *Channel) drop(conn Connection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == conn {
		c.conn = nil
		c.playerID = ""
	}
}

// Close shuts the connection down.
func (c *Channel) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.playerID = ""
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}
