package connection

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"wirebot/pkg/protocol"
)

// Client owns one WebSocket connection to the platform gateway, its
// heartbeat timer, and the open/closed state. A client is single-use:
// after a close or a forced termination the caller dials a fresh one.
type Client struct {
	cfg Config
	log *slog.Logger

	conn *websocket.Conn
	hb   *heartbeat

	messages chan []byte
	errors   chan error

	writeMu sync.Mutex

	mu     sync.RWMutex
	open   bool
	closed bool
}

// NewClient builds an unconnected client.
func NewClient(cfg Config, log *slog.Logger) *Client {
	cfg.applyDefaults()
	if log == nil {
		log = slog.Default()
	}

	c := &Client{
		cfg:      cfg,
		log:      log.With("component", "connection.client"),
		messages: make(chan []byte, cfg.BufferSize),
		errors:   make(chan error, 1),
	}
	c.hb = newHeartbeat(cfg.HeartbeatInterval, cfg.MaxMissed, log, c.sendProbe, c.terminate)

	return c
}

// Endpoint derives the dial URL from the gateway base, the fixed common
// query parameters, and the auth token.
func (c *Client) Endpoint() (string, error) {
	u, err := url.Parse(c.cfg.GatewayURL)
	if err != nil {
		return "", fmt.Errorf("parse gateway url: %w", err)
	}

	query := u.Query()
	query.Set("v", "1")
	query.Set("encoding", "text")
	query.Set("token", c.cfg.Token)
	u.RawQuery = query.Encode()

	return u.String(), nil
}

// Connect dials the gateway and starts the heartbeat and read loop.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrAlreadyClosed
	}
	c.mu.Unlock()

	endpoint, err := c.Endpoint()
	if err != nil {
		return err
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("dial gateway: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.open = true
	c.mu.Unlock()

	c.hb.start()
	go c.readLoop()

	c.log.Debug("Gateway connected", "url", c.cfg.GatewayURL)

	return nil
}

// Close gracefully shuts the connection down. Closing a never-opened
// client is a no-op, not an error.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	wasOpen := c.open
	c.open = false
	conn := c.conn
	c.mu.Unlock()

	c.hb.stop()

	if !wasOpen || conn == nil {
		return nil
	}

	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return conn.Close()
}

// terminate force-closes the transport without a close handshake and
// reports the loss on the error channel.
func (c *Client) terminate() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.open = false
	conn := c.conn
	c.mu.Unlock()

	c.hb.stop()

	if conn != nil {
		_ = conn.Close()
	}

	select {
	case c.errors <- ErrHeartbeatLost:
	default:
	}
}

// Send writes one text frame.
func (c *Client) Send(data []byte) error {
	c.mu.RLock()
	if !c.open {
		c.mu.RUnlock()
		return ErrNotConnected
	}
	conn := c.conn
	c.mu.RUnlock()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// sendProbe writes the literal liveness probe frame.
func (c *Client) sendProbe() error {
	return c.Send([]byte(protocol.FramePing))
}

// Messages returns raw inbound frames. Liveness replies are consumed
// here and never forwarded.
func (c *Client) Messages() <-chan []byte {
	return c.messages
}

// Errors reports transport loss; at most one error per client.
func (c *Client) Errors() <-chan error {
	return c.errors
}

// IsOpen reports the current connection state.
func (c *Client) IsOpen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.open
}

// MissedHeartbeats returns probes sent since the last liveness reply.
func (c *Client) MissedHeartbeats() int {
	return c.hb.missedCount()
}

func (c *Client) readLoop() {
	defer close(c.messages)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			wasClosed := c.closed
			c.open = false
			c.mu.Unlock()

			c.hb.stop()

			if !wasClosed {
				select {
				case c.errors <- err:
				default:
				}
			}
			return
		}

		// The liveness reply resets the heartbeat and stays at this layer.
		if string(data) == protocol.FramePong {
			c.hb.reset()
			continue
		}

		c.messages <- data
	}
}
