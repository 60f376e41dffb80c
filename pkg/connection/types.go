package connection

import (
	"errors"
	"time"
)

var (
	ErrNotConnected  = errors.New("not connected")
	ErrAlreadyClosed = errors.New("already closed")

	// ErrHeartbeatLost is pushed on the error channel when the missed
	// heartbeat threshold forces termination.
	ErrHeartbeatLost = errors.New("heartbeat threshold exceeded")
)

// Config describes one gateway connection.
type Config struct {
	// GatewayURL is the fixed base WebSocket endpoint.
	GatewayURL string

	// Token authenticates the connection; appended as a query parameter.
	Token string

	HeartbeatInterval time.Duration
	MaxMissed         int

	WriteTimeout time.Duration
	BufferSize   int
}

func (c *Config) applyDefaults() {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 30 * time.Second
	}
	if c.MaxMissed <= 0 {
		c.MaxMissed = 5
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.BufferSize <= 0 {
		c.BufferSize = 100
	}
}
