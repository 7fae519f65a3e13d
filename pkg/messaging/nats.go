// Package messaging wraps the NATS connection the control plane
// publishes domain events on: every dispatch decision, lot transition,
// and incident lifecycle change goes out on a stable subject so that
// consumers outside CORE's scope (MES floor displays, data warehouse
// loaders, whatever else watches the fab) can react without polling the
// Repository.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// Config dials a NATS connection with the reconnect policy a background
// control-plane process needs: keep retrying rather than giving up,
// since a lost NATS connection should degrade event publishing, not
// take down lot dispatch or lifecycle advancement.
type Config struct {
	URL            string
	Name           string
	ReconnectWait  time.Duration
	MaxReconnects  int
	ConnectTimeout time.Duration
}

// Client is the thin event-bus handle every engine (Scheduler,
// Lifecycle, Safety) holds a pointer to. It is nil-safe at the call
// site: callers check for a nil *Client before publishing so that
// running without NATS degrades to "no event fan-out" rather than a
// panic.
type Client struct {
	conn *nats.Conn

	mu        sync.RWMutex
	connected bool
}

// NewClient connects to NATS and wires reconnect/disconnect handlers so
// IsConnected reflects live connection state for the gateway's
// readiness probe.
func NewClient(cfg Config) (*Client, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.Timeout(cfg.ConnectTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("messaging: connect: %w", err)
	}

	c := &Client{conn: conn, connected: true}
	conn.SetReconnectHandler(func(*nats.Conn) { c.setConnected(true) })
	conn.SetDisconnectErrHandler(func(*nats.Conn, error) { c.setConnected(false) })
	return c, nil
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

// Publish marshals data as JSON and publishes it to subject.
func (c *Client) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("messaging: marshal event for %s: %w", subject, err)
	}
	return c.conn.Publish(subject, payload)
}

// IsConnected reports whether the underlying NATS connection is live.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && c.conn != nil && c.conn.IsConnected()
}

// Close drains in-flight publishes and disconnects.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	c.conn.Close()
	c.setConnected(false)
	return nil
}
