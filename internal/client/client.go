// Package client implements the relay-side connection lifecycle used by Go
// clients and integration harnesses: bounded reconnect with stepped
// backoff, and automatic re-join of registered rooms after each reconnect,
// since the relay keeps no membership across a dropped connection.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/shuttle-tracker/internal/room"
)

// Conn is the transport surface the lifecycle manages. *websocket.Conn
// satisfies it.
type Conn interface {
	WriteJSON(v interface{}) error
	ReadMessage() (int, []byte, error)
	Close() error
}

// DialFunc opens one connection attempt. The default dials the configured
// websocket URL; tests substitute fakes.
type DialFunc func(ctx context.Context) (Conn, error)

type Config struct {
	URL            string
	Dial           DialFunc
	MaxAttempts    int           // reconnect attempts before giving up
	BackoffStep    time.Duration // delay grows by one step per failed attempt
	MaxBackoff     time.Duration
	AttemptTimeout time.Duration
	Logger         *slog.Logger
}

// ErrGaveUp reports that every reconnect attempt failed.
var ErrGaveUp = errors.New("relay connection: reconnect attempts exhausted")

type Client struct {
	cfg Config

	OnEvent func(event string, data json.RawMessage)
	OnDown  func(err error) // terminal, after attempts are exhausted

	mu     sync.Mutex
	conn   Conn
	joined map[string]struct{}

	// wmu serializes writes: *websocket.Conn allows one concurrent writer,
	// and Run's rejoin loop races Join/Send from the application goroutine.
	wmu sync.Mutex
}

func New(cfg Config) *Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.BackoffStep <= 0 {
		cfg.BackoffStep = 2 * time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 10 * time.Second
	}
	if cfg.Dial == nil {
		url := cfg.URL
		cfg.Dial = func(ctx context.Context) (Conn, error) {
			c, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
			return c, err
		}
	}
	return &Client{cfg: cfg, joined: make(map[string]struct{})}
}

// Join registers a room and, when connected, emits joinService right away.
// The registration survives reconnects; every new connection re-joins.
func (c *Client) Join(serviceID string) error {
	c.mu.Lock()
	c.joined[serviceID] = struct{}{}
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	return c.writeJSON(conn, room.Envelope{Event: "joinService", Data: serviceID})
}

func (c *Client) Send(event string, payload interface{}) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.New("not connected")
	}
	return c.writeJSON(conn, room.Envelope{Event: event, Data: payload})
}

func (c *Client) writeJSON(conn Conn, env room.Envelope) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return conn.WriteJSON(env)
}

// Run connects and keeps the session alive until ctx is cancelled or the
// reconnect budget is spent. Backgrounding the app is not a reason to stop
// an active trip: callers keep Run alive and location keeps flowing
// through whatever durable channel the platform provides, resynchronizing
// here opportunistically.
func (c *Client) Run(ctx context.Context) error {
	for {
		conn, err := c.connectWithRetry(ctx)
		if err != nil {
			if c.OnDown != nil && !errors.Is(err, context.Canceled) {
				c.OnDown(err)
			}
			return err
		}

		c.mu.Lock()
		c.conn = conn
		rooms := make([]string, 0, len(c.joined))
		for id := range c.joined {
			rooms = append(rooms, id)
		}
		c.mu.Unlock()

		for _, id := range rooms {
			if err := c.writeJSON(conn, room.Envelope{Event: "joinService", Data: id}); err != nil {
				c.logger().Warn("rejoin failed", "service_id", id, "error", err)
			}
		}

		err = c.readLoop(ctx, conn)
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		_ = conn.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger().Info("relay connection lost, reconnecting", "error", err)
	}
}

func (c *Client) connectWithRetry(ctx context.Context) (Conn, error) {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		actx, cancel := context.WithTimeout(ctx, c.cfg.AttemptTimeout)
		conn, err := c.cfg.Dial(actx)
		cancel()
		if err == nil {
			return conn, nil
		}
		lastErr = err
		c.logger().Warn("dial failed", "attempt", attempt, "error", err)

		if attempt == c.cfg.MaxAttempts {
			break
		}
		delay := time.Duration(attempt) * c.cfg.BackoffStep
		if delay > c.cfg.MaxBackoff {
			delay = c.cfg.MaxBackoff
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrGaveUp, lastErr)
}

func (c *Client) readLoop(ctx context.Context, conn Conn) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var env struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &env); err != nil {
			c.logger().Warn("malformed frame from relay", "error", err)
			continue
		}
		if c.OnEvent != nil {
			c.OnEvent(env.Event, env.Data)
		}
	}
}

func (c *Client) logger() *slog.Logger {
	if c.cfg.Logger != nil {
		return c.cfg.Logger
	}
	return slog.Default()
}
