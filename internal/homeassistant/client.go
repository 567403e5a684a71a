package homeassistant

import (
	"context"
	"sync"
	"time"
)

// Logger defines the logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

const defaultRequestTimeout = 30 * time.Second

// Config holds connection settings.
type Config struct {
	// URL is the Home Assistant base URL or its websocket endpoint.
	URL   string
	Token string
	// RequestTimeout bounds each command. Zero means 30 seconds.
	RequestTimeout time.Duration
}

// Client is a Home Assistant websocket client. It dials on first use and
// redials after the connection drops.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	cfg    Config
	logger Logger

	mu   sync.Mutex
	conn *conn

	labelsMu sync.Mutex
	labels   map[string]bool
}

// NewClient creates a client. No connection is made until the first command
// or an explicit Connect.
func NewClient(cfg Config) *Client {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	return &Client{
		cfg:    cfg,
		logger: noopLogger{},
		labels: make(map[string]bool),
	}
}

// SetLogger sets the logger for the client.
func (c *Client) SetLogger(logger Logger) {
	c.logger = logger
}

// Connect dials and authenticates if there is no live connection.
func (c *Client) Connect(ctx context.Context) error {
	_, err := c.connection(ctx)
	return err
}

// HealthCheck verifies there is a live connection, redialling if the last
// one dropped.
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.Connect(ctx)
}

// Version returns the Home Assistant version reported at authentication,
// or "" before the first connection.
func (c *Client) Version() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ""
	}
	return c.conn.haVersion
}

// Close closes the current connection, if any.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.close()
	c.conn = nil
	return err
}

func (c *Client) connection(ctx context.Context) (*conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil && c.conn.alive() {
		return c.conn, nil
	}
	if c.conn != nil {
		c.logger.Warn("home assistant connection lost, reconnecting", "error", c.conn.err)
		_ = c.conn.ws.Close() //nolint:errcheck // already dead
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	conn, err := dial(dialCtx, c.cfg.URL, c.cfg.Token)
	if err != nil {
		c.conn = nil
		return nil, err
	}
	c.conn = conn
	c.logger.Info("connected to home assistant", "version", conn.haVersion)
	return conn, nil
}

// call runs one command with the request timeout.
func (c *Client) call(ctx context.Context, cmdType string, cmd map[string]any, out any) error {
	conn, err := c.connection(ctx)
	if err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	c.logger.Debug("home assistant command", "type", cmdType)
	return conn.call(callCtx, cmdType, cmd, out)
}
