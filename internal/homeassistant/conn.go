package homeassistant

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// maxMessageSize allows registry lists of large installations.
	maxMessageSize = 32 << 20

	writeWait = 10 * time.Second

	websocketPath = "/api/websocket"
)

// message is the envelope of every frame in either direction.
type message struct {
	ID          int64           `json:"id,omitempty"`
	Type        string          `json:"type"`
	Success     bool            `json:"success,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       *apiError       `json:"error,omitempty"`
	AccessToken string          `json:"access_token,omitempty"`
	HAVersion   string          `json:"ha_version,omitempty"`
	Message     string          `json:"message,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CommandError carries the error Home Assistant attached to a failed result.
// It matches ErrCommandFailed with errors.Is.
type CommandError struct {
	Command string
	Code    string
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s: %s (%s)", ErrCommandFailed, e.Command, e.Message, e.Code)
}

// Is reports whether target is ErrCommandFailed.
func (e *CommandError) Is(target error) bool {
	return target == ErrCommandFailed
}

// conn is one authenticated websocket connection.
type conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
	nextID  atomic.Int64

	mu      sync.Mutex
	pending map[int64]chan message
	closed  bool
	done    chan struct{}
	err     error

	haVersion string
}

// websocketURL turns a base or websocket URL into the websocket endpoint.
func websocketURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parsing url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if !strings.HasSuffix(u.Path, websocketPath) {
		u.Path = strings.TrimSuffix(u.Path, "/") + websocketPath
	}
	return u.String(), nil
}

// dial connects and authenticates.
func dial(ctx context.Context, rawURL, token string) (*conn, error) {
	endpoint, err := websocketURL(rawURL)
	if err != nil {
		return nil, err
	}

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dialling %s: %w", endpoint, err)
	}
	ws.SetReadLimit(maxMessageSize)

	c := &conn{
		ws:      ws,
		pending: make(map[int64]chan message),
		done:    make(chan struct{}),
	}
	if err := c.authenticate(ctx, token); err != nil {
		ws.Close() //nolint:errcheck // handshake failed
		return nil, err
	}

	go c.readLoop()
	return c, nil
}

func (c *conn) authenticate(ctx context.Context, token string) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.ws.SetReadDeadline(deadline) //nolint:errcheck // reset below
		defer c.ws.SetReadDeadline(time.Time{}) //nolint:errcheck // clearing deadline
	}

	var msg message
	if err := c.ws.ReadJSON(&msg); err != nil {
		return fmt.Errorf("reading auth request: %w", err)
	}
	if msg.Type != "auth_required" {
		return fmt.Errorf("%w: got %q, want auth_required", ErrHandshake, msg.Type)
	}

	if err := c.write(message{Type: "auth", AccessToken: token}); err != nil {
		return fmt.Errorf("sending auth: %w", err)
	}

	if err := c.ws.ReadJSON(&msg); err != nil {
		return fmt.Errorf("reading auth result: %w", err)
	}
	switch msg.Type {
	case "auth_ok":
		c.haVersion = msg.HAVersion
		return nil
	case "auth_invalid":
		return fmt.Errorf("%w: %s", ErrAuthFailed, msg.Message)
	default:
		return fmt.Errorf("%w: got %q after auth", ErrHandshake, msg.Type)
	}
}

func (c *conn) write(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck // surfaced by WriteJSON
	return c.ws.WriteJSON(v)
}

// readLoop dispatches results to their waiting callers until the
// connection fails.
func (c *conn) readLoop() {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.shutdown(err)
			return
		}

		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type != "result" && msg.Type != "pong" {
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[msg.ID]
		delete(c.pending, msg.ID)
		c.mu.Unlock()
		if ok {
			ch <- msg
		}
	}
}

func (c *conn) shutdown(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.err = err
	c.pending = nil
	close(c.done)
}

// alive reports whether the read loop is still running.
func (c *conn) alive() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

func (c *conn) close() error {
	c.shutdown(ErrConnectionClosed)
	c.writeMu.Lock()
	_ = c.ws.WriteMessage(websocket.CloseMessage, //nolint:errcheck // best effort close frame
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	return c.ws.Close()
}

// call sends one command and waits for its result. cmd must marshal to a
// JSON object; the id field is added here.
func (c *conn) call(ctx context.Context, cmdType string, cmd map[string]any, out any) error {
	id := c.nextID.Add(1)
	ch := make(chan message, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrConnectionClosed
	}
	c.pending[id] = ch
	c.mu.Unlock()

	payload := make(map[string]any, len(cmd)+2)
	for k, v := range cmd {
		payload[k] = v
	}
	payload["id"] = id
	payload["type"] = cmdType

	if err := c.write(payload); err != nil {
		c.forget(id)
		return fmt.Errorf("sending %s: %w", cmdType, err)
	}

	select {
	case msg := <-ch:
		if !msg.Success && msg.Type == "result" {
			cmdErr := &CommandError{Command: cmdType}
			if msg.Error != nil {
				cmdErr.Code = msg.Error.Code
				cmdErr.Message = msg.Error.Message
			}
			return cmdErr
		}
		if out != nil && len(msg.Result) > 0 {
			if err := json.Unmarshal(msg.Result, out); err != nil {
				return fmt.Errorf("decoding %s result: %w", cmdType, err)
			}
		}
		return nil
	case <-c.done:
		return fmt.Errorf("%w: %s: %w", ErrConnectionClosed, cmdType, c.err)
	case <-ctx.Done():
		c.forget(id)
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%w: %s", ErrTimeout, cmdType)
		}
		return ctx.Err()
	}
}

func (c *conn) forget(id int64) {
	c.mu.Lock()
	if c.pending != nil {
		delete(c.pending, id)
	}
	c.mu.Unlock()
}
