package api

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-entity-manager/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-entity-manager/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-entity-manager/internal/review"
)

// WebSocket message types.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"
)

// Progress channels a client can subscribe to.
const (
	ChannelEntityApplied  = "rename.entity"
	ChannelBatchCompleted = "rename.batch"
)

var knownChannels = []string{ChannelEntityApplied, ChannelBatchCompleted}

// wsSendBufferSize is how many events may queue for a slow client before
// further events are dropped for it.
const wsSendBufferSize = 256

// WSMessage is an outbound message, and the shape clients send back.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// wsRequest is an inbound message with its payload left undecoded until the
// type is known.
type wsRequest struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// WSSubscribePayload is the payload of subscribe and unsubscribe messages.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

// EntityProgress is broadcast on ChannelEntityApplied for every entity of
// every run, dry runs included.
type EntityProgress struct {
	RunID   string         `json:"run_id"`
	DryRun  bool           `json:"dry_run"`
	Outcome review.Outcome `json:"outcome"`
	review.Result
}

// BatchProgress is broadcast on ChannelBatchCompleted.
type BatchProgress struct {
	RunID      string `json:"run_id"`
	DryRun     bool   `json:"dry_run"`
	Cancelled  bool   `json:"cancelled,omitempty"`
	Total      int    `json:"total"`
	Processed  int    `json:"processed"`
	Skipped    int    `json:"skipped"`
	Errors     int    `json:"errors"`
	DurationMS int64  `json:"duration_ms"`
}

// Hub fans apply progress out to WebSocket clients.
//
// Hub is a review.Observer; register it with the applier and each result
// reaches the clients subscribed to its channel. Broadcasting never blocks
// the apply run: a client whose buffer is full misses events.
type Hub struct {
	cfg     config.WebSocketConfig
	logger  *logging.Logger
	clients map[*WSClient]struct{}
	mu      sync.RWMutex
}

// WSClient is one connected WebSocket client.
type WSClient struct {
	hub           *Hub
	conn          *websocket.Conn
	send          chan []byte
	subscriptions map[string]struct{}
	closed        bool
	dropped       int
	mu            sync.Mutex
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are checked by corsMiddleware.
	CheckOrigin: func(*http.Request) bool { return true },
}

// NewHub creates a hub. Run must be called for clients to be released on
// shutdown.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// EntityApplied implements review.Observer.
func (h *Hub) EntityApplied(_ context.Context, runID string, dryRun bool, res review.Result) {
	h.Broadcast(ChannelEntityApplied, EntityProgress{
		RunID:   runID,
		DryRun:  dryRun,
		Outcome: res.Outcome,
		Result:  res,
	})
}

// BatchApplied implements review.Observer.
func (h *Hub) BatchApplied(_ context.Context, report *review.Report) {
	h.Broadcast(ChannelBatchCompleted, BatchProgress{
		RunID:      report.RunID,
		DryRun:     report.DryRun,
		Cancelled:  report.Cancelled,
		Total:      report.Total,
		Processed:  len(report.Processed),
		Skipped:    len(report.Skipped),
		Errors:     len(report.Errors),
		DurationMS: report.Duration.Milliseconds(),
	})
}

// Register adds a client to the hub.
func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", n)
}

// Unregister removes a client and closes its send queue. It is safe to call
// more than once.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	delete(h.clients, client)
	n := len(h.clients)
	h.mu.Unlock()

	if client.shutdown() {
		h.logger.Debug("websocket client disconnected", "clients", n, "dropped_events", client.droppedCount())
	}
}

// Broadcast sends payload to every client subscribed to channel.
func (h *Hub) Broadcast(channel string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		EventType: channel,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("encoding websocket event", "channel", channel, "error", err)
		return
	}

	h.mu.RLock()
	clients := make([]*WSClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		client.deliver(channel, data)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := make([]*WSClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
		delete(h.clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		client.shutdown()
		client.conn.Close() //nolint:errcheck // shutdown path
	}
}

// handleWebSocket upgrades the connection. Channels in the comma separated
// "channels" query parameter are subscribed straight away; unknown names
// are ignored.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err, "request_id", requestIDFrom(r.Context()))
		return
	}

	client := &WSClient{
		hub:           s.hub,
		conn:          conn,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: make(map[string]struct{}),
	}
	for _, ch := range strings.Split(r.URL.Query().Get("channels"), ",") {
		if ch = strings.TrimSpace(ch); slices.Contains(knownChannels, ch) {
			client.subscriptions[ch] = struct{}{}
		}
	}

	s.hub.Register(client)

	go client.writePump()
	go client.readPump()
}

func (c *WSClient) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close() //nolint:errcheck // connection is finished
	}()

	cfg := c.hub.cfg
	idle := time.Duration(cfg.PingInterval+cfg.PongTimeout) * time.Second
	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	c.conn.SetReadDeadline(time.Now().Add(idle)) //nolint:errcheck // reads fail once it passes
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(idle))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(idle)) //nolint:errcheck // reads fail once it passes
		c.handleMessage(data)
	}
}

func (c *WSClient) writePump() {
	cfg := c.hub.cfg
	ticker := time.NewTicker(time.Duration(cfg.PingInterval) * time.Second)
	writeWait := time.Duration(cfg.PongTimeout) * time.Second
	defer func() {
		ticker.Stop()
		c.conn.Close() //nolint:errcheck // connection is finished
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck // write reports it
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil) //nolint:errcheck // peer may be gone
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck // write reports it
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *WSClient) handleMessage(data []byte) {
	var req wsRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.sendError("", "invalid JSON message")
		return
	}

	switch req.Type {
	case WSTypeSubscribe, WSTypeUnsubscribe:
		c.handleSubscription(req)
	case WSTypePing:
		c.sendResponse(req.ID, WSTypePong, nil)
	default:
		c.sendError(req.ID, "unknown message type: "+req.Type)
	}
}

func (c *WSClient) handleSubscription(req wsRequest) {
	var sub WSSubscribePayload
	if err := json.Unmarshal(req.Payload, &sub); err != nil || len(sub.Channels) == 0 {
		c.sendError(req.ID, req.Type+" needs a payload with channels")
		return
	}
	for _, ch := range sub.Channels {
		if !slices.Contains(knownChannels, ch) {
			c.sendError(req.ID, "unknown channel "+ch+"; available: "+strings.Join(knownChannels, ", "))
			return
		}
	}

	c.mu.Lock()
	for _, ch := range sub.Channels {
		if req.Type == WSTypeSubscribe {
			c.subscriptions[ch] = struct{}{}
		} else {
			delete(c.subscriptions, ch)
		}
	}
	c.mu.Unlock()

	key := "subscribed"
	if req.Type == WSTypeUnsubscribe {
		key = "unsubscribed"
	}
	c.sendResponse(req.ID, WSTypeResponse, map[string]any{key: sub.Channels})
}

// deliver queues an event when the client is subscribed to channel.
func (c *WSClient) deliver(channel string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.subscriptions[channel]; ok {
		c.enqueueLocked(data)
	}
}

// enqueueLocked queues data without blocking. c.mu must be held.
func (c *WSClient) enqueueLocked(data []byte) {
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		c.dropped++
	}
}

// shutdown closes the send queue once and reports whether this call did it.
func (c *WSClient) shutdown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.closed = true
	close(c.send)
	return true
}

func (c *WSClient) droppedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

func (c *WSClient) sendResponse(id, msgType string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		return
	}
	c.mu.Lock()
	c.enqueueLocked(data)
	c.mu.Unlock()
}

func (c *WSClient) sendError(id, message string) {
	c.sendResponse(id, WSTypeError, map[string]string{"message": message})
}
