package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/anstrom/rtspscout/internal/api/middleware"
	"github.com/anstrom/rtspscout/internal/logging"
	"github.com/anstrom/rtspscout/internal/scheduler"
)

const (
	writeWait       = 10 * time.Second                                   // Time allowed to write a message to the peer
	pongWait        = 60 * time.Second                                   // Time to read next pong message from peer
	pingPeriodRatio = 0.9                                                // Ratio of pongWait for pingPeriod
	pingPeriod      = time.Duration(float64(pongWait) * pingPeriodRatio) // Send pings to peer (must be < pongWait)
	maxMessageSize  = 512                                                // Maximum message size allowed from peer
	bufferSize      = 16                                                 // Per-client send buffer
)

// Message types sent to websocket clients.
const (
	MessageRunCompleted = "discovery_completed"
	MessageRunFailed    = "discovery_failed"
)

// WebSocketMessage represents a WebSocket message structure.
type WebSocketMessage struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// WebSocketHandler pushes run notifications to connected clients.
type WebSocketHandler struct {
	logger   *logging.Logger
	upgrader websocket.Upgrader

	clients map[*client]struct{}
	mutex   sync.RWMutex
	closed  bool
}

// NewWebSocketHandler creates a websocket handler.
func NewWebSocketHandler(logger *logging.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		logger: logger.WithFields("handler", "websocket"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[*client]struct{}),
	}
}

// ServeWS upgrades the connection and streams notifications until the
// client goes away.
func (h *WebSocketHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket connection", "request_id", requestID, "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, bufferSize)}
	if !h.register(c) {
		_ = conn.Close()
		return
	}
	h.logger.Debug("Client registered", "request_id", requestID, "total_clients", h.ConnectedClients())

	go h.writePump(c, requestID)
	h.readPump(c, requestID)
}

func (h *WebSocketHandler) register(c *client) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *WebSocketHandler) unregister(c *client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// readPump drains client messages so control frames are processed.
func (h *WebSocketHandler) readPump(c *client, requestID string) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		h.logger.Error("Failed to set read deadline", "request_id", requestID, "error", err)
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket unexpected close", "request_id", requestID, "error", err)
			}
			return
		}
	}
}

// writePump sends queued messages and periodic pings.
func (h *WebSocketHandler) writePump(c *client, requestID string) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				h.logger.Debug("Write failed, closing connection", "request_id", requestID, "error", err)
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.logger.Debug("Ping failed, closing connection", "request_id", requestID, "error", err)
				return
			}
		}
	}
}

// BroadcastRun notifies every client about a finished run. Clients whose
// buffer is full miss the message.
func (h *WebSocketHandler) BroadcastRun(run *scheduler.Run) {
	messageType := MessageRunCompleted
	if !run.Succeeded() {
		messageType = MessageRunFailed
	}
	if err := h.broadcast(messageType, NewRunView(run)); err != nil {
		h.logger.Error("Failed to broadcast run", "run_id", run.ID, "error", err)
	}
}

func (h *WebSocketHandler) broadcast(messageType string, data any) error {
	payload, err := json.Marshal(WebSocketMessage{
		Type:      messageType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s message: %w", messageType, err)
	}

	h.mutex.RLock()
	defer h.mutex.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			h.logger.Warn("Client send buffer full, dropping message", "type", messageType)
		}
	}
	return nil
}

// ConnectedClients returns the number of connected clients.
func (h *WebSocketHandler) ConnectedClients() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones.
func (h *WebSocketHandler) Close() error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.logger.Info("WebSocket handler closed")
	return nil
}
