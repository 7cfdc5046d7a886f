// Package api - WebSocket handler for real-time play
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/alexbotov/slotsrv/internal/engine"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait / 2
	maxMessageSize = 4096
	sendQueue      = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// WSClient is one player connection. Outgoing frames are queued on send and
// written by a single goroutine.
type WSClient struct {
	conn     *websocket.Conn
	send     chan []byte
	playerID string

	mu     sync.Mutex
	closed bool
}

// HandleWebSocket upgrades the connection and serves spins over it
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	playerID := PlayerFromContext(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &WSClient{
		conn:     conn,
		send:     make(chan []byte, sendQueue),
		playerID: playerID,
	}
	h.log.Debug("websocket connected", zap.String("player_id", playerID))

	go c.writePump()
	go h.readPump(c)
}

// writePump owns all writes on the connection. It keeps the peer alive with
// pings and exits when send is closed or a write fails.
func (c *WSClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump decodes requests one at a time and answers each before reading
// the next, so a client sees its replies in request order.
func (h *Handler) readPump(c *WSClient) {
	defer func() {
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
		h.log.Debug("websocket closed", zap.String("player_id", c.playerID))
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	h.sendMessage(c, "connected", map[string]interface{}{
		"player_id": c.playerID,
		"jackpot":   h.engine.Jackpot(),
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				h.sendError(c, "INVALID_MESSAGE", "Invalid message format")
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("websocket read failed", zap.String("player_id", c.playerID), zap.Error(err))
			}
			return
		}
		h.handleWSMessage(c, &msg)
	}
}

// handleWSMessage processes incoming WebSocket messages
func (h *Handler) handleWSMessage(c *WSClient, msg *WSMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	defer func() {
		if err := recover(); err != nil {
			h.log.Error("websocket panic recovered", zap.Any("panic", err),
				zap.String("type", msg.Type), zap.Stack("stack"))
			h.sendError(c, "INTERNAL_ERROR", "Internal server error")
		}
	}()

	switch msg.Type {
	case "legacy_spin":
		var req engine.LegacySpinRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			h.sendError(c, "INVALID_PAYLOAD", "Invalid wager payload")
			return
		}
		req.PlayerID = c.playerID
		result, err := h.engine.SpinLegacy(ctx, &req)
		if err != nil {
			h.sendEngineError(c, err)
			return
		}
		h.sendMessage(c, "legacy_outcome", result)

	case "spin":
		var req engine.SpinRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			h.sendError(c, "INVALID_PAYLOAD", "Invalid spin payload")
			return
		}
		req.PlayerID = c.playerID
		result, err := h.engine.Spin(ctx, &req)
		if err != nil {
			h.sendEngineError(c, err)
			return
		}
		h.sendMessage(c, "outcome", result)

	case "jackpot":
		h.sendMessage(c, "jackpot", h.engine.Jackpot())

	case "history":
		history, err := h.engine.GetHistory(ctx, c.playerID, 10)
		if err != nil {
			h.sendError(c, "HISTORY_ERROR", "Failed to get history")
			return
		}
		h.sendMessage(c, "history", history)

	case "ping":
		h.sendMessage(c, "pong", map[string]interface{}{
			"timestamp": time.Now().Unix(),
		})

	default:
		h.sendError(c, "UNKNOWN_MESSAGE", "Unknown message type: "+msg.Type)
	}
}

func (h *Handler) sendEngineError(c *WSClient, err error) {
	status, code := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.log.Error("websocket spin failed", zap.String("player_id", c.playerID), zap.Error(err))
		msg = "Internal server error"
	}
	h.sendError(c, code, msg)
}

// sendMessage sends a message to the client
func (h *Handler) sendMessage(c *WSClient, msgType string, payload interface{}) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("websocket payload encode failed", zap.String("type", msgType), zap.Error(err))
		return
	}
	msgBytes, _ := json.Marshal(WSMessage{
		Type:    msgType,
		Payload: payloadBytes,
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	select {
	case c.send <- msgBytes:
	default:
		h.log.Warn("websocket send queue full, dropping message",
			zap.String("player_id", c.playerID), zap.String("type", msgType))
	}
}

// sendError sends an error message to the client
func (h *Handler) sendError(c *WSClient, code, message string) {
	h.sendMessage(c, "error", map[string]string{
		"code":    code,
		"message": message,
	})
}
