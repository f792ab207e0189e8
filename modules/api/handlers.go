package api

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/realtime-chat-server/modules/broadcast"
	"github.com/example/realtime-chat-server/modules/history"
	"github.com/example/realtime-chat-server/modules/session"
)

// ClientEvent is the tagged frame clients send over the WebSocket.
// Payloads are validated per tag before dispatch to the coordinator.
type ClientEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Client-to-server event names.
const (
	EventUserJoin       = "user_join"
	EventSendMessage    = "send_message"
	EventTyping         = "typing"
	EventPrivateMessage = "private_message"
)

// sendMessagePayload is the payload for send_message.
type sendMessagePayload struct {
	Message string `json:"message"`
}

// privateMessagePayload is the payload for private_message.
type privateMessagePayload struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// Handlers contains the HTTP and WebSocket handlers.
type Handlers struct {
	coord  *session.Coordinator
	hub    *broadcast.Hub
	store  *history.Module
	logger *slog.Logger
}

// NewHandlers creates a new handlers instance.
func NewHandlers(coord *session.Coordinator, hub *broadcast.Hub, store *history.Module) *Handlers {
	return &Handlers{
		coord:  coord,
		hub:    hub,
		store:  store,
		logger: slog.Default(),
	}
}

// HandleWebSocket handles one WebSocket connection for its whole
// lifetime. The connection id is assigned here and never reused; an
// abrupt transport error is handled exactly like a clean disconnect.
func (h *Handlers) HandleWebSocket(c *websocket.Conn) {
	connID := uuid.New().String()
	h.hub.Register(&broadcast.Client{ID: connID, Conn: c})

	defer func() {
		h.hub.Unregister(connID)
		h.coord.Disconnect(connID)
		c.Close()
	}()

	h.logger.Info("WebSocket connected", "connID", connID)

	for {
		_, msgBytes, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket error", "connID", connID, "error", err)
			}
			break
		}

		var event ClientEvent
		if err := json.Unmarshal(msgBytes, &event); err != nil {
			h.sendError(c, "Invalid message format")
			continue
		}

		h.handleEvent(c, connID, event)
	}

	h.logger.Info("WebSocket disconnected", "connID", connID)
}

// handleEvent dispatches a validated client frame to the coordinator.
func (h *Handlers) handleEvent(c *websocket.Conn, connID string, event ClientEvent) {
	switch event.Type {
	case EventUserJoin:
		var displayName string
		if err := json.Unmarshal(event.Payload, &displayName); err != nil {
			h.sendError(c, "Invalid user_join payload")
			return
		}
		h.coord.Join(context.Background(), connID, displayName)

	case EventSendMessage:
		var req sendMessagePayload
		if err := json.Unmarshal(event.Payload, &req); err != nil {
			h.sendError(c, "Invalid send_message payload")
			return
		}
		// Persistence failures already reach the sender as an error
		// event; nothing further to report here.
		if _, err := h.coord.Send(context.Background(), connID, req.Message); err != nil {
			h.logger.Warn("message not delivered", "connID", connID, "error", err)
		}

	case EventTyping:
		var isTyping bool
		if err := json.Unmarshal(event.Payload, &isTyping); err != nil {
			h.sendError(c, "Invalid typing payload")
			return
		}
		h.coord.SetTyping(connID, isTyping)

	case EventPrivateMessage:
		var req privateMessagePayload
		if err := json.Unmarshal(event.Payload, &req); err != nil {
			h.sendError(c, "Invalid private_message payload")
			return
		}
		h.coord.SendPrivate(connID, req.To, req.Message)

	default:
		h.sendError(c, "Unknown event type: "+event.Type)
	}
}

// sendError writes an error frame directly to a connection. Used only
// for boundary validation failures; coordinator-level errors travel
// through the fanout path.
func (h *Handlers) sendError(c *websocket.Conn, errMsg string) {
	payload, err := json.Marshal(errMsg)
	if err != nil {
		return
	}
	frame, err := json.Marshal(broadcast.Envelope{Type: session.EventError, Payload: payload})
	if err != nil {
		return
	}
	if err := c.WriteMessage(websocket.TextMessage, frame); err != nil {
		h.logger.Error("Failed to send error frame", "error", err)
	}
}

// REST handlers

// ListMessages handles GET /api/messages: every persisted message,
// ascending by timestamp.
func (h *Handlers) ListMessages(c *fiber.Ctx) error {
	messages, err := h.store.All(c.Context())
	if err != nil {
		h.logger.Error("failed to fetch messages", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch messages",
		})
	}
	return c.JSON(messages)
}

// ListUsers handles GET /api/users: the current roster snapshot.
func (h *Handlers) ListUsers(c *fiber.Ctx) error {
	return c.JSON(h.coord.Roster())
}

// Root handles GET /.
func (h *Handlers) Root(c *fiber.Ctx) error {
	return c.SendString("Chat server is running")
}

// HealthCheck handles GET /health.
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"service": "realtime-chat-server",
	})
}
