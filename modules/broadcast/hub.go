package broadcast

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"
)

// Conn is the subset of the websocket connection the hub writes to.
// *websocket.Conn satisfies it.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client represents a connected WebSocket client.
type Client struct {
	ID   string
	Conn Conn
}

// Envelope is the wire frame sent to clients.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// delivery is a queued fanout. An empty ConnID means every connection.
type delivery struct {
	ConnID  string
	Event   string
	Payload json.RawMessage
}

// Hub manages WebSocket connections and event delivery. The whole
// server is one implicit room: a delivery goes either to every
// connection or to exactly one, identified by connection id. An unknown
// id is dropped without acknowledgment.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan string
	deliveries chan delivery
	done       chan struct{}
	mu         sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan string),
		deliveries: make(chan delivery, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop. It accepts a context for graceful shutdown.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Println("[hub] Shutting down...")
			h.closeAllClients()
			close(h.done)
			return
		case client := <-h.register:
			h.handleRegister(client)
		case connID := <-h.unregister:
			h.handleUnregister(connID)
		case d := <-h.deliveries:
			h.handleDelivery(d)
		}
	}
}

// Wait blocks until the hub has stopped.
func (h *Hub) Wait() {
	<-h.done
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(connID string) {
	h.unregister <- connID
}

// BroadcastAll queues an event for every connected client.
func (h *Hub) BroadcastAll(event string, payload json.RawMessage) {
	h.deliveries <- delivery{Event: event, Payload: payload}
}

// SendTo queues an event for exactly one connection.
func (h *Hub) SendTo(connID, event string, payload json.RawMessage) {
	h.deliveries <- delivery{ConnID: connID, Event: event, Payload: payload}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		_ = client.Conn.Close()
	}
	h.clients = make(map[string]*Client)
}

func (h *Hub) handleRegister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
	log.Printf("[hub] Client %s registered", client.ID)
}

func (h *Hub) handleUnregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[connID]; ok {
		delete(h.clients, connID)
		log.Printf("[hub] Client %s unregistered", connID)
	}
}

func (h *Hub) handleDelivery(d delivery) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(Envelope{Type: d.Event, Payload: d.Payload})
	if err != nil {
		log.Printf("[hub] Failed to marshal %s frame: %v", d.Event, err)
		return
	}

	if d.ConnID == "" {
		for _, client := range h.clients {
			h.writeToClient(client, data)
		}
		return
	}
	if client, ok := h.clients[d.ConnID]; ok {
		h.writeToClient(client, data)
	}
}

func (h *Hub) writeToClient(client *Client, data []byte) {
	if err := client.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("[hub] Failed to send to client %s: %v", client.ID, err)
	}
}
