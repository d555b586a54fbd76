package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin is enforced by the CORS middleware
	},
}

// Client represents a connected WebSocket client
type Client struct {
	conn       *websocket.Conn
	clientID   string
	sandboxID  string
	controller bool
	send       chan []byte
	joined     chan struct{} // closed once the hub has registered the client
}

// Hub maintains the set of active clients
type Hub struct {
	clients    map[string]*Client            // clientID -> Client
	rooms      map[string]map[string]*Client // sandboxID -> clientID -> Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// run owns registration. Broadcasts take the read lock directly.
func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.clientID] = client
			if _, exists := h.rooms[client.sandboxID]; !exists {
				h.rooms[client.sandboxID] = make(map[string]*Client)
			}
			h.rooms[client.sandboxID][client.clientID] = client
			size := len(h.rooms[client.sandboxID])
			h.mu.Unlock()
			if client.joined != nil {
				close(client.joined)
			}

			log.Printf("[WS] Client %s joined sandbox %s (controller=%v room_size=%d)", client.clientID, client.sandboxID, client.controller, size)

		case client := <-h.unregister:
			h.mu.Lock()
			if cur, ok := h.clients[client.clientID]; ok && cur == client {
				delete(h.clients, client.clientID)
				if room, exists := h.rooms[client.sandboxID]; exists {
					delete(room, client.clientID)
					if len(room) == 0 {
						delete(h.rooms, client.sandboxID)
					}
				}
				close(client.send)
				log.Printf("[WS] Client %s left sandbox %s", client.clientID, client.sandboxID)
			}
			h.mu.Unlock()
		}
	}
}

// HasRoom reports whether anyone is watching a sandbox.
func (h *Hub) HasRoom(sandboxID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[sandboxID]) > 0
}

// RoomSize returns the number of clients watching a sandbox.
func (h *Hub) RoomSize(sandboxID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[sandboxID])
}

// BroadcastToSandbox sends a message to every client of a sandbox
func (h *Hub) BroadcastToSandbox(sandboxID string, message interface{}) {
	if !h.HasRoom(sandboxID) {
		return
	}
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WS] Error marshaling message: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.rooms[sandboxID] {
		select {
		case client.send <- data:
		default:
			// Client's buffer is full; frames are superseded by the next one
			log.Printf("[WS] Send buffer full for client %s in sandbox %s, dropping message", client.clientID, sandboxID)
		}
	}
}

// SendToClient sends a message to a specific client
func (h *Hub) SendToClient(clientID string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WS] Error marshaling message: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if client, exists := h.clients[clientID]; exists {
		select {
		case client.send <- data:
		default:
			log.Printf("[WS] SendToClient dropped message for client %s (buffer full)", clientID)
		}
	}
}

// CloseSandbox drops every client of a sandbox. Messages already queued
// are still written before the connection closes.
func (h *Hub) CloseSandbox(sandboxID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, client := range h.rooms[sandboxID] {
		delete(h.clients, id)
		close(client.send)
	}
	delete(h.rooms, sandboxID)
}

// Message types
type WSMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// writePump writes messages to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WS] Write error for client %s: %v", c.clientID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[WS] Ping error for client %s: %v", c.clientID, err)
				return
			}
		}
	}
}

// sendError sends an error message to the client
func (c *Client) sendError(message string) {
	c.sendJSON(map[string]interface{}{
		"type":    "error",
		"message": message,
	})
}

func (c *Client) sendJSON(message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WS] Error marshaling message: %v", err)
		return
	}
	SandboxHub.mu.RLock()
	defer SandboxHub.mu.RUnlock()
	if cur, live := SandboxHub.clients[c.clientID]; !live || cur != c {
		return
	}
	select {
	case c.send <- data:
	default:
		log.Printf("[WS] Dropped reply for client %s (buffer full)", c.clientID)
	}
}
