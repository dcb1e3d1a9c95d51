package wshub

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

// ServerMessage is the JSON structure sent to challenge room clients.
type ServerMessage struct {
	Type       string `json:"t"`
	PlayerID   string `json:"id,omitempty"`
	Name       string `json:"n,omitempty"`
	ReactionMs int    `json:"ms,omitempty"`
	FalseStart bool   `json:"fs,omitempty"`
	WinnerID   string `json:"w,omitempty"`
	Draw       bool   `json:"d,omitempty"`
}

// Client represents a single WebSocket connection in the hub.
type Client struct {
	PlayerID string
	Name     string
	Conn     *websocket.Conn
	Send     chan []byte
}

// WritePump reads from the Send channel and writes to the WebSocket connection.
func (c *Client) WritePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.Send:
			if !ok {
				return
			}
			if err := c.Conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}
}

// Hub manages the WebSocket connections of one challenge room.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

// Register adds a client to the hub. A reconnecting player displaces
// their old connection; closing its Send channel lets the old WritePump
// exit instead of lingering until its context ends.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if old, ok := h.clients[c.PlayerID]; ok && old != c {
		close(old.Send)
	}
	h.clients[c.PlayerID] = c
}

// Unregister removes a client and closes its Send channel, then notifies the room.
func (h *Hub) Unregister(playerID string) {
	h.mu.Lock()
	c, ok := h.clients[playerID]
	if ok {
		close(c.Send)
		delete(h.clients, playerID)
	}
	h.mu.Unlock()

	if ok {
		h.BroadcastExcept(playerID, ServerMessage{
			Type:     "leave",
			PlayerID: playerID,
		})
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends a message to every client. Non-blocking: drops if channel full.
func (h *Hub) Broadcast(msg ServerMessage) {
	h.send(msg, "")
}

// BroadcastExcept sends a message to all clients except the sender.
func (h *Hub) BroadcastExcept(senderID string, msg ServerMessage) {
	h.send(msg, senderID)
}

func (h *Hub) send(msg ServerMessage, skipID string) {
	data, err := json.Marshal(msg)
	if err != nil {
		logrus.Errorf("hub marshal error: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, c := range h.clients {
		if skipID != "" && id == skipID {
			continue
		}
		select {
		case c.Send <- data:
		default:
			// Drop message if channel full
		}
	}
}
