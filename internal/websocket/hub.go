package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Message is a real-time event broadcast to all clients.
type Message struct {
	Type   string         `json:"type"`
	Entity string         `json:"entity"`
	Action string         `json:"action"`
	ID     string         `json:"id,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// NewMessage creates a Message with the Type field derived from entity and action.
func NewMessage(entity, action, id string, extra map[string]any) Message {
	return Message{
		Type:   fmt.Sprintf("%s_%s", entity, action),
		Entity: entity,
		Action: action,
		ID:     id,
		Extra:  extra,
	}
}

// Inbound is a message sent by a client. Type "utterance" carries a spoken
// or typed command in Text.
type Inbound struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// UtteranceFunc handles a command received from a client.
type UtteranceFunc func(ctx context.Context, text string)

// Hub maintains the set of active WebSocket clients and broadcasts messages.
type Hub struct {
	mu          sync.RWMutex
	clients     map[*Client]struct{}
	onUtterance UtteranceFunc
	logger      *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// HandleUtterances sets the function that receives client commands. Without
// one, inbound utterances are dropped.
func (h *Hub) HandleUtterances(fn UtteranceFunc) {
	h.mu.Lock()
	h.onUtterance = fn
	h.mu.Unlock()
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends a message to all connected clients.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Client buffer full, drop the message
		}
	}
}

// Status broadcasts a human-readable status line.
func (h *Hub) Status(text string) {
	h.Broadcast(NewMessage("status", "updated", "", map[string]any{"message": text}))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) dispatch(ctx context.Context, data []byte) {
	var in Inbound
	if err := json.Unmarshal(data, &in); err != nil {
		h.logger.Debug("discard malformed client message", "error", err)
		return
	}
	if in.Type != "utterance" || in.Text == "" {
		return
	}

	h.mu.RLock()
	fn := h.onUtterance
	h.mu.RUnlock()
	if fn != nil {
		fn(ctx, in.Text)
	}
}
