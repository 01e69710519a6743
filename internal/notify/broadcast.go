package notify

import (
	"context"

	"github.com/dukerupert/routine/internal/model"
	"github.com/dukerupert/routine/internal/websocket"
)

// Broadcast presents fired items to every connected WebSocket client.
type Broadcast struct {
	Hub *websocket.Hub
}

func (b Broadcast) Notify(_ context.Context, item model.Item) error {
	b.Hub.Broadcast(websocket.NewMessage("item", "fired", item.ID, map[string]any{
		"title": item.Title,
		"body":  Body(item),
		"kind":  string(item.Kind),
		"sound": Sound(item),
	}))
	return nil
}
