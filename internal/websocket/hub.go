package websocket

import (
	"context"
	"sync"
)

type Hub struct {
	mu         sync.RWMutex
	Channels   map[string]*Channel
	Register   chan *WSClient
	Unregister chan *WSClient
	Broadcast  chan *WSMessage
}

func NewHub() *Hub {
	return &Hub{
		Channels:   make(map[string]*Channel),
		Register:   make(chan *WSClient),
		Unregister: make(chan *WSClient),
		Broadcast:  make(chan *WSMessage, 64),
	}
}

// Ensure creates the channel if needed and reports whether it was created.
func (h *Hub) Ensure(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.Channels[id]; exists {
		return false
	}
	h.Channels[id] = &Channel{Id: id, Clients: make(map[string]*WSClient)}
	setChannels(len(h.Channels))
	return true
}

func (h *Hub) List() []ChannelRes {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]ChannelRes, 0, len(h.Channels))
	for _, ch := range h.Channels {
		out = append(out, ChannelRes{ID: ch.Id, Clients: len(ch.Clients)})
	}
	return out
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.Register:
			h.mu.Lock()
			ch, ok := h.Channels[client.Channel]
			if ok {
				ch.Clients[client.ID] = client
				incConnections()
			}
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if ch, ok := h.Channels[client.Channel]; ok {
				if current, ok := ch.Clients[client.ID]; ok && current == client {
					delete(ch.Clients, client.ID)
					close(client.Message)
					decConnections()
				}
			}
			h.mu.Unlock()

		case message := <-h.Broadcast:
			h.mu.Lock()
			ch, ok := h.Channels[message.Channel]
			if !ok {
				h.mu.Unlock()
				continue
			}
			delivered := 0
			for id, client := range ch.Clients {
				select {
				case client.Message <- message:
					delivered++
				default:
					// slow consumer
					close(client.Message)
					delete(ch.Clients, id)
					decConnections()
				}
			}
			h.mu.Unlock()
			if delivered > 0 {
				addDelivered(delivered)
			}
		}
	}
}
