package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Event types pushed to POS terminals.
const (
	EventOrderCreated = "order.created"
	EventOrderUpdated = "order.updated"
	EventOrderDeleted = "order.deleted"
	EventAlertRing    = "alert.ring"
	EventAlertCleared = "alert.cleared"
)

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewEvent marshals payload into an Event of type typ.
func NewEvent(typ string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s event: %w", typ, err)
	}
	return Event{Type: typ, Payload: raw}, nil
}

// Hub maintains the set of connected terminals and broadcasts messages to
// them.
type Hub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client

	broadcast chan Event

	done chan struct{}

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop and returns when ctx is cancelled, closing
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			message, err := json.Marshal(event)
			if err != nil {
				log.Error().Err(err).Str("type", event.Type).Msg("marshal websocket event")
				continue
			}

			h.mu.Lock()
			for client := range h.clients {
				if !client.wants(event.Type) {
					continue
				}
				select {
				case client.send <- message:
				default:
					// A terminal that cannot keep up is dropped; it reconnects and refetches.
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues event for every connected terminal. It never blocks: when
// the hub has stopped or its buffer is full the event is dropped.
func (h *Hub) Broadcast(event Event) {
	select {
	case <-h.done:
	case h.broadcast <- event:
	default:
		log.Warn().Str("type", event.Type).Msg("websocket broadcast buffer full, event dropped")
	}
}

// Publish builds an event from payload and broadcasts it.
func (h *Hub) Publish(typ string, payload any) {
	event, err := NewEvent(typ, payload)
	if err != nil {
		log.Error().Err(err).Msg("publish websocket event")
		return
	}
	h.Broadcast(event)
}

// ClientCount returns the number of connected terminals.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
