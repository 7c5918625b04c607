// Package hub implements the relay's fan-out core: it tracks connected
// clients and rebroadcasts every published frame to the subscribers of
// its channel, the publisher included.
package hub

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atinyakov/kidcoin/internal/models"
)

// Tap observes published payloads on one channel, e.g. for activity
// retention. Taps run inside the hub loop and must be quick.
type Tap func(name string, data json.RawMessage)

// Hub routes published frames between websocket clients.
type Hub struct {
	log *zap.Logger

	// clients maps connection id → client.
	clients map[uuid.UUID]*Client

	register   chan *Client
	unregister chan *Client
	publish    chan *publishMsg

	// taps maps channel name → observers. Set before Run.
	taps map[string][]Tap
}

type publishMsg struct {
	from    uuid.UUID
	channel string
	name    string
	data    json.RawMessage
}

func New(log *zap.Logger) *Hub {
	return &Hub{
		log:        log,
		clients:    make(map[uuid.UUID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		publish:    make(chan *publishMsg, 256),
		taps:       make(map[string][]Tap),
	}
}

// Tap registers an observer for a channel. Not safe after Run started.
func (h *Hub) Tap(channel string, fn Tap) {
	h.taps[channel] = append(h.taps[channel], fn)
}

// Register hands a freshly accepted client to the hub loop.
func (h *Hub) Register(c *Client) {
	h.register <- c
}

// Run starts the hub's main event loop. Call this in a goroutine; it
// returns when ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for _, client := range h.clients {
				h.drop(client)
			}
			return

		case client := <-h.register:
			h.clients[client.id] = client
			h.log.Info("client connected",
				zap.String("id", client.id.String()),
				zap.Int("total", len(h.clients)),
			)

		case client := <-h.unregister:
			if _, ok := h.clients[client.id]; ok {
				h.drop(client)
				h.log.Info("client disconnected",
					zap.String("id", client.id.String()),
					zap.Int("total", len(h.clients)),
				)
			}

		case msg := <-h.publish:
			h.fanOut(msg)
		}
	}
}

func (h *Hub) fanOut(msg *publishMsg) {
	for _, tap := range h.taps[msg.channel] {
		tap(msg.name, msg.data)
	}

	frame := models.NewMessageFrame(msg.channel, msg.name, msg.data)
	data, err := json.Marshal(frame)
	if err != nil {
		h.log.Error("marshal frame", zap.Error(err))
		return
	}

	// Deliver to every subscriber, the publisher included: clients
	// tolerate their own echo via event-id deduplication.
	for _, client := range h.clients {
		if !client.IsSubscribed(msg.channel) {
			continue
		}
		select {
		case client.send <- data:
		default:
			// Client buffer full - disconnect.
			h.drop(client)
		}
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client.id)
	close(client.send)
	close(client.done)
}
