package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/atinyakov/kidcoin/internal/models"
	"github.com/atinyakov/kidcoin/internal/service"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	sendBufSize  = 64
)

// Client represents a single websocket connection on the relay.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	id         uuid.UUID
	capability service.Capability
	log        *zap.Logger

	// subscribed tracks which channels this client listens to.
	subscribed map[string]struct{}
	mu         sync.RWMutex

	send chan []byte
	done chan struct{}
}

// NewClient wraps an accepted connection. capability is the grant the
// client's credential carried; subscribe and publish are checked
// against it.
func NewClient(h *Hub, conn *websocket.Conn, capability service.Capability, log *zap.Logger) *Client {
	return &Client{
		hub:        h,
		conn:       conn,
		id:         uuid.New(),
		capability: capability,
		log:        log,
		subscribed: make(map[string]struct{}),
		send:       make(chan []byte, sendBufSize),
		done:       make(chan struct{}),
	}
}

// IsSubscribed checks if this client is subscribed to a channel.
func (c *Client) IsSubscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.subscribed[channel]
	return ok
}

func (c *Client) subscribe(channel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribed[channel] = struct{}{}
}

// ReadPump reads frames from the websocket and routes them to the hub.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		var frame models.Frame
		if err := wsjson.Read(context.Background(), c.conn, &frame); err != nil {
			if websocket.CloseStatus(err) == -1 {
				c.log.Debug("read error", zap.String("id", c.id.String()), zap.Error(err))
			}
			return
		}
		c.handleFrame(&frame)
	}
}

// WritePump writes queued frames to the websocket and keeps pinging.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}

func (c *Client) handleFrame(frame *models.Frame) {
	switch frame.Type {
	case models.FrameSubscribe:
		if !c.capability.Allows(frame.Channel, "subscribe") {
			c.sendError("subscribe not allowed on " + frame.Channel)
			return
		}
		c.subscribe(frame.Channel)

	case models.FramePublish:
		if !c.capability.Allows(frame.Channel, "publish") {
			c.sendError("publish not allowed on " + frame.Channel)
			return
		}
		c.hub.publish <- &publishMsg{
			from:    c.id,
			channel: frame.Channel,
			name:    frame.Name,
			data:    frame.Data,
		}

	case models.FramePing:
		c.enqueue(models.Frame{Type: models.FramePong})

	default:
		c.sendError("unknown frame type: " + frame.Type)
	}
}

func (c *Client) sendError(msg string) {
	c.enqueue(models.Frame{Type: models.FrameError, Error: msg})
}

func (c *Client) enqueue(frame models.Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}
