// Package realtime is the sync channel adapter: it obtains a scoped
// credential from the relay, keeps a websocket open, and moves events
// between the relay and the local event handlers.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/atinyakov/kidcoin/internal/models"
)

const (
	// tokenTimeout bounds the credential fetch so a dead token endpoint
	// degrades the client to local-only mode instead of hanging it.
	tokenTimeout = 5 * time.Second
	dialTimeout  = 10 * time.Second
	writeWait    = 10 * time.Second

	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// ErrNotConnected is returned by Publish while the connection is down.
var ErrNotConnected = errors.New("realtime: not connected")

// Handler receives the events delivered on the three channels.
type Handler interface {
	HandleTransfer(ev models.TransferEvent)
	HandleProfileUpdate(ev models.ProfileUpdateEvent)
	HandleLog(ev models.ActivityEvent)
}

// Offline is the publisher of the offline variant: every publish is a
// silent no-op, mirroring a client that never connected.
type Offline struct{}

func (Offline) Publish(context.Context, string, string, any) error { return nil }

// Client is a connected sync adapter. It subscribes to all three
// channels on connect and reconnects with capped backoff after a drop.
type Client struct {
	baseURL string
	httpc   *http.Client
	handler Handler
	log     *zap.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
	done   chan struct{}
}

// Dial fetches a credential from baseURL, opens the websocket, and
// subscribes to the channels. Any failure leaves nothing running; the
// caller falls back to Offline.
func Dial(ctx context.Context, baseURL string, handler Handler, log *zap.Logger) (*Client, error) {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{},
		handler: handler,
		log:     log,
		done:    make(chan struct{}),
	}
	conn, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	go c.readLoop(conn)
	return c, nil
}

// Publish sends one event frame. Best-effort: the caller logs failures
// and moves on, there is no retry and no rollback.
func (c *Client) Publish(ctx context.Context, channel, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", name, err)
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()
	return wsjson.Write(ctx, conn, models.Frame{
		Type:    models.FramePublish,
		Channel: channel,
		Name:    name,
		Data:    data,
	})
}

// Close shuts the adapter down and stops any reconnect attempts.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		return conn.Close(websocket.StatusNormalClosure, "bye")
	}
	return nil
}

func (c *Client) fetchCredential(ctx context.Context) (models.Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, tokenTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/token", nil)
	if err != nil {
		return models.Credential{}, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return models.Credential{}, fmt.Errorf("fetch credential: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Credential{}, fmt.Errorf("fetch credential: unexpected status %d", resp.StatusCode)
	}
	var cred models.Credential
	if err := json.NewDecoder(resp.Body).Decode(&cred); err != nil {
		return models.Credential{}, fmt.Errorf("decode credential: %w", err)
	}
	return cred, nil
}

func (c *Client) connect(ctx context.Context) (*websocket.Conn, error) {
	cred, err := c.fetchCredential(ctx)
	if err != nil {
		return nil, err
	}

	wsURL := c.baseURL
	if strings.HasPrefix(wsURL, "http") {
		wsURL = "ws" + strings.TrimPrefix(wsURL, "http")
	}
	wsURL += "/api/ws?token=" + url.QueryEscape(cred.Token)

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay: %w", err)
	}

	for _, channel := range models.Channels() {
		frame := models.Frame{Type: models.FrameSubscribe, Channel: channel}
		if err := wsjson.Write(dialCtx, conn, frame); err != nil {
			conn.Close(websocket.StatusInternalError, "subscribe failed")
			return nil, fmt.Errorf("subscribe %s: %w", channel, err)
		}
	}
	return conn, nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var frame models.Frame
		if err := wsjson.Read(context.Background(), conn, &frame); err != nil {
			select {
			case <-c.done:
				return
			default:
			}
			c.log.Warn("realtime connection lost", zap.Error(err))
			c.mu.Lock()
			c.conn = nil
			c.mu.Unlock()
			c.reconnect()
			return
		}
		c.dispatch(frame)
	}
}

func (c *Client) dispatch(frame models.Frame) {
	switch frame.Type {
	case models.FrameMessage:
		c.dispatchMessage(frame)
	case models.FramePong:
	case models.FrameError:
		c.log.Warn("relay reported error", zap.String("error", frame.Error))
	default:
		c.log.Debug("ignoring frame", zap.String("type", frame.Type))
	}
}

func (c *Client) dispatchMessage(frame models.Frame) {
	switch frame.Name {
	case models.EventTransfer:
		var ev models.TransferEvent
		if err := json.Unmarshal(frame.Data, &ev); err != nil {
			c.log.Debug("bad transfer payload", zap.Error(err))
			return
		}
		c.handler.HandleTransfer(ev)
	case models.EventProfileUpdate:
		var ev models.ProfileUpdateEvent
		if err := json.Unmarshal(frame.Data, &ev); err != nil {
			c.log.Debug("bad profile payload", zap.Error(err))
			return
		}
		c.handler.HandleProfileUpdate(ev)
	case models.EventLog:
		var ev models.ActivityEvent
		if err := json.Unmarshal(frame.Data, &ev); err != nil {
			c.log.Debug("bad activity payload", zap.Error(err))
			return
		}
		c.handler.HandleLog(ev)
	default:
		c.log.Debug("ignoring event", zap.String("event", frame.Name))
	}
}

// reconnect retries until it succeeds or the client is closed.
func (c *Client) reconnect() {
	backoff := initialBackoff
	for {
		select {
		case <-c.done:
			return
		case <-time.After(backoff):
		}

		conn, err := c.connect(context.Background())
		if err == nil {
			c.mu.Lock()
			if c.closed {
				c.mu.Unlock()
				conn.Close(websocket.StatusNormalClosure, "bye")
				return
			}
			c.conn = conn
			c.mu.Unlock()
			c.log.Info("realtime reconnected")
			go c.readLoop(conn)
			return
		}

		c.log.Warn("reconnect failed", zap.Error(err))
		if backoff *= 2; backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}
