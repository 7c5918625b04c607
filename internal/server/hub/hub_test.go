package hub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/kidcoin/internal/models"
	"github.com/atinyakov/kidcoin/internal/service"
)

func fullCapability() service.Capability {
	capability := service.Capability{}
	for _, channel := range models.Channels() {
		capability[channel] = []string{"publish", "subscribe"}
	}
	return capability
}

// recv pops one frame off a client's send queue.
func recv(t *testing.T, c *Client) models.Frame {
	t.Helper()
	select {
	case data := <-c.send:
		var frame models.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			t.Fatalf("bad frame: %v", err)
		}
		return frame
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return models.Frame{}
	}
}

func TestFanOut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New(zap.NewNop())
	go h.Run(ctx)

	publisher := NewClient(h, nil, fullCapability(), zap.NewNop())
	subscriber := NewClient(h, nil, fullCapability(), zap.NewNop())
	bystander := NewClient(h, nil, fullCapability(), zap.NewNop())
	h.Register(publisher)
	h.Register(subscriber)
	h.Register(bystander)

	// Publisher and subscriber listen on transactions; bystander does not.
	publisher.handleFrame(&models.Frame{Type: models.FrameSubscribe, Channel: models.ChannelTransactions})
	subscriber.handleFrame(&models.Frame{Type: models.FrameSubscribe, Channel: models.ChannelTransactions})

	payload, _ := json.Marshal(models.TransferEvent{ID: "t1", From: "alice", To: "bob", Amount: 10})
	publisher.handleFrame(&models.Frame{
		Type:    models.FramePublish,
		Channel: models.ChannelTransactions,
		Name:    models.EventTransfer,
		Data:    payload,
	})

	frame := recv(t, subscriber)
	if frame.Type != models.FrameMessage || frame.Name != models.EventTransfer {
		t.Fatalf("unexpected frame: %+v", frame)
	}
	var ev models.TransferEvent
	if err := json.Unmarshal(frame.Data, &ev); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if ev.From != "alice" || ev.Amount != 10 {
		t.Errorf("unexpected event: %+v", ev)
	}

	// The publisher gets its own echo back.
	echo := recv(t, publisher)
	if echo.Name != models.EventTransfer {
		t.Errorf("expected echo to publisher, got %+v", echo)
	}

	// The unsubscribed client gets nothing.
	select {
	case data := <-bystander.send:
		t.Errorf("bystander received %s", data)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPublish_RequiresCapability(t *testing.T) {
	h := New(zap.NewNop())
	readOnly := service.Capability{models.ChannelTransactions: {"subscribe"}}
	c := NewClient(h, nil, readOnly, zap.NewNop())

	c.handleFrame(&models.Frame{
		Type:    models.FramePublish,
		Channel: models.ChannelTransactions,
		Name:    models.EventTransfer,
	})

	frame := recv(t, c)
	if frame.Type != models.FrameError {
		t.Fatalf("expected error frame, got %+v", frame)
	}
}

func TestSubscribe_RequiresCapability(t *testing.T) {
	h := New(zap.NewNop())
	c := NewClient(h, nil, service.Capability{}, zap.NewNop())

	c.handleFrame(&models.Frame{Type: models.FrameSubscribe, Channel: models.ChannelProfiles})

	if frame := recv(t, c); frame.Type != models.FrameError {
		t.Fatalf("expected error frame, got %+v", frame)
	}
	if c.IsSubscribed(models.ChannelProfiles) {
		t.Error("client must not be subscribed without the capability")
	}
}

func TestPing(t *testing.T) {
	h := New(zap.NewNop())
	c := NewClient(h, nil, service.Capability{}, zap.NewNop())

	c.handleFrame(&models.Frame{Type: models.FramePing})

	if frame := recv(t, c); frame.Type != models.FramePong {
		t.Fatalf("expected pong, got %+v", frame)
	}
}

func TestTap(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New(zap.NewNop())
	tapped := make(chan string, 1)
	h.Tap(models.ChannelActivity, func(name string, data json.RawMessage) {
		var ev models.ActivityEvent
		_ = json.Unmarshal(data, &ev)
		tapped <- ev.Text
	})
	go h.Run(ctx)

	c := NewClient(h, nil, fullCapability(), zap.NewNop())
	h.Register(c)

	payload, _ := json.Marshal(models.ActivityEvent{Text: "alice sent 5 KC to bob"})
	c.handleFrame(&models.Frame{
		Type:    models.FramePublish,
		Channel: models.ChannelActivity,
		Name:    models.EventLog,
		Data:    payload,
	})

	select {
	case text := <-tapped:
		if text != "alice sent 5 KC to bob" {
			t.Errorf("unexpected tapped text %q", text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tap was not invoked")
	}
}
