package api

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/autoscribe/autoscribe-core/internal/infrastructure/config"
	"github.com/autoscribe/autoscribe-core/internal/infrastructure/logging"
)

func testHub(t *testing.T) *Hub {
	t.Helper()
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	return NewHub(config.WebSocketConfig{
		MaxMessageSize: 8192,
		PingInterval:   30,
		PongTimeout:    10,
	}, log)
}

// newTestClient builds a client without a network connection; messages land
// on the send channel.
func newTestClient(h *Hub) *WSClient {
	return &WSClient{
		hub:  h,
		send: make(chan []byte, 8),
	}
}

func receiveMessage(t *testing.T, c *WSClient) WSMessage {
	t.Helper()
	select {
	case data := <-c.send:
		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshalling message: %v", err)
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return WSMessage{}
	}
}

func subscriberCount(h *Hub, channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

func TestBroadcastOnlyToSubscribers(t *testing.T) {
	h := testHub(t)

	subscribed := newTestClient(h)
	unsubscribed := newTestClient(h)
	h.Register(subscribed)
	h.Register(unsubscribed)
	defer h.Unregister(subscribed)
	defer h.Unregister(unsubscribed)

	if unknown := h.subscribe(subscribed, []string{"compile.finished"}); unknown != nil {
		t.Fatalf("subscribe rejected %v", unknown)
	}

	h.Broadcast("compile.finished", map[string]string{"request_id": "r1"})

	msg := receiveMessage(t, subscribed)
	if msg.Type != WSTypeEvent || msg.EventType != "compile.finished" {
		t.Errorf("message = %+v", msg)
	}

	select {
	case data := <-unsubscribed.send:
		t.Errorf("unsubscribed client received %s", data)
	default:
	}
}

func TestSubscribeUnsubscribeFlow(t *testing.T) {
	h := testHub(t)
	c := newTestClient(h)
	h.Register(c)
	defer h.Unregister(c)

	c.handleMessage([]byte(`{"type": "subscribe", "id": "1", "payload": {"channels": ["compile.finished", "catalog.refreshed"]}}`))

	resp := receiveMessage(t, c)
	if resp.Type != WSTypeResponse || resp.ID != "1" {
		t.Fatalf("subscribe response = %+v", resp)
	}
	if subscriberCount(h, "compile.finished") != 1 || subscriberCount(h, "catalog.refreshed") != 1 {
		t.Error("subscriptions not recorded")
	}

	c.handleMessage([]byte(`{"type": "unsubscribe", "id": "2", "payload": {"channels": ["compile.finished"]}}`))
	receiveMessage(t, c)

	if subscriberCount(h, "compile.finished") != 0 {
		t.Error("compile.finished should be unsubscribed")
	}
	if subscriberCount(h, "catalog.refreshed") != 1 {
		t.Error("catalog.refreshed should remain subscribed")
	}
}

func TestSubscribeRejectsUnknownChannel(t *testing.T) {
	h := testHub(t)
	c := newTestClient(h)
	h.Register(c)
	defer h.Unregister(c)

	c.handleMessage([]byte(`{"type": "subscribe", "id": "1", "payload": {"channels": ["compile.finished", "compile.fnished"]}}`))

	resp := receiveMessage(t, c)
	if resp.Type != WSTypeError {
		t.Fatalf("response type = %q, want error", resp.Type)
	}
	payload, _ := resp.Payload.(map[string]any)
	if msg, _ := payload["message"].(string); !strings.Contains(msg, "compile.fnished") {
		t.Errorf("error message %q does not name the unknown channel", msg)
	}

	// The whole request is rejected: the valid channel must not have
	// been applied either.
	if subscriberCount(h, "compile.finished") != 0 {
		t.Error("rejected request still recorded a subscription")
	}
}

func TestUnsubscribeIgnoresUnknownChannel(t *testing.T) {
	h := testHub(t)
	c := newTestClient(h)
	h.Register(c)
	defer h.Unregister(c)

	c.handleMessage([]byte(`{"type": "unsubscribe", "id": "3", "payload": {"channels": ["made.up"]}}`))

	resp := receiveMessage(t, c)
	if resp.Type != WSTypeResponse {
		t.Errorf("response type = %q, want response", resp.Type)
	}
}

func TestUnregisterLeavesAllChannels(t *testing.T) {
	h := testHub(t)
	c := newTestClient(h)
	h.Register(c)

	if unknown := h.subscribe(c, []string{"compile.started", "availability.changed"}); unknown != nil {
		t.Fatalf("subscribe rejected %v", unknown)
	}

	h.Unregister(c)

	if n := subscriberCount(h, "compile.started") + subscriberCount(h, "availability.changed"); n != 0 {
		t.Errorf("channel subscribers after unregister = %d, want 0", n)
	}
}

func TestPingPong(t *testing.T) {
	h := testHub(t)
	c := newTestClient(h)
	h.Register(c)
	defer h.Unregister(c)

	c.handleMessage([]byte(`{"type": "ping", "id": "7"}`))

	resp := receiveMessage(t, c)
	if resp.Type != WSTypePong || resp.ID != "7" {
		t.Errorf("pong response = %+v", resp)
	}
}

func TestUnknownMessageType(t *testing.T) {
	h := testHub(t)
	c := newTestClient(h)
	h.Register(c)
	defer h.Unregister(c)

	c.handleMessage([]byte(`{"type": "mystery"}`))

	resp := receiveMessage(t, c)
	if resp.Type != WSTypeError {
		t.Errorf("response type = %q, want error", resp.Type)
	}
}

func TestHubRunClosesClientsOnCancel(t *testing.T) {
	h := testHub(t)
	c := newTestClient(h)
	h.Register(c)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop on context cancel")
	}

	if h.ClientCount() != 0 {
		t.Errorf("clients after shutdown = %d, want 0", h.ClientCount())
	}
}
