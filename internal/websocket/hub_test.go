package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"agui-policy-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

func newTestClient(h *Hub, id string, buffer int) *Client {
	return &Client{Hub: h, SessionID: id, Send: make(chan []byte, buffer)}
}

func register(t *testing.T, h *Hub, c *Client) {
	t.Helper()
	h.register <- c
	waitForCount(t, h, func(n int) bool { return n > 0 })
}

func waitForCount(t *testing.T, h *Hub, ok func(int) bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ok(h.ClientCount()) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("hub never reached expected client count, have %d", h.ClientCount())
}

func TestHubBroadcastReachesAllClients(t *testing.T) {
	hub := NewHub(0, nopLogger{})
	go hub.Run()

	a := newTestClient(hub, "a", 8)
	b := newTestClient(hub, "b", 8)
	register(t, hub, a)
	hub.register <- b
	waitForCount(t, hub, func(n int) bool { return n == 2 })

	hub.Broadcast(events.Delta([]interface{}{}))

	for _, c := range []*Client{a, b} {
		select {
		case raw := <-c.Send:
			var env events.Envelope
			require.NoError(t, json.Unmarshal(raw, &env))
			assert.Equal(t, events.TypeStateDelta, env.Event)
		case <-time.After(time.Second):
			t.Fatalf("client %s never received the frame", c.SessionID)
		}
	}
}

func TestHubDropsStalledClient(t *testing.T) {
	hub := NewHub(0, nopLogger{})
	go hub.Run()

	healthy := newTestClient(hub, "healthy", 8)
	stalled := newTestClient(hub, "stalled", 1)
	register(t, hub, healthy)
	hub.register <- stalled
	waitForCount(t, hub, func(n int) bool { return n == 2 })

	// Fill the stalled client's buffer, then broadcast again.
	hub.Broadcast(events.Heartbeat())
	hub.Broadcast(events.Heartbeat())

	waitForCount(t, hub, func(n int) bool { return n == 1 })
	assert.Equal(t, 1, hub.ClientCount())

	// The healthy client keeps receiving.
	select {
	case <-healthy.Send:
	case <-time.After(time.Second):
		t.Fatal("healthy client starved")
	}
}

func TestHubEnforcesSessionCap(t *testing.T) {
	hub := NewHub(1, nopLogger{})
	go hub.Run()

	first := newTestClient(hub, "first", 8)
	register(t, hub, first)

	second := newTestClient(hub, "second", 8)
	hub.register <- second

	// The cap holds: the older session is evicted, not queued.
	waitForCount(t, hub, func(n int) bool { return n == 1 })

	select {
	case _, open := <-first.Send:
		assert.False(t, open, "evicted client's send channel should be closed")
	case <-time.After(time.Second):
		t.Fatal("evicted client's send channel never closed")
	}
}
