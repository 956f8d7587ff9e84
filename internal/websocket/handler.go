package websocket

import (
	"time"

	"agui-policy-be/pkg/events"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// SnapshotFunc produces the STATE_SNAPSHOT envelope for a freshly
// opened session.
type SnapshotFunc func() (events.Envelope, error)

// ServeWs handles a streaming session: the client is registered first
// so no commit is missed, then RUN_STARTED and the snapshot are written
// before any queued delta goes out.
func ServeWs(hub *Hub, c *websocket.Conn, snapshot SnapshotFunc) {
	client := &Client{Hub: hub, Conn: c, SessionID: uuid.NewString(), Send: make(chan []byte, 256)}
	client.Hub.register <- client

	if err := writeEnvelope(c, events.RunStarted()); err != nil {
		client.Hub.unregister <- client
		c.Close()
		return
	}
	snap, err := snapshot()
	if err == nil {
		err = writeEnvelope(c, snap)
	}
	if err != nil {
		client.Hub.unregister <- client
		c.Close()
		return
	}

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	client.readPump() // Run readPump in current goroutine (handler)
}

func writeEnvelope(c *websocket.Conn, env events.Envelope) error {
	data, err := env.Encode()
	if err != nil {
		return err
	}
	c.SetWriteDeadline(time.Now().Add(writeWait))
	return c.WriteMessage(websocket.TextMessage, data)
}
