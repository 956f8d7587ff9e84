package websocket

import (
	"time"

	"agui-policy-be/pkg/events"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait = 10 * time.Second

	// heartbeatInterval is how long a session may stay idle before a
	// HEARTBEAT frame is emitted to keep it alive.
	heartbeatInterval = 15 * time.Second

	maxMessageSize = 4096
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// SessionID identifies this streaming session in logs.
	SessionID string

	// Buffered channel of outbound frames.
	Send chan []byte
}

// readPump drains the websocket connection until the peer goes away.
// The stream is server-to-client; inbound frames are discarded.
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			break
		}
	}
}

// writePump pumps frames from the hub to the websocket connection,
// interleaving heartbeats whenever the session has been idle.
func (c *Client) writePump() {
	idle := time.NewTimer(heartbeatInterval)
	defer func() {
		idle.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(heartbeatInterval)

		case <-idle.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			beat, err := events.Heartbeat().Encode()
			if err != nil {
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, beat); err != nil {
				return
			}
			idle.Reset(heartbeatInterval)
		}
	}
}
