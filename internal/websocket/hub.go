package websocket

import (
	"sync"

	"agui-policy-be/internal/pkg/logger"
	"agui-policy-be/pkg/events"
)

// Hub fans committed stream events out to every connected session.
// Delivery is best-effort: a session whose send buffer is full is
// dropped rather than allowed to stall the others.
type Hub struct {
	// Registered sessions
	clients map[*Client]struct{}

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Lock for safe map access
	mu sync.RWMutex

	// Hard cap on concurrent sessions; 0 means unlimited
	maxClients int

	// Dedicated Logger
	logger logger.ILogger
}

func NewHub(maxClients int, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]struct{}),
		maxClients: maxClients,
		logger:     log,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.maxClients > 0 && len(h.clients) >= h.maxClients {
				// Evict one existing session to stay under the cap.
				for victim := range h.clients {
					delete(h.clients, victim)
					close(victim.Send)
					h.logger.Warn("Hub", "Session cap reached, evicting client", map[string]interface{}{"session_id": victim.SessionID})
					break
				}
			}
			h.clients[client] = struct{}{}
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"session_id": client.SessionID})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.logger.Info("Hub", "Client unregistered", map[string]interface{}{"session_id": client.SessionID})
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues an envelope for every connected session.
func (h *Hub) Broadcast(env events.Envelope) {
	data, err := env.Encode()
	if err != nil {
		h.logger.Error("Hub", "Failed to encode envelope", map[string]interface{}{"event": env.Event, "error": err.Error()})
		return
	}

	h.mu.RLock()
	var stalled []*Client
	for client := range h.clients {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("Hub", "Client send buffer full, dropping session", map[string]interface{}{"session_id": client.SessionID})
			stalled = append(stalled, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range stalled {
		h.unregister <- client
	}
}

// ClientCount reports the number of connected sessions.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
