package service

import (
	"context"
	"encoding/json"

	"agui-policy-be/internal/pkg/logger"
	"agui-policy-be/internal/websocket"
	pktNats "agui-policy-be/pkg/nats"
	"agui-policy-be/pkg/events"
)

// BroadcastService bridges the in-process stream bus to the websocket
// hub and, when configured, mirrors commits across instances through
// the NATS relay.
type BroadcastService struct {
	publisher *PublisherService
	hub       *websocket.Hub
	relay     *pktNats.Relay
	logger    logger.ILogger
}

func NewBroadcastService(publisher *PublisherService, hub *websocket.Hub, relay *pktNats.Relay, log logger.ILogger) *BroadcastService {
	return &BroadcastService{
		publisher: publisher,
		hub:       hub,
		relay:     relay,
		logger:    log,
	}
}

// Start begins consuming the stream bus. Blocks until the context is
// cancelled or the bus closes, so run it in its own goroutine.
func (s *BroadcastService) Start(ctx context.Context) error {
	if s.relay != nil {
		if err := s.relay.Subscribe(func(env events.Envelope) {
			s.hub.Broadcast(env)
		}); err != nil {
			s.logger.Error("BroadcastService", "Relay subscribe failed", map[string]interface{}{"error": err.Error()})
			// local fan-out still works without the relay
		}
	}

	messages, err := s.publisher.Subscribe(ctx)
	if err != nil {
		return err
	}
	s.logger.Info("BroadcastService", "Broadcast bridge started", nil)

	for msg := range messages {
		var env events.Envelope
		if err := json.Unmarshal(msg.Payload, &env); err != nil {
			s.logger.Warn("BroadcastService", "Dropping undecodable stream message", map[string]interface{}{"error": err.Error()})
			msg.Ack()
			continue
		}
		s.hub.Broadcast(env)
		if s.relay != nil {
			if err := s.relay.Publish(env); err != nil {
				s.logger.Warn("BroadcastService", "Relay publish failed", map[string]interface{}{"error": err.Error()})
			}
		}
		msg.Ack()
	}
	return nil
}
