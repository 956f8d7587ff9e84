package service

import (
	"context"
	"fmt"

	"agui-policy-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// StreamTopic carries every committed stream event from the state
// pipeline to the broadcast bridge.
const StreamTopic = "state.stream"

// PublisherService is the in-process event bus between the commit path
// and the fan-out side. Publishing happens under the state lock, so
// subscribers observe commits in commit order.
type PublisherService struct {
	bus *gochannel.GoChannel
}

func NewPublisherService() *PublisherService {
	// Publishes block until every subscriber acks, so each subscriber
	// observes events strictly in publish order.
	bus := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            256,
		BlockPublishUntilSubscriberAck: true,
	}, watermill.NopLogger{})
	return &PublisherService{bus: bus}
}

// Publish queues one envelope on the stream topic.
func (p *PublisherService) Publish(env events.Envelope) error {
	data, err := env.Encode()
	if err != nil {
		return fmt.Errorf("encode stream event: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	if err := p.bus.Publish(StreamTopic, msg); err != nil {
		return fmt.Errorf("publish stream event: %w", err)
	}
	return nil
}

// Subscribe returns the stream topic channel for a consumer.
func (p *PublisherService) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return p.bus.Subscribe(ctx, StreamTopic)
}

// Close shuts the bus down, closing all subscriber channels.
func (p *PublisherService) Close() error {
	return p.bus.Close()
}
