package nats

import (
	"encoding/json"
	"fmt"
	"time"

	"agui-policy-be/pkg/events"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// relayFrame wraps an envelope with the id of the instance that
// published it, so an instance can skip its own messages.
type relayFrame struct {
	Origin   string          `json:"origin"`
	Envelope events.Envelope `json:"envelope"`
}

// Relay mirrors committed stream events across instances through a
// core NATS subject. Every instance publishes its own commits and
// replays the ones other instances publish into its local hub.
type Relay struct {
	nc      *nats.Conn
	subject string
	origin  string
	sub     *nats.Subscription
}

// NewRelay connects to NATS and joins the given subject.
func NewRelay(url, subject string) (*Relay, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Relay{
		nc:      nc,
		subject: subject,
		origin:  uuid.NewString(),
	}, nil
}

// Publish sends an envelope to the relay subject.
func (r *Relay) Publish(env events.Envelope) error {
	data, err := json.Marshal(relayFrame{Origin: r.origin, Envelope: env})
	if err != nil {
		return fmt.Errorf("failed to encode relay frame: %w", err)
	}
	if err := r.nc.Publish(r.subject, data); err != nil {
		return fmt.Errorf("failed to publish to subject %s: %w", r.subject, err)
	}
	return nil
}

// Subscribe starts delivering envelopes published by other instances
// to handler. Frames this instance published are skipped.
func (r *Relay) Subscribe(handler func(events.Envelope)) error {
	sub, err := r.nc.Subscribe(r.subject, func(msg *nats.Msg) {
		var frame relayFrame
		if err := json.Unmarshal(msg.Data, &frame); err != nil {
			return
		}
		if frame.Origin == r.origin {
			return
		}
		handler(frame.Envelope)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", r.subject, err)
	}
	r.sub = sub
	return nil
}

// Close drops the subscription and the connection.
func (r *Relay) Close() {
	if r.sub != nil {
		_ = r.sub.Unsubscribe()
	}
	if r.nc != nil {
		r.nc.Close()
	}
}
