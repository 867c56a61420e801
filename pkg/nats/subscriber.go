package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"evidence-intel-be/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// EventHandler processes one domain event pulled off the stream.
type EventHandler func(ctx context.Context, event events.Event) error

// Subscriber consumes domain events from the EVIDENCE stream.
type Subscriber struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// NewSubscriber opens its own connection; publisher and subscriber stay
// independently reconnectable.
func NewSubscriber(url string) (*Subscriber, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &Subscriber{nc: nc, js: js}, nil
}

// eventTypeFromSubject recovers the event type the publisher encoded into the
// subject ("evidence.SESSION_STARTED" -> "SESSION_STARTED").
func eventTypeFromSubject(subject string) string {
	return strings.TrimPrefix(subject, "evidence.")
}

// Subscribe attaches a durable consumer for the given subject pattern and
// dispatches each message to the handler. Handler failure naks the message so
// the stream redelivers it. A subscriber that never connected is a silent
// no-op, matching the publisher.
func (s *Subscriber) Subscribe(subject string, durableName string, handler EventHandler) error {
	if s == nil || s.js == nil {
		return nil
	}
	ctx := context.Background()

	consumer, err := s.js.CreateOrUpdateConsumer(ctx, "EVIDENCE", jetstream.ConsumerConfig{
		Durable:       durableName,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	_, err = consumer.Consume(func(msg jetstream.Msg) {
		// The publisher sends the event payload map raw; type rides on the
		// subject, so the wrapper is rebuilt from both.
		var payload map[string]interface{}
		if err := json.Unmarshal(msg.Data(), &payload); err != nil {
			log.Printf("Error unmarshalling event payload: %v", err)
			msg.Nak()
			return
		}

		event := events.BaseEvent{
			Type:       eventTypeFromSubject(msg.Subject()),
			Data:       payload,
			OccurredAt: time.Now(),
		}

		if err := handler(context.Background(), event); err != nil {
			log.Printf("Handler failed for event %s: %v", event.Type, err)
			msg.Nak()
			return
		}

		msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	log.Printf("Subscribed to %s with durable %s", subject, durableName)
	return nil
}

// Close closes the connection.
func (s *Subscriber) Close() {
	if s.nc != nil {
		s.nc.Close()
	}
}
