package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"genstudio-be/pkg/events"

	"github.com/nats-io/nats.go/jetstream"
)

// EventHandler processes one event. Returning an error naks the message for redelivery.
type EventHandler func(ctx context.Context, event events.Event) error

// Subscriber consumes events from the stream created by the Publisher, sharing its connection.
type Subscriber struct {
	js       jetstream.JetStream
	contexts []jetstream.ConsumeContext
}

func NewSubscriber(p *Publisher) *Subscriber {
	return &Subscriber{js: p.js}
}

// Subscribe attaches a durable consumer filtered on subject.
func (s *Subscriber) Subscribe(ctx context.Context, subject, durableName string, handler EventHandler) error {
	consumer, err := s.js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:       durableName,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    5,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		var payload map[string]interface{}
		if err := json.Unmarshal(msg.Data(), &payload); err != nil {
			// Poison message, redelivery cannot fix it.
			_ = msg.Term()
			return
		}

		occurredAt := time.Now().UTC()
		if raw, ok := payload["occurred_at"].(string); ok {
			if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
				occurredAt = ts
			}
		}

		event := events.BaseEvent{
			Type:       strings.TrimPrefix(msg.Subject(), SubjectPrefix+"."),
			Data:       payload,
			OccurredAt: occurredAt,
		}

		if err := handler(context.Background(), event); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	s.contexts = append(s.contexts, cc)
	return nil
}

// Stop halts every consumer started by this subscriber. The connection stays with the Publisher.
func (s *Subscriber) Stop() {
	for _, cc := range s.contexts {
		cc.Stop()
	}
	s.contexts = nil
}
