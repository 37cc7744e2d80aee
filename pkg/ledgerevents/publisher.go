package ledgerevents

import (
	"context"

	"genstudio-be/internal/pkg/logger"
	"genstudio-be/pkg/events"
)

// Publisher announces ledger and creation changes. Implementations never fail the caller.
type Publisher interface {
	PublishCreditsDebited(ctx context.Context, userID string, amount int, correlationID, tier string)
	PublishCreditsRefunded(ctx context.Context, userID string, amount int, correlationID, cause string)
	PublishCreditsAdjusted(ctx context.Context, userID string, oldCredits, newCredits int)
	PublishCreationSaved(ctx context.Context, userID, creationID, sessionID, creationType, correlationID string)
}

// EventSink is satisfied by *nats.Publisher.
type EventSink interface {
	Publish(ctx context.Context, event events.Event) error
}

type NatsPublisher struct {
	sink   EventSink
	logger logger.ILogger
}

// NewNatsPublisher tolerates a nil sink, in which case every publish is dropped.
func NewNatsPublisher(sink EventSink, logger logger.ILogger) *NatsPublisher {
	return &NatsPublisher{sink: sink, logger: logger}
}

func (p *NatsPublisher) publish(ctx context.Context, evt events.BaseEvent) {
	if p.sink == nil {
		return
	}
	if err := p.sink.Publish(ctx, evt); err != nil {
		p.logger.Error(logger.ModuleBilling, "Failed to publish "+evt.Type+" event", map[string]interface{}{
			"error": err.Error(),
			"tx_id": evt.Data["transaction_id"],
		})
	}
}

func (p *NatsPublisher) PublishCreditsDebited(ctx context.Context, userID string, amount int, correlationID, tier string) {
	p.publish(ctx, events.New(events.TypeCreditsDebited, map[string]interface{}{
		"user_id":        userID,
		"amount":         amount,
		"transaction_id": correlationID,
		"tier":           tier,
	}))
}

func (p *NatsPublisher) PublishCreditsRefunded(ctx context.Context, userID string, amount int, correlationID, cause string) {
	p.publish(ctx, events.New(events.TypeCreditsRefunded, map[string]interface{}{
		"user_id":        userID,
		"amount":         amount,
		"transaction_id": correlationID,
		"cause":          cause,
	}))
}

func (p *NatsPublisher) PublishCreditsAdjusted(ctx context.Context, userID string, oldCredits, newCredits int) {
	p.publish(ctx, events.New(events.TypeCreditsAdjusted, map[string]interface{}{
		"user_id":     userID,
		"old_credits": oldCredits,
		"new_credits": newCredits,
		"amount":      newCredits - oldCredits,
	}))
}

func (p *NatsPublisher) PublishCreationSaved(ctx context.Context, userID, creationID, sessionID, creationType, correlationID string) {
	p.publish(ctx, events.New(events.TypeCreationSaved, map[string]interface{}{
		"user_id":        userID,
		"creation_id":    creationID,
		"session_id":     sessionID,
		"creation_type":  creationType,
		"transaction_id": correlationID,
	}))
}
