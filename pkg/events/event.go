package events

import "time"

// Event types emitted by the ledger and the reconciler.
const (
	TypeCreditsDebited  = "CREDITS_DEBITED"
	TypeCreditsRefunded = "CREDITS_REFUNDED"
	TypeCreditsAdjusted = "CREDITS_ADJUSTED"
	TypeCreationSaved   = "CREATION_SAVED"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "CREDITS_DEBITED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func New(eventType string, data map[string]interface{}) BaseEvent {
	now := time.Now().UTC()
	if data == nil {
		data = map[string]interface{}{}
	}
	data["occurred_at"] = now
	return BaseEvent{Type: eventType, Data: data, OccurredAt: now}
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}
