package outbox

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/sonaskin/storefront-backend/pkg/enums"
)

// Delivery is one resolved outbox row handed to a sink.
type Delivery struct {
	EventID       uuid.UUID
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Envelope      PayloadEnvelope
	// Raw is the stored envelope JSON.
	Raw json.RawMessage
	// Payload is the typed event produced by the registry.
	Payload any
}

// Sink receives outbox deliveries. Deliver must be safe to repeat.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, d Delivery) error
}
