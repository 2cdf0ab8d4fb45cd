package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/sonaskin/storefront-backend/pkg/enums"
)

// ActorRef identifies the back-office user behind an event and the request
// that carried it. Storefront checkouts have no actor.
type ActorRef struct {
	UserID    uuid.UUID      `json:"userId"`
	Role      enums.UserRole `json:"role,omitempty"`
	RequestID string         `json:"requestId,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
