package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sonaskin/storefront-backend/pkg/db/models"
	"github.com/sonaskin/storefront-backend/pkg/enums"
	"github.com/sonaskin/storefront-backend/pkg/logger"
)

const envelopeVersion = 1

// ErrInvalidEvent wraps every rejection from Emit.
var ErrInvalidEvent = errors.New("invalid outbox event")

// DomainEvent is what a service records about an order change. AggregateType
// defaults from the event type and Data is marshalled into the envelope.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          any
	OccurredAt    time.Time
}

// Emitter records events inside the caller's transaction.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error
}

// Service writes outbox rows. It never publishes; cmd/outbox-publisher does.
type Service struct {
	repo *Repository
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg, now: time.Now}
}

func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return fmt.Errorf("%w: must be written inside a transaction", ErrInvalidEvent)
	}
	row, err := s.row(event)
	if err != nil {
		return err
	}
	if err := s.repo.Insert(tx, row); err != nil {
		return fmt.Errorf("insert outbox %s: %w", row.EventType, err)
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"outbox_id":    row.ID.String(),
			"event_type":   row.EventType,
			"aggregate_id": row.AggregateID.String(),
		}), "outbox event recorded")
	}
	return nil
}

// row validates event and wraps its data in a versioned envelope. The row id
// doubles as the envelope event id so sinks can de-duplicate on it.
func (s *Service) row(event DomainEvent) (models.OutboxEvent, error) {
	if !event.EventType.IsValid() {
		return models.OutboxEvent{}, fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, event.EventType)
	}
	if event.AggregateType == "" {
		event.AggregateType = event.EventType.Aggregate()
	}
	if !event.AggregateType.IsValid() {
		return models.OutboxEvent{}, fmt.Errorf("%w: unknown aggregate %q", ErrInvalidEvent, event.AggregateType)
	}
	if event.AggregateID == uuid.Nil {
		return models.OutboxEvent{}, fmt.Errorf("%w: missing aggregate id", ErrInvalidEvent)
	}

	data, err := json.Marshal(event.Data)
	if err != nil {
		return models.OutboxEvent{}, fmt.Errorf("%w: data: %v", ErrInvalidEvent, err)
	}
	now := s.now().UTC()
	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = now
	}
	id := uuid.New()
	payload, err := json.Marshal(PayloadEnvelope{
		Version:    envelopeVersion,
		EventID:    id.String(),
		OccurredAt: occurred.UTC(),
		Actor:      event.Actor,
		Data:       data,
	})
	if err != nil {
		return models.OutboxEvent{}, err
	}
	return models.OutboxEvent{
		ID:            id,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       payload,
		CreatedAt:     now,
	}, nil
}
