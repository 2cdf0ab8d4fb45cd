// Package registry decides where each outbox event goes and decodes its payload.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/sonaskin/storefront-backend/pkg/db/models"
	"github.com/sonaskin/storefront-backend/pkg/enums"
	"github.com/sonaskin/storefront-backend/pkg/outbox"
	"github.com/sonaskin/storefront-backend/pkg/outbox/payloads"
)

const (
	SinkPubSub = "pubsub"
	SinkSheets = "sheets"
)

// NonRetryableError marks a failure that another attempt cannot fix.
type NonRetryableError struct {
	Err error
}

func NewNonRetryableError(err error) NonRetryableError { return NonRetryableError{Err: err} }

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func permanent(format string, args ...any) error {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}

// EventDescriptor is one route: the sinks an event type fans out to and how
// its data is decoded.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Sinks          []string
	PayloadFactory func() any
}

// ResolvedEvent is a decoded row ready for delivery.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

func (r *ResolvedEvent) Delivery(row models.OutboxEvent) outbox.Delivery {
	return outbox.Delivery{
		EventID:       row.ID,
		EventType:     row.EventType,
		AggregateType: row.AggregateType,
		AggregateID:   row.AggregateID,
		Envelope:      r.Envelope,
		Raw:           row.Payload,
		Payload:       r.Payload,
	}
}

type EventRegistry struct {
	routes map[enums.OutboxEventType]EventDescriptor
}

// NewEventRegistry routes every order event to Pub/Sub. New orders also go
// to the Sheets mirror when it is enabled.
func NewEventRegistry(sheetsMirror bool) *EventRegistry {
	created := []string{SinkPubSub}
	if sheetsMirror {
		created = append(created, SinkSheets)
	}
	r := &EventRegistry{routes: map[enums.OutboxEventType]EventDescriptor{}}
	r.route(enums.EventOrderCreated, func() any { return &payloads.OrderCreatedEvent{} }, created...)
	r.route(enums.EventOrderStatusChanged, func() any { return &payloads.OrderStatusChangedEvent{} }, SinkPubSub)
	r.route(enums.EventOrderDeleted, func() any { return &payloads.OrderDeletedEvent{} }, SinkPubSub)
	return r
}

func (r *EventRegistry) route(t enums.OutboxEventType, factory func() any, sinks ...string) {
	r.routes[t] = EventDescriptor{
		EventType:      t,
		AggregateType:  t.Aggregate(),
		Sinks:          sinks,
		PayloadFactory: factory,
	}
}

func (r *EventRegistry) Descriptor(t enums.OutboxEventType) (EventDescriptor, bool) {
	d, ok := r.routes[t]
	return d, ok
}

// Resolve decodes row. Every error it returns is a NonRetryableError: a row
// that fails here will fail the same way on the next attempt.
func (r *EventRegistry) Resolve(row models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.routes[row.EventType]
	switch {
	case !ok:
		return nil, permanent("no route for event type %q", row.EventType)
	case row.AggregateType != desc.AggregateType:
		return nil, permanent("%s belongs to %s, row says %s", row.EventType, desc.AggregateType, row.AggregateType)
	case row.AggregateID == uuid.Nil:
		return nil, permanent("%s row has no aggregate id", row.EventType)
	}

	var env outbox.PayloadEnvelope
	if err := json.Unmarshal(row.Payload, &env); err != nil {
		return nil, permanent("envelope: %w", err)
	}
	if data := bytes.TrimSpace(env.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, permanent("%s envelope carries no data", row.EventType)
	}
	payload := desc.PayloadFactory()
	if err := json.Unmarshal(env.Data, payload); err != nil {
		return nil, permanent("%s data: %w", row.EventType, err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: env, Payload: payload}, nil
}

// IsNonRetryable reports whether err, or any error joined into it, is permanent.
func IsNonRetryable(err error) bool {
	var target NonRetryableError
	return errors.As(err, &target)
}
