package enums

import (
	"fmt"
	"slices"
)

// OutboxAggregateType is the entity an outbox row describes.
type OutboxAggregateType string

const AggregateOrder OutboxAggregateType = "order"

func (a OutboxAggregateType) IsValid() bool { return a == AggregateOrder }

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	if a := OutboxAggregateType(value); a.IsValid() {
		return a, nil
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType is the order side effect the relay forwards to sinks.
type OutboxEventType string

const (
	EventOrderCreated       OutboxEventType = "order_created"
	EventOrderStatusChanged OutboxEventType = "order_status_changed"
	EventOrderDeleted       OutboxEventType = "order_deleted"
)

var outboxEventTypes = []OutboxEventType{EventOrderCreated, EventOrderStatusChanged, EventOrderDeleted}

func (e OutboxEventType) IsValid() bool { return slices.Contains(outboxEventTypes, e) }

// Aggregate is the aggregate type every event of this kind belongs to.
func (e OutboxEventType) Aggregate() OutboxAggregateType {
	if e.IsValid() {
		return AggregateOrder
	}
	return ""
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	if e := OutboxEventType(value); e.IsValid() {
		return e, nil
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
