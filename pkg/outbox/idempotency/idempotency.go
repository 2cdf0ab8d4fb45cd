package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store is the Redis surface the guard needs.
type Store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Manager remembers which sinks already received an outbox event.
// Keys follow the `sf:idempotency:sink:<sink>:<event_id>` pattern.
type Manager struct {
	store Store
	ttl   time.Duration
}

func NewManager(store Store, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{
		store: store,
		ttl:   ttl,
	}, nil
}

// CheckAndMarkDelivered returns true if sink already received the event and
// otherwise claims it for the configured TTL.
func (m *Manager) CheckAndMarkDelivered(ctx context.Context, sink string, eventID uuid.UUID) (bool, error) {
	key, err := m.deliveredKey(sink, eventID)
	if err != nil {
		return false, err
	}
	set, err := m.store.SetNX(ctx, key, "1", m.ttl)
	if err != nil {
		return false, err
	}
	return !set, nil
}

// Release drops a claim after a failed delivery so the next attempt retries the sink.
func (m *Manager) Release(ctx context.Context, sink string, eventID uuid.UUID) error {
	key, err := m.deliveredKey(sink, eventID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) deliveredKey(sink string, eventID uuid.UUID) (string, error) {
	if sink == "" {
		return "", errors.New("sink name is required")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	return m.store.IdempotencyKey(fmt.Sprintf("sink:%s", sink), eventID.String()), nil
}
