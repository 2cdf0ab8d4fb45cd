package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sonaskin/storefront-backend/pkg/db/models"
	"github.com/sonaskin/storefront-backend/pkg/enums"
	"github.com/sonaskin/storefront-backend/pkg/logger"
)

func newOutboxDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.OutboxEvent{}, &models.OutboxDLQ{}))
	return conn
}

func TestEmitStoresEnvelope(t *testing.T) {
	conn := newOutboxDB(t)
	repo := NewRepository(conn)
	svc := NewService(repo, logger.Nop())
	fixed := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	orderID := uuid.New()
	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Data:          map[string]string{"to": "confirmed"},
		})
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, orderID, row.AggregateID)
	assert.True(t, row.CreatedAt.Equal(fixed))
	assert.Nil(t, row.PublishedAt)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(row.Payload, &envelope))
	assert.Equal(t, row.ID.String(), envelope.EventID)
	assert.Equal(t, 1, envelope.Version)
	assert.JSONEq(t, `{"to":"confirmed"}`, string(envelope.Data))
}

func TestEmitValidation(t *testing.T) {
	svc := NewService(NewRepository(nil), nil)
	conn := newOutboxDB(t)

	cases := map[string]struct {
		tx    *gorm.DB
		event DomainEvent
	}{
		"no transaction":    {nil, DomainEvent{EventType: enums.EventOrderCreated, AggregateID: uuid.New()}},
		"unknown type":      {conn, DomainEvent{EventType: "nope", AggregateID: uuid.New()}},
		"missing aggregate": {conn, DomainEvent{EventType: enums.EventOrderCreated}},
		"bad aggregate":     {conn, DomainEvent{EventType: enums.EventOrderCreated, AggregateType: "store", AggregateID: uuid.New()}},
	}
	for name, tc := range cases {
		err := svc.Emit(context.Background(), tc.tx, tc.event)
		assert.ErrorIs(t, err, ErrInvalidEvent, name)
	}
}

func TestEmitDefaultsAggregateType(t *testing.T) {
	conn := newOutboxDB(t)
	svc := NewService(NewRepository(conn), nil)
	require.NoError(t, svc.Emit(context.Background(), conn, DomainEvent{
		EventType:   enums.EventOrderDeleted,
		AggregateID: uuid.New(),
		Actor:       &ActorRef{UserID: uuid.New(), Role: enums.UserRoleAdmin, RequestID: "req-12345678"},
	}))

	var row models.OutboxEvent
	require.NoError(t, conn.First(&row).Error)
	assert.Equal(t, enums.AggregateOrder, row.AggregateType)
	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(row.Payload, &envelope))
	require.NotNil(t, envelope.Actor)
	assert.Equal(t, "req-12345678", envelope.Actor.RequestID)
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	conn := newOutboxDB(t)
	repo := NewRepository(conn)
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	first := insertEvent(t, conn, now.Add(-2*time.Minute))
	second := insertEvent(t, conn, now.Add(-time.Minute))

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 3, now)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, first, rows[0].ID)

	require.NoError(t, repo.MarkPublishedTx(conn, first, now))
	require.NoError(t, repo.MarkFailedTx(conn, second, errors.New("sheets down"), now.Add(time.Minute)))

	rows, err = repo.FetchUnpublishedForPublish(conn, 10, 3, now)
	require.NoError(t, err)
	assert.Empty(t, rows, "failed row waits for its next attempt")

	rows, err = repo.FetchUnpublishedForPublish(conn, 10, 3, now.Add(2*time.Minute))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].AttemptCount)
	require.NotNil(t, rows[0].LastError)
	assert.Equal(t, "sheets down", *rows[0].LastError)

	require.NoError(t, repo.MarkTerminalTx(conn, second, errors.New("bad payload"), 3))
	rows, err = repo.FetchUnpublishedForPublish(conn, 10, 3, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDeletePublishedBefore(t *testing.T) {
	conn := newOutboxDB(t)
	repo := NewRepository(conn)
	now := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	cutoff := now.Add(-30 * 24 * time.Hour)

	oldPublished := insertEvent(t, conn, cutoff.Add(-48*time.Hour))
	require.NoError(t, repo.MarkPublishedTx(conn, oldPublished, cutoff.Add(-24*time.Hour)))
	recentPublished := insertEvent(t, conn, now.Add(-time.Hour))
	require.NoError(t, repo.MarkPublishedTx(conn, recentPublished, now))
	oldTerminal := insertEvent(t, conn, cutoff.Add(-48*time.Hour))
	require.NoError(t, repo.MarkTerminalTx(conn, oldTerminal, errors.New("x"), 10))
	oldPending := insertEvent(t, conn, cutoff.Add(-48*time.Hour))

	deleted, err := repo.DeletePublishedBefore(context.Background(), conn, cutoff, 5)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	var remaining []uuid.UUID
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Pluck("id", &remaining).Error)
	assert.ElementsMatch(t, []uuid.UUID{recentPublished, oldPending}, remaining)
}

func TestDLQRepository(t *testing.T) {
	conn := newOutboxDB(t)
	repo := NewDLQRepository(conn)
	eventID := uuid.New()
	long := strings.Repeat("x", 2000)

	require.NoError(t, repo.InsertTx(conn, models.OutboxDLQ{
		EventID:       eventID,
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage:  &long,
		AttemptCount:  10,
		FailedAt:      time.Now().UTC(),
	}))

	found, err := repo.FindByEventID(context.Background(), eventID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Len(t, *found.ErrorMessage, maxLastErrorLen)

	_, err = repo.FindByEventID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	list, err := repo.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.Error(t, repo.InsertTx(conn, models.OutboxDLQ{EventID: uuid.New(), ErrorReason: "gave_up"}))

	pruned, err := repo.DeleteFailedBefore(context.Background(), conn, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, pruned)
}

func insertEvent(t *testing.T, conn *gorm.DB, createdAt time.Time) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, NewRepository(conn).Insert(conn, models.OutboxEvent{
		ID:            id,
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1,"data":{}}`),
		CreatedAt:     createdAt.UTC(),
	}))
	return id
}
