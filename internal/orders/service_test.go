package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sonaskin/storefront-backend/pkg/db"
	"github.com/sonaskin/storefront-backend/pkg/db/models"
	"github.com/sonaskin/storefront-backend/pkg/enums"
	pkgerrors "github.com/sonaskin/storefront-backend/pkg/errors"
	"github.com/sonaskin/storefront-backend/pkg/logger"
	"github.com/sonaskin/storefront-backend/pkg/outbox"
	"github.com/sonaskin/storefront-backend/pkg/pagination"
)

var fixedNow = time.Date(2025, 4, 10, 3, 30, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Order{}, &models.OutboxEvent{}))
	return conn
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := newTestDB(t)
	svc, err := NewService(ServiceParams{
		Repository: NewRepository(conn),
		Tx:         db.NewFromGorm(conn),
		Outbox:     outbox.NewService(outbox.NewRepository(conn), logger.Nop()),
		Logger:     logger.Nop(),
		Location:   time.FixedZone("ICT", 7*60*60),
		Now:        func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return svc, conn
}

func sampleInput() CreateOrderInput {
	return CreateOrderInput{
		CustomerName:  "Nguyễn Thị Lan",
		CustomerPhone: "0901234567",
		StreetAddress: "12 Lê Lợi",
		PaymentMethod: "cod",
		Items: []OrderItemInput{
			{ID: "serum-vitc", Name: "Serum Vitamin C", Price: 219000, Quantity: 2},
		},
	}
}

func strPtr(v string) *string { return &v }

func outboxRows(t *testing.T, conn *gorm.DB) []models.OutboxEvent {
	t.Helper()
	var rows []models.OutboxEvent
	require.NoError(t, conn.Order("created_at ASC").Find(&rows).Error)
	return rows
}

func TestCreateOrderComputesTotalAndEmitsEvent(t *testing.T) {
	svc, conn := newTestService(t)

	order, err := svc.CreateOrder(context.Background(), sampleInput())
	require.NoError(t, err)

	assert.Equal(t, int64(438000), order.Total)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, fixedNow.Unix(), order.CreatedAt)
	assert.Equal(t, order.CreatedAt, order.UpdatedAt)
	assert.Regexp(t, `^DH250410\d{4}$`, order.OrderNumber)
	_, err = uuid.Parse(order.ID)
	require.NoError(t, err)

	rows := outboxRows(t, conn)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.EventOrderCreated, rows[0].EventType)
	assert.Equal(t, order.ID, rows[0].AggregateID.String())

	var envelope outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	var data map[string]any
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.Equal(t, float64(438000), data["total"])
	assert.Equal(t, "12 Lê Lợi", data["address"])
}

func TestCreateOrderKeepsClientNumberAndRejectsDuplicate(t *testing.T) {
	svc, conn := newTestService(t)
	input := sampleInput()
	input.OrderNumber = "DH-CLIENT-1"

	order, err := svc.CreateOrder(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "DH-CLIENT-1", order.OrderNumber)

	_, err = svc.CreateOrder(context.Background(), input)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	assert.Len(t, outboxRows(t, conn), 1, "failed create must not leave an event")
}

func TestCreateOrderValidation(t *testing.T) {
	svc, _ := newTestService(t)

	noItems := sampleInput()
	noItems.Items = nil
	_, err := svc.CreateOrder(context.Background(), noItems)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	badMethod := sampleInput()
	badMethod.PaymentMethod = "card"
	_, err = svc.CreateOrder(context.Background(), badMethod)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	badQty := sampleInput()
	badQty.Items[0].Quantity = 0
	_, err = svc.CreateOrder(context.Background(), badQty)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUpdateOrderPartialStatus(t *testing.T) {
	svc, conn := newTestService(t)
	input := sampleInput()
	input.Notes = strPtr("gọi trước khi giao")
	created, err := svc.CreateOrder(context.Background(), input)
	require.NoError(t, err)
	id := uuid.MustParse(created.ID)

	updated, err := svc.UpdateOrder(context.Background(), nil, id, UpdateOrderInput{Status: strPtr("confirmed")})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusConfirmed, updated.Status)

	reloaded, err := svc.GetOrderByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusConfirmed, reloaded.Status)
	assert.Equal(t, created.CustomerName, reloaded.CustomerName)
	assert.Equal(t, created.Total, reloaded.Total)
	assert.Equal(t, created.Items, reloaded.Items)
	require.NotNil(t, reloaded.Notes)
	assert.Equal(t, "gọi trước khi giao", *reloaded.Notes)

	rows := outboxRows(t, conn)
	require.Len(t, rows, 2)
	assert.Equal(t, enums.EventOrderStatusChanged, rows[1].EventType)
}

func TestUpdateOrderRejectsIllegalTransition(t *testing.T) {
	svc, conn := newTestService(t)
	created, err := svc.CreateOrder(context.Background(), sampleInput())
	require.NoError(t, err)
	id := uuid.MustParse(created.ID)

	_, err = svc.UpdateOrder(context.Background(), nil, id, UpdateOrderInput{Status: strPtr("delivered")})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.Equal(t, 422, pkgerrors.MetadataFor(pkgerrors.As(err).Code()).HTTPStatus)

	reloaded, err := svc.GetOrderByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, reloaded.Status)
	assert.Len(t, outboxRows(t, conn), 1)
}

func TestUpdateOrderSameStatusAndFieldEdits(t *testing.T) {
	svc, conn := newTestService(t)
	created, err := svc.CreateOrder(context.Background(), sampleInput())
	require.NoError(t, err)
	id := uuid.MustParse(created.ID)

	updated, err := svc.UpdateOrder(context.Background(), nil, id, UpdateOrderInput{
		Status:       strPtr("pending"),
		ProvinceName: strPtr("TP. Hồ Chí Minh"),
		Notes:        strPtr("  "),
	})
	require.NoError(t, err)
	require.NotNil(t, updated.ProvinceName)
	assert.Equal(t, "TP. Hồ Chí Minh", *updated.ProvinceName)
	assert.Nil(t, updated.Notes)
	assert.Len(t, outboxRows(t, conn), 1, "same status is not a transition")

	_, err = svc.UpdateOrder(context.Background(), nil, id, UpdateOrderInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.UpdateOrder(context.Background(), nil, id, UpdateOrderInput{CustomerName: strPtr(" ")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUpdateOrderNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.UpdateOrder(context.Background(), nil, uuid.New(), UpdateOrderInput{Status: strPtr("confirmed")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestDeleteOrder(t *testing.T) {
	svc, conn := newTestService(t)
	created, err := svc.CreateOrder(context.Background(), sampleInput())
	require.NoError(t, err)
	id := uuid.MustParse(created.ID)

	actor := &outbox.ActorRef{UserID: uuid.New(), Role: enums.UserRoleAdmin}
	require.NoError(t, svc.DeleteOrder(context.Background(), actor, id))

	_, err = svc.GetOrderByID(context.Background(), id)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	rows := outboxRows(t, conn)
	require.Len(t, rows, 2)
	assert.Equal(t, enums.EventOrderDeleted, rows[1].EventType)

	err = svc.DeleteOrder(context.Background(), actor, id)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.Equal(t, 404, pkgerrors.MetadataFor(pkgerrors.As(err).Code()).HTTPStatus)
}

func TestListOrdersFiltersAndPaginates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		input := sampleInput()
		input.OrderNumber = fmt.Sprintf("DH-%d", i)
		_, err := svc.CreateOrder(ctx, input)
		require.NoError(t, err)
	}
	other := sampleInput()
	other.OrderNumber = "DH-X"
	other.CustomerName = "Trần Văn Minh"
	other.CustomerPhone = "0988000111"
	other.PaymentMethod = "bank"
	other.Status = "delivered"
	_, err := svc.CreateOrder(ctx, other)
	require.NoError(t, err)

	page, err := svc.ListOrders(ctx, ListFilters{}, pagination.Params{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Orders, 2)

	delivered, err := svc.ListOrders(ctx, ListFilters{Status: enums.OrderStatusDelivered}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, delivered.Orders, 1)
	assert.Equal(t, "DH-X", delivered.Orders[0].OrderNumber)

	bySearch, err := svc.ListOrders(ctx, ListFilters{Search: "0988"}, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, bySearch.Orders, 1)

	byMethod, err := svc.ExportOrders(ctx, ListFilters{PaymentMethod: enums.PaymentMethodCOD})
	require.NoError(t, err)
	assert.Len(t, byMethod, 3)

	empty, err := svc.ListOrders(ctx, ListFilters{From: fixedNow.Unix() + 1}, pagination.Params{})
	require.NoError(t, err)
	assert.NotNil(t, empty.Orders)
	assert.Empty(t, empty.Orders)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	assert.Error(t, err)
}
