package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonaskin/storefront-backend/api/middleware"
	"github.com/sonaskin/storefront-backend/internal/orders"
	"github.com/sonaskin/storefront-backend/pkg/db/models"
	"github.com/sonaskin/storefront-backend/pkg/enums"
	pkgerrors "github.com/sonaskin/storefront-backend/pkg/errors"
	"github.com/sonaskin/storefront-backend/pkg/outbox"
	"github.com/sonaskin/storefront-backend/pkg/pagination"
)

type stubOrders struct {
	created   *orders.CreateOrderInput
	filters   orders.ListFilters
	actor     *outbox.ActorRef
	exportErr error
	exported  []models.Order
	updateErr error
}

func (s *stubOrders) CreateOrder(_ context.Context, input orders.CreateOrderInput) (*orders.OrderDTO, error) {
	s.created = &input
	return &orders.OrderDTO{ID: uuid.NewString(), OrderNumber: "DH2504100001", Status: enums.OrderStatusPending}, nil
}

func (s *stubOrders) GetOrderByID(_ context.Context, id uuid.UUID) (*orders.OrderDTO, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func (s *stubOrders) ListOrders(_ context.Context, filters orders.ListFilters, params pagination.Params) (*orders.ListResult, error) {
	s.filters = filters
	return &orders.ListResult{Page: params.Page, Limit: params.Limit}, nil
}

func (s *stubOrders) ExportOrders(_ context.Context, filters orders.ListFilters) ([]models.Order, error) {
	s.filters = filters
	return s.exported, s.exportErr
}

func (s *stubOrders) UpdateOrder(_ context.Context, actor *outbox.ActorRef, id uuid.UUID, input orders.UpdateOrderInput) (*orders.OrderDTO, error) {
	s.actor = actor
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	return &orders.OrderDTO{ID: id.String(), Status: enums.OrderStatus(*input.Status)}, nil
}

func (s *stubOrders) DeleteOrder(_ context.Context, actor *outbox.ActorRef, id uuid.UUID) error {
	s.actor = actor
	return nil
}

type fixedLocation struct{}

func (fixedLocation) Location() *time.Location {
	return time.FixedZone("ICT", 7*60*60)
}

func decodeErrorCode(t *testing.T, body []byte) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	return payload.Error.Code
}

func TestPublicCreateOrderRejectsMissingFields(t *testing.T) {
	svc := &stubCheckout{}
	handler := PublicCreateOrder(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(`{"customerName":"An","paymentMethod":"cash","items":[]}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, string(pkgerrors.CodeValidation), decodeErrorCode(t, resp.Body.Bytes()))
	assert.Nil(t, svc.placed)
}

func TestPublicCreateOrderHandsPayloadToPlacer(t *testing.T) {
	svc := &stubCheckout{}
	handler := PublicCreateOrder(svc, nil)

	body := `{
		"customerName":"Nguyễn Văn An",
		"customerPhone":"0901234567",
		"streetAddress":"12 Lê Lợi",
		"paymentMethod":"cod",
		"status":"delivered",
		"items":[{"id":"p1","name":"Serum","price":250000,"quantity":2}]
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	require.NotNil(t, svc.placed)
	require.Len(t, svc.placed.Items, 1)
	assert.Equal(t, 2, svc.placed.Items[0].Quantity)

	var envelope struct {
		Data    orders.OrderDTO `json:"data"`
		Message string          `json:"message"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, "DH2504100001", envelope.Data.OrderNumber)
	assert.NotEmpty(t, envelope.Message)
}

func TestAdminListOrdersParsesFilters(t *testing.T) {
	svc := &stubOrders{}
	handler := AdminListOrders(svc, fixedLocation{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/orders?status=confirmed&startDate=2025-04-10&endDate=2025-04-10&limit=5", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, enums.OrderStatusConfirmed, svc.filters.Status)
	assert.Equal(t, int64(86399), svc.filters.To-svc.filters.From)
}

func TestAdminListOrdersRejectsBadStatus(t *testing.T) {
	handler := AdminListOrders(&stubOrders{}, fixedLocation{}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/admin/orders?status=lost", nil))

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAdminGetOrderMalformedIDIsNotFound(t *testing.T) {
	router := chi.NewRouter()
	router.Get("/api/admin/orders/{id}", AdminGetOrder(&stubOrders{}, nil))

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/admin/orders/not-a-uuid", nil))

	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestAdminUpdateOrderPassesActorAndMapsStateConflict(t *testing.T) {
	svc := &stubOrders{updateErr: pkgerrors.New(pkgerrors.CodeStateConflict, "cannot move order from pending to delivered")}
	router := chi.NewRouter()
	router.Put("/api/admin/orders/{id}", AdminUpdateOrder(svc, nil))

	actorID := uuid.New()
	req := httptest.NewRequest(http.MethodPut, "/api/admin/orders/"+uuid.NewString(), strings.NewReader(`{"status":"delivered"}`))
	req = req.WithContext(middleware.WithActor(req.Context(), actorID, enums.UserRoleEditor, "sid"))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	require.NotNil(t, svc.actor)
	assert.Equal(t, actorID, svc.actor.UserID)
	assert.Equal(t, enums.UserRoleEditor, svc.actor.Role)
}

func TestAdminExportOrdersCSVAttachment(t *testing.T) {
	loc := fixedLocation{}.Location()
	created := time.Date(2025, 4, 10, 9, 0, 0, 0, loc).Unix()
	svc := &stubOrders{exported: []models.Order{
		{ID: uuid.New(), OrderNumber: "DH2504100001", Status: enums.OrderStatusPending, Total: 300000, CreatedAt: created},
		{ID: uuid.New(), OrderNumber: "DH2504100002", Status: enums.OrderStatusDelivered, Total: 200000, CreatedAt: created},
	}}
	now := func() time.Time { return time.Date(2025, 4, 11, 8, 0, 0, 0, time.UTC) }
	handler := AdminExportOrders(svc, fixedLocation{}, now, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/orders/export?type=status&format=csv&status=all", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="orders-status-20250411.csv"`, resp.Header().Get("Content-Disposition"))
	body := resp.Body.String()
	assert.True(t, strings.HasPrefix(body, "\uFEFF"))
	assert.Contains(t, body, "pending,1,300000")
	assert.Contains(t, body, "delivered,1,200000")
	assert.Empty(t, svc.filters.Status)
}

func TestAdminExportOrdersRejectsUnknownFormat(t *testing.T) {
	handler := AdminExportOrders(&stubOrders{}, fixedLocation{}, nil, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/admin/orders/export?format=pdf", nil))

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
