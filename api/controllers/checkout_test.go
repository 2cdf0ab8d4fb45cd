package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonaskin/storefront-backend/api/middleware"
	"github.com/sonaskin/storefront-backend/internal/cart"
	"github.com/sonaskin/storefront-backend/internal/checkout"
	"github.com/sonaskin/storefront-backend/internal/orders"
	pkgerrors "github.com/sonaskin/storefront-backend/pkg/errors"
)

type stubCheckout struct {
	token  string
	input  checkout.Input
	placed *orders.CreateOrderInput
}

func (s *stubCheckout) PlaceOrder(_ context.Context, input orders.CreateOrderInput) (*orders.OrderDTO, error) {
	s.placed = &input
	return &orders.OrderDTO{OrderNumber: "DH2504100001", Status: "pending"}, nil
}

func (s *stubCheckout) Execute(_ context.Context, token string, input checkout.Input) (*checkout.Result, error) {
	s.token = token
	s.input = input
	if len(input.ItemIDs) == 1 && input.ItemIDs[0] == "gone" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no cart items selected")
	}
	return &checkout.Result{
		Order: &orders.OrderDTO{OrderNumber: "DH2504100007"},
		Cart:  &cart.View{Items: []cart.Item{}},
	}, nil
}

type stubCart struct {
	cart.Service
	token string
	qty   int
	id    string
}

func (s *stubCart) Get(_ context.Context, token string) (*cart.View, error) {
	s.token = token
	return &cart.View{Items: []cart.Item{}}, nil
}

func (s *stubCart) UpdateQuantity(_ context.Context, token, itemID string, qty int) (*cart.View, error) {
	s.token, s.id, s.qty = token, itemID, qty
	return &cart.View{Items: []cart.Item{}}, nil
}

func withCartToken(req *http.Request, token string) *http.Request {
	return req.WithContext(middleware.WithCartToken(req.Context(), token))
}

const checkoutBody = `{
	"customerName":"Trần Thị Bình",
	"customerPhone":"0912345678",
	"streetAddress":"45 Nguyễn Huệ",
	"provinceName":"TP Hồ Chí Minh",
	"paymentMethod":"bank",
	"itemIds":["line-1"]
}`

func TestCheckoutCreatesOrderFromCart(t *testing.T) {
	svc := &stubCheckout{}
	req := withCartToken(httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(checkoutBody)), "cart-token-abcdefgh")
	resp := httptest.NewRecorder()
	Checkout(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "cart-token-abcdefgh", svc.token)
	assert.Equal(t, []string{"line-1"}, svc.input.ItemIDs)
	assert.Contains(t, resp.Body.String(), "DH2504100007")
}

func TestCheckoutValidatesShippingForm(t *testing.T) {
	svc := &stubCheckout{}
	req := withCartToken(httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(`{"customerName":"Bình","paymentMethod":"cod"}`)), "cart-token-abcdefgh")
	resp := httptest.NewRecorder()
	Checkout(svc, nil).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "customerPhone")
	assert.Empty(t, svc.token)
}

func TestGetCartRequiresToken(t *testing.T) {
	resp := httptest.NewRecorder()
	GetCart(&stubCart{}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/cart", nil))

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestUpdateCartItemAllowsZeroQuantity(t *testing.T) {
	svc := &stubCart{}
	router := chi.NewRouter()
	router.Put("/api/cart/items/{id}", UpdateCartItem(svc, nil))

	req := withCartToken(httptest.NewRequest(http.MethodPut, "/api/cart/items/line-9", strings.NewReader(`{"quantity":0}`)), "cart-token-abcdefgh")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "line-9", svc.id)
	assert.Equal(t, 0, svc.qty)
}

func TestUpdateCartItemRequiresQuantity(t *testing.T) {
	router := chi.NewRouter()
	router.Put("/api/cart/items/{id}", UpdateCartItem(&stubCart{}, nil))

	req := withCartToken(httptest.NewRequest(http.MethodPut, "/api/cart/items/line-9", strings.NewReader(`{}`)), "cart-token-abcdefgh")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
