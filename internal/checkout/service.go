package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sonaskin/storefront-backend/internal/cart"
	"github.com/sonaskin/storefront-backend/internal/orders"
	"github.com/sonaskin/storefront-backend/pkg/db/models"
	"github.com/sonaskin/storefront-backend/pkg/enums"
	pkgerrors "github.com/sonaskin/storefront-backend/pkg/errors"
	"github.com/sonaskin/storefront-backend/pkg/logger"
)

type productLookup interface {
	FindActiveByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type orderCreator interface {
	CreateOrder(ctx context.Context, input orders.CreateOrderInput) (*orders.OrderDTO, error)
}

type cartReader interface {
	Lines(ctx context.Context, token string, ids []string) ([]cart.Item, error)
	RemoveItems(ctx context.Context, token string, ids []string) (*cart.View, error)
}

// Input is the shipping form submitted at checkout. ItemIDs selects a subset of the cart; empty means all lines.
type Input struct {
	OrderNumber   string   `json:"orderNumber,omitempty" validate:"omitempty,max=32"`
	CustomerName  string   `json:"customerName" validate:"required,max=120"`
	CustomerPhone string   `json:"customerPhone" validate:"required,min=8,max=20"`
	CustomerEmail *string  `json:"customerEmail,omitempty" validate:"omitempty,email"`
	StreetAddress string   `json:"streetAddress" validate:"required,max=255"`
	WardName      *string  `json:"wardName,omitempty" validate:"omitempty,max=120"`
	DistrictName  *string  `json:"districtName,omitempty" validate:"omitempty,max=120"`
	ProvinceName  *string  `json:"provinceName,omitempty" validate:"omitempty,max=120"`
	PaymentMethod string   `json:"paymentMethod" validate:"required,oneof=cod bank"`
	Notes         *string  `json:"notes,omitempty" validate:"omitempty,max=1000"`
	ItemIDs       []string `json:"itemIds,omitempty" validate:"omitempty,max=100,dive,required"`
}

// Result is the created order plus the cart left behind.
type Result struct {
	Order *orders.OrderDTO `json:"order"`
	Cart  *cart.View       `json:"cart,omitempty"`
}

// Service executes checkout orchestration.
type Service interface {
	Execute(ctx context.Context, cartToken string, input Input) (*Result, error)
	PlaceOrder(ctx context.Context, input orders.CreateOrderInput) (*orders.OrderDTO, error)
}

// ServiceParams bundles checkout dependencies.
type ServiceParams struct {
	Cart     cartReader
	Orders   orderCreator
	Products productLookup
	Logger   *logger.Logger
}

type service struct {
	cart     cartReader
	orders   orderCreator
	products productLookup
	logg     *logger.Logger
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Cart == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product lookup required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		cart:     params.Cart,
		orders:   params.Orders,
		products: params.Products,
		logg:     params.Logger,
	}, nil
}

func (s *service) Execute(ctx context.Context, cartToken string, input Input) (*Result, error) {
	if strings.TrimSpace(cartToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	lines, err := s.cart.Lines(ctx, cartToken, dedupe(input.ItemIDs))
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no cart items selected")
	}
	if err := s.ensureAvailable(ctx, lines); err != nil {
		return nil, err
	}

	order, err := s.orders.CreateOrder(ctx, buildOrderInput(input, lines))
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithOrderID(ctx, order.ID)

	purchased := make([]string, 0, len(lines))
	for _, line := range lines {
		purchased = append(purchased, line.ID)
	}
	remaining, err := s.cart.RemoveItems(ctx, cartToken, purchased)
	if err != nil {
		// the order already exists; a stale cart is recoverable by the shopper
		s.logg.Error(ctx, "remove purchased cart lines failed", err)
		return &Result{Order: order}, nil
	}
	s.logg.Info(ctx, "checkout completed")
	return &Result{Order: order, Cart: remaining}, nil
}

// PlaceOrder creates an order from a direct storefront payload. The client picks
// products and quantities; names, images and prices come from the catalog.
func (s *service) PlaceOrder(ctx context.Context, input orders.CreateOrderInput) (*orders.OrderDTO, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.Invalid(pkgerrors.FieldErrors{"items": "at least one item is required"})
	}
	items, err := s.reprice(ctx, input.Items)
	if err != nil {
		return nil, err
	}
	input.Items = items
	input.Status = string(enums.OrderStatusPending)

	order, err := s.orders.CreateOrder(ctx, input)
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithOrderID(ctx, order.ID), "storefront order placed")
	return order, nil
}

// reprice replaces client-sent line details with the active catalog entry.
func (s *service) reprice(ctx context.Context, lines []orders.OrderItemInput) ([]orders.OrderItemInput, error) {
	out := make([]orders.OrderItemInput, 0, len(lines))
	unavailable := []string{}
	for _, line := range lines {
		product, err := s.activeProduct(ctx, line.ID)
		if err != nil {
			return nil, err
		}
		if product == nil {
			unavailable = append(unavailable, line.ID)
			continue
		}
		item := orders.OrderItemInput{
			ID:       product.ID.String(),
			Name:     product.Name,
			Price:    product.Price,
			Quantity: line.Quantity,
		}
		if product.Image != nil {
			item.Image = *product.Image
		}
		out = append(out, item)
	}
	if len(unavailable) > 0 {
		return nil, unavailableErr(unavailable)
	}
	return out, nil
}

// ensureAvailable rejects lines whose product was removed or deactivated after it was added.
func (s *service) ensureAvailable(ctx context.Context, lines []cart.Item) error {
	unavailable := []string{}
	for _, line := range lines {
		product, err := s.activeProduct(ctx, line.ID)
		if err != nil {
			return err
		}
		if product == nil {
			unavailable = append(unavailable, line.ID)
		}
	}
	if len(unavailable) > 0 {
		return unavailableErr(unavailable)
	}
	return nil
}

// activeProduct returns nil without error when id names no active product.
func (s *service) activeProduct(ctx context.Context, rawID string) (*models.Product, error) {
	id, err := uuid.Parse(strings.TrimSpace(rawID))
	if err != nil {
		return nil, nil
	}
	product, err := s.products.FindActiveByID(ctx, id)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return product, nil
}

func unavailableErr(ids []string) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "some cart items are no longer available").
		WithDetails(map[string][]string{"itemIds": ids})
}

func buildOrderInput(input Input, lines []cart.Item) orders.CreateOrderInput {
	items := make([]orders.OrderItemInput, 0, len(lines))
	for _, line := range lines {
		items = append(items, orders.OrderItemInput{
			ID:       line.ID,
			Name:     line.Name,
			Price:    line.Price,
			Quantity: line.Quantity,
			Image:    line.Image,
		})
	}
	return orders.CreateOrderInput{
		OrderNumber:   strings.TrimSpace(input.OrderNumber),
		CustomerName:  input.CustomerName,
		CustomerPhone: input.CustomerPhone,
		CustomerEmail: input.CustomerEmail,
		StreetAddress: input.StreetAddress,
		WardName:      input.WardName,
		DistrictName:  input.DistrictName,
		ProvinceName:  input.ProvinceName,
		PaymentMethod: input.PaymentMethod,
		Status:        string(enums.OrderStatusPending),
		Items:         items,
		Notes:         input.Notes,
	}
}

func dedupe(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
