package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sonaskin/storefront-backend/pkg/db"
	"github.com/sonaskin/storefront-backend/pkg/db/models"
	"github.com/sonaskin/storefront-backend/pkg/enums"
	pkgerrors "github.com/sonaskin/storefront-backend/pkg/errors"
	"github.com/sonaskin/storefront-backend/pkg/logger"
	"github.com/sonaskin/storefront-backend/pkg/outbox"
	"github.com/sonaskin/storefront-backend/pkg/outbox/payloads"
	"github.com/sonaskin/storefront-backend/pkg/pagination"
	"github.com/sonaskin/storefront-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines the order lifecycle operations used by checkout and the admin API.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderDTO, error)
	GetOrderByID(ctx context.Context, id uuid.UUID) (*OrderDTO, error)
	ListOrders(ctx context.Context, filters ListFilters, params pagination.Params) (*ListResult, error)
	ExportOrders(ctx context.Context, filters ListFilters) ([]models.Order, error)
	UpdateOrder(ctx context.Context, actor *outbox.ActorRef, id uuid.UUID, input UpdateOrderInput) (*OrderDTO, error)
	DeleteOrder(ctx context.Context, actor *outbox.ActorRef, id uuid.UUID) error
}

// ServiceParams wires the order service.
type ServiceParams struct {
	Repository Repository
	Tx         txRunner
	Outbox     outbox.Emitter
	Logger     *logger.Logger
	Location   *time.Location
	Now        func() time.Time
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outbox.Emitter
	logg   *logger.Logger
	loc    *time.Location
	now    func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	return &service{
		repo:   params.Repository,
		tx:     params.Tx,
		outbox: params.Outbox,
		logg:   params.Logger,
		loc:    loc,
		now:    now,
	}, nil
}

// Total sums price times quantity over items.
func Total(items []models.OrderItem) int64 {
	var total int64
	for _, item := range items {
		total += item.Price * int64(item.Quantity)
	}
	return total
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderDTO, error) {
	order, err := s.buildOrder(input)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order number already exists").
					WithDetails(map[string]string{"orderNumber": order.OrderNumber})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to create order")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data:          createdEvent(*order),
			OccurredAt:    time.Unix(order.CreatedAt, 0),
		})
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(ctx, "order created")
	dto := ToDTO(*order)
	return &dto, nil
}

func (s *service) buildOrder(input CreateOrderInput) (*models.Order, error) {
	method, err := enums.ParsePaymentMethod(strings.TrimSpace(input.PaymentMethod))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method").
			WithDetails(map[string]string{"paymentMethod": err.Error()})
	}
	status := enums.OrderStatusPending
	if raw := strings.TrimSpace(input.Status); raw != "" {
		if status, err = enums.ParseOrderStatus(raw); err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status").
				WithDetails(map[string]string{"status": err.Error()})
		}
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item").
			WithDetails(map[string]string{"items": "at least one item is required"})
	}
	items := make([]models.OrderItem, 0, len(input.Items))
	for i, line := range input.Items {
		if line.Quantity < 1 || line.Price < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order item").
				WithDetails(map[string]string{fmt.Sprintf("items[%d]", i): "quantity must be at least 1 and price non-negative"})
		}
		items = append(items, models.OrderItem{
			ID:       strings.TrimSpace(line.ID),
			Name:     strings.TrimSpace(line.Name),
			Price:    line.Price,
			Quantity: line.Quantity,
			Image:    strings.TrimSpace(line.Image),
		})
	}

	now := s.now()
	number := strings.TrimSpace(input.OrderNumber)
	if number == "" {
		number = NewOrderNumber(now, s.loc)
	}
	stamp := now.Unix()
	return &models.Order{
		ID:            uuid.New(),
		OrderNumber:   number,
		CustomerName:  strings.TrimSpace(input.CustomerName),
		CustomerPhone: strings.TrimSpace(input.CustomerPhone),
		CustomerEmail: types.TrimmedString(input.CustomerEmail),
		StreetAddress: strings.TrimSpace(input.StreetAddress),
		WardName:      types.TrimmedString(input.WardName),
		DistrictName:  types.TrimmedString(input.DistrictName),
		ProvinceName:  types.TrimmedString(input.ProvinceName),
		PaymentMethod: method,
		Status:        status,
		Items:         items,
		Total:         Total(items),
		Notes:         types.TrimmedString(input.Notes),
		CreatedAt:     stamp,
		UpdatedAt:     stamp,
	}, nil
}

func (s *service) GetOrderByID(ctx context.Context, id uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, db.MapError(err, "order not found", "failed to load order")
	}
	dto := ToDTO(*order)
	return &dto, nil
}

func (s *service) ListOrders(ctx context.Context, filters ListFilters, params pagination.Params) (*ListResult, error) {
	rows, total, err := s.repo.List(ctx, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to list orders")
	}
	meta := pagination.NewMeta(params, total)
	return &ListResult{
		Orders:     ToDTOs(rows),
		Page:       meta.Page,
		Limit:      meta.Limit,
		Total:      meta.Total,
		TotalPages: meta.TotalPages,
	}, nil
}

func (s *service) ExportOrders(ctx context.Context, filters ListFilters) ([]models.Order, error) {
	rows, err := s.repo.ListAll(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load orders for export")
	}
	return rows, nil
}

func (s *service) UpdateOrder(ctx context.Context, actor *outbox.ActorRef, id uuid.UUID, input UpdateOrderInput) (*OrderDTO, error) {
	if input.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	var updated models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, id)
		if err != nil {
			return db.MapError(err, "order not found", "failed to load order")
		}

		from := order.Status
		if err := applyUpdate(order, input); err != nil {
			return err
		}
		order.UpdatedAt = s.now().Unix()
		if err := repo.Save(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to update order")
		}

		if order.Status != from {
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderStatusChanged,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         actor,
				Data: payloads.OrderStatusChangedEvent{
					OrderID:     order.ID,
					OrderNumber: order.OrderNumber,
					From:        from,
					To:          order.Status,
					ChangedAt:   order.UpdatedAt,
				},
			}); err != nil {
				return err
			}
		}
		updated = *order
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, id.String())
	s.logg.Info(ctx, "order updated")
	dto := ToDTO(updated)
	return &dto, nil
}

// applyUpdate copies the provided fields onto order, enforcing the status machine.
func applyUpdate(order *models.Order, input UpdateOrderInput) error {
	if input.Status != nil {
		next, err := enums.ParseOrderStatus(strings.TrimSpace(*input.Status))
		if err != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid status").
				WithDetails(map[string]string{"status": err.Error()})
		}
		if next != order.Status {
			if !order.Status.CanTransitionTo(next) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "order status transition not allowed").
					WithDetails(map[string]any{
						"from":    order.Status,
						"to":      next,
						"allowed": order.Status.NextOrderStatuses(),
					})
			}
			order.Status = next
		}
	}
	if input.PaymentMethod != nil {
		method, err := enums.ParsePaymentMethod(strings.TrimSpace(*input.PaymentMethod))
		if err != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method").
				WithDetails(map[string]string{"paymentMethod": err.Error()})
		}
		order.PaymentMethod = method
	}
	if input.CustomerName != nil {
		name := strings.TrimSpace(*input.CustomerName)
		if name == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
				WithDetails(map[string]string{"customerName": "customerName is required"})
		}
		order.CustomerName = name
	}
	if input.CustomerPhone != nil {
		phone := strings.TrimSpace(*input.CustomerPhone)
		if phone == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
				WithDetails(map[string]string{"customerPhone": "customerPhone is required"})
		}
		order.CustomerPhone = phone
	}
	if input.StreetAddress != nil {
		street := strings.TrimSpace(*input.StreetAddress)
		if street == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
				WithDetails(map[string]string{"streetAddress": "streetAddress is required"})
		}
		order.StreetAddress = street
	}
	if input.CustomerEmail != nil {
		order.CustomerEmail = types.TrimmedString(input.CustomerEmail)
	}
	if input.WardName != nil {
		order.WardName = types.TrimmedString(input.WardName)
	}
	if input.DistrictName != nil {
		order.DistrictName = types.TrimmedString(input.DistrictName)
	}
	if input.ProvinceName != nil {
		order.ProvinceName = types.TrimmedString(input.ProvinceName)
	}
	if input.Notes != nil {
		order.Notes = types.TrimmedString(input.Notes)
	}
	return nil
}

func (s *service) DeleteOrder(ctx context.Context, actor *outbox.ActorRef, id uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, id)
		if err != nil {
			return db.MapError(err, "order not found", "failed to load order")
		}
		affected, err := repo.Delete(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to delete order")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDeleted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   id,
			Actor:         actor,
			Data: payloads.OrderDeletedEvent{
				OrderID:     id,
				OrderNumber: order.OrderNumber,
			},
		})
	})
	if err != nil {
		return err
	}
	ctx = s.logg.WithOrderID(ctx, id.String())
	s.logg.Info(ctx, "order deleted")
	return nil
}

func createdEvent(order models.Order) payloads.OrderCreatedEvent {
	lines := make([]payloads.OrderLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, payloads.OrderLine{
			ProductID: item.ID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}
	return payloads.OrderCreatedEvent{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CustomerName:  order.CustomerName,
		CustomerPhone: order.CustomerPhone,
		CustomerEmail: types.StringValue(order.CustomerEmail),
		Address:       order.FullAddress(),
		PaymentMethod: order.PaymentMethod,
		Status:        order.Status,
		Items:         lines,
		Total:         order.Total,
		Notes:         types.StringValue(order.Notes),
		CreatedAt:     order.CreatedAt,
	}
}
