package orders

import (
	"github.com/sonaskin/storefront-backend/pkg/db/models"
	"github.com/sonaskin/storefront-backend/pkg/enums"
	"github.com/sonaskin/storefront-backend/pkg/epoch"
)

// OrderItemDTO is one purchased line as returned to clients.
type OrderItemDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
	Image    string `json:"image,omitempty"`
}

// OrderDTO is the API shape of an order. Ids are strings and stamps are unix seconds.
type OrderDTO struct {
	ID            string              `json:"id"`
	OrderNumber   string              `json:"orderNumber"`
	CustomerName  string              `json:"customerName"`
	CustomerPhone string              `json:"customerPhone"`
	CustomerEmail *string             `json:"customerEmail,omitempty"`
	StreetAddress string              `json:"streetAddress"`
	WardName      *string             `json:"wardName,omitempty"`
	DistrictName  *string             `json:"districtName,omitempty"`
	ProvinceName  *string             `json:"provinceName,omitempty"`
	PaymentMethod enums.PaymentMethod `json:"paymentMethod"`
	Status        enums.OrderStatus   `json:"status"`
	Items         []OrderItemDTO      `json:"items"`
	Total         int64               `json:"total"`
	Notes         *string             `json:"notes,omitempty"`
	CreatedAt     int64               `json:"createdAt"`
	UpdatedAt     int64               `json:"updatedAt"`
}

// ListResult is one page of orders plus pagination metadata.
type ListResult struct {
	Orders     []OrderDTO `json:"orders"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
	Total      int64      `json:"total"`
	TotalPages int        `json:"totalPages"`
}

// OrderItemInput is a line submitted with a new order.
type OrderItemInput struct {
	ID       string `json:"id" validate:"required,max=64"`
	Name     string `json:"name" validate:"required,max=200"`
	Price    int64  `json:"price" validate:"min=0"`
	Quantity int    `json:"quantity" validate:"required,min=1,max=999"`
	Image    string `json:"image,omitempty" validate:"omitempty,max=500"`
}

// CreateOrderInput is the payload accepted when an order is placed.
type CreateOrderInput struct {
	OrderNumber   string           `json:"orderNumber,omitempty" validate:"omitempty,max=32"`
	CustomerName  string           `json:"customerName" validate:"required,max=120"`
	CustomerPhone string           `json:"customerPhone" validate:"required,min=8,max=20"`
	CustomerEmail *string          `json:"customerEmail,omitempty" validate:"omitempty,email"`
	StreetAddress string           `json:"streetAddress" validate:"required,max=255"`
	WardName      *string          `json:"wardName,omitempty" validate:"omitempty,max=120"`
	DistrictName  *string          `json:"districtName,omitempty" validate:"omitempty,max=120"`
	ProvinceName  *string          `json:"provinceName,omitempty" validate:"omitempty,max=120"`
	PaymentMethod string           `json:"paymentMethod" validate:"required,oneof=cod bank"`
	Status        string           `json:"status,omitempty" validate:"omitempty,oneof=pending confirmed shipping delivered cancelled"`
	Items         []OrderItemInput `json:"items" validate:"required,min=1,dive"`
	Notes         *string          `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// UpdateOrderInput is a partial update. Nil fields are left untouched; an empty
// string clears an optional field.
type UpdateOrderInput struct {
	Status        *string `json:"status,omitempty" validate:"omitempty,oneof=pending confirmed shipping delivered cancelled"`
	Notes         *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
	CustomerName  *string `json:"customerName,omitempty" validate:"omitempty,min=1,max=120"`
	CustomerPhone *string `json:"customerPhone,omitempty" validate:"omitempty,min=8,max=20"`
	CustomerEmail *string `json:"customerEmail,omitempty" validate:"omitempty,max=254"`
	StreetAddress *string `json:"streetAddress,omitempty" validate:"omitempty,min=1,max=255"`
	WardName      *string `json:"wardName,omitempty" validate:"omitempty,max=120"`
	DistrictName  *string `json:"districtName,omitempty" validate:"omitempty,max=120"`
	ProvinceName  *string `json:"provinceName,omitempty" validate:"omitempty,max=120"`
	PaymentMethod *string `json:"paymentMethod,omitempty" validate:"omitempty,oneof=cod bank"`
}

// IsEmpty reports whether the update carries no fields.
func (in UpdateOrderInput) IsEmpty() bool {
	return in.Status == nil && in.Notes == nil && in.CustomerName == nil && in.CustomerPhone == nil &&
		in.CustomerEmail == nil && in.StreetAddress == nil && in.WardName == nil && in.DistrictName == nil &&
		in.ProvinceName == nil && in.PaymentMethod == nil
}

// ToDTO converts a stored order into its API representation.
func ToDTO(order models.Order) OrderDTO {
	items := make([]OrderItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemDTO{
			ID:       item.ID,
			Name:     item.Name,
			Price:    item.Price,
			Quantity: item.Quantity,
			Image:    item.Image,
		})
	}
	return OrderDTO{
		ID:            order.ID.String(),
		OrderNumber:   order.OrderNumber,
		CustomerName:  order.CustomerName,
		CustomerPhone: order.CustomerPhone,
		CustomerEmail: order.CustomerEmail,
		StreetAddress: order.StreetAddress,
		WardName:      order.WardName,
		DistrictName:  order.DistrictName,
		ProvinceName:  order.ProvinceName,
		PaymentMethod: order.PaymentMethod,
		Status:        order.Status,
		Items:         items,
		Total:         order.Total,
		Notes:         order.Notes,
		CreatedAt:     epoch.Seconds(order.CreatedAt),
		UpdatedAt:     epoch.Seconds(order.UpdatedAt),
	}
}

// ToDTOs converts a slice of orders, never returning nil.
func ToDTOs(rows []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, ToDTO(row))
	}
	return out
}
