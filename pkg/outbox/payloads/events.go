package payloads

import (
	"github.com/google/uuid"

	"github.com/sonaskin/storefront-backend/pkg/enums"
)

// OrderLine is one purchased item as captured at checkout.
type OrderLine struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
}

// OrderCreatedEvent carries a full snapshot so sinks never read the orders table.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	CustomerName  string              `json:"customer_name"`
	CustomerPhone string              `json:"customer_phone"`
	CustomerEmail string              `json:"customer_email,omitempty"`
	Address       string              `json:"address"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Status        enums.OrderStatus   `json:"status"`
	Items         []OrderLine         `json:"items"`
	Total         int64               `json:"total"`
	Notes         string              `json:"notes,omitempty"`
	CreatedAt     int64               `json:"created_at"`
}

// OrderStatusChangedEvent is emitted for every accepted transition.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
	ChangedAt   int64             `json:"changed_at"`
}

// OrderDeletedEvent is emitted when an admin removes an order.
type OrderDeletedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
}
