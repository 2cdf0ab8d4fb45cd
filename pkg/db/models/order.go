package models

import (
	"strings"

	"github.com/google/uuid"

	"github.com/sonaskin/storefront-backend/pkg/enums"
	"github.com/sonaskin/storefront-backend/pkg/types"
)

// OrderItem is a purchased line captured at checkout time.
type OrderItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
	Image    string `json:"image,omitempty"`
}

// Order is a customer checkout persisted with its line items inline.
type Order struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber   string                    `gorm:"column:order_number;not null;uniqueIndex"`
	CustomerName  string                    `gorm:"column:customer_name;not null"`
	CustomerPhone string                    `gorm:"column:customer_phone;not null;index"`
	CustomerEmail *string                   `gorm:"column:customer_email"`
	StreetAddress string                    `gorm:"column:street_address;not null"`
	WardName      *string                   `gorm:"column:ward_name"`
	DistrictName  *string                   `gorm:"column:district_name"`
	ProvinceName  *string                   `gorm:"column:province_name"`
	PaymentMethod enums.PaymentMethod       `gorm:"column:payment_method;type:text;not null"`
	Status        enums.OrderStatus         `gorm:"column:status;type:text;not null;index"`
	Items         types.JSONList[OrderItem] `gorm:"column:items;type:jsonb;not null"`
	Total         int64                     `gorm:"column:total;not null"`
	Notes         *string                   `gorm:"column:notes"`
	CreatedAt     int64                     `gorm:"column:created_at;not null;index;autoCreateTime:false"`
	UpdatedAt     int64                     `gorm:"column:updated_at;not null;autoUpdateTime:false"`
}

// FullAddress joins the street, ward, district and province parts that are set.
func (o Order) FullAddress() string {
	parts := []string{strings.TrimSpace(o.StreetAddress)}
	for _, p := range []*string{o.WardName, o.DistrictName, o.ProvinceName} {
		if v := types.TrimmedString(p); v != nil {
			parts = append(parts, *v)
		}
	}
	return strings.Join(parts, ", ")
}
