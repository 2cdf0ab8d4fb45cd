package models

import "github.com/google/uuid"

// Review is a customer rating for a product. Only approved reviews are public.
type Review struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID    uuid.UUID `gorm:"column:product_id;type:uuid;not null;index"`
	CustomerName string    `gorm:"column:customer_name;not null"`
	Rating       int       `gorm:"column:rating;not null"`
	Content      string    `gorm:"column:content;not null"`
	IsApproved   bool      `gorm:"column:is_approved;not null"`
	CreatedAt    int64     `gorm:"column:created_at;not null;autoCreateTime:false"`
	UpdatedAt    int64     `gorm:"column:updated_at;not null;autoUpdateTime:false"`
}
