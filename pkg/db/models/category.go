package models

import "github.com/google/uuid"

// Category groups products on the storefront.
type Category struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	Slug        string    `gorm:"column:slug;not null;uniqueIndex"`
	Description *string   `gorm:"column:description"`
	Image       *string   `gorm:"column:image"`
	SortOrder   int       `gorm:"column:sort_order;not null"`
	CreatedAt   int64     `gorm:"column:created_at;not null;autoCreateTime:false"`
	UpdatedAt   int64     `gorm:"column:updated_at;not null;autoUpdateTime:false"`
}
