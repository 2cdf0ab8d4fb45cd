package models

import (
	"github.com/google/uuid"

	"github.com/sonaskin/storefront-backend/pkg/types"
)

// Product is a catalog listing.
type Product struct {
	ID             uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	Name           string                 `gorm:"column:name;not null"`
	Slug           string                 `gorm:"column:slug;not null;uniqueIndex"`
	Tagline        *string                `gorm:"column:tagline"`
	Description    *string                `gorm:"column:description"`
	Price          int64                  `gorm:"column:price;not null"`
	CompareAtPrice *int64                 `gorm:"column:compare_at_price"`
	Image          *string                `gorm:"column:image"`
	CategoryID     *uuid.UUID             `gorm:"column:category_id;type:uuid;index"`
	Needs          types.JSONList[string] `gorm:"column:needs;type:jsonb;not null"`
	Benefits       types.JSONList[string] `gorm:"column:benefits;type:jsonb;not null"`
	Ingredients    types.JSONList[string] `gorm:"column:ingredients;type:jsonb;not null"`
	Stock          int                    `gorm:"column:stock;not null"`
	IsActive       bool                   `gorm:"column:is_active;not null"`
	IsFeatured     bool                   `gorm:"column:is_featured;not null"`
	CreatedAt      int64                  `gorm:"column:created_at;not null;autoCreateTime:false"`
	UpdatedAt      int64                  `gorm:"column:updated_at;not null;autoUpdateTime:false"`
}
