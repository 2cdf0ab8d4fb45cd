package models

import (
	"github.com/google/uuid"

	"github.com/sonaskin/storefront-backend/pkg/types"
)

// Article is a blog post in the public content section.
type Article struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	Title       string                 `gorm:"column:title;not null"`
	Slug        string                 `gorm:"column:slug;not null;uniqueIndex"`
	Excerpt     *string                `gorm:"column:excerpt"`
	Content     string                 `gorm:"column:content;not null"`
	CoverImage  *string                `gorm:"column:cover_image"`
	Tags        types.JSONList[string] `gorm:"column:tags;type:jsonb;not null"`
	IsPublished bool                   `gorm:"column:is_published;not null"`
	PublishedAt *int64                 `gorm:"column:published_at"`
	AuthorID    *uuid.UUID             `gorm:"column:author_id;type:uuid"`
	CreatedAt   int64                  `gorm:"column:created_at;not null;autoCreateTime:false"`
	UpdatedAt   int64                  `gorm:"column:updated_at;not null;autoUpdateTime:false"`
}
