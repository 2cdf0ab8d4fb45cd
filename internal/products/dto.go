package products

import (
	"github.com/sonaskin/storefront-backend/pkg/db/models"
	"github.com/sonaskin/storefront-backend/pkg/types"
)

// ProductDTO is the API shape of a product.
type ProductDTO struct {
	ID             string                 `json:"id"`
	Name           string                 `json:"name"`
	Slug           string                 `json:"slug"`
	Tagline        *string                `json:"tagline,omitempty"`
	Description    *string                `json:"description,omitempty"`
	Price          int64                  `json:"price"`
	CompareAtPrice *int64                 `json:"compareAtPrice,omitempty"`
	Image          *string                `json:"image,omitempty"`
	CategoryID     *string                `json:"categoryId,omitempty"`
	Needs          types.JSONList[string] `json:"needs"`
	Benefits       types.JSONList[string] `json:"benefits"`
	Ingredients    types.JSONList[string] `json:"ingredients"`
	Stock          int                    `json:"stock"`
	IsActive       bool                   `json:"isActive"`
	IsFeatured     bool                   `json:"isFeatured"`
	CreatedAt      int64                  `json:"createdAt"`
	UpdatedAt      int64                  `json:"updatedAt"`
}

// ListResult is one page of products.
type ListResult struct {
	Products   []ProductDTO `json:"products"`
	Page       int          `json:"page"`
	Limit      int          `json:"limit"`
	Total      int64        `json:"total"`
	TotalPages int          `json:"totalPages"`
}

// CreateProductInput is the body of POST /api/admin/products. List fields accept
// either a JSON array or a string holding one.
type CreateProductInput struct {
	Name           string                 `json:"name" validate:"required,max=200"`
	Slug           string                 `json:"slug,omitempty" validate:"omitempty,max=220"`
	Tagline        *string                `json:"tagline,omitempty" validate:"omitempty,max=255"`
	Description    *string                `json:"description,omitempty"`
	Price          int64                  `json:"price" validate:"min=0"`
	CompareAtPrice *int64                 `json:"compareAtPrice,omitempty" validate:"omitempty,min=0"`
	Image          *string                `json:"image,omitempty" validate:"omitempty,max=500"`
	CategoryID     *string                `json:"categoryId,omitempty" validate:"omitempty,uuid"`
	Needs          types.JSONList[string] `json:"needs,omitempty"`
	Benefits       types.JSONList[string] `json:"benefits,omitempty"`
	Ingredients    types.JSONList[string] `json:"ingredients,omitempty"`
	Stock          int                    `json:"stock" validate:"min=0"`
	IsActive       *bool                  `json:"isActive,omitempty"`
	IsFeatured     bool                   `json:"isFeatured"`
}

// UpdateProductInput applies only the provided fields.
type UpdateProductInput struct {
	Name           *string                 `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Slug           *string                 `json:"slug,omitempty" validate:"omitempty,max=220"`
	Tagline        *string                 `json:"tagline,omitempty" validate:"omitempty,max=255"`
	Description    *string                 `json:"description,omitempty"`
	Price          *int64                  `json:"price,omitempty" validate:"omitempty,min=0"`
	CompareAtPrice *int64                  `json:"compareAtPrice,omitempty" validate:"omitempty,min=0"`
	Image          *string                 `json:"image,omitempty" validate:"omitempty,max=500"`
	CategoryID     *string                 `json:"categoryId,omitempty" validate:"omitempty,max=36"`
	Needs          *types.JSONList[string] `json:"needs,omitempty"`
	Benefits       *types.JSONList[string] `json:"benefits,omitempty"`
	Ingredients    *types.JSONList[string] `json:"ingredients,omitempty"`
	Stock          *int                    `json:"stock,omitempty" validate:"omitempty,min=0"`
	IsActive       *bool                   `json:"isActive,omitempty"`
	IsFeatured     *bool                   `json:"isFeatured,omitempty"`
}

// NewProductDTO converts a stored product.
func NewProductDTO(p models.Product) ProductDTO {
	var categoryID *string
	if p.CategoryID != nil {
		id := p.CategoryID.String()
		categoryID = &id
	}
	return ProductDTO{
		ID:             p.ID.String(),
		Name:           p.Name,
		Slug:           p.Slug,
		Tagline:        p.Tagline,
		Description:    p.Description,
		Price:          p.Price,
		CompareAtPrice: p.CompareAtPrice,
		Image:          p.Image,
		CategoryID:     categoryID,
		Needs:          nonNil(p.Needs),
		Benefits:       nonNil(p.Benefits),
		Ingredients:    nonNil(p.Ingredients),
		Stock:          p.Stock,
		IsActive:       p.IsActive,
		IsFeatured:     p.IsFeatured,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func nonNil(l types.JSONList[string]) types.JSONList[string] {
	if l == nil {
		return types.JSONList[string]{}
	}
	return l
}
