package products

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sonaskin/storefront-backend/pkg/db"
	"github.com/sonaskin/storefront-backend/pkg/db/models"
	pkgerrors "github.com/sonaskin/storefront-backend/pkg/errors"
	"github.com/sonaskin/storefront-backend/pkg/logger"
	"github.com/sonaskin/storefront-backend/pkg/pagination"
	"github.com/sonaskin/storefront-backend/pkg/slugs"
	"github.com/sonaskin/storefront-backend/pkg/types"
)

// Service exposes catalog management and the public catalog reads.
type Service interface {
	ListProducts(ctx context.Context, filters ListFilters, params pagination.Params) (*ListResult, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	GetPublishedBySlug(ctx context.Context, slug string) (*ProductDTO, error)
	FindActiveByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo Repository
	logg *logger.Logger
	now  func() time.Time
}

// NewService constructs a product service instance.
func NewService(repo Repository, logg *logger.Logger, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, logg: logg, now: now}, nil
}

func (s *service) ListProducts(ctx context.Context, filters ListFilters, params pagination.Params) (*ListResult, error) {
	rows, total, err := s.repo.List(ctx, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	out := make([]ProductDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, NewProductDTO(row))
	}
	meta := pagination.NewMeta(params, total)
	return &ListResult{Products: out, Page: meta.Page, Limit: meta.Limit, Total: meta.Total, TotalPages: meta.TotalPages}, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, db.MapError(err, "product not found", "load product")
	}
	dto := NewProductDTO(*product)
	return &dto, nil
}

// GetPublishedBySlug hides inactive products from the storefront.
func (s *service) GetPublishedBySlug(ctx context.Context, slug string) (*ProductDTO, error) {
	product, err := s.repo.FindBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		return nil, db.MapError(err, "product not found", "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	dto := NewProductDTO(*product)
	return &dto, nil
}

// FindActiveByID loads a purchasable product for cart and checkout pricing.
func (s *service) FindActiveByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, db.MapError(err, "product not found", "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fieldError("name", "name is required")
	}
	if err := validatePrices(input.Price, input.CompareAtPrice); err != nil {
		return nil, err
	}
	categoryID, err := s.resolveCategory(ctx, input.CategoryID)
	if err != nil {
		return nil, err
	}
	slug, err := s.resolveSlug(ctx, input.Slug, name, uuid.Nil)
	if err != nil {
		return nil, err
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	stamp := s.now().Unix()
	product := &models.Product{
		ID:             uuid.New(),
		Name:           name,
		Slug:           slug,
		Tagline:        types.TrimmedString(input.Tagline),
		Description:    types.TrimmedString(input.Description),
		Price:          input.Price,
		CompareAtPrice: input.CompareAtPrice,
		Image:          types.TrimmedString(input.Image),
		CategoryID:     categoryID,
		Needs:          cleanList(input.Needs),
		Benefits:       cleanList(input.Benefits),
		Ingredients:    cleanList(input.Ingredients),
		Stock:          input.Stock,
		IsActive:       isActive,
		IsFeatured:     input.IsFeatured,
		CreatedAt:      stamp,
		UpdatedAt:      stamp,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, mapWriteError(err, slug)
	}
	s.logg.Info(s.logg.WithField(ctx, "product_id", product.ID.String()), "product created")
	dto := NewProductDTO(*product)
	return &dto, nil
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, db.MapError(err, "product not found", "load product")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, fieldError("name", "name is required")
		}
		product.Name = name
	}
	if input.Slug != nil {
		slug, err := s.resolveSlug(ctx, *input.Slug, product.Name, product.ID)
		if err != nil {
			return nil, err
		}
		product.Slug = slug
	}
	if input.CategoryID != nil {
		categoryID, err := s.resolveCategory(ctx, input.CategoryID)
		if err != nil {
			return nil, err
		}
		product.CategoryID = categoryID
	}
	if input.Tagline != nil {
		product.Tagline = types.TrimmedString(input.Tagline)
	}
	if input.Description != nil {
		product.Description = types.TrimmedString(input.Description)
	}
	if input.Image != nil {
		product.Image = types.TrimmedString(input.Image)
	}
	if input.Price != nil {
		product.Price = *input.Price
	}
	if input.CompareAtPrice != nil {
		product.CompareAtPrice = input.CompareAtPrice
		if *input.CompareAtPrice == 0 {
			product.CompareAtPrice = nil
		}
	}
	if err := validatePrices(product.Price, product.CompareAtPrice); err != nil {
		return nil, err
	}
	if input.Needs != nil {
		product.Needs = cleanList(*input.Needs)
	}
	if input.Benefits != nil {
		product.Benefits = cleanList(*input.Benefits)
	}
	if input.Ingredients != nil {
		product.Ingredients = cleanList(*input.Ingredients)
	}
	if input.Stock != nil {
		product.Stock = *input.Stock
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	if input.IsFeatured != nil {
		product.IsFeatured = *input.IsFeatured
	}
	product.UpdatedAt = s.now().Unix()

	if err := s.repo.Save(ctx, product); err != nil {
		return nil, mapWriteError(err, product.Slug)
	}
	s.logg.Info(s.logg.WithField(ctx, "product_id", product.ID.String()), "product updated")
	dto := NewProductDTO(*product)
	return &dto, nil
}

func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	s.logg.Info(s.logg.WithField(ctx, "product_id", id.String()), "product deleted")
	return nil
}

// resolveSlug normalises an explicit slug, or derives a free one from name when raw is blank.
func (s *service) resolveSlug(ctx context.Context, raw, name string, self uuid.UUID) (string, error) {
	if strings.TrimSpace(raw) == "" {
		slug, err := slugs.Unique(ctx, name, func(ctx context.Context, candidate string) (bool, error) {
			return s.repo.SlugTaken(ctx, candidate, self)
		})
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "cannot derive slug").
				WithDetails(map[string]string{"slug": "provide a slug or a name with letters or digits"})
		}
		return slug, nil
	}
	slug := slugs.Make(raw)
	if slug == "" {
		return "", fieldError("slug", "slug must contain letters or digits")
	}
	taken, err := s.repo.SlugTaken(ctx, slug, self)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check slug")
	}
	if taken {
		return "", pkgerrors.New(pkgerrors.CodeConflict, "slug already in use").
			WithDetails(map[string]string{"slug": slug})
	}
	return slug, nil
}

// resolveCategory parses and checks a category id. An empty string clears it.
func (s *service) resolveCategory(ctx context.Context, raw *string) (*uuid.UUID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*raw))
	if err != nil {
		return nil, fieldError("categoryId", "categoryId must be a valid UUID")
	}
	exists, err := s.repo.CategoryExists(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check category")
	}
	if !exists {
		return nil, fieldError("categoryId", "category does not exist")
	}
	return &id, nil
}

func validatePrices(price int64, compareAt *int64) error {
	if price < 0 {
		return fieldError("price", "price must be at least 0")
	}
	if compareAt != nil && *compareAt > 0 && *compareAt < price {
		return fieldError("compareAtPrice", "compareAtPrice must not be lower than price")
	}
	return nil
}

func mapWriteError(err error, slug string) error {
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "slug already in use").
			WithDetails(map[string]string{"slug": slug})
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save product")
}

func fieldError(field, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
		WithDetails(map[string]string{field: msg})
}

func cleanList(in types.JSONList[string]) types.JSONList[string] {
	out := types.JSONList[string]{}
	for _, v := range in {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}
