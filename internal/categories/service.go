package categories

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
	"github.com/sonaskin/storefront-backend/pkg/slugs"
	"github.com/sonaskin/storefront-backend/pkg/types"
)

// CategoryDTO is the API shape of a category.
type CategoryDTO struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description *string `json:"description,omitempty"`
	Image       *string `json:"image,omitempty"`
	SortOrder   int     `json:"sortOrder"`
	CreatedAt   int64   `json:"createdAt"`
	UpdatedAt   int64   `json:"updatedAt"`
}

// CreateCategoryInput is the body of POST /api/admin/categories.
type CreateCategoryInput struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Slug        string  `json:"slug,omitempty" validate:"omitempty,max=140"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
	Image       *string `json:"image,omitempty" validate:"omitempty,max=500"`
	SortOrder   int     `json:"sortOrder"`
}

// UpdateCategoryInput applies only the provided fields.
type UpdateCategoryInput struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Slug        *string `json:"slug,omitempty" validate:"omitempty,max=140"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
	Image       *string `json:"image,omitempty" validate:"omitempty,max=500"`
	SortOrder   *int    `json:"sortOrder,omitempty"`
}

// Service manages product categories.
type Service interface {
	List(ctx context.Context) ([]CategoryDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*CategoryDTO, error)
	GetBySlug(ctx context.Context, slug string) (*CategoryDTO, error)
	Create(ctx context.Context, input CreateCategoryInput) (*CategoryDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateCategoryInput) (*CategoryDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo Repository
	logg *logger.Logger
	now  func() time.Time
}

// NewService builds the category service.
func NewService(repo Repository, logg *logger.Logger, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("category repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, logg: logg, now: now}, nil
}

func toDTO(c models.Category) CategoryDTO {
	return CategoryDTO{
		ID:          c.ID.String(),
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		Image:       c.Image,
		SortOrder:   c.SortOrder,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func (s *service) List(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDTO(row))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*CategoryDTO, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, db.MapError(err, "category not found", "load category")
	}
	dto := toDTO(*row)
	return &dto, nil
}

func (s *service) GetBySlug(ctx context.Context, slug string) (*CategoryDTO, error) {
	row, err := s.repo.FindBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		return nil, db.MapError(err, "category not found", "load category")
	}
	dto := toDTO(*row)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, input CreateCategoryInput) (*CategoryDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
			WithDetails(map[string]string{"name": "name is required"})
	}
	slug, err := s.resolveSlug(ctx, input.Slug, name, uuid.Nil)
	if err != nil {
		return nil, err
	}
	stamp := s.now().Unix()
	row := &models.Category{
		ID:          uuid.New(),
		Name:        name,
		Slug:        slug,
		Description: types.TrimmedString(input.Description),
		Image:       types.TrimmedString(input.Image),
		SortOrder:   input.SortOrder,
		CreatedAt:   stamp,
		UpdatedAt:   stamp,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, db.MapError(err, "category not found", "create category")
	}
	s.logg.Info(s.logg.WithField(ctx, "category_id", row.ID.String()), "category created")
	dto := toDTO(*row)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateCategoryInput) (*CategoryDTO, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, db.MapError(err, "category not found", "load category")
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
				WithDetails(map[string]string{"name": "name is required"})
		}
		row.Name = name
	}
	if input.Slug != nil {
		slug, err := s.resolveSlug(ctx, *input.Slug, row.Name, row.ID)
		if err != nil {
			return nil, err
		}
		row.Slug = slug
	}
	if input.Description != nil {
		row.Description = types.TrimmedString(input.Description)
	}
	if input.Image != nil {
		row.Image = types.TrimmedString(input.Image)
	}
	if input.SortOrder != nil {
		row.SortOrder = *input.SortOrder
	}
	row.UpdatedAt = s.now().Unix()
	if err := s.repo.Save(ctx, row); err != nil {
		return nil, db.MapError(err, "category not found", "update category")
	}
	dto := toDTO(*row)
	return &dto, nil
}

// Delete refuses to remove a category that still has products.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	count, err := s.repo.CountProducts(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count category products")
	}
	if count > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "category still has products").
			WithDetails(map[string]int64{"products": count})
	}
	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete category")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
	}
	s.logg.Info(s.logg.WithField(ctx, "category_id", id.String()), "category deleted")
	return nil
}

func (s *service) resolveSlug(ctx context.Context, raw, name string, self uuid.UUID) (string, error) {
	exists := func(ctx context.Context, candidate string) (bool, error) {
		return s.repo.SlugTaken(ctx, candidate, self)
	}
	if strings.TrimSpace(raw) == "" {
		slug, err := slugs.Unique(ctx, name, exists)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "cannot derive slug")
		}
		return slug, nil
	}
	slug := slugs.Make(raw)
	if slug == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
			WithDetails(map[string]string{"slug": "slug must contain letters or digits"})
	}
	taken, err := exists(ctx, slug)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check slug")
	}
	if taken {
		return "", pkgerrors.New(pkgerrors.CodeConflict, "slug already in use").
			WithDetails(map[string]string{"slug": slug})
	}
	return slug, nil
}
