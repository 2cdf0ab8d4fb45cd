package products

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sonaskin/storefront-backend/internal/repo"
	"github.com/sonaskin/storefront-backend/pkg/db/models"
	"github.com/sonaskin/storefront-backend/pkg/pagination"
)

// Repository persists catalog products.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindBySlug(ctx context.Context, slug string) (*models.Product, error)
	List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.Product, int64, error)
	Save(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
	SlugTaken(ctx context.Context, slug string, exclude uuid.UUID) (bool, error)
	CategoryExists(ctx context.Context, id uuid.UUID) (bool, error)
}

type repository struct {
	repo.Base
}

// NewRepository binds a product repository to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Base.WithTx(tx)}
}

func (r *repository) Create(ctx context.Context, product *models.Product) error {
	return r.DB(ctx).Create(product).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.DB(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	if err := r.DB(ctx).Where("slug = ?", slug).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.Product, int64, error) {
	q := filters.apply(r.DB(ctx).Model(&models.Product{}))
	return repo.Page[models.Product](q, params, filters.Sort.orderBy())
}

func (r *repository) Save(ctx context.Context, product *models.Product) error {
	return r.DB(ctx).Save(product).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.DB(ctx).Where("id = ?", id).Delete(&models.Product{})
	return res.RowsAffected, res.Error
}

func (r *repository) SlugTaken(ctx context.Context, slug string, exclude uuid.UUID) (bool, error) {
	return r.Base.SlugTaken(ctx, &models.Product{}, slug, exclude)
}

func (r *repository) CategoryExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.DB(ctx).Model(&models.Category{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
