package categories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sonaskin/storefront-backend/internal/repo"
	"github.com/sonaskin/storefront-backend/pkg/db/models"
)

// Repository persists product categories.
type Repository interface {
	List(ctx context.Context) ([]models.Category, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	FindBySlug(ctx context.Context, slug string) (*models.Category, error)
	Create(ctx context.Context, category *models.Category) error
	Save(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
	SlugTaken(ctx context.Context, slug string, exclude uuid.UUID) (bool, error)
	CountProducts(ctx context.Context, id uuid.UUID) (int64, error)
}

type repository struct {
	repo.Base
}

// NewRepository binds a category repository to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) List(ctx context.Context) ([]models.Category, error) {
	rows := []models.Category{}
	err := r.DB(ctx).Order("sort_order ASC, name ASC").Find(&rows).Error
	return rows, err
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.DB(ctx).Where("id = ?", id).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *repository) FindBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var category models.Category
	if err := r.DB(ctx).Where("slug = ?", slug).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *repository) Create(ctx context.Context, category *models.Category) error {
	return r.DB(ctx).Create(category).Error
}

func (r *repository) Save(ctx context.Context, category *models.Category) error {
	return r.DB(ctx).Save(category).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.DB(ctx).Where("id = ?", id).Delete(&models.Category{})
	return res.RowsAffected, res.Error
}

func (r *repository) SlugTaken(ctx context.Context, slug string, exclude uuid.UUID) (bool, error) {
	return r.Base.SlugTaken(ctx, &models.Category{}, slug, exclude)
}

func (r *repository) CountProducts(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Product{}).Where("category_id = ?", id).Count(&count).Error
	return count, err
}
