package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sonaskin/storefront-backend/internal/repo"
	"github.com/sonaskin/storefront-backend/pkg/db/models"
	"github.com/sonaskin/storefront-backend/pkg/pagination"
)

// Repository is the persistence surface of the order service.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.Order, int64, error)
	ListAll(ctx context.Context, filters ListFilters) ([]models.Order, error)
	Save(ctx context.Context, order *models.Order) error
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Base.WithTx(tx)}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.DB(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.DB(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.Order, int64, error) {
	q := filters.apply(r.DB(ctx).Model(&models.Order{}))
	return repo.Page[models.Order](q, params, "created_at DESC, id DESC")
}

func (r *repository) ListAll(ctx context.Context, filters ListFilters) ([]models.Order, error) {
	var rows []models.Order
	err := filters.apply(r.DB(ctx).Model(&models.Order{})).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

// Save writes every column of order back.
func (r *repository) Save(ctx context.Context, order *models.Order) error {
	return r.DB(ctx).Save(order).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.DB(ctx).Where("id = ?", id).Delete(&models.Order{})
	return res.RowsAffected, res.Error
}
