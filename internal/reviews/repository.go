package reviews

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sonaskin/storefront-backend/internal/repo"
	"github.com/sonaskin/storefront-backend/pkg/db/models"
	"github.com/sonaskin/storefront-backend/pkg/pagination"
)

// ListFilters narrows review listings.
type ListFilters struct {
	ProductID uuid.UUID
	Approved  *bool
}

// RatingStats aggregates approved ratings for one product.
type RatingStats struct {
	Count int64
	Sum   int64
}

// Repository persists reviews.
type Repository interface {
	List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.Review, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Review, error)
	Create(ctx context.Context, review *models.Review) error
	Save(ctx context.Context, review *models.Review) error
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
	ApprovedStats(ctx context.Context, productID uuid.UUID) (RatingStats, error)
	ProductExists(ctx context.Context, id uuid.UUID, activeOnly bool) (bool, error)
}

type repository struct {
	repo.Base
}

// NewRepository binds a review repository to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.Review, int64, error) {
	q := r.DB(ctx).Model(&models.Review{})
	if filters.ProductID != uuid.Nil {
		q = q.Where("product_id = ?", filters.ProductID)
	}
	if filters.Approved != nil {
		q = q.Where("is_approved = ?", *filters.Approved)
	}
	return repo.Page[models.Review](q, params, "created_at DESC, id DESC")
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var review models.Review
	if err := r.DB(ctx).Where("id = ?", id).First(&review).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *repository) Create(ctx context.Context, review *models.Review) error {
	return r.DB(ctx).Create(review).Error
}

func (r *repository) Save(ctx context.Context, review *models.Review) error {
	return r.DB(ctx).Save(review).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.DB(ctx).Where("id = ?", id).Delete(&models.Review{})
	return res.RowsAffected, res.Error
}

func (r *repository) ApprovedStats(ctx context.Context, productID uuid.UUID) (RatingStats, error) {
	var stats RatingStats
	err := r.DB(ctx).Model(&models.Review{}).
		Select("COUNT(*) AS count, COALESCE(SUM(rating), 0) AS sum").
		Where("product_id = ? AND is_approved = ?", productID, true).
		Scan(&stats).Error
	return stats, err
}

func (r *repository) ProductExists(ctx context.Context, id uuid.UUID, activeOnly bool) (bool, error) {
	q := r.DB(ctx).Model(&models.Product{}).Where("id = ?", id)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
