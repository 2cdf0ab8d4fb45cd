package settings

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sonaskin/storefront-backend/internal/repo"
	"github.com/sonaskin/storefront-backend/pkg/db/models"
)

// ListQuery narrows a settings listing.
type ListQuery struct {
	Group      string
	PublicOnly bool
}

// Repository persists settings rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	List(ctx context.Context, q ListQuery) ([]models.Setting, error)
	FindByKey(ctx context.Context, key string) (*models.Setting, error)
	Create(ctx context.Context, setting *models.Setting) error
	Save(ctx context.Context, setting *models.Setting) error
	DeleteByKey(ctx context.Context, key string) (int64, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds a settings repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Base.WithTx(tx)}
}

func (r *repository) List(ctx context.Context, q ListQuery) ([]models.Setting, error) {
	query := r.DB(ctx).Model(&models.Setting{})
	if q.Group != "" {
		// "group" is reserved in SQL, so the column goes through clause quoting.
		query = query.Where(clause.Eq{Column: clause.Column{Name: "group"}, Value: q.Group})
	}
	if q.PublicOnly {
		query = query.Where("is_public = ?", true)
	}
	rows := []models.Setting{}
	if err := query.Order("key ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) FindByKey(ctx context.Context, key string) (*models.Setting, error) {
	var setting models.Setting
	if err := r.DB(ctx).Where("key = ?", key).First(&setting).Error; err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *repository) Create(ctx context.Context, setting *models.Setting) error {
	return r.DB(ctx).Create(setting).Error
}

func (r *repository) Save(ctx context.Context, setting *models.Setting) error {
	return r.DB(ctx).Save(setting).Error
}

func (r *repository) DeleteByKey(ctx context.Context, key string) (int64, error) {
	res := r.DB(ctx).Where("key = ?", key).Delete(&models.Setting{})
	return res.RowsAffected, res.Error
}
