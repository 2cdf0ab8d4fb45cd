package articles

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sonaskin/storefront-backend/internal/repo"
	"github.com/sonaskin/storefront-backend/pkg/db/models"
	"github.com/sonaskin/storefront-backend/pkg/pagination"
)

// ListFilters narrows article listings.
type ListFilters struct {
	Search string
	Tag    string
	// PublishedBefore, when set, keeps only published articles whose publishedAt is not after it.
	PublishedBefore int64
}

// Repository persists articles.
type Repository interface {
	List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.Article, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Article, error)
	FindBySlug(ctx context.Context, slug string) (*models.Article, error)
	Create(ctx context.Context, article *models.Article) error
	Save(ctx context.Context, article *models.Article) error
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
	SlugTaken(ctx context.Context, slug string, exclude uuid.UUID) (bool, error)
}

type repository struct {
	repo.Base
}

// NewRepository binds an article repository to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.Article, int64, error) {
	q := r.DB(ctx).Model(&models.Article{})
	order := "created_at DESC, id DESC"
	if filters.PublishedBefore > 0 {
		q = q.Where("is_published = ? AND published_at IS NOT NULL AND published_at <= ?", true, filters.PublishedBefore)
		order = "published_at DESC, id DESC"
	}
	if term := strings.TrimSpace(filters.Search); term != "" {
		pattern := repo.LikePattern(term)
		q = q.Where(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(slug) LIKE ? ESCAPE '\')`, pattern, pattern)
	}
	if tag := strings.TrimSpace(filters.Tag); tag != "" {
		q = q.Where(`LOWER(CAST(tags AS TEXT)) LIKE ? ESCAPE '\'`, repo.LikePattern(`"`+tag+`"`))
	}
	return repo.Page[models.Article](q, params, order)
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Article, error) {
	var article models.Article
	if err := r.DB(ctx).Where("id = ?", id).First(&article).Error; err != nil {
		return nil, err
	}
	return &article, nil
}

func (r *repository) FindBySlug(ctx context.Context, slug string) (*models.Article, error) {
	var article models.Article
	if err := r.DB(ctx).Where("slug = ?", slug).First(&article).Error; err != nil {
		return nil, err
	}
	return &article, nil
}

func (r *repository) Create(ctx context.Context, article *models.Article) error {
	return r.DB(ctx).Create(article).Error
}

func (r *repository) Save(ctx context.Context, article *models.Article) error {
	return r.DB(ctx).Save(article).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.DB(ctx).Where("id = ?", id).Delete(&models.Article{})
	return res.RowsAffected, res.Error
}

func (r *repository) SlugTaken(ctx context.Context, slug string, exclude uuid.UUID) (bool, error) {
	return r.Base.SlugTaken(ctx, &models.Article{}, slug, exclude)
}
