package users

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sonaskin/storefront-backend/internal/repo"
	"github.com/sonaskin/storefront-backend/pkg/db/models"
	"github.com/sonaskin/storefront-backend/pkg/enums"
	"github.com/sonaskin/storefront-backend/pkg/pagination"
)

// ListFilters narrows the admin user list.
type ListFilters struct {
	Search string
	Role   enums.UserRole
}

// Repository exposes user persistence operations.
type Repository interface {
	List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.User, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Save(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at int64) error
	CountAdmins(ctx context.Context) (int64, error)
}

type repository struct {
	repo.Base
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.User, int64, error) {
	q := r.DB(ctx).Model(&models.User{})
	if term := strings.TrimSpace(filters.Search); term != "" {
		pattern := repo.LikePattern(term)
		q = q.Where(`(LOWER(email) LIKE ? ESCAPE '\' OR LOWER(name) LIKE ? ESCAPE '\')`, pattern, pattern)
	}
	if filters.Role != "" {
		q = q.Where("role = ?", filters.Role)
	}
	return repo.Page[models.User](q, params, "created_at DESC, id DESC")
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail matches case-insensitively; emails are stored lowercased.
func (r *repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) Create(ctx context.Context, user *models.User) error {
	return r.DB(ctx).Create(user).Error
}

func (r *repository) Save(ctx context.Context, user *models.User) error {
	return r.DB(ctx).Save(user).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.DB(ctx).Where("id = ?", id).Delete(&models.User{})
	return res.RowsAffected, res.Error
}

func (r *repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at int64) error {
	return r.DB(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

func (r *repository) CountAdmins(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&models.User{}).
		Where("role = ? AND is_active = ?", enums.UserRoleAdmin, true).
		Count(&count).Error
	return count, err
}
