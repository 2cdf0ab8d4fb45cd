package models

import (
	"github.com/google/uuid"

	"github.com/sonaskin/storefront-backend/pkg/enums"
)

// User is a back-office account.
type User struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Email        string         `gorm:"column:email;type:text;not null;uniqueIndex"`
	Name         string         `gorm:"column:name;not null"`
	PasswordHash string         `gorm:"column:password_hash;not null"`
	Role         enums.UserRole `gorm:"column:role;type:text;not null"`
	IsActive     bool           `gorm:"column:is_active;not null"`
	LastLoginAt  *int64         `gorm:"column:last_login_at"`
	CreatedAt    int64          `gorm:"column:created_at;not null;autoCreateTime:false"`
	UpdatedAt    int64          `gorm:"column:updated_at;not null;autoUpdateTime:false"`
}
