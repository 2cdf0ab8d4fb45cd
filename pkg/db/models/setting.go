package models

import (
	"github.com/google/uuid"

	"github.com/sonaskin/storefront-backend/pkg/enums"
)

// Setting is a typed key/value entry used by the public site and the back office.
type Setting struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	Key         string            `gorm:"column:key;not null;uniqueIndex"`
	Value       string            `gorm:"column:value;not null"`
	Type        enums.SettingType `gorm:"column:type;type:text;not null"`
	Description *string           `gorm:"column:description"`
	Group       *string           `gorm:"column:group;index"`
	IsPublic    bool              `gorm:"column:is_public;not null"`
	CreatedAt   int64             `gorm:"column:created_at;not null;autoCreateTime:false"`
	UpdatedAt   int64             `gorm:"column:updated_at;not null;autoUpdateTime:false"`
}
