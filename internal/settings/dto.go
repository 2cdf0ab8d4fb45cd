package settings

import (
	"github.com/sonaskin/storefront-backend/pkg/db/models"
	"github.com/sonaskin/storefront-backend/pkg/enums"
)

// SettingDTO is the API shape of a setting.
type SettingDTO struct {
	ID          string            `json:"id"`
	Key         string            `json:"key"`
	Value       string            `json:"value"`
	Type        enums.SettingType `json:"type"`
	Description *string           `json:"description,omitempty"`
	Group       *string           `json:"group,omitempty"`
	IsPublic    bool              `json:"isPublic"`
	CreatedAt   int64             `json:"createdAt"`
	UpdatedAt   int64             `json:"updatedAt"`
}

// CreateSettingInput is the body of POST /api/admin/settings.
type CreateSettingInput struct {
	Key         string  `json:"key" validate:"required,max=100"`
	Value       string  `json:"value"`
	Type        string  `json:"type" validate:"required,oneof=string number boolean image"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
	Group       *string `json:"group,omitempty" validate:"omitempty,max=50"`
	IsPublic    bool    `json:"isPublic"`
}

// UpdateSettingInput is a partial update keyed by the path parameter.
type UpdateSettingInput struct {
	Value       *string `json:"value,omitempty"`
	Type        *string `json:"type,omitempty" validate:"omitempty,oneof=string number boolean image"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
	Group       *string `json:"group,omitempty" validate:"omitempty,max=50"`
	IsPublic    *bool   `json:"isPublic,omitempty"`
}

// ToDTO converts a stored setting.
func ToDTO(s models.Setting) SettingDTO {
	return SettingDTO{
		ID:          s.ID.String(),
		Key:         s.Key,
		Value:       s.Value,
		Type:        s.Type,
		Description: s.Description,
		Group:       s.Group,
		IsPublic:    s.IsPublic,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func toDTOs(rows []models.Setting) []SettingDTO {
	out := make([]SettingDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, ToDTO(row))
	}
	return out
}
