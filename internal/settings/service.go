package settings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sonaskin/storefront-backend/pkg/db"
	"github.com/sonaskin/storefront-backend/pkg/db/models"
	"github.com/sonaskin/storefront-backend/pkg/enums"
	pkgerrors "github.com/sonaskin/storefront-backend/pkg/errors"
	"github.com/sonaskin/storefront-backend/pkg/logger"
)

// Service manages typed settings for the back office and serves the public subset.
type Service interface {
	List(ctx context.Context, group string) ([]SettingDTO, error)
	ListPublic(ctx context.Context, group string) ([]SettingDTO, error)
	Get(ctx context.Context, key string) (*SettingDTO, error)
	Create(ctx context.Context, input CreateSettingInput) (*SettingDTO, error)
	Update(ctx context.Context, key string, input UpdateSettingInput) (*SettingDTO, error)
	Delete(ctx context.Context, key string) error
	Contact(ctx context.Context) (ContactInfo, error)
	RefreshContact(ctx context.Context) (ContactInfo, error)
}

// ServiceParams wires the settings service.
type ServiceParams struct {
	Repository Repository
	Logger     *logger.Logger
	// CacheTTL bounds how long public reads are served from memory.
	CacheTTL time.Duration
	// ContactStore and ContactKey enable the long-lived contact cache; nil reads through.
	ContactStore kvStore
	ContactKey   string
	ContactTTL   time.Duration
	Now          func() time.Time
}

type service struct {
	repo    Repository
	logg    *logger.Logger
	cache   *Cache
	contact *ContactCache
	now     func() time.Time
}

// NewService builds the settings service with its public cache.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("settings repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	s := &service{repo: params.Repository, logg: params.Logger, now: now}
	s.cache = NewCache(s.fetchPublic, params.CacheTTL, now)

	if params.ContactStore != nil {
		contact, err := NewContactCache(ContactCacheParams{
			Store:  params.ContactStore,
			Key:    params.ContactKey,
			TTL:    params.ContactTTL,
			Fetch:  s.fetchContact,
			Now:    now,
			Logger: params.Logger,
		})
		if err != nil {
			return nil, err
		}
		s.contact = contact
	}
	return s, nil
}

func (s *service) fetchPublic(ctx context.Context) ([]SettingDTO, error) {
	rows, err := s.repo.List(ctx, ListQuery{PublicOnly: true})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load settings")
	}
	return toDTOs(rows), nil
}

func (s *service) fetchContact(ctx context.Context) (ContactInfo, error) {
	items, err := s.cache.Fetch(ctx, ContactGroup)
	if err != nil {
		return ContactInfo{}, err
	}
	return ContactFromSettings(items), nil
}

func (s *service) List(ctx context.Context, group string) ([]SettingDTO, error) {
	rows, err := s.repo.List(ctx, ListQuery{Group: strings.TrimSpace(group)})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to list settings")
	}
	return toDTOs(rows), nil
}

func (s *service) ListPublic(ctx context.Context, group string) ([]SettingDTO, error) {
	return s.cache.Fetch(ctx, strings.TrimSpace(group))
}

func (s *service) Contact(ctx context.Context) (ContactInfo, error) {
	if s.contact == nil {
		return s.fetchContact(ctx)
	}
	return s.contact.Get(ctx)
}

// RefreshContact rebuilds the stored contact snapshot from the database.
func (s *service) RefreshContact(ctx context.Context) (ContactInfo, error) {
	s.cache.Invalidate()
	if s.contact == nil {
		return s.fetchContact(ctx)
	}
	return s.contact.Refresh(ctx)
}

func (s *service) Get(ctx context.Context, key string) (*SettingDTO, error) {
	row, err := s.repo.FindByKey(ctx, strings.TrimSpace(key))
	if err != nil {
		return nil, db.MapError(err, "setting not found", "failed to load setting")
	}
	dto := ToDTO(*row)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, input CreateSettingInput) (*SettingDTO, error) {
	key := strings.TrimSpace(input.Key)
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
			WithDetails(map[string]string{"key": "key is required"})
	}
	typ, err := enums.ParseSettingType(strings.TrimSpace(input.Type))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
			WithDetails(map[string]string{"type": err.Error()})
	}
	if err := ValidateValue(typ, input.Value); err != nil {
		return nil, invalidValue(err)
	}

	stamp := s.now().Unix()
	row := &models.Setting{
		ID:          uuid.New(),
		Key:         key,
		Value:       input.Value,
		Type:        typ,
		Description: input.Description,
		Group:       trimmedPtr(input.Group),
		IsPublic:    input.IsPublic,
		CreatedAt:   stamp,
		UpdatedAt:   stamp,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "setting key already exists").
				WithDetails(map[string]string{"key": key})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to create setting")
	}
	s.cache.Invalidate()
	s.logg.Info(s.logg.WithField(ctx, "setting_key", key), "setting created")
	dto := ToDTO(*row)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, key string, input UpdateSettingInput) (*SettingDTO, error) {
	row, err := s.repo.FindByKey(ctx, strings.TrimSpace(key))
	if err != nil {
		return nil, db.MapError(err, "setting not found", "failed to load setting")
	}

	if input.Type != nil {
		typ, err := enums.ParseSettingType(strings.TrimSpace(*input.Type))
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
				WithDetails(map[string]string{"type": err.Error()})
		}
		row.Type = typ
	}
	if input.Value != nil {
		row.Value = *input.Value
	}
	if input.Type != nil || input.Value != nil {
		if err := ValidateValue(row.Type, row.Value); err != nil {
			return nil, invalidValue(err)
		}
	}
	if input.Description != nil {
		row.Description = trimmedPtr(input.Description)
	}
	if input.Group != nil {
		row.Group = trimmedPtr(input.Group)
	}
	if input.IsPublic != nil {
		row.IsPublic = *input.IsPublic
	}
	row.UpdatedAt = s.now().Unix()

	if err := s.repo.Save(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to update setting")
	}
	s.cache.Invalidate()
	s.logg.Info(s.logg.WithField(ctx, "setting_key", row.Key), "setting updated")
	dto := ToDTO(*row)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, key string) error {
	affected, err := s.repo.DeleteByKey(ctx, strings.TrimSpace(key))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to delete setting")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "setting not found")
	}
	s.cache.Invalidate()
	s.logg.Info(s.logg.WithField(ctx, "setting_key", key), "setting deleted")
	return nil
}

func invalidValue(err error) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid setting value").
		WithDetails(map[string]string{"value": err.Error()})
}

func trimmedPtr(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
