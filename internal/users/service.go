package users

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sonaskin/storefront-backend/pkg/config"
	"github.com/sonaskin/storefront-backend/pkg/db"
	"github.com/sonaskin/storefront-backend/pkg/db/models"
	"github.com/sonaskin/storefront-backend/pkg/enums"
	pkgerrors "github.com/sonaskin/storefront-backend/pkg/errors"
	"github.com/sonaskin/storefront-backend/pkg/logger"
	"github.com/sonaskin/storefront-backend/pkg/pagination"
	"github.com/sonaskin/storefront-backend/pkg/security"
)

// Service manages back-office accounts.
type Service interface {
	List(ctx context.Context, filters ListFilters, params pagination.Params) (*ListResult, error)
	Get(ctx context.Context, id uuid.UUID) (*UserDTO, error)
	Create(ctx context.Context, actor Actor, input CreateUserInput) (*UserDTO, error)
	Update(ctx context.Context, actor Actor, id uuid.UUID, input UpdateUserInput) (*UserDTO, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
}

// ServiceParams bundles the dependencies of the user service.
type ServiceParams struct {
	Repository Repository
	Password   config.PasswordConfig
	Logger     *logger.Logger
	Now        func() time.Time
}

type service struct {
	repo     Repository
	password config.PasswordConfig
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the user service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     params.Repository,
		password: params.Password,
		logg:     params.Logger,
		now:      now,
	}, nil
}

func (s *service) List(ctx context.Context, filters ListFilters, params pagination.Params) (*ListResult, error) {
	params = params.Normalize()
	rows, total, err := s.repo.List(ctx, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	out := make([]UserDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	meta := pagination.NewMeta(params, total)
	return &ListResult{
		Users:      out,
		Page:       meta.Page,
		Limit:      meta.Limit,
		Total:      meta.Total,
		TotalPages: meta.TotalPages,
	}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, db.MapError(err, "user not found", "load user")
	}
	return FromModel(user), nil
}

// Create is reserved for admins.
func (s *service) Create(ctx context.Context, actor Actor, input CreateUserInput) (*UserDTO, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can create users")
	}
	email := normalizeEmail(input.Email)
	name := strings.TrimSpace(input.Name)
	details := map[string]string{}
	if email == "" {
		details["email"] = "email is required"
	}
	if name == "" {
		details["name"] = "name is required"
	}
	if err := security.CheckPasswordPolicy(input.Password); err != nil {
		details["password"] = err.Error()
	}
	role := enums.UserRoleEditor
	if strings.TrimSpace(input.Role) != "" {
		parsed, err := enums.ParseUserRole(strings.TrimSpace(input.Role))
		if err != nil {
			details["role"] = err.Error()
		}
		role = parsed
	}
	if len(details) > 0 {
		return nil, pkgerrors.Invalid(details)
	}

	hash, err := security.HashPassword(input.Password, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}
	stamp := s.now().Unix()
	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         role,
		IsActive:     active,
		CreatedAt:    stamp,
		UpdatedAt:    stamp,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, emailConflict(err, "create user")
	}
	ctx = s.logg.WithField(ctx, "created_user_id", user.ID.String())
	s.logg.Info(ctx, "user created")
	return FromModel(user), nil
}

// Update lets editors change their own profile; role and activation changes need an admin.
func (s *service) Update(ctx context.Context, actor Actor, id uuid.UUID, input UpdateUserInput) (*UserDTO, error) {
	self := actor.ID == id
	if !actor.IsAdmin() && !self {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "editors can only update their own account")
	}
	if !actor.IsAdmin() && (input.Role != nil || input.IsActive != nil) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can change roles or activation")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, db.MapError(err, "user not found", "load user")
	}

	details := map[string]string{}
	if input.Email != nil {
		if email := normalizeEmail(*input.Email); email == "" {
			details["email"] = "email is required"
		} else {
			user.Email = email
		}
	}
	if input.Name != nil {
		if name := strings.TrimSpace(*input.Name); name == "" {
			details["name"] = "name is required"
		} else {
			user.Name = name
		}
	}
	if input.Password != nil {
		if err := security.CheckPasswordPolicy(*input.Password); err != nil {
			details["password"] = err.Error()
		} else {
			hash, err := security.HashPassword(*input.Password, s.password)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
			}
			user.PasswordHash = hash
		}
	}
	demoting := false
	if input.Role != nil {
		role, err := enums.ParseUserRole(strings.TrimSpace(*input.Role))
		if err != nil {
			details["role"] = err.Error()
		} else {
			demoting = user.Role == enums.UserRoleAdmin && role != enums.UserRoleAdmin
			user.Role = role
		}
	}
	if input.IsActive != nil {
		if self && !*input.IsActive {
			details["isActive"] = "you cannot deactivate your own account"
		}
		if user.Role == enums.UserRoleAdmin && user.IsActive && !*input.IsActive {
			demoting = true
		}
		user.IsActive = *input.IsActive
	}
	if len(details) > 0 {
		return nil, pkgerrors.Invalid(details)
	}
	if demoting {
		if err := s.ensureAnotherAdmin(ctx); err != nil {
			return nil, err
		}
	}

	user.UpdatedAt = s.now().Unix()
	if err := s.repo.Save(ctx, user); err != nil {
		return nil, emailConflict(err, "update user")
	}
	return FromModel(user), nil
}

// Delete is reserved for admins, who cannot remove their own account.
func (s *service) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if !actor.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only admins can delete users")
	}
	if actor.ID == id {
		return pkgerrors.New(pkgerrors.CodeForbidden, "you cannot delete your own account")
	}
	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete user")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	s.logg.Info(s.logg.WithField(ctx, "deleted_user_id", id.String()), "user deleted")
	return nil
}

func (s *service) ensureAnotherAdmin(ctx context.Context) error {
	count, err := s.repo.CountAdmins(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count admins")
	}
	if count <= 1 {
		return pkgerrors.New(pkgerrors.CodeConflict, "at least one active admin is required")
	}
	return nil
}

func emailConflict(err error, failMsg string) error {
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "email already in use").
			WithDetails(map[string]string{"email": "email already in use"})
	}
	return db.MapError(err, "user not found", failMsg)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
