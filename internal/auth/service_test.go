package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgAuth "github.com/sonaskin/storefront-backend/pkg/auth"
	"github.com/sonaskin/storefront-backend/pkg/config"
	"github.com/sonaskin/storefront-backend/pkg/db/models"
	"github.com/sonaskin/storefront-backend/pkg/enums"
	pkgerrors "github.com/sonaskin/storefront-backend/pkg/errors"
	"github.com/sonaskin/storefront-backend/pkg/logger"
	"github.com/sonaskin/storefront-backend/pkg/security"
)

var testJWT = config.JWTConfig{
	Secret:            "secret",
	Issuer:            "storefront",
	ExpirationMinutes: 30,
}

func TestServiceLoginIssuesSession(t *testing.T) {
	password := "matkhau-an-toan"
	user := &models.User{
		ID:           uuid.New(),
		Email:        "admin@sonaskin.vn",
		Name:         "Quản trị",
		PasswordHash: mustHashPassword(t, password),
		Role:         enums.UserRoleAdmin,
		IsActive:     true,
	}
	now := time.Now().UTC().Truncate(time.Second)
	svc, sessions := buildTestService(t, user, now)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: " ADMIN@sonaskin.vn ", Password: password})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.Token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Role != enums.UserRoleAdmin {
		t.Fatalf("expected admin role claim, got %s", claims.Role)
	}
	if owner, ok := sessions.active[claims.ID]; !ok || owner != user.ID {
		t.Fatalf("expected session for jti %s", claims.ID)
	}
	if resp.ExpiresAt != now.Add(30*time.Minute).Unix() {
		t.Fatalf("unexpected expiry %d", resp.ExpiresAt)
	}
	if resp.User == nil || resp.User.LastLoginAt == nil || *resp.User.LastLoginAt != now.Unix() {
		t.Fatalf("expected last login to be recorded")
	}

	if err := svc.Logout(context.Background(), claims.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, ok := sessions.active[claims.ID]; ok {
		t.Fatalf("expected session to be revoked")
	}
}

func TestServiceLoginRejectsBadPassword(t *testing.T) {
	user := &models.User{
		ID:           uuid.New(),
		Email:        "admin@sonaskin.vn",
		PasswordHash: mustHashPassword(t, "correct-horse"),
		Role:         enums.UserRoleAdmin,
		IsActive:     true,
	}
	svc, sessions := buildTestService(t, user, time.Now())

	_, err := svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "wrong-horse"})
	assertCode(t, err, pkgerrors.CodeUnauthorized)
	if len(sessions.active) != 0 {
		t.Fatalf("expected no session on failed login")
	}

	_, err = svc.Login(context.Background(), LoginRequest{Email: "nobody@sonaskin.vn", Password: "correct-horse"})
	assertCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestServiceLoginRejectsInactiveUser(t *testing.T) {
	user := &models.User{
		ID:           uuid.New(),
		Email:        "old@sonaskin.vn",
		PasswordHash: mustHashPassword(t, "correct-horse"),
		Role:         enums.UserRoleEditor,
		IsActive:     false,
	}
	svc, _ := buildTestService(t, user, time.Now())

	_, err := svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "correct-horse"})
	assertCode(t, err, pkgerrors.CodeUnauthorized)

	_, err = svc.Me(context.Background(), user.ID)
	assertCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestServiceMe(t *testing.T) {
	user := &models.User{ID: uuid.New(), Email: "e@sonaskin.vn", Name: "E", Role: enums.UserRoleEditor, IsActive: true}
	svc, _ := buildTestService(t, user, time.Now())

	me, err := svc.Me(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if me.Email != user.Email {
		t.Fatalf("unexpected user %s", me.Email)
	}

	_, err = svc.Me(context.Background(), uuid.New())
	assertCode(t, err, pkgerrors.CodeUnauthorized)
}

func buildTestService(t *testing.T, user *models.User, now time.Time) (Service, *stubSessionManager) {
	t.Helper()
	sessions := &stubSessionManager{active: map[string]uuid.UUID{}}
	svc, err := NewService(ServiceParams{
		UserRepo:       &stubUserRepo{user: user},
		SessionManager: sessions,
		JWTConfig:      testJWT,
		Logger:         logger.Nop(),
		Now:            func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, sessions
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != code {
		t.Fatalf("expected %s error, got %v", code, err)
	}
}

func mustHashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

type stubUserRepo struct {
	user *models.User
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func (s *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func (s *stubUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at int64) error {
	if s.user != nil && s.user.ID == id {
		s.user.LastLoginAt = &at
	}
	return nil
}

type stubSessionManager struct {
	active map[string]uuid.UUID
}

func (s *stubSessionManager) Create(ctx context.Context, accessID string, userID uuid.UUID) error {
	s.active[accessID] = userID
	return nil
}

func (s *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	delete(s.active, accessID)
	return nil
}
