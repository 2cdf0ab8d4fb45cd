package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonaskin/storefront-backend/api/middleware"
	"github.com/sonaskin/storefront-backend/internal/cart"
	"github.com/sonaskin/storefront-backend/internal/products"
	pkgAuth "github.com/sonaskin/storefront-backend/pkg/auth"
	"github.com/sonaskin/storefront-backend/pkg/config"
	"github.com/sonaskin/storefront-backend/pkg/db/models"
	"github.com/sonaskin/storefront-backend/pkg/enums"
	pkgerrors "github.com/sonaskin/storefront-backend/pkg/errors"
	"github.com/sonaskin/storefront-backend/pkg/logger"
	"github.com/sonaskin/storefront-backend/pkg/metrics"
)

type stubSessions struct{}

func (stubSessions) HasSession(context.Context, string) (bool, error) {
	return true, nil
}

type stubAccounts struct {
	users map[uuid.UUID]*models.User
}

func (s stubAccounts) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
}

type stubProducts struct {
	products.Service
	deleted []uuid.UUID
}

func (s *stubProducts) DeleteProduct(_ context.Context, id uuid.UUID) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type stubCart struct {
	cart.Service
}

func (stubCart) Get(context.Context, string) (*cart.View, error) {
	return &cart.View{Items: []cart.Item{}}, nil
}

type testEnv struct {
	handler  http.Handler
	products *stubProducts
	cfg      *config.Config
	admin    uuid.UUID
	editor   uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := &config.Config{
		App: config.AppConfig{Env: "dev", Timezone: "Asia/Ho_Chi_Minh"},
		JWT: config.JWTConfig{
			Secret:            "router-secret",
			Issuer:            "storefront-test",
			ExpirationMinutes: 30,
			CookieName:        "admin_session",
		},
		Cache: config.CacheConfig{CartTTL: time.Hour},
	}
	admin, editor := uuid.New(), uuid.New()
	accounts := stubAccounts{users: map[uuid.UUID]*models.User{
		admin:  {ID: admin, Role: enums.UserRoleAdmin, IsActive: true},
		editor: {ID: editor, Role: enums.UserRoleEditor, IsActive: true},
	}}
	reg := prometheus.NewRegistry()
	prods := &stubProducts{}

	handler := NewRouter(Dependencies{
		Config:      cfg,
		Logger:      logger.Nop(),
		Sessions:    stubSessions{},
		Accounts:    accounts,
		Products:    prods,
		Cart:        stubCart{},
		HTTPMetrics: metrics.NewHTTPMetrics(reg),
		Gatherer:    reg,
	})
	return &testEnv{handler: handler, products: prods, cfg: cfg, admin: admin, editor: editor}
}

func (e *testEnv) bearer(t *testing.T, userID uuid.UUID, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(e.cfg.JWT, time.Now().UTC(), pkgAuth.AccessTokenPayload{UserID: userID, Role: role})
	require.NoError(t, err)
	return "Bearer " + token
}

func TestHealthLive(t *testing.T) {
	env := newTestEnv(t)
	resp := httptest.NewRecorder()
	env.handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestAdminRoutesRequireSession(t *testing.T) {
	env := newTestEnv(t)
	resp := httptest.NewRecorder()
	env.handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestEditorCannotDeleteProducts(t *testing.T) {
	env := newTestEnv(t)
	target := uuid.New()

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/products/"+target.String(), nil)
	req.Header.Set("Authorization", env.bearer(t, env.editor, enums.UserRoleEditor))
	resp := httptest.NewRecorder()
	env.handler.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Empty(t, env.products.deleted)

	req = httptest.NewRequest(http.MethodDelete, "/api/admin/products/"+target.String(), nil)
	req.Header.Set("Authorization", env.bearer(t, env.admin, enums.UserRoleAdmin))
	resp = httptest.NewRecorder()
	env.handler.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, []uuid.UUID{target}, env.products.deleted)
}

func TestCartIssuesCookie(t *testing.T) {
	env := newTestEnv(t)
	resp := httptest.NewRecorder()
	env.handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/cart", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	var found bool
	for _, c := range resp.Result().Cookies() {
		if c.Name == middleware.CartCookieName && c.Value != "" {
			found = true
		}
	}
	assert.True(t, found, "expected cart cookie")
}

func TestMetricsEndpointExposesHTTPCounters(t *testing.T) {
	env := newTestEnv(t)
	env.handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))

	resp := httptest.NewRecorder()
	env.handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "/health/live")
}
