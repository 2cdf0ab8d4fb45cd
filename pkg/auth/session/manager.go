package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sonaskin/storefront-backend/pkg/config"
	redisclient "github.com/sonaskin/storefront-backend/pkg/redis"
)

// ErrSessionNotFound is returned when a token's jti has no live session.
var ErrSessionNotFound = errors.New("session not found")

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	AccessSessionKey(accessID string) string
}

// Manager keeps server-side admin sessions in Redis keyed by the token jti, so a
// signed token stops working as soon as its session is revoked.
type Manager struct {
	store sessionStore
	keyer sessionKeyer
	ttl   time.Duration
}

// AccessSessionChecker exposes the read-only surface needed by middleware.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// NewManager constructs a session manager backed by Redis.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	ttl := cfg.SessionTTL()
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &Manager{store: client, keyer: client, ttl: ttl}, nil
}

// Create registers a session for accessID owned by userID.
func (m *Manager) Create(ctx context.Context, accessID string, userID uuid.UUID) error {
	if strings.TrimSpace(accessID) == "" {
		return fmt.Errorf("access id is required")
	}
	if userID == uuid.Nil {
		return fmt.Errorf("user id is required")
	}
	return m.store.Set(ctx, m.keyer.AccessSessionKey(accessID), userID.String(), m.ttl)
}

// Owner returns the user bound to a live session.
func (m *Manager) Owner(ctx context.Context, accessID string) (uuid.UUID, error) {
	if strings.TrimSpace(accessID) == "" {
		return uuid.Nil, ErrSessionNotFound
	}
	raw, err := m.store.Get(ctx, m.keyer.AccessSessionKey(accessID))
	if err != nil {
		if redisclient.IsNil(err) {
			return uuid.Nil, ErrSessionNotFound
		}
		return uuid.Nil, err
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrSessionNotFound
	}
	return id, nil
}

// HasSession reports whether accessID still has an active session.
func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if _, err := m.Owner(ctx, accessID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Revoke deletes the session tied to the access identifier.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return fmt.Errorf("access id is required")
	}
	return m.store.Del(ctx, m.keyer.AccessSessionKey(accessID))
}

// NewAccessID produces the identifier used as the JWT jti and Redis key.
func NewAccessID() string {
	return uuid.NewString()
}
