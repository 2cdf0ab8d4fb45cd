package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sonaskin/storefront-backend/pkg/redis"
)

// ErrNotFound is returned by Storage.Load when nothing was saved under the key.
var ErrNotFound = errors.New("cart storage: key not found")

// Storage persists the serialised cart.
type Storage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

type kv interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// RedisStorage keeps each cart as one string value with a sliding TTL.
type RedisStorage struct {
	store kv
	ttl   time.Duration
}

func NewRedisStorage(store kv, ttl time.Duration) (*RedisStorage, error) {
	if store == nil {
		return nil, errors.New("redis store required")
	}
	return &RedisStorage{store: store, ttl: ttl}, nil
}

func (s *RedisStorage) Load(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.store.Get(ctx, key)
	if err != nil {
		if redis.IsNil(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return []byte(raw), nil
}

func (s *RedisStorage) Save(ctx context.Context, key string, data []byte) error {
	return s.store.Set(ctx, key, data, s.ttl)
}

// MemoryStorage is a process-local Storage.
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: map[string][]byte{}}
}

func (s *MemoryStorage) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), raw...), nil
}

func (s *MemoryStorage) Save(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), data...)
	return nil
}
