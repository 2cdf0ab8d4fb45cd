package settings

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// FetchFunc loads the full list of settings a Cache serves.
type FetchFunc func(ctx context.Context) ([]SettingDTO, error)

// Cache keeps one in-memory copy of a settings list for ttl. Concurrent misses share
// a single call to fetch.
type Cache struct {
	fetch FetchFunc
	ttl   time.Duration
	now   func() time.Time

	mu        sync.Mutex
	items     []SettingDTO
	expiresAt time.Time
	// generation is bumped by Invalidate so an in-flight fetch cannot repopulate stale data.
	generation uint64

	group singleflight.Group
}

// NewCache builds a cache. A nil now uses time.Now.
func NewCache(fetch FetchFunc, ttl time.Duration, now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{fetch: fetch, ttl: ttl, now: now}
}

// Fetch returns cached settings, filtered by group when group is non-empty.
func (c *Cache) Fetch(ctx context.Context, group string) ([]SettingDTO, error) {
	if items, ok := c.cached(); ok {
		return filterGroup(items, group), nil
	}

	v, err, _ := c.group.Do("settings", func() (any, error) {
		if items, ok := c.cached(); ok {
			return items, nil
		}
		c.mu.Lock()
		gen := c.generation
		c.mu.Unlock()

		items, err := c.fetch(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if gen == c.generation {
			c.items = items
			c.expiresAt = c.now().Add(c.ttl)
		}
		c.mu.Unlock()
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return filterGroup(v.([]SettingDTO), group), nil
}

// Invalidate drops the cached copy.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.expiresAt = time.Time{}
	c.generation++
}

func (c *Cache) cached() ([]SettingDTO, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items == nil || !c.now().Before(c.expiresAt) {
		return nil, false
	}
	return c.items, true
}

func filterGroup(items []SettingDTO, group string) []SettingDTO {
	out := make([]SettingDTO, 0, len(items))
	for _, item := range items {
		if group != "" && (item.Group == nil || *item.Group != group) {
			continue
		}
		out = append(out, item)
	}
	return out
}
