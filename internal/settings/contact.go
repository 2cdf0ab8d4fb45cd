package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sonaskin/storefront-backend/pkg/logger"
	"github.com/sonaskin/storefront-backend/pkg/redis"
)

// ContactGroup is the settings group the contact snapshot is built from.
const ContactGroup = "contact"

const contactKeyPrefix = "contact_"

// ContactInfo is the storefront contact block. Known keys map to fields; any other
// contact_* key lands in Extra without its prefix.
type ContactInfo struct {
	Phone   string            `json:"phone"`
	Email   string            `json:"email"`
	Address string            `json:"address"`
	Hours   string            `json:"hours,omitempty"`
	Extra   map[string]string `json:"extra,omitempty"`
}

// ContactFromSettings folds contact group settings into a ContactInfo.
func ContactFromSettings(items []SettingDTO) ContactInfo {
	var info ContactInfo
	for _, item := range items {
		name := strings.TrimPrefix(item.Key, contactKeyPrefix)
		switch name {
		case "phone":
			info.Phone = item.Value
		case "email":
			info.Email = item.Value
		case "address":
			info.Address = item.Value
		case "hours":
			info.Hours = item.Value
		default:
			if info.Extra == nil {
				info.Extra = map[string]string{}
			}
			info.Extra[name] = item.Value
		}
	}
	return info
}

type contactEntry struct {
	Info      ContactInfo `json:"info"`
	FetchedAt int64       `json:"fetchedAt"`
}

type kvStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// ContactFetchFunc loads fresh contact info.
type ContactFetchFunc func(ctx context.Context) (ContactInfo, error)

// ContactCache serves contact info from a persistent store for ttl, refreshing through
// fetch afterwards. When a refresh fails an expired entry is still returned.
type ContactCache struct {
	store kvStore
	key   string
	ttl   time.Duration
	fetch ContactFetchFunc
	now   func() time.Time
	logg  *logger.Logger
}

// ContactCacheParams wires a ContactCache.
type ContactCacheParams struct {
	Store  kvStore
	Key    string
	TTL    time.Duration
	Fetch  ContactFetchFunc
	Now    func() time.Time
	Logger *logger.Logger
}

// NewContactCache validates params and builds the cache.
func NewContactCache(params ContactCacheParams) (*ContactCache, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("contact cache store required")
	}
	if params.Fetch == nil {
		return nil, fmt.Errorf("contact fetch func required")
	}
	if strings.TrimSpace(params.Key) == "" {
		return nil, fmt.Errorf("contact cache key required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &ContactCache{
		store: params.Store,
		key:   params.Key,
		ttl:   params.TTL,
		fetch: params.Fetch,
		now:   now,
		logg:  params.Logger,
	}, nil
}

// Get returns contact info, preferring a fresh stored entry.
func (c *ContactCache) Get(ctx context.Context) (ContactInfo, error) {
	stored, found := c.load(ctx)
	if found && c.now().Unix()-stored.FetchedAt < int64(c.ttl/time.Second) {
		return stored.Info, nil
	}

	info, err := c.fetch(ctx)
	if err != nil {
		if found {
			c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "contact info refresh failed, serving stale entry")
			return stored.Info, nil
		}
		return ContactInfo{}, err
	}
	c.save(ctx, info)
	return info, nil
}

// Refresh fetches contact info and overwrites the stored entry regardless of its age.
func (c *ContactCache) Refresh(ctx context.Context) (ContactInfo, error) {
	info, err := c.fetch(ctx)
	if err != nil {
		return ContactInfo{}, err
	}
	c.save(ctx, info)
	return info, nil
}

func (c *ContactCache) save(ctx context.Context, info ContactInfo) {
	entry := contactEntry{Info: info, FetchedAt: c.now().Unix()}
	payload, err := json.Marshal(entry)
	if err == nil {
		// No store-level expiry: an expired entry is the fallback when refresh fails.
		err = c.store.Set(ctx, c.key, payload, 0)
	}
	if err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "contact info cache write failed")
	}
}

func (c *ContactCache) load(ctx context.Context) (contactEntry, bool) {
	var entry contactEntry
	raw, err := c.store.Get(ctx, c.key)
	if err != nil {
		if !redis.IsNil(err) {
			c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "contact info cache read failed")
		}
		return entry, false
	}
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		c.logg.Warn(ctx, "contact info cache entry unreadable")
		return entry, false
	}
	return entry, true
}
