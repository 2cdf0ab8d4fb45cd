package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sonaskin/storefront-backend/pkg/config"
	"github.com/sonaskin/storefront-backend/pkg/logger"
)

const defaultNamespace = "sf"

// ErrClosed is returned by every command on a Client built without a connection.
var ErrClosed = errors.New("redis: no connection")

// compareAndDelete removes KEYS[1] only while it still holds ARGV[1].
const compareAndDelete = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// commands is the subset of go-redis the storefront relies on; tests swap in a map.
type commands interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	ExpireNX(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
}

// Client is the storefront's handle on Redis: sessions, carts, caches, locks and counters.
type Client struct {
	cmd       commands
	conn      *redis.Client
	namespace string
}

// New dials Redis and fails fast when the server does not answer PING.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	conn := redis.NewClient(opts)
	if err := conn.Ping(ctx).Err(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	if logg != nil {
		ctx = logg.WithFields(ctx, map[string]any{"redis_addr": opts.Addr, "redis_db": opts.DB})
		logg.Info(ctx, "connected to redis")
	}
	return &Client{cmd: conn, conn: conn, namespace: cfg.Namespace}, nil
}

func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	var opts *redis.Options
	switch {
	case cfg.URL != "":
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("redis url: %w", err)
		}
		opts = parsed
	case cfg.Address != "":
		opts = &redis.Options{Addr: cfg.Address, Password: cfg.Password}
	default:
		return nil, errors.New("STOREFRONT_REDIS_URL or STOREFRONT_REDIS_ADDR must be set")
	}

	// values carried by the URL win over the env defaults
	fill := func(dst *int, v int) {
		if *dst == 0 {
			*dst = v
		}
	}
	fillDur := func(dst *time.Duration, v time.Duration) {
		if *dst == 0 {
			*dst = v
		}
	}
	fill(&opts.DB, cfg.DB)
	fill(&opts.PoolSize, cfg.PoolSize)
	fill(&opts.MinIdleConns, cfg.MinIdleConns)
	fillDur(&opts.DialTimeout, cfg.DialTimeout)
	fillDur(&opts.ReadTimeout, cfg.ReadTimeout)
	fillDur(&opts.WriteTimeout, cfg.WriteTimeout)
	return opts, nil
}

// IsNil reports whether err means the key was absent.
func IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}

func (c *Client) commands() (commands, error) {
	if c == nil || c.cmd == nil {
		return nil, ErrClosed
	}
	return c.cmd, nil
}

func (c *Client) Ping(ctx context.Context) error {
	cmd, err := c.commands()
	if err != nil {
		return err
	}
	return cmd.Ping(ctx).Err()
}

// Get returns redis.Nil (see IsNil) for a missing key.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	cmd, err := c.commands()
	if err != nil {
		return "", err
	}
	return cmd.Get(ctx, key).Result()
}

func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	cmd, err := c.commands()
	if err != nil {
		return err
	}
	return cmd.Set(ctx, key, value, ttl).Err()
}

func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	cmd, err := c.commands()
	if err != nil {
		return false, err
	}
	return cmd.SetNX(ctx, key, value, ttl).Result()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	cmd, err := c.commands()
	if err != nil {
		return err
	}
	return cmd.Del(ctx, keys...).Err()
}

// CompareAndDelete deletes key only if its value is still want, atomically.
func (c *Client) CompareAndDelete(ctx context.Context, key, want string) (bool, error) {
	cmd, err := c.commands()
	if err != nil {
		return false, err
	}
	n, err := cmd.Eval(ctx, compareAndDelete, []string{key}, want).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// FixedWindowAllow counts a hit for scope and reports whether it is within limit.
// The window starts at the first hit; ExpireNX keeps later hits from extending it.
func (c *Client) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	cmd, err := c.commands()
	if err != nil {
		return false, 0, err
	}
	key := c.RateLimitKey(scope)
	count, err := cmd.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("incr %s: %w", key, err)
	}
	if window > 0 {
		if err := cmd.ExpireNX(ctx, key, window).Err(); err != nil {
			return false, count, fmt.Errorf("expire %s: %w", key, err)
		}
	}
	return count <= limit, count, nil
}

func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// key joins non-blank parts under the client namespace.
func (c *Client) key(parts ...string) string {
	ns := defaultNamespace
	if c != nil && strings.TrimSpace(c.namespace) != "" {
		ns = strings.TrimSpace(c.namespace)
	}
	var b strings.Builder
	b.WriteString(ns)
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			b.WriteByte(':')
			b.WriteString(part)
		}
	}
	return b.String()
}

func (c *Client) RateLimitKey(scope string) string { return c.key("rate_limit", scope) }

// AccessSessionKey holds the owner of an admin session, keyed by token jti.
func (c *Client) AccessSessionKey(accessID string) string {
	return c.key("session", "access", accessID)
}

func (c *Client) CartKey(token, storageKey string) string { return c.key("cart", token, storageKey) }

func (c *Client) ContactCacheKey() string { return c.key("settings", "contact") }

// IdempotencyKey is shared by HTTP replay records and outbox sink delivery markers.
func (c *Client) IdempotencyKey(scope, id string) string { return c.key("idempotency", scope, id) }

func (c *Client) LockKey(name string) string { return c.key("lock", name) }
