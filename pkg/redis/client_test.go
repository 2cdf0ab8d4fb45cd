package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonaskin/storefront-backend/pkg/config"
)

type mapCommands struct {
	values  map[string]string
	counts  map[string]int64
	expires map[string]time.Duration
}

func newMapCommands() *mapCommands {
	return &mapCommands{values: map[string]string{}, counts: map[string]int64{}, expires: map[string]time.Duration{}}
}

func (m *mapCommands) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mapCommands) Get(_ context.Context, key string) *redis.StringCmd {
	if v, ok := m.values[key]; ok {
		return redis.NewStringResult(v, nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

func (m *mapCommands) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	m.values[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mapCommands) SetNX(_ context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	if _, ok := m.values[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	m.values[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mapCommands) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := m.values[k]; ok {
			n++
		}
		delete(m.values, k)
	}
	return redis.NewIntResult(n, nil)
}

func (m *mapCommands) Incr(_ context.Context, key string) *redis.IntCmd {
	m.counts[key]++
	return redis.NewIntResult(m.counts[key], nil)
}

func (m *mapCommands) ExpireNX(_ context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	if _, ok := m.expires[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	m.expires[key] = ttl
	return redis.NewBoolResult(true, nil)
}

// Eval only understands the compare-and-delete script.
func (m *mapCommands) Eval(_ context.Context, _ string, keys []string, args ...any) *redis.Cmd {
	if len(keys) == 1 && len(args) == 1 && m.values[keys[0]] == fmt.Sprint(args[0]) {
		delete(m.values, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}

func TestFixedWindowAllow(t *testing.T) {
	ctx := context.Background()
	cmds := newMapCommands()
	client := &Client{cmd: cmds}

	for want := int64(1); want <= 2; want++ {
		allowed, count, err := client.FixedWindowAllow(ctx, "login:ip", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, want, count)
	}
	allowed, count, err := client.FixedWindowAllow(ctx, "login:ip", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, int64(3), count)
	assert.Equal(t, map[string]time.Duration{"sf:rate_limit:login:ip": time.Minute}, cmds.expires)
}

func TestGetSetDel(t *testing.T) {
	ctx := context.Background()
	client := &Client{cmd: newMapCommands()}

	_, err := client.Get(ctx, "absent")
	assert.True(t, IsNil(err))

	require.NoError(t, client.Set(ctx, "k", "v", time.Minute))
	got, err := client.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	ok, err := client.SetNX(ctx, "k", "other", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, client.Del(ctx, "k"))
	_, err = client.Get(ctx, "k")
	assert.True(t, IsNil(err))
}

func TestCompareAndDelete(t *testing.T) {
	ctx := context.Background()
	client := &Client{cmd: newMapCommands()}
	require.NoError(t, client.Set(ctx, "lock", "owner-a", time.Minute))

	deleted, err := client.CompareAndDelete(ctx, "lock", "owner-b")
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = client.CompareAndDelete(ctx, "lock", "owner-a")
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestClientWithoutConnection(t *testing.T) {
	var client *Client
	assert.ErrorIs(t, client.Ping(context.Background()), ErrClosed)
	_, err := (&Client{}).Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, client.Close())
}

func TestKeys(t *testing.T) {
	client := &Client{}
	assert.Equal(t, "sf:rate_limit:scope", client.RateLimitKey("scope"))
	assert.Equal(t, "sf:session:access:abc", client.AccessSessionKey("abc"))
	assert.Equal(t, "sf:cart:tok:cart-storage", client.CartKey("tok", "cart-storage"))
	assert.Equal(t, "sf:cart:cart-storage", client.CartKey(" ", "cart-storage"))
	assert.Equal(t, "sf:settings:contact", client.ContactCacheKey())
	assert.Equal(t, "sf:lock:cron", client.LockKey(" cron "))
	assert.Equal(t, "sf:idempotency:sink:sheets:abc", client.IdempotencyKey("sink:sheets", "abc"))

	staging := &Client{namespace: "sf-staging"}
	assert.Equal(t, "sf-staging:lock:cron", staging.LockKey("cron"))
}

func TestOptionsFromConfig(t *testing.T) {
	_, err := optionsFromConfig(config.RedisConfig{})
	assert.Error(t, err)

	opts, err := optionsFromConfig(config.RedisConfig{Address: "localhost:6379", DB: 2, PoolSize: 7, DialTimeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 7, opts.PoolSize)
	assert.Equal(t, time.Second, opts.DialTimeout)

	opts, err = optionsFromConfig(config.RedisConfig{URL: "redis://:secret@cache:6380/3", DB: 1})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 3, opts.DB, "db in the url wins")
	assert.Equal(t, "secret", opts.Password)
}
