package rediscache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) (*PrivilegeCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewPrivilegeCache(client, ttl), mr
}

func TestPrivilegeCache_RememberForget(t *testing.T) {
	cache, mr := newTestCache(t, time.Hour)
	ctx := context.Background()

	ok, err := cache.IsPrivileged(ctx, "adm-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Remember(ctx, "adm-1"))
	ok, err = cache.IsPrivileged(ctx, "adm-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mr.Exists("prospectos:privileged:adm-1"))
	assert.Equal(t, time.Hour, mr.TTL("prospectos:privileged:adm-1"))

	require.NoError(t, cache.Forget(ctx, "adm-1"))
	ok, err = cache.IsPrivileged(ctx, "adm-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPrivilegeCache_Expira(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Remember(ctx, "adm-1"))
	mr.FastForward(2 * time.Minute)

	ok, err := cache.IsPrivileged(ctx, "adm-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPrivilegeCache_RedisCaido(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	mr.Close()

	_, err := cache.IsPrivileged(context.Background(), "adm-1")
	assert.Error(t, err)
	assert.Error(t, cache.Remember(context.Background(), "adm-1"))
}

func TestPrivilegeCache_PrincipalVacio(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	assert.Error(t, cache.Remember(context.Background(), ""))
	ok, err := cache.IsPrivileged(context.Background(), "")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, cache.Forget(context.Background(), ""))
}

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewClient(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	defer client.Close()

	_, err = NewClient(context.Background(), "::no-es-url")
	assert.Error(t, err)
}
