package resumer

import (
	"context"
	"testing"
	"time"

	"github.com/chirino/memory-service-sub009/internal/config"
	"github.com/chirino/memory-service-sub009/internal/testutil/testredis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocatorStore_NoneOrEmptyReturnsNoop(t *testing.T) {
	for _, cacheType := range []string{"", "none", "None"} {
		cfg := &config.Config{CacheType: cacheType}
		store, err := NewLocatorStore(context.Background(), cfg)
		require.NoError(t, err)
		assert.False(t, store.Available())
	}
}

func TestNewLocatorStore_RistrettoWithoutRedisURLFallsBackToNoop(t *testing.T) {
	cfg := &config.Config{CacheType: "ristretto"}
	store, err := NewLocatorStore(context.Background(), cfg)
	require.NoError(t, err)
	assert.False(t, store.Available(), "ristretto is in-process only and can't do cross-instance redirects")
}

func TestNewLocatorStore_UnsupportedCacheTypeErrors(t *testing.T) {
	cfg := &config.Config{CacheType: "memcached"}
	_, err := NewLocatorStore(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewLocatorStore_NilConfigReturnsNoop(t *testing.T) {
	store, err := NewLocatorStore(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, store.Available())
}

func TestRedisLocatorStore_UpsertGetRemove(t *testing.T) {
	redisURL := testredis.StartRedis(t)
	cfg := &config.Config{CacheType: "redis", RedisURL: redisURL}

	store, err := NewLocatorStore(context.Background(), cfg)
	require.NoError(t, err)
	require.True(t, store.Available())

	ctx := context.Background()
	locator := Locator{Host: "node-a", Port: 9001, FileName: "recording.tokens"}

	exists, err := store.Exists(ctx, "conv-1")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.Upsert(ctx, "conv-1", locator, 5*time.Second))

	exists, err = store.Exists(ctx, "conv-1")
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := store.Get(ctx, "conv-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, locator, *got)

	require.NoError(t, store.Remove(ctx, "conv-1"))

	got, err = store.Get(ctx, "conv-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisLocatorStore_GetMissingKeyReturnsNilNotError(t *testing.T) {
	redisURL := testredis.StartRedis(t)
	cfg := &config.Config{CacheType: "redis", RedisURL: redisURL}

	store, err := NewLocatorStore(context.Background(), cfg)
	require.NoError(t, err)

	got, err := store.Get(context.Background(), "never-stored")
	require.NoError(t, err)
	assert.Nil(t, got)
}
