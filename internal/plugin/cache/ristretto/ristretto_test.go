package ristretto_test

import (
	"context"
	"testing"
	"time"

	"github.com/chirino/memory-service-sub009/internal/config"
	"github.com/chirino/memory-service-sub009/internal/model"
	registrycache "github.com/chirino/memory-service-sub009/internal/registry/cache"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCache(t *testing.T) registrycache.MemoryEntriesCache {
	t.Helper()
	cfg := config.DefaultConfig()
	ctx := config.WithContext(context.Background(), &cfg)

	loader, err := registrycache.Select("ristretto")
	require.NoError(t, err)
	cache, err := loader(ctx)
	require.NoError(t, err)
	return cache
}

func TestRistrettoCache_MissThenSetThenGet(t *testing.T) {
	cache := setupCache(t)
	ctx := context.Background()
	convID := uuid.New()

	assert.True(t, cache.Available())

	miss, err := cache.Get(ctx, convID, "client-a")
	require.NoError(t, err)
	assert.Nil(t, miss)

	epoch := int64(3)
	err = cache.Set(ctx, convID, "client-a", registrycache.CachedMemoryEntries{
		Entries: []model.Entry{{ID: uuid.New(), Content: []byte("hello")}},
		Epoch:   &epoch,
	}, time.Minute)
	require.NoError(t, err)

	hit, err := cache.Get(ctx, convID, "client-a")
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Len(t, hit.Entries, 1)
	require.NotNil(t, hit.Epoch)
	assert.Equal(t, epoch, *hit.Epoch)
}

func TestRistrettoCache_RemoveClearsEntry(t *testing.T) {
	cache := setupCache(t)
	ctx := context.Background()
	convID := uuid.New()

	err := cache.Set(ctx, convID, "client-b", registrycache.CachedMemoryEntries{}, time.Minute)
	require.NoError(t, err)

	err = cache.Remove(ctx, convID, "client-b")
	require.NoError(t, err)

	miss, err := cache.Get(ctx, convID, "client-b")
	require.NoError(t, err)
	assert.Nil(t, miss)
}

func TestRistrettoCache_DistinctClientsDoNotCollide(t *testing.T) {
	cache := setupCache(t)
	ctx := context.Background()
	convID := uuid.New()

	err := cache.Set(ctx, convID, "client-a", registrycache.CachedMemoryEntries{
		Entries: []model.Entry{{ID: uuid.New()}},
	}, time.Minute)
	require.NoError(t, err)

	miss, err := cache.Get(ctx, convID, "client-c")
	require.NoError(t, err)
	assert.Nil(t, miss)
}
