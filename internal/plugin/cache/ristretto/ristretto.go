// Package ristretto registers an in-process MemoryEntriesCache backed by
// ristretto. It trades the Redis plugin's cross-instance sharing for
// zero network hops — useful for a single-instance deployment or a local
// read-through layer in front of Redis. Entries carry their own TTL via
// ristretto's SetWithTTL, same as the Redis plugin's per-key expiry.
package ristretto

import (
	"context"
	"fmt"
	"time"

	"github.com/chirino/memory-service-sub009/internal/config"
	registrycache "github.com/chirino/memory-service-sub009/internal/registry/cache"
	"github.com/dgraph-io/ristretto/v2"
	"github.com/google/uuid"
)

const (
	defaultTTL      = 10 * time.Minute
	defaultNumCount = 1e7 // number of keys to track frequency of
	defaultMaxCost  = 1 << 26
)

func init() {
	registrycache.Register(registrycache.Plugin{
		Name:   "ristretto",
		Loader: load,
	})
}

func load(ctx context.Context) (registrycache.MemoryEntriesCache, error) {
	cfg := config.FromContext(ctx)
	ttl := defaultTTL
	if cfg != nil && cfg.CacheEpochTTL > 0 {
		ttl = cfg.CacheEpochTTL
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, registrycache.CachedMemoryEntries]{
		NumCounters: defaultNumCount,
		MaxCost:     defaultMaxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("ristretto cache: %w", err)
	}
	return &ristrettoEntriesCache{cache: cache, ttl: ttl}, nil
}

type ristrettoEntriesCache struct {
	cache *ristretto.Cache[string, registrycache.CachedMemoryEntries]
	ttl   time.Duration
}

func entriesKey(conversationID uuid.UUID, clientID string) string {
	return fmt.Sprintf("mem-entries:%s:%s", conversationID.String(), clientID)
}

func (c *ristrettoEntriesCache) Available() bool {
	return true
}

func (c *ristrettoEntriesCache) Get(_ context.Context, conversationID uuid.UUID, clientID string) (*registrycache.CachedMemoryEntries, error) {
	v, ok := c.cache.Get(entriesKey(conversationID, clientID))
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (c *ristrettoEntriesCache) Set(_ context.Context, conversationID uuid.UUID, clientID string, entries registrycache.CachedMemoryEntries, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}
	// cost 1: entries count, not bytes — ristretto's admission policy only
	// needs a rough relative size here, not a precise memory accounting.
	c.cache.SetWithTTL(entriesKey(conversationID, clientID), entries, 1, ttl)
	c.cache.Wait()
	return nil
}

func (c *ristrettoEntriesCache) Remove(_ context.Context, conversationID uuid.UUID, clientID string) error {
	c.cache.Del(entriesKey(conversationID, clientID))
	return nil
}

var _ registrycache.MemoryEntriesCache = (*ristrettoEntriesCache)(nil)
