// README: Response caches for read-mostly Amadeus lookups (Redis or in-process).
package amadeus

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// ResponseCache stores encoded provider responses by request key.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

// MemoryCache is a ResponseCache backed by go-cache.
type MemoryCache struct {
	c *cache.Cache
}

func NewMemoryCache(defaultTTL time.Duration) *MemoryCache {
	return &MemoryCache{c: cache.New(defaultTTL, 10*time.Minute)}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	m.c.Set(key, value, ttl)
}

// RedisCache is a ResponseCache shared across API instances.
type RedisCache struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb, prefix: "tripwise:amadeus:"}
}

// Get treats any Redis failure as a miss; the caller falls through to the provider.
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	return b, true
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	_ = r.rdb.Set(ctx, r.prefix+key, value, ttl).Err()
}
