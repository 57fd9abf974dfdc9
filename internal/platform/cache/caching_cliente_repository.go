// Package cache provides caching implementations for repository interfaces.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"cliente_backend/internal/feature/cliente/domain/entity"
	"cliente_backend/internal/feature/cliente/usecase"
	"cliente_backend/internal/platform/metrics"
)

// CachingClienteRepository decorates a ClienteRepository with a Redis cache of List results.
// Every successful mutation bumps the owner's generation counter. A cached list is served only
// while its generation matches the counter, so a List that read the store before a concurrent
// mutation can never publish its snapshot as current.
type CachingClienteRepository struct {
	inner     usecase.ClienteRepository
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

var _ usecase.ClienteRepository = (*CachingClienteRepository)(nil)

// NewCachingClienteRepository decorates a ClienteRepository with Redis caching.
// If ttl is 0, it defaults to 5 minutes. If namespace is empty, it uses "clientes".
// A nil rdb disables caching.
func NewCachingClienteRepository(rdb *redis.Client, ttl time.Duration, inner usecase.ClienteRepository, namespace string) *CachingClienteRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if namespace == "" {
		namespace = "clientes"
	}
	return &CachingClienteRepository{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

// Create inserts through the inner repository and invalidates the owner's list.
func (c *CachingClienteRepository) Create(ctx context.Context, ownerID string, in entity.ClienteInput) (*entity.Cliente, error) {
	out, err := c.inner.Create(ctx, ownerID, in)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, ownerID)
	return out, nil
}

// Update writes through and invalidates the owner's list.
func (c *CachingClienteRepository) Update(ctx context.Context, ownerID, id string, patch entity.ClientePatch) (*entity.Cliente, error) {
	out, err := c.inner.Update(ctx, ownerID, id, patch)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, ownerID)
	return out, nil
}

// Delete removes through the inner repository and invalidates the owner's list.
func (c *CachingClienteRepository) Delete(ctx context.Context, ownerID, id string) error {
	if err := c.inner.Delete(ctx, ownerID, id); err != nil {
		return err
	}
	c.invalidate(ctx, ownerID)
	return nil
}

// Get is not cached.
func (c *CachingClienteRepository) Get(ctx context.Context, ownerID, id string) (*entity.Cliente, error) {
	return c.inner.Get(ctx, ownerID, id)
}

// cachedList is the Redis value of an owner's list, tagged with the generation it was read at.
type cachedList struct {
	Generation int64            `json:"generation"`
	Clientes   []entity.Cliente `json:"clientes"`
}

// List checks the cache first, then falls back to the inner repository.
func (c *CachingClienteRepository) List(ctx context.Context, ownerID string) ([]entity.Cliente, error) {
	// Bypass cache if Redis is not configured
	if c.rdb == nil {
		metrics.RecordCacheLookup("bypass")
		return c.inner.List(ctx, ownerID)
	}

	key := c.cacheKey(ownerID)

	// 1) Check cache and the current generation in one round trip
	generation := int64(0)
	vals, err := c.rdb.MGet(ctx, key, c.generationKey(ownerID)).Result()
	if err != nil {
		// Redis down: serve from the store without caching
		metrics.RecordCacheLookup("bypass")
		return c.inner.List(ctx, ownerID)
	}
	if raw, ok := vals[1].(string); ok {
		generation, _ = strconv.ParseInt(raw, 10, 64)
	}
	if raw, ok := vals[0].(string); ok && raw != "" {
		var entry cachedList
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			// Delete corrupted cache entry
			_ = c.rdb.Del(ctx, key).Err()
		} else if entry.Generation == generation && entry.Clientes != nil {
			metrics.RecordCacheLookup("hit")
			return entry.Clientes, nil
		}
	}
	metrics.RecordCacheLookup("miss")

	// 2) Fallback to the store
	out, err := c.inner.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	// 3) Store in cache (best effort), tagged with the generation read before the store
	if b, err := json.Marshal(cachedList{Generation: generation, Clientes: out}); err == nil {
		_ = c.rdb.Set(ctx, key, b, c.ttl).Err()
	}

	return out, nil
}

// invalidate advances the owner's generation, which retires every list cached so far,
// then drops the stale entry. Failures are ignored; the TTL bounds staleness.
func (c *CachingClienteRepository) invalidate(ctx context.Context, ownerID string) {
	if c.rdb == nil {
		return
	}
	_ = c.rdb.Incr(ctx, c.generationKey(ownerID)).Err()
	_ = c.rdb.Del(ctx, c.cacheKey(ownerID)).Err()
}

// generationKey holds the owner's mutation counter. It has no TTL.
func (c *CachingClienteRepository) generationKey(ownerID string) string {
	return fmt.Sprintf("%s:generation:%s", c.namespace, safe(ownerID))
}

// cacheKey generates the cache key of an owner's list.
func (c *CachingClienteRepository) cacheKey(ownerID string) string {
	return fmt.Sprintf("%s:list:%s", c.namespace, safe(ownerID))
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
