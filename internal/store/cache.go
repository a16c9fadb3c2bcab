package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/items-api/internal/model"
)

// Cache lookup results.
const (
	cacheResultHit   = "hit"
	cacheResultMiss  = "miss"
	cacheResultError = "error"
)

var cacheRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "item_cache_requests_total",
		Help: "Total number of item cache lookups by result",
	},
	[]string{"result"},
)

// Cache holds copies of items keyed by ID.
type Cache interface {
	// Get returns ErrCacheMiss when the item is not cached.
	Get(ctx context.Context, id int64) (*model.Item, error)
	Set(ctx context.Context, item model.Item) error
}

// RedisCache implements Cache on top of Redis.
// Keys are namespaced per process because identifiers restart at 1
// whenever a new in-memory store is created.
type RedisCache struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
}

// NewRedisCache creates a RedisCache with a fresh key namespace.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client:    client,
		namespace: uuid.New().String(),
		ttl:       ttl,
	}
}

// Namespace returns the key namespace of this cache.
func (c *RedisCache) Namespace() string {
	return c.namespace
}

// Get retrieves an item from Redis.
func (c *RedisCache) Get(ctx context.Context, id int64) (*model.Item, error) {
	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get item %d: %w", id, err)
	}

	var item model.Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("decoding cached item %d: %w", id, err)
	}

	return &item, nil
}

// Set stores an item in Redis with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, item model.Item) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encoding item %d: %w", item.ID, err)
	}

	if err := c.client.Set(ctx, c.key(item.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set item %d: %w", item.ID, err)
	}

	return nil
}

// Ping checks connectivity to Redis.
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) key(id int64) string {
	return fmt.Sprintf("items:%s:%d", c.namespace, id)
}

// CachedStore is a read-through cache in front of another Store.
// Items are immutable, so cached entries never need invalidation.
// Cache failures are logged and fall back to the underlying store.
type CachedStore struct {
	next   Store
	cache  Cache
	logger *zap.Logger
}

// NewCachedStore wraps next with cache.
func NewCachedStore(next Store, cache Cache, logger *zap.Logger) *CachedStore {
	return &CachedStore{
		next:   next,
		cache:  cache,
		logger: logger,
	}
}

// Create stores the item and writes it through to the cache.
func (s *CachedStore) Create(ctx context.Context, in model.ItemCreate) (*model.Item, error) {
	item, err := s.next.Create(ctx, in)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, *item); err != nil {
		s.logger.Warn("failed to cache created item", zap.Int64("id", item.ID), zap.Error(err))
	}

	return item, nil
}

// Get serves the item from cache, loading it from the store on a miss.
func (s *CachedStore) Get(ctx context.Context, id int64) (*model.Item, error) {
	cached, err := s.cache.Get(ctx, id)
	switch {
	case err == nil:
		cacheRequestsTotal.WithLabelValues(cacheResultHit).Inc()
		return cached, nil
	case errors.Is(err, ErrCacheMiss):
		cacheRequestsTotal.WithLabelValues(cacheResultMiss).Inc()
	default:
		cacheRequestsTotal.WithLabelValues(cacheResultError).Inc()
		s.logger.Warn("item cache lookup failed", zap.Int64("id", id), zap.Error(err))
	}

	item, err := s.next.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, *item); err != nil {
		s.logger.Warn("failed to cache item", zap.Int64("id", id), zap.Error(err))
	}

	return item, nil
}

// List is served by the underlying store.
func (s *CachedStore) List(ctx context.Context, skip, limit int) ([]model.Item, error) {
	return s.next.List(ctx, skip, limit)
}
