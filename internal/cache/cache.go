package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"go-stock-ledger/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// ChartPrefix namespaces every cached chart payload.
const ChartPrefix = "chart:"

// Cache stores derived read models that any ledger write invalidates.
// Implementations never fail the caller: errors are logged and treated as a
// miss.
type Cache interface {
	// Generation returns the current cache generation. ok is false when the
	// cache cannot be used.
	Generation(ctx context.Context) (gen int64, ok bool)
	GetJSON(ctx context.Context, key string, dest interface{}) bool
	SetJSON(ctx context.Context, key string, value interface{})
	// Invalidate starts a new generation and drops the entries of older ones.
	Invalidate(ctx context.Context)
}

// Remember returns the value cached under key or loads and caches it. Keys
// are scoped to the generation read before load runs, so a fill that races
// an Invalidate is stored under a generation nobody reads again.
func Remember[T any](ctx context.Context, c Cache, key string, load func(context.Context) (T, error)) (T, error) {
	gen, ok := c.Generation(ctx)
	if !ok {
		return load(ctx)
	}
	scoped := entryPrefix + strconv.FormatInt(gen, 10) + ":" + key

	var cached T
	if c.GetJSON(ctx, scoped, &cached) {
		return cached, nil
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}
	c.SetJSON(ctx, scoped, value)
	return value, nil
}

const (
	entryPrefix   = "v"
	generationKey = "gen"
)

type redisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis returns a Redis backed cache. A nil client yields a no-op cache.
func NewRedis(client *redis.Client, prefix string, ttl time.Duration) Cache {
	if client == nil {
		return Noop{}
	}
	return &redisCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *redisCache) GetJSON(ctx context.Context, key string, dest interface{}) bool {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn(ctx).Err(err).Str("cache_key", c.prefix+key).Msg("Cache read failed")
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		logger.Warn(ctx).Err(err).Str("cache_key", c.prefix+key).Msg("Cached payload is corrupt")
		return false
	}
	logger.Debug(ctx).Str("cache_key", c.prefix+key).Msg("Cache hit")
	return true
}

func (c *redisCache) SetJSON(ctx context.Context, key string, value interface{}) {
	raw, err := json.Marshal(value)
	if err != nil {
		logger.Warn(ctx).Err(err).Str("cache_key", c.prefix+key).Msg("Failed to encode cache payload")
		return
	}
	if err := c.client.Set(ctx, c.prefix+key, raw, c.ttl).Err(); err != nil {
		logger.Warn(ctx).Err(err).Str("cache_key", c.prefix+key).Msg("Failed to cache payload")
	}
}

func (c *redisCache) Generation(ctx context.Context) (int64, bool) {
	gen, err := c.client.Get(ctx, c.prefix+generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	if err != nil {
		logger.Warn(ctx).Err(err).Str("cache_key", c.prefix+generationKey).Msg("Cache generation read failed")
		return 0, false
	}
	return gen, true
}

func (c *redisCache) Invalidate(ctx context.Context) {
	if err := c.client.Incr(ctx, c.prefix+generationKey).Err(); err != nil {
		logger.Warn(ctx).Err(err).Str("cache_key", c.prefix+generationKey).Msg("Cache generation bump failed")
	}

	pattern := c.prefix + entryPrefix + "*"
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		logger.Warn(ctx).Err(err).Str("pattern", pattern).Msg("Cache scan failed")
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		logger.Warn(ctx).Err(err).Str("pattern", pattern).Msg("Cache invalidation failed")
		return
	}
	logger.Debug(ctx).Int("count", len(keys)).Str("pattern", pattern).Msg("Cache invalidated")
}

// Noop is used when Redis is not configured.
type Noop struct{}

func (Noop) Generation(context.Context) (int64, bool)          { return 0, false }
func (Noop) GetJSON(context.Context, string, interface{}) bool { return false }
func (Noop) SetJSON(context.Context, string, interface{})      {}
func (Noop) Invalidate(context.Context)                        {}
