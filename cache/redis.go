// Package cache provides a Redis-backed read-model cache. Values are
// msgpack-encoded; every operation is best-effort and a Redis failure
// only degrades to a cache miss.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/bugline/bugline"
	"github.com/bugline/bugline/domain"
)

const (
	userKeyPrefix = "bugline:user:"
	bugKeyPrefix  = "bugline:bug:"
)

// RedisCache implements service.ReadModelCache on a Redis client.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger bugline.Logger
}

// Option configures a RedisCache.
type Option func(*RedisCache)

// WithTTL sets the expiry of cached entries. Default is 5 minutes.
func WithTTL(ttl time.Duration) Option {
	return func(c *RedisCache) { c.ttl = ttl }
}

// WithLogger sets the logger used to report cache failures.
func WithLogger(l bugline.Logger) Option {
	return func(c *RedisCache) { c.logger = l }
}

// New creates a cache on an existing Redis client.
func New(client *redis.Client, opts ...Option) *RedisCache {
	c := &RedisCache{
		client: client,
		ttl:    5 * time.Minute,
		logger: bugline.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetUser returns the cached user view, if present.
func (c *RedisCache) GetUser(ctx context.Context, id uuid.UUID) (*domain.UserReadModel, bool) {
	var m domain.UserReadModel
	if !c.get(ctx, userKeyPrefix+id.String(), &m) {
		return nil, false
	}
	return &m, true
}

// SetUser stores a user view.
func (c *RedisCache) SetUser(ctx context.Context, m *domain.UserReadModel) {
	if m == nil {
		return
	}
	c.set(ctx, userKeyPrefix+m.ID.String(), m)
}

// DropUser removes a user view.
func (c *RedisCache) DropUser(ctx context.Context, id uuid.UUID) {
	c.drop(ctx, userKeyPrefix+id.String())
}

// GetBug returns the cached bug view, if present.
func (c *RedisCache) GetBug(ctx context.Context, id uuid.UUID) (*domain.BugReadModel, bool) {
	var m domain.BugReadModel
	if !c.get(ctx, bugKeyPrefix+id.String(), &m) {
		return nil, false
	}
	return &m, true
}

// SetBug stores a bug view.
func (c *RedisCache) SetBug(ctx context.Context, m *domain.BugReadModel) {
	if m == nil {
		return
	}
	c.set(ctx, bugKeyPrefix+m.ID.String(), m)
}

// DropBug removes a bug view.
func (c *RedisCache) DropBug(ctx context.Context, id uuid.UUID) {
	c.drop(ctx, bugKeyPrefix+id.String())
}

func (c *RedisCache) get(ctx context.Context, key string, dst any) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache read failed", "key", key, "error", err)
		}
		return false
	}
	if err := msgpack.Unmarshal(data, dst); err != nil {
		c.logger.Warn("cache entry undecodable, dropping", "key", key, "error", err)
		c.drop(ctx, key)
		return false
	}
	return true
}

func (c *RedisCache) set(ctx context.Context, key string, v any) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		c.logger.Warn("cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
}

func (c *RedisCache) drop(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("cache delete failed", "key", key, "error", err)
	}
}
