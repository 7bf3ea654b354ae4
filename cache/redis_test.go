package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bugline/bugline/domain"
	"github.com/bugline/bugline/service"
)

func newTestCache(t *testing.T, opts ...Option) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, opts...), mr
}

func TestRedisCacheImplementsReadModelCache(t *testing.T) {
	var _ service.ReadModelCache = (*RedisCache)(nil)
}

func TestUserRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	id := uuid.New()
	c.SetUser(ctx, &domain.UserReadModel{
		ID:       id,
		Username: "mlopez",
		Email:    "mlopez@example.com",
		UserType: domain.UserTypeBackend,
		Status:   domain.RecordStatusActive,
	})

	got, ok := c.GetUser(ctx, id)
	require.True(t, ok)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "mlopez", got.Username)
	assert.Equal(t, domain.UserTypeBackend, got.UserType)

	c.DropUser(ctx, id)
	_, ok = c.GetUser(ctx, id)
	assert.False(t, ok)
}

func TestBugRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	id := uuid.New()
	tagID := uuid.New()
	c.SetBug(ctx, &domain.BugReadModel{
		ID:           id,
		Title:        "checkout broken",
		Environment:  domain.EnvProd,
		Urgency:      domain.UrgencyHigh,
		Status:       domain.BugStatusNew,
		RecordStatus: domain.RecordStatusActive,
		Version:      3,
		TagIDs:       []uuid.UUID{tagID},
	})

	got, ok := c.GetBug(ctx, id)
	require.True(t, ok)
	assert.Equal(t, "checkout broken", got.Title)
	assert.Equal(t, 3, got.Version)
	require.Len(t, got.TagIDs, 1)
	assert.Equal(t, tagID, got.TagIDs[0])
}

func TestMissAndExpiry(t *testing.T) {
	c, mr := newTestCache(t, WithTTL(time.Second))
	ctx := context.Background()

	_, ok := c.GetBug(ctx, uuid.New())
	assert.False(t, ok, "unknown key is a miss")

	id := uuid.New()
	c.SetBug(ctx, &domain.BugReadModel{ID: id, Title: "short lived"})
	_, ok = c.GetBug(ctx, id)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)
	_, ok = c.GetBug(ctx, id)
	assert.False(t, ok, "entries expire after the TTL")
}

func TestUndecodableEntryIsDropped(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	id := uuid.New()
	require.NoError(t, mr.Set(userKeyPrefix+id.String(), "not msgpack at all"))

	_, ok := c.GetUser(ctx, id)
	assert.False(t, ok)
	assert.False(t, mr.Exists(userKeyPrefix+id.String()), "corrupt entry is evicted")
}

func TestRedisDownDegradesToMiss(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	id := uuid.New()
	c.SetUser(ctx, &domain.UserReadModel{ID: id, Username: "x"})
	mr.Close()

	_, ok := c.GetUser(ctx, id)
	assert.False(t, ok)

	// Writes and deletes swallow the failure too.
	c.SetUser(ctx, &domain.UserReadModel{ID: id, Username: "y"})
	c.DropUser(ctx, id)
}
