package cache

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (CacheService, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	return NewRedisCache(client, logger), mr
}

func TestRedisCache_SetGet(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	type stats struct {
		Total   int     `json:"total"`
		Average float64 `json:"average"`
	}

	require.NoError(t, c.Set(ctx, "stats:assignment:1", stats{Total: 5, Average: 77}, time.Minute))

	var got stats
	require.NoError(t, c.Get(ctx, "stats:assignment:1", &got))
	assert.Equal(t, 5, got.Total)
	assert.Equal(t, 77.0, got.Average)
}

func TestRedisCache_GetMiss(t *testing.T) {
	c, _ := newTestCache(t)

	var dest map[string]any
	err := c.Get(context.Background(), "missing", &dest)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_Delete(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "assignment:1", "payload", time.Minute))
	require.NoError(t, c.Delete(ctx, "assignment:1"))

	var dest string
	assert.ErrorIs(t, c.Get(ctx, "assignment:1", &dest), ErrCacheMiss)
}

func TestRedisCache_DeletePattern(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "assignment:1", 1, time.Minute))
	require.NoError(t, c.Set(ctx, "assignment:2", 2, time.Minute))
	require.NoError(t, c.Set(ctx, "stats:assignment:1", 3, time.Minute))

	require.NoError(t, c.DeletePattern(ctx, "assignment:*"))

	var dest int
	assert.ErrorIs(t, c.Get(ctx, "assignment:1", &dest), ErrCacheMiss)
	assert.ErrorIs(t, c.Get(ctx, "assignment:2", &dest), ErrCacheMiss)
	assert.NoError(t, c.Get(ctx, "stats:assignment:1", &dest))
}

func TestRedisCache_Expiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "assignment:1", 1, time.Second))
	mr.FastForward(2 * time.Second)

	var dest int
	assert.ErrorIs(t, c.Get(ctx, "assignment:1", &dest), ErrCacheMiss)
}
