package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/R3E-Network/vybe_engagement/internal/app/domain/counter"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseCache(t *testing.T, c CounterCache) {
	t.Helper()
	ctx := context.Background()
	likes := counter.Key{Kind: counter.Likes, EntityID: "post-1"}
	followers := counter.Key{Kind: counter.Followers, EntityID: "u:1"}

	_, ok, err := c.Get(ctx, likes)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, likes, 7, time.Minute))
	require.NoError(t, c.Set(ctx, followers, 3, 0))

	v, ok, err := c.Get(ctx, likes)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(7), v)

	keys, err := c.Keys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []counter.Key{likes, followers}, keys)

	require.NoError(t, c.Delete(ctx, likes))
	_, ok, err = c.Get(ctx, likes)
	require.NoError(t, err)
	assert.False(t, ok)

	keys, err = c.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []counter.Key{followers}, keys)

	require.NoError(t, c.Delete(ctx))
}

func TestMemoryCache(t *testing.T) {
	exerciseCache(t, NewMemory())
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemory()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	key := counter.Key{Kind: counter.Comments, EntityID: "p"}

	require.NoError(t, c.Set(context.Background(), key, 2, time.Second))
	now = now.Add(2 * time.Second)

	_, ok, err := c.Get(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, ok)

	// expired entries stay listed until deleted
	keys, err := c.Keys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []counter.Key{key}, keys)
}

func TestRedisCache(t *testing.T) {
	_ = godotenv.Load("../../../.env")
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	c := NewRedis(client, "test:"+uuid.NewString()+":")
	require.NoError(t, c.Ping(context.Background()))
	exerciseCache(t, c)
}
