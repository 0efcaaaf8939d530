package cache

import (
	"context"
	"testing"
	"time"

	"storefront/internal/domain/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestRedis(t *testing.T) (*RedisSummaryCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisSummaryCache(client, zap.NewNop()), mr
}

func TestSetGet_RoundTrip(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	in := model.CartSummary{ItemCount: 2, TotalQuantity: 5, TotalPrice: 4500, FormattedTotal: "$45.00"}
	require.NoError(t, c.Set(ctx, 7, 1, in))

	assert.True(t, mr.Exists("cart:summary:7:v1"))

	out, err := c.Get(ctx, 7, 1)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestVersionsAreSeparateKeys(t *testing.T) {
	c, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, 5, 1, model.CartSummary{TotalQuantity: 2}))

	_, err := c.Get(ctx, 5, 2)
	assert.ErrorIs(t, err, ErrCacheMiss)

	old, err := c.Get(ctx, 5, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), old.TotalQuantity)
}

func TestSet_TTLWithinJitter(t *testing.T) {
	c, mr := setupTestRedis(t)

	require.NoError(t, c.Set(context.Background(), 1, 0, model.CartSummary{IsEmpty: true}))

	ttl := mr.TTL("cart:summary:1:v0")
	assert.GreaterOrEqual(t, ttl, 10*time.Minute)
	assert.Less(t, ttl, 11*time.Minute)
}

func TestGet_CacheMiss(t *testing.T) {
	c, _ := setupTestRedis(t)

	_, err := c.Get(context.Background(), 404, 0)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestGet_InvalidJSON(t *testing.T) {
	c, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("cart:summary:3:v0", "{broken"))

	_, err := c.Get(context.Background(), 3, 0)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestDelete(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, 9, 2, model.CartSummary{ItemCount: 1}))
	require.NoError(t, c.Delete(ctx, 9, 2))

	assert.False(t, mr.Exists("cart:summary:9:v2"))
	_, err := c.Get(ctx, 9, 2)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestBreakerOpensWhenRedisDown(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()
	mr.Close()

	for i := 0; i < 5; i++ {
		_, err := c.Get(ctx, 1, 0)
		require.Error(t, err)
	}

	_, err := c.Get(ctx, 1, 0)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestCacheMissDoesNotTripBreaker(t *testing.T) {
	c, _ := setupTestRedis(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := c.Get(ctx, 1, 0)
		require.ErrorIs(t, err, ErrCacheMiss)
	}
	assert.Equal(t, gobreaker.StateClosed, c.breaker.State())
}

func TestNopSummaryCache(t *testing.T) {
	var c SummaryCache = NopSummaryCache{}
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, 1, 0, model.CartSummary{ItemCount: 1}))
	_, err := c.Get(ctx, 1, 0)
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.NoError(t, c.Delete(ctx, 1, 0))
}
