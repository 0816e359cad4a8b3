package redisx

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/ariefcatur/restobill/internal/orders"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := New(mr.Addr())
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestCatalogCache_ReadThroughAndInvalidate(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	store := orders.NewDemoMemStore()
	cache := NewCatalogCache(rdb, store, nil)

	first, err := cache.GetProducts(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, first)
	assert.True(t, mr.Exists(KeyCatalogProducts))

	// a write behind the cache's back is not visible until invalidation
	require.NoError(t, store.SaveProduct(ctx, orders.Product{
		ID: "p-mocha", CategoryID: "coffee", Name: "Mocha", Price: decimal.RequireFromString("4.75"), IsAvailable: true,
	}))
	cached, err := cache.GetProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, cached, len(first))

	require.NoError(t, cache.DeleteProduct(ctx, "p-espresso"))
	assert.False(t, mr.Exists(KeyCatalogProducts))

	fresh, err := cache.GetProducts(ctx)
	require.NoError(t, err)
	_, hasMocha := orders.FindProduct(fresh, "p-mocha")
	_, hasEspresso := orders.FindProduct(fresh, "p-espresso")
	assert.True(t, hasMocha)
	assert.False(t, hasEspresso)
}

func TestCatalogCache_PricesSurviveJSON(t *testing.T) {
	ctx := context.Background()
	_, rdb := newTestRedis(t)
	cache := NewCatalogCache(rdb, orders.NewDemoMemStore(), nil)

	_, err := cache.GetProducts(ctx)
	require.NoError(t, err)
	ps, err := cache.GetProducts(ctx)
	require.NoError(t, err)
	latte, ok := orders.FindProduct(ps, "p-latte")
	require.True(t, ok)
	assert.True(t, latte.Price.Equal(decimal.RequireFromString("4.50")))
}

func TestCatalogCache_RedisDownFallsThrough(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	cache := NewCatalogCache(rdb, orders.NewDemoMemStore(), nil)
	mr.Close()

	cs, err := cache.GetCategories(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, cs)
}

func TestCheckoutKeys(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	keys := CheckoutKeys{RDB: rdb}

	_, ok, err := keys.Lookup(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, keys.Remember(ctx, "k1", "order-1"))
	id, ok, err := keys.Lookup(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "order-1", id)

	mr.FastForward(TTLIdempotency)
	_, ok, err = keys.Lookup(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)
}
