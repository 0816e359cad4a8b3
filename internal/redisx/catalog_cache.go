package redisx

import (
	"context"

	"github.com/ariefcatur/restobill/internal/orders"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CatalogCache is a read-through cache of the menu in front of another
// Storage. Orders and tables always go to the underlying store; a Redis
// failure degrades to a direct read.
type CatalogCache struct {
	RDB  *redis.Client
	Next orders.Storage
	Log  *zap.Logger
}

var _ orders.Storage = (*CatalogCache)(nil)

func NewCatalogCache(rdb *redis.Client, next orders.Storage, log *zap.Logger) *CatalogCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogCache{RDB: rdb, Next: next, Log: log}
}

func (c *CatalogCache) GetProducts(ctx context.Context) ([]orders.Product, error) {
	var ps []orders.Product
	if ok, err := GetJSON(ctx, c.RDB, KeyCatalogProducts, &ps); err != nil {
		c.Log.Warn("catalog cache read failed", zap.String("key", KeyCatalogProducts), zap.Error(err))
	} else if ok {
		return ps, nil
	}

	ps, err := c.Next.GetProducts(ctx)
	if err != nil {
		return nil, err
	}
	if err := SetJSON(ctx, c.RDB, KeyCatalogProducts, ps, TTLCatalog); err != nil {
		c.Log.Warn("catalog cache write failed", zap.String("key", KeyCatalogProducts), zap.Error(err))
	}
	return ps, nil
}

func (c *CatalogCache) GetCategories(ctx context.Context) ([]orders.Category, error) {
	var cs []orders.Category
	if ok, err := GetJSON(ctx, c.RDB, KeyCatalogCategories, &cs); err != nil {
		c.Log.Warn("catalog cache read failed", zap.String("key", KeyCatalogCategories), zap.Error(err))
	} else if ok {
		return cs, nil
	}

	cs, err := c.Next.GetCategories(ctx)
	if err != nil {
		return nil, err
	}
	if err := SetJSON(ctx, c.RDB, KeyCatalogCategories, cs, TTLCatalog); err != nil {
		c.Log.Warn("catalog cache write failed", zap.String("key", KeyCatalogCategories), zap.Error(err))
	}
	return cs, nil
}

func (c *CatalogCache) GetTables(ctx context.Context) ([]orders.Table, error) {
	return c.Next.GetTables(ctx)
}

func (c *CatalogCache) GetOrders(ctx context.Context) ([]orders.Order, error) {
	return c.Next.GetOrders(ctx)
}

func (c *CatalogCache) GetOrder(ctx context.Context, id string) (orders.Order, error) {
	return c.Next.GetOrder(ctx, id)
}

func (c *CatalogCache) GetOrderByExternalID(ctx context.Context, externalID string) (orders.Order, error) {
	return c.Next.GetOrderByExternalID(ctx, externalID)
}

func (c *CatalogCache) CreateOrder(ctx context.Context, o orders.Order) (orders.Order, bool, error) {
	return c.Next.CreateOrder(ctx, o)
}

func (c *CatalogCache) SaveProduct(ctx context.Context, p orders.Product) error {
	if err := c.Next.SaveProduct(ctx, p); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}

func (c *CatalogCache) DeleteProduct(ctx context.Context, id string) error {
	if err := c.Next.DeleteProduct(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}

func (c *CatalogCache) invalidate(ctx context.Context) {
	if err := c.RDB.Del(ctx, KeyCatalogProducts, KeyCatalogCategories).Err(); err != nil {
		c.Log.Warn("catalog cache invalidate failed", zap.Error(err))
	}
}
