package redisx

import "time"

const (
	// Idempotency checkout: idem:pos:checkout:{idempotency_key} -> order_id
	KeyIdemCheckout = "idem:pos:checkout:%s"

	// Catalog cache: catalog:products / catalog:categories -> JSON array
	KeyCatalogProducts   = "catalog:products"
	KeyCatalogCategories = "catalog:categories"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Daily sales: hash sales:{yyyy-mm-dd} {total, orders}
	KeySalesDay = "sales:%s"

	// SalesDaysKept is how far back the daily sales hashes reach.
	SalesDaysKept = 90
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLCatalog     = 10 * time.Minute
	TTLDedup       = 48 * time.Hour
	TTLSalesDay    = SalesDaysKept * 24 * time.Hour
)
