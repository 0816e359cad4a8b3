package orders

import "context"

// Storage persists the catalog and completed orders. CreateOrder must be
// durable before GetOrders reflects it.
type Storage interface {
	GetProducts(ctx context.Context) ([]Product, error)
	GetCategories(ctx context.Context) ([]Category, error)
	GetTables(ctx context.Context) ([]Table, error)
	GetOrders(ctx context.Context) ([]Order, error)
	GetOrder(ctx context.Context, id string) (Order, error)
	// GetOrderByExternalID returns ErrNotFound when no order carries the key.
	GetOrderByExternalID(ctx context.Context, externalID string) (Order, error)
	// CreateOrder is idempotent on a non-empty ExternalID: a repeated key
	// returns the stored order and existed=true.
	CreateOrder(ctx context.Context, o Order) (stored Order, existed bool, err error)
	SaveProduct(ctx context.Context, p Product) error
	DeleteProduct(ctx context.Context, id string) error
}

type TableStore interface {
	// SetTableStatus moves a table along the status machine in status.go.
	SetTableStatus(ctx context.Context, id string, to TableStatus) error
}
