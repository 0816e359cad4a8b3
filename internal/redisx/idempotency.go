package redisx

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// CheckoutKeys maps a client Idempotency-Key to the order it produced.
// The database stays the source of truth; this only short-circuits replays
// that arrive after the cart was already cleared.
type CheckoutKeys struct {
	RDB *redis.Client
}

func (k CheckoutKeys) Lookup(ctx context.Context, key string) (orderID string, ok bool, err error) {
	id, err := k.RDB.Get(ctx, fmt.Sprintf(KeyIdemCheckout, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (k CheckoutKeys) Remember(ctx context.Context, key, orderID string) error {
	return k.RDB.Set(ctx, fmt.Sprintf(KeyIdemCheckout, key), orderID, TTLIdempotency).Err()
}
