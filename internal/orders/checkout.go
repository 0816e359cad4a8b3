package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CheckoutRequest struct {
	PaymentMethod PaymentMethod
	Table         *Table // nil = takeaway
	CashierID     string
	ExternalID    string // optional idempotency key
}

// Register turns a cart into a persisted Order.
type Register struct {
	Store  Storage
	Tables TableStore // optional
	Log    *zap.Logger
	Now    func() time.Time
	NewID  func() string

	// OnCompleted runs once per newly stored order, after the cart was
	// cleared. Idempotent replays do not trigger it.
	OnCompleted func(ctx context.Context, o Order)
}

func NewRegister(store Storage, tables TableStore, log *zap.Logger) *Register {
	if log == nil {
		log = zap.NewNop()
	}
	return &Register{Store: store, Tables: tables, Log: log, Now: time.Now, NewID: uuid.NewString}
}

// Checkout snapshots the cart into an Order and persists it. The cart is
// cleared and its discount reset only after the store confirmed the write;
// on a StorageError both are left as they were.
//
// A request whose ExternalID is already stored is a replay: the stored
// order comes back with replayed=true and neither the cart nor the table is
// touched, whatever the cart holds now.
func (r *Register) Checkout(ctx context.Context, cart *Cart, req CheckoutRequest) (o Order, replayed bool, err error) {
	if req.ExternalID != "" {
		prev, err := r.Store.GetOrderByExternalID(ctx, req.ExternalID)
		switch {
		case err == nil:
			r.Log.Info("checkout: idempotent replay", zap.String("order_id", prev.ID), zap.String("external_id", req.ExternalID))
			return prev, true, nil
		case !errors.Is(err, ErrNotFound):
			return Order{}, false, &StorageError{Op: "lookup order", Err: err}
		}
	}
	if cart.Len() == 0 {
		return Order{}, false, ErrEmptyCart
	}
	if !req.PaymentMethod.Valid() {
		return Order{}, false, &ValidationError{Field: "payment_method", Msg: "must be CASH or CARD"}
	}

	lines := cart.Lines()
	t := ComputeTotals(lines, cart.DiscountPercent())
	o = Order{
		ID:              r.NewID(),
		ExternalID:      req.ExternalID,
		Items:           lines,
		Subtotal:        t.Subtotal,
		DiscountPercent: cart.DiscountPercent(),
		DiscountAmount:  t.DiscountAmount,
		Tax:             t.Tax,
		Total:           t.Total,
		PaymentMethod:   req.PaymentMethod,
		Timestamp:       r.Now().UTC(),
		CashierID:       req.CashierID,
		Status:          StatusCompleted,
	}
	if req.Table != nil {
		id, name := req.Table.ID, req.Table.Name
		o.TableID, o.TableName = &id, &name
	}

	stored, existed, err := r.Store.CreateOrder(ctx, o)
	if err != nil {
		r.Log.Warn("checkout: create order failed", zap.String("cashier_id", req.CashierID), zap.Error(err))
		return Order{}, false, &StorageError{Op: "create order", Err: err}
	}
	if existed {
		// lost the race to a concurrent request with the same key
		r.Log.Info("checkout: idempotent replay", zap.String("order_id", stored.ID), zap.String("external_id", req.ExternalID))
		return stored, true, nil
	}

	cart.Reset()

	// meja dibebaskan setelah bayar; gagal di sini tidak membatalkan order
	if req.Table != nil && r.Tables != nil {
		if err := r.Tables.SetTableStatus(ctx, req.Table.ID, TableAvailable); err != nil {
			r.Log.Warn("checkout: release table", zap.String("table_id", req.Table.ID), zap.Error(err))
		}
	}
	if r.OnCompleted != nil {
		r.OnCompleted(ctx, stored)
	}
	return stored, false, nil
}
