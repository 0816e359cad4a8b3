package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repo is the Postgres Storage. Money columns are NUMERIC; they travel as
// text so no precision is lost on the way to decimal.Decimal.
type Repo struct{ DB *pgxpool.Pool }

var _ Storage = (*Repo)(nil)

func (r *Repo) GetCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) GetProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, category_id, name, price::text, is_available
	                              FROM products ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var (
			p     Product
			price string
		)
		if err := rows.Scan(&p.ID, &p.CategoryID, &p.Name, &price, &p.IsAvailable); err != nil {
			return nil, err
		}
		if p.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("product %s price: %w", p.ID, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) SaveProduct(ctx context.Context, p Product) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO products(id, category_id, name, price, is_available)
		VALUES ($1, $2, $3, $4::numeric, $5)
		ON CONFLICT (id) DO UPDATE
		SET category_id = EXCLUDED.category_id,
		    name = EXCLUDED.name,
		    price = EXCLUDED.price,
		    is_available = EXCLUDED.is_available,
		    updated_at = now()`,
		p.ID, p.CategoryID, p.Name, p.Price.String(), p.IsAvailable)
	return err
}

func (r *Repo) DeleteProduct(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const orderColumns = `id, COALESCE(external_id, ''), table_id, table_name,
	subtotal::text, discount_percent::text, discount_amount::text, tax::text, total::text,
	payment_method, created_at, cashier_id, status`

func (r *Repo) GetOrders(ctx context.Context) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	out, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, err
	}

	items, err := r.loadItems(ctx, `SELECT order_id, line_id, product_id, category_id, name, price::text, qty
	                                FROM order_items ORDER BY order_id, position`)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
	}
	return out, nil
}

func (r *Repo) GetOrder(ctx context.Context, id string) (Order, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id)
	if err != nil {
		return Order{}, err
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	items, err := r.loadItems(ctx, `SELECT order_id, line_id, product_id, category_id, name, price::text, qty
	                                FROM order_items WHERE order_id=$1 ORDER BY position`, id)
	if err != nil {
		return Order{}, err
	}
	o.Items = items[o.ID]
	return o, nil
}

func (r *Repo) GetOrderByExternalID(ctx context.Context, externalID string) (Order, error) {
	var id string
	err := r.DB.QueryRow(ctx, `SELECT id FROM orders WHERE external_id=$1`, externalID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	return r.GetOrder(ctx, id)
}

// CreateOrder: idempotent via external_id.
// - kalau external_id sudah ada -> return order lama (existed=true).
func (r *Repo) CreateOrder(ctx context.Context, o Order) (Order, bool, error) {
	if o.ExternalID != "" {
		existing, err := r.GetOrderByExternalID(ctx, o.ExternalID)
		if err == nil {
			return existing, true, nil
		} else if !errors.Is(err, ErrNotFound) {
			return Order{}, false, err
		}
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, `
		INSERT INTO orders(id, external_id, table_id, table_name,
		                   subtotal, discount_percent, discount_amount, tax, total,
		                   payment_method, cashier_id, status, created_at)
		VALUES ($1, NULLIF($2, ''), $3, $4,
		        $5::numeric, $6::numeric, $7::numeric, $8::numeric, $9::numeric,
		        $10, $11, $12, $13)
		ON CONFLICT (external_id) DO NOTHING`,
		o.ID, o.ExternalID, o.TableID, o.TableName,
		o.Subtotal.String(), o.DiscountPercent.String(), o.DiscountAmount.String(), o.Tax.String(), o.Total.String(),
		string(o.PaymentMethod), o.CashierID, string(o.Status), o.Timestamp)
	if err != nil {
		return Order{}, false, err
	}
	if ct.RowsAffected() == 0 {
		// kalah race dengan request lain yang pakai external_id sama
		_ = tx.Rollback(ctx)
		var id string
		if err := r.DB.QueryRow(ctx, `SELECT id FROM orders WHERE external_id=$1`, o.ExternalID).Scan(&id); err != nil {
			return Order{}, false, fmt.Errorf("%w: %v", ErrAlreadyExists, err)
		}
		existing, err := r.GetOrder(ctx, id)
		return existing, true, err
	}

	// snapshot item, bukan referensi ke products
	for i, it := range o.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(order_id, line_id, position, product_id, category_id, name, price, qty)
			VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8)`,
			o.ID, it.LineID, i, it.ID, it.CategoryID, it.Name, it.Price.String(), it.Quantity,
		); err != nil {
			return Order{}, false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, false, err
	}
	return o, false, nil
}

func scanOrder(row pgx.CollectableRow) (Order, error) {
	var (
		o                              Order
		sub, pct, disc, tax, total, pm string
		status                         string
	)
	if err := row.Scan(&o.ID, &o.ExternalID, &o.TableID, &o.TableName,
		&sub, &pct, &disc, &tax, &total, &pm, &o.Timestamp, &o.CashierID, &status); err != nil {
		return Order{}, err
	}
	var err error
	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&o.Subtotal, sub}, {&o.DiscountPercent, pct}, {&o.DiscountAmount, disc}, {&o.Tax, tax}, {&o.Total, total},
	} {
		if *f.dst, err = decimal.NewFromString(f.src); err != nil {
			return Order{}, fmt.Errorf("order %s: %w", o.ID, err)
		}
	}
	o.PaymentMethod = PaymentMethod(pm)
	o.Status = OrderStatus(status)
	return o, nil
}

func (r *Repo) loadItems(ctx context.Context, sql string, args ...any) (map[string][]CartLine, error) {
	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string][]CartLine{}
	for rows.Next() {
		var (
			orderID, price string
			l              CartLine
		)
		if err := rows.Scan(&orderID, &l.LineID, &l.ID, &l.CategoryID, &l.Name, &price, &l.Quantity); err != nil {
			return nil, err
		}
		if l.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("order %s item price: %w", orderID, err)
		}
		l.IsAvailable = true
		out[orderID] = append(out[orderID], l)
	}
	return out, rows.Err()
}
