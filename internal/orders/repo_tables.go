package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TableRepo struct{ DB *pgxpool.Pool }

var _ TableStore = (*TableRepo)(nil)

func (r *Repo) GetTables(ctx context.Context) ([]Table, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, name, status FROM dining_tables ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Table
	for rows.Next() {
		var (
			t      Table
			status string
		)
		if err := rows.Scan(&t.ID, &t.Name, &status); err != nil {
			return nil, err
		}
		t.Status = TableStatus(status)
		out = append(out, t)
	}
	return out, rows.Err()
}

// SetTableStatus: lock baris meja (FOR UPDATE) -> cek transisi -> update.
// Transisi yang tidak valid di-rollback tanpa perubahan.
func (r *TableRepo) SetTableStatus(ctx context.Context, id string, to TableStatus) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var from string
	err = tx.QueryRow(ctx, `SELECT status FROM dining_tables WHERE id=$1 FOR UPDATE`, id).Scan(&from)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if !CanTransition(TableStatus(from), to) {
		return fmt.Errorf("table %s %s -> %s: %w", id, from, to, ErrInvalidTransition)
	}
	if TableStatus(from) == to {
		return nil
	}

	ct, err := tx.Exec(ctx, `UPDATE dining_tables SET status=$2, updated_at=now() WHERE id=$1`, id, string(to))
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("table %s: status not updated", id)
	}
	return tx.Commit(ctx)
}
