package inventory

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-retail-stock/internal/errs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct{ DB *pgxpool.Pool }

func (r *PostgresStore) Variants(ctx context.Context, skus []string) (map[string]Variant, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT sku, available_quantity, reserved_quantity, updated_at
		FROM variants WHERE sku = ANY($1)`, skus)
	if err != nil {
		return nil, errs.Unavailable(err, "query variants")
	}
	defer rows.Close()

	out := make(map[string]Variant, len(skus))
	for rows.Next() {
		var v Variant
		if err := rows.Scan(&v.SKU, &v.Available, &v.Reserved, &v.UpdatedAt); err != nil {
			return nil, errs.Unavailable(err, "scan variant")
		}
		out[v.SKU] = v
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Unavailable(err, "iterate variants")
	}
	return out, nil
}

// Apply runs every adjustment in one transaction. The guarded UPDATE keeps
// both quantities non-negative even if a caller skipped the lock.
func (r *PostgresStore) Apply(ctx context.Context, adjustments []Adjustment) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errs.Unavailable(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, a := range adjustments {
		ct, err := tx.Exec(ctx, `
			UPDATE variants
			SET available_quantity = available_quantity + $2,
			    reserved_quantity  = reserved_quantity + $3,
			    updated_at = now()
			WHERE sku = $1
			  AND available_quantity + $2 >= 0
			  AND reserved_quantity + $3 >= 0`,
			a.SKU, a.AvailableDelta, a.ReservedDelta)
		if err != nil {
			return errs.Unavailable(err, "update variant "+a.SKU)
		}
		if ct.RowsAffected() != 1 {
			return errs.Mark(errs.Newf("variant %s missing or would go negative", a.SKU), errs.ErrInsufficientStock)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errs.Unavailable(err, "commit")
	}
	return nil
}

func (r *PostgresStore) SetAvailable(ctx context.Context, sku string, qty int) (int, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, errs.Unavailable(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var prev int
	err = tx.QueryRow(ctx, `SELECT available_quantity FROM variants WHERE sku=$1 FOR UPDATE`, sku).Scan(&prev)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return 0, errs.Unavailable(err, "select variant")
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO variants(sku, available_quantity, reserved_quantity)
		VALUES ($1, $2, 0)
		ON CONFLICT (sku) DO UPDATE
		SET available_quantity = EXCLUDED.available_quantity, updated_at = now()`,
		sku, qty); err != nil {
		return 0, errs.Unavailable(err, "upsert variant")
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, errs.Unavailable(err, "commit")
	}
	return prev, nil
}
