package orders

import (
	"context"
	"errors"
	"time"

	"github.com/ariefcatur/go-retail-stock/internal/errs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository persists orders and their items.
type Repository interface {
	FindByExternalID(ctx context.Context, externalID string) (Order, error)
	// CreateOrder inserts the order and its pending items. A concurrent insert
	// with the same external id yields an error marked ErrAlreadyExists.
	CreateOrder(ctx context.Context, in PlaceOrderInput) (Order, error)
	GetOrder(ctx context.Context, id string) (Order, error)
	GetItem(ctx context.Context, id string) (OrderItem, error)
	// UpdateItemStatus moves an item only if it is still in from.
	UpdateItemStatus(ctx context.Context, id string, from, to Status) (OrderItem, error)
	// CancelOrder cancels every non-terminal item unless an item is delivered.
	CancelOrder(ctx context.Context, orderID string) (int, error)
}

var ErrAlreadyExists = errs.New("order already exists")

type Repo struct{ DB *pgxpool.Pool }

const itemColumns = `id, order_id, sku, qty, unit_price::text, total_price::text, status, updated_at`

func (r *Repo) FindByExternalID(ctx context.Context, externalID string) (Order, error) {
	var id string
	err := r.DB.QueryRow(ctx, `SELECT id FROM orders WHERE external_id=$1`, externalID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, errs.Mark(errs.Newf("order with external id %q", externalID), errs.ErrNotFound)
	}
	if err != nil {
		return Order{}, errs.Unavailable(err, "find order")
	}
	return r.GetOrder(ctx, id)
}

func (r *Repo) CreateOrder(ctx context.Context, in PlaceOrderInput) (Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, errs.Unavailable(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o := Order{ID: uuid.NewString(), ExternalID: in.ExternalID, PaymentMethod: in.PaymentMethod}
	err = tx.QueryRow(ctx, `
		INSERT INTO orders(id, external_id, payment_method)
		VALUES ($1, $2, $3)
		RETURNING created_at`, o.ID, o.ExternalID, o.PaymentMethod).Scan(&o.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Order{}, errs.Mark(errs.Wrap(err, "insert order"), ErrAlreadyExists)
		}
		return Order{}, errs.Unavailable(err, "insert order")
	}

	for _, line := range in.Items {
		it := NewItem(uuid.NewString(), o.ID, line)
		err = tx.QueryRow(ctx, `
			INSERT INTO order_items(id, order_id, sku, qty, unit_price, total_price, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING updated_at`,
			it.ID, it.OrderID, it.SKU, it.Qty, it.UnitPrice.String(), it.TotalPrice.String(), string(it.Status),
		).Scan(&it.UpdatedAt)
		if err != nil {
			return Order{}, errs.Unavailable(err, "insert order item")
		}
		o.Items = append(o.Items, it)
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, errs.Unavailable(err, "commit")
	}
	return o, nil
}

// GetOrder reads the order and all of its items inside one repeatable-read
// transaction, so every derived figure comes from the same snapshot.
func (r *Repo) GetOrder(ctx context.Context, id string) (Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return Order{}, errs.Unavailable(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o := Order{ID: id}
	err = tx.QueryRow(ctx, `SELECT external_id, payment_method, created_at FROM orders WHERE id=$1`, id).
		Scan(&o.ExternalID, &o.PaymentMethod, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, errs.Mark(errs.Newf("order %q", id), errs.ErrNotFound)
	}
	if err != nil {
		return Order{}, errs.Unavailable(err, "select order")
	}

	rows, err := tx.Query(ctx, `SELECT `+itemColumns+` FROM order_items WHERE order_id=$1 ORDER BY position`, id)
	if err != nil {
		return Order{}, errs.Unavailable(err, "select order items")
	}
	defer rows.Close()
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return Order{}, err
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return Order{}, errs.Unavailable(err, "iterate order items")
	}
	return o, nil
}

func (r *Repo) GetItem(ctx context.Context, id string) (OrderItem, error) {
	it, err := scanItem(r.DB.QueryRow(ctx, `SELECT `+itemColumns+` FROM order_items WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return OrderItem{}, errs.Mark(errs.Newf("order item %q", id), errs.ErrNotFound)
	}
	return it, err
}

func (r *Repo) UpdateItemStatus(ctx context.Context, id string, from, to Status) (OrderItem, error) {
	it, err := scanItem(r.DB.QueryRow(ctx, `
		UPDATE order_items SET status=$3, updated_at=now()
		WHERE id=$1 AND status=$2
		RETURNING `+itemColumns, id, string(from), string(to)))
	if errors.Is(err, pgx.ErrNoRows) {
		cur, gerr := r.GetItem(ctx, id)
		if gerr != nil {
			return OrderItem{}, gerr
		}
		return OrderItem{}, errs.Wrap(illegalTransition(id, cur.Status, to), "status changed concurrently")
	}
	return it, err
}

func (r *Repo) CancelOrder(ctx context.Context, orderID string) (int, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE order_items SET status='cancelled', updated_at=now()
		WHERE order_id=$1
		  AND status IN ('pending','processing','shipped')
		  AND NOT EXISTS (
		      SELECT 1 FROM order_items d WHERE d.order_id=$1 AND d.status='delivered')`, orderID)
	if err != nil {
		return 0, errs.Unavailable(err, "cancel order items")
	}
	return int(ct.RowsAffected()), nil
}

func scanItem(row pgx.Row) (OrderItem, error) {
	var (
		it          OrderItem
		unit, total string
		status      string
		updatedAt   time.Time
	)
	if err := row.Scan(&it.ID, &it.OrderID, &it.SKU, &it.Qty, &unit, &total, &status, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return it, err
		}
		return it, errs.Unavailable(err, "scan order item")
	}
	var err error
	if it.UnitPrice, err = decimal.NewFromString(unit); err != nil {
		return it, errs.Wrap(err, "parse unit price")
	}
	if it.TotalPrice, err = decimal.NewFromString(total); err != nil {
		return it, errs.Wrap(err, "parse total price")
	}
	it.Status = Status(status)
	it.UpdatedAt = updatedAt
	return it, nil
}
