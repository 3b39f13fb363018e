package postgres

import (
	"context"
	_ "embed"

	"github.com/ariefcatur/go-retail-stock/internal/errs"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

// Migrate applies the idempotent schema. It runs on every start.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return errs.Unavailable(err, "apply schema")
	}
	return nil
}
