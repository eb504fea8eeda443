package repo

import (
	"context"
	_ "embed"

	"claimguard/internal/modkit/repokit"
	perr "claimguard/internal/platform/errors"
)

//go:embed schema.sql
var schemaSQL string

// Schema returns the Postgres DDL for the analysis tables
func Schema() string { return schemaSQL }

// Migrate applies the analysis DDL, every statement is idempotent
func Migrate(ctx context.Context, db repokit.TxRunner) error {
	return db.Tx(ctx, func(q repokit.Queryer) error {
		if _, err := q.Exec(ctx, schemaSQL); err != nil {
			return perr.FromPostgres(err, "analysis: apply schema")
		}
		return nil
	})
}
