// Package repokit binds domain repositories to a store.RowQuerier, inside or outside a transaction
package repokit

import (
	"context"

	"claimguard/internal/platform/store"
)

type (
	// Queryer is the sql surface a bound repo runs on
	Queryer = store.RowQuerier

	// TxRunner opens the transactions repos are bound into
	TxRunner = store.TxRunner
)

// Binder builds a repo over q, once per transaction
type Binder[T any] interface {
	Bind(q Queryer) T
}

// BindFunc adapts a plain constructor to Binder
type BindFunc[T any] func(Queryer) T

// Bind implements Binder
func (f BindFunc[T]) Bind(q Queryer) T { return f(q) }

// InTx binds b inside one transaction on tx and hands the repo to fn
func InTx[T any](ctx context.Context, tx TxRunner, b Binder[T], fn func(repo T) error) error {
	return tx.Tx(ctx, func(q Queryer) error { return fn(b.Bind(q)) })
}
