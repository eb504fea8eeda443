// Package store opens the optional Postgres and ClickHouse backends behind small seams
package store

import (
	"context"
	"fmt"

	"claimguard/internal/platform/logger"
)

// Store holds whichever backends were enabled, a zero Store has none
type Store struct {
	Log logger.Logger

	// PG is nil unless Postgres is configured
	PG TxRunner

	// CH is nil unless ClickHouse is configured
	CH Clickhouse
}

// Row is a single row result
type Row interface {
	Scan(dest ...any) error
}

// Rows iterates a result set
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// CommandTag reports what a write touched
type CommandTag interface {
	String() string
	RowsAffected() int64
}

// RowQuerier is the sql surface repos are written against
type RowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// TxRunner runs fn inside one transaction, committing when fn returns nil
type TxRunner interface {
	RowQuerier
	Tx(ctx context.Context, fn func(q RowQuerier) error) error
}

// Clickhouse is the columnar surface, Insert sends rows as one native block
type Clickhouse interface {
	Insert(ctx context.Context, table string, rows [][]any) error
	Exec(ctx context.Context, sql string, args ...any) error
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	Close() error
}

type Option func(*Store)

// WithLogger traces Postgres statements through log
func WithLogger(log logger.Logger) Option { return func(s *Store) { s.Log = log } }

// Open connects every enabled backend, closing the ones already up when a later one fails
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	s := &Store{}
	for _, o := range opts {
		o(s)
	}
	steps := []struct {
		name string
		on   bool
		open func() error
	}{
		{"postgres", cfg.PG.Enabled, func() error {
			p, err := openPG(ctx, cfg.PG, s.Log)
			if err == nil {
				s.PG = p
			}
			return err
		}},
		{"clickhouse", cfg.CH.Enabled, func() error {
			c, err := openCH(ctx, cfg)
			if err == nil {
				s.CH = c
			}
			return err
		}},
	}
	for _, st := range steps {
		if !st.on {
			continue
		}
		if err := st.open(); err != nil {
			_ = s.Close(ctx)
			return nil, fmt.Errorf("store: %s: %w", st.name, err)
		}
	}
	return s, nil
}

// Close releases whatever Open connected
func (s *Store) Close(context.Context) error {
	if s == nil {
		return nil
	}
	if c, ok := s.PG.(interface{ Close() }); ok {
		c.Close()
	}
	if s.CH == nil {
		return nil
	}
	return s.CH.Close()
}
