package store

import (
	"context"
	"time"

	"claimguard/internal/platform/logger"
	"claimguard/internal/platform/store/pg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgxQuerier is what a pool and a transaction have in common
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// traced runs statements on q and reports each one to tracer
type traced struct {
	q      pgxQuerier
	tracer pg.QueryTracer
	slow   time.Duration
}

func (t traced) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	start := time.Now()
	ct, err := t.q.Exec(ctx, sql, args...)
	t.emit(ctx, sql, args, start, err)
	return ct, err
}

func (t traced) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	start := time.Now()
	rs, err := t.q.Query(ctx, sql, args...)
	t.emit(ctx, sql, args, start, err)
	if err != nil {
		return nil, err
	}
	return rs, nil
}

// QueryRow defers the trace until Scan so the scan error is reported
func (t traced) QueryRow(ctx context.Context, sql string, args ...any) Row {
	start := time.Now()
	return tracedRow{row: t.q.QueryRow(ctx, sql, args...), done: func(err error) {
		t.emit(ctx, sql, args, start, err)
	}}
}

func (t traced) emit(ctx context.Context, sql string, args []any, start time.Time, err error) {
	if t.tracer == nil {
		return
	}
	elapsed := time.Since(start)
	t.tracer.OnQuery(ctx, pg.QueryEvent{
		SQL:     sql,
		Args:    args,
		Elapsed: elapsed,
		Err:     err,
		Slow:    t.slow > 0 && elapsed >= t.slow,
	})
}

type tracedRow struct {
	row  pgx.Row
	done func(error)
}

func (r tracedRow) Scan(dst ...any) error {
	err := r.row.Scan(dst...)
	r.done(err)
	return err
}

// postgres is the TxRunner over a pgxpool
type postgres struct {
	traced
	pool *pgxpool.Pool
}

func openPG(ctx context.Context, cfg PGConfig, log logger.Logger) (*postgres, error) {
	pool, err := pg.Open(ctx, pg.Config{
		URL:         cfg.URL,
		MaxConns:    cfg.MaxConns,
		Attempts:    cfg.ConnectAttempts,
		PingTimeout: cfg.PingTimeout,
	})
	if err != nil {
		return nil, err
	}
	var tracer pg.QueryTracer
	if cfg.LogSQL {
		tracer = pg.LogTracer(log)
	}
	return &postgres{
		traced: traced{q: pool, tracer: tracer, slow: time.Duration(cfg.SlowQueryMs) * time.Millisecond},
		pool:   pool,
	}, nil
}

// Tx commits when fn returns nil and rolls back otherwise
func (p *postgres) Tx(ctx context.Context, fn func(q RowQuerier) error) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		return fn(traced{q: tx, tracer: p.tracer, slow: p.slow})
	})
}

func (p *postgres) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

func (p *postgres) Close() { p.pool.Close() }
