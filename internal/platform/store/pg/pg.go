// Package pg opens a pgxpool and waits for Postgres to accept queries
package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config configures the pool and the readiness wait
type Config struct {
	URL      string
	MaxConns int32

	// Attempts bounds the readiness pings, PingTimeout bounds each one
	Attempts    int
	PingTimeout time.Duration
}

var newPool = pgxpool.NewWithConfig

// Open builds the pool and blocks until a ping succeeds or attempts run out
func Open(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	pool, err := newPool(ctx, pcfg)
	if err != nil {
		return nil, err
	}
	if err := waitReady(ctx, pool, cfg.Attempts, cfg.PingTimeout); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// waitReady pings with doubling backoff capped at two seconds
func waitReady(ctx context.Context, p interface{ Ping(context.Context) error }, attempts int, timeout time.Duration) error {
	if attempts <= 0 {
		attempts = 20
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	backoff := 150 * time.Millisecond
	var last error
	for i := 0; i < attempts; i++ {
		pctx, cancel := context.WithTimeout(ctx, timeout)
		last = p.Ping(pctx)
		cancel()
		if last == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(2*backoff, 2*time.Second)
	}
	return fmt.Errorf("postgres not ready after %d pings: %w", attempts, last)
}
