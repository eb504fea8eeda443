package store

import (
	"context"

	chx "claimguard/internal/platform/store/ch"
)

// clickhouse narrows *ch.CH to the store seam, only Rows.Close differs
type clickhouse struct{ *chx.CH }

func openCH(ctx context.Context, cfg Config) (clickhouse, error) {
	c, err := chx.Open(ctx, chx.Config{
		URL:    cfg.CH.URL,
		Role:   cfg.CH.Role,
		Tag:    cfg.AppName,
		LogSQL: cfg.CH.LogSQL,
	})
	if err != nil {
		return clickhouse{}, err
	}
	return clickhouse{c}, nil
}

func (c clickhouse) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rs, err := c.CH.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return chRows{rs}, nil
}

type chRows struct{ chx.Rows }

func (r chRows) Close() { _ = r.Rows.Close() }
