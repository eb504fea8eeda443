package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"claimguard/internal/platform/store/pg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scanRow struct{ err error }

func (r scanRow) Scan(dst ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dst[0].(*int)) = 7
	return nil
}

type fakePgx struct {
	delay   time.Duration
	execErr error
	rowErr  error
}

func (f fakePgx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	time.Sleep(f.delay)
	return pgconn.NewCommandTag("INSERT 0 3"), f.execErr
}

func (f fakePgx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("no rows here")
}

func (f fakePgx) QueryRow(context.Context, string, ...any) pgx.Row { return scanRow{err: f.rowErr} }

type recordTracer struct{ events []pg.QueryEvent }

func (r *recordTracer) OnQuery(_ context.Context, ev pg.QueryEvent) { r.events = append(r.events, ev) }

func TestTraced_ExecReportsTagAndSlowness(t *testing.T) {
	tr := &recordTracer{}
	q := traced{q: fakePgx{delay: 5 * time.Millisecond}, tracer: tr, slow: time.Millisecond}

	tag, err := q.Exec(context.Background(), "INSERT INTO runs\n\tVALUES ($1)", "r1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), tag.RowsAffected())

	require.Len(t, tr.events, 1)
	assert.True(t, tr.events[0].Slow)
	assert.Equal(t, []any{"r1"}, tr.events[0].Args)
}

func TestTraced_QueryRowTracesAfterScan(t *testing.T) {
	tr := &recordTracer{}
	q := traced{q: fakePgx{rowErr: pgx.ErrNoRows}, tracer: tr}

	row := q.QueryRow(context.Background(), "SELECT 1")
	assert.Empty(t, tr.events, "nothing is traced before Scan")

	var n int
	require.ErrorIs(t, row.Scan(&n), pgx.ErrNoRows)
	require.Len(t, tr.events, 1)
	assert.ErrorIs(t, tr.events[0].Err, pgx.ErrNoRows)
	assert.False(t, tr.events[0].Slow, "zero threshold never marks slow")
}

func TestTraced_QueryErrorAndNoTracer(t *testing.T) {
	q := traced{q: fakePgx{}}
	_, err := q.Query(context.Background(), "SELECT 1")
	require.Error(t, err)

	var n int
	require.NoError(t, q.QueryRow(context.Background(), "SELECT 7").Scan(&n))
	assert.Equal(t, 7, n)
}
