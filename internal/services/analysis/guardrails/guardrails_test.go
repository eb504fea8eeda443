package guardrails

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"claimguard/internal/platform/store"
)

func TestWithChildTimeout_ZeroInheritsParent(t *testing.T) {
	t.Parallel()

	ctx, cancel := ForRead(context.Background(), Timeouts{})
	defer cancel()
	if _, ok := ctx.Deadline(); ok {
		t.Fatalf("zero budget should not set a deadline")
	}
}

func TestForFetch_ReleasedBodyOutlivesBudget(t *testing.T) {
	t.Parallel()

	ctx, release, cancel := ForFetch(context.Background(), Timeouts{Fetch: 10 * time.Millisecond})
	defer cancel()
	if !release() {
		t.Fatalf("release before the budget should report the source as opened")
	}
	time.Sleep(40 * time.Millisecond)
	if err := ctx.Err(); err != nil {
		t.Fatalf("released fetch context ended: %v", err)
	}

	cancel()
	if ctx.Err() == nil {
		t.Fatalf("cancel should end the body context")
	}
}

func TestForFetch_BudgetEndsSlowOpen(t *testing.T) {
	t.Parallel()

	ctx, release, cancel := ForFetch(context.Background(), Timeouts{Fetch: 10 * time.Millisecond})
	defer cancel()
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("fetch budget did not expire")
	}
	if release() {
		t.Fatalf("release after the budget ran out should report false")
	}
}

func TestForFetch_ZeroBudget(t *testing.T) {
	t.Parallel()

	ctx, release, cancel := ForFetch(context.Background(), Timeouts{})
	defer cancel()
	if _, ok := ctx.Deadline(); ok {
		t.Fatalf("zero budget should not set a deadline")
	}
	if !release() {
		t.Fatalf("zero budget always opens")
	}
}

func TestWithChildTimeout_NeverExtendsParent(t *testing.T) {
	t.Parallel()

	parent, pcancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer pcancel()

	ctx, cancel := ForDB(parent, Timeouts{DB: time.Hour})
	defer cancel()

	dl, ok := ctx.Deadline()
	if !ok {
		t.Fatalf("expected a deadline")
	}
	if time.Until(dl) > time.Second {
		t.Fatalf("child deadline extended past parent: %v", time.Until(dl))
	}
}

func TestWithChildTimeout_TighterChild(t *testing.T) {
	t.Parallel()

	ctx, cancel := ForRead(context.Background(), Timeouts{Read: 20 * time.Millisecond})
	defer cancel()
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("read budget did not expire")
	}
}

func TestRemaining(t *testing.T) {
	t.Parallel()

	if got := Remaining(context.Background()); got != 0 {
		t.Fatalf("Remaining without deadline = %v", got)
	}
	ctx, cancel := WithRun(context.Background(), Timeouts{Run: time.Minute})
	defer cancel()
	if got := Remaining(ctx); got <= 0 || got > time.Minute {
		t.Fatalf("Remaining = %v", got)
	}
}

// claimRows yields a single row when won is true
type claimRows struct {
	won  bool
	done bool
}

func (r *claimRows) Next() bool {
	if r.won && !r.done {
		r.done = true
		return true
	}
	return false
}
func (r *claimRows) Scan(...any) error { return nil }
func (r *claimRows) Err() error        { return nil }
func (r *claimRows) Close()            {}

type claimQ struct {
	won     bool
	lastSQL string
	args    []any
}

func (q *claimQ) Exec(context.Context, string, ...any) (store.CommandTag, error) { return nil, nil }
func (q *claimQ) Query(_ context.Context, sql string, args ...any) (store.Rows, error) {
	q.lastSQL = sql
	q.args = args
	return &claimRows{won: q.won}, nil
}
func (q *claimQ) QueryRow(context.Context, string, ...any) store.Row { return nil }

type claimTx struct{ q *claimQ }

func (t claimTx) Tx(_ context.Context, fn func(store.RowQuerier) error) error { return fn(t.q) }
func (t claimTx) Exec(ctx context.Context, sql string, args ...any) (store.CommandTag, error) {
	return t.q.Exec(ctx, sql, args...)
}
func (t claimTx) Query(ctx context.Context, sql string, args ...any) (store.Rows, error) {
	return t.q.Query(ctx, sql, args...)
}
func (t claimTx) QueryRow(ctx context.Context, sql string, args ...any) store.Row {
	return t.q.QueryRow(ctx, sql, args...)
}

func TestMakeRunClaim_Won(t *testing.T) {
	t.Parallel()

	q := &claimQ{won: true}
	claim := MakeRunClaim(claimTx{q: q})

	ran := false
	err := claim(context.Background(), "run-1", func(context.Context) error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !ran {
		t.Fatalf("do was not called on a won claim")
	}
	if !strings.Contains(q.lastSQL, "status = 'queued'") {
		t.Fatalf("claim sql should guard on queued: %s", q.lastSQL)
	}
	if len(q.args) != 1 || q.args[0] != "run-1" {
		t.Fatalf("args = %v", q.args)
	}
}

func TestMakeRunClaim_Lost(t *testing.T) {
	t.Parallel()

	claim := MakeRunClaim(claimTx{q: &claimQ{won: false}})
	err := claim(context.Background(), "run-1", func(context.Context) error {
		t.Fatalf("do must not run on a lost claim")
		return nil
	})
	if !errors.Is(err, ErrRunClaimed) {
		t.Fatalf("err = %v, want ErrRunClaimed", err)
	}
}
