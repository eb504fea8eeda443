// Package guardrails bounds the phases of an analysis run and keeps a run from executing twice
package guardrails

import (
	"context"
	"time"
)

// Timeouts are per phase budgets for one run, zero leaves a phase unbounded
type Timeouts struct {
	Run   time.Duration // whole run
	Fetch time.Duration // opening the source, not streaming its body
	Read  time.Duration // one chunk of rows
	DB    time.Duration // persisting one batch
}

func WithRun(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return bound(parent, t.Run)
}

// ForFetch bounds opening the source. Call release once the source is open:
// it stops the budget so the body may stream past it, and reports false when
// the budget ran out first. cancel ends the body
func ForFetch(parent context.Context, t Timeouts) (ctx context.Context, release func() bool, cancel context.CancelFunc) {
	ctx, cancel = context.WithCancel(parent)
	if t.Fetch <= 0 {
		return ctx, func() bool { return true }, cancel
	}
	timer := time.AfterFunc(t.Fetch, cancel)
	return ctx, timer.Stop, cancel
}

func ForRead(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return bound(parent, t.Read)
}

func ForDB(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return bound(parent, t.DB)
}

// Remaining is the time left before ctx's deadline, 0 without one or once it passed
func Remaining(ctx context.Context) time.Duration {
	dl, ok := ctx.Deadline()
	if !ok {
		return 0
	}
	return max(time.Until(dl), 0)
}

// bound derives a cancelable child limited to d. A parent deadline that comes sooner still wins
func bound(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, d)
}
