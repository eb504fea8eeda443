package service

import (
	"sync"
	"sync/atomic"

	"claimguard/internal/core/report"
	"claimguard/internal/services/analysis/domain"
)

// runState is owned by one pipeline invocation, other goroutines only read snapshots
type runState struct {
	id       string
	expected int64
	seed     int64

	mu  sync.Mutex
	run domain.Run

	// acc is touched by the pipeline goroutine only
	acc *report.Accumulator

	cancelled atomic.Bool
	cancelCh  chan struct{}
	once      sync.Once
	done      chan struct{}
}

func newRunState(run domain.Run, expected, seed int64) *runState {
	return &runState{
		id:       run.ID,
		expected: expected,
		seed:     seed,
		run:      run,
		acc:      report.NewAccumulator(),
		cancelCh: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (st *runState) snapshot() domain.Run {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.run
}

func (st *runState) apply(p domain.RunPatch) {
	st.mu.Lock()
	st.run.Apply(p)
	st.mu.Unlock()
}

// cancel flags the run and wakes anything waiting on a processing slot
func (st *runState) cancel() {
	st.cancelled.Store(true)
	st.once.Do(func() { close(st.cancelCh) })
}

func (st *runState) isCancelled() bool { return st.cancelled.Load() }

// progress is the streaming estimate, capped below 100 until the run finishes
func progress(rows, expected int64) int {
	if expected <= 0 || rows <= 0 {
		return 0
	}
	p := rows * 50 / expected
	return int(min(p, 95))
}
