// Package service runs the claims analysis pipeline: stream a source in chunks,
// score each batch and persist results while tracking run state
package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"claimguard/internal/core/claims"
	"claimguard/internal/modkit/repokit"
	perr "claimguard/internal/platform/errors"
	"claimguard/internal/platform/logger"
	"claimguard/internal/services/analysis/domain"
	"claimguard/internal/services/analysis/guardrails"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultExpectedRows feeds the progress estimate when the caller gives no size hint
const DefaultExpectedRows = 1_000_000

// Config holds configuration options for the analysis service
type Config struct {
	// Chunk sizes by source kind; <=0 -> 10000 network, 50000 file
	ChunkNetwork int
	ChunkFile    int

	// BatchSize is the scoring unit; <=0 -> the chunk size
	BatchSize int

	// Forest knobs, zero keeps the forest defaults
	Trees     int
	SampleCap int
	Threshold float64
	Seed      int64

	// InsertChunk caps rows per record insert; <=0 -> 1000
	InsertChunk int

	// Timeouts applied via guardrails
	RunTimeout   time.Duration
	FetchTimeout time.Duration
	ReadTimeout  time.Duration
	DBTimeout    time.Duration

	// MaxConcurrentRuns bounds runs holding a processing slot; <=0 -> 1
	MaxConcurrentRuns int

	// ExpectedRows is the default size hint for progress; <=0 -> DefaultExpectedRows
	ExpectedRows int64
}

// Service implements domain.RunnerPort and domain.QueryPort
type Service struct {
	DB      repokit.TxRunner
	Binder  repokit.Binder[domain.StorageRepo]
	Sink    domain.RecordSink
	Fetch   domain.Fetcher
	Reader  domain.ReaderFactory
	Notify  domain.Notifier
	Cfg     Config

	// Claim optionally guards a run so only one process works it
	Claim guardrails.ClaimFunc

	observers []domain.BatchObserver
	slots     chan struct{}

	mu   sync.Mutex
	live map[string]*runState
	wg   sync.WaitGroup

	now   func() time.Time
	newID func() string
}

var (
	_ domain.RunnerPort = (*Service)(nil)
	_ domain.QueryPort  = (*Service)(nil)
)

// New constructs the analysis service
func New(
	db repokit.TxRunner,
	binder repokit.Binder[domain.StorageRepo],
	records domain.RecordSink,
	f domain.Fetcher,
	rf domain.ReaderFactory,
	n domain.Notifier,
	cfg Config,
	claim guardrails.ClaimFunc, // optional
) *Service {
	if db == nil {
		panic("analysis.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("analysis.Service requires a non nil Repo binder")
	}
	if records == nil {
		panic("analysis.Service requires a non nil RecordSink")
	}
	if f == nil || rf == nil {
		panic("analysis.Service requires a fetcher and a reader factory")
	}
	if n == nil {
		n = nopNotifier{}
	}
	return &Service{
		DB: db, Binder: binder, Sink: records,
		Fetch: f, Reader: rf, Notify: n,
		Cfg:   cfg,
		Claim: claim,
		slots: make(chan struct{}, max(cfg.MaxConcurrentRuns, 1)),
		live:  map[string]*runState{},
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// WithObserver registers an observer that sees every persisted batch
func (s *Service) WithObserver(o domain.BatchObserver) *Service {
	if o != nil {
		s.observers = append(s.observers, o)
	}
	return s
}

// Start queues a run and processes it in the background.
// The run outlives ctx cancellation; use Cancel to stop it
func (s *Service) Start(ctx context.Context, in domain.StartInput) (domain.Run, error) {
	st, err := s.create(ctx, in)
	if err != nil {
		return domain.Run{}, err
	}
	bg := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.execute(bg, st)
	}()
	return st.snapshot(), nil
}

// Run processes a run on the calling goroutine and returns its final view.
// A failed run returns its Result together with the failure
func (s *Service) Run(ctx context.Context, in domain.StartInput) (domain.Result, error) {
	st, err := s.create(ctx, in)
	if err != nil {
		return domain.Result{}, err
	}
	s.wg.Add(1)
	err = s.execute(ctx, st)
	s.wg.Done()

	return domain.Result{
		Run:      st.snapshot(),
		Summary:  st.acc.Summary(),
		Entities: st.acc.Entities(),
	}, err
}

// Wait blocks until every background run has finished
func (s *Service) Wait() { s.wg.Wait() }

// Status returns the live view of a run in this process, or the persisted one
func (s *Service) Status(ctx context.Context, id string) (domain.Run, error) {
	if st := s.lookup(id); st != nil {
		return st.snapshot(), nil
	}
	return s.getRun(ctx, id)
}

// Cancel asks a non terminal run to stop. A run owned by this process stops
// before its next chunk, keeping the batch in flight; a run unknown to this
// process is marked failed directly
func (s *Service) Cancel(ctx context.Context, id string) (domain.Run, error) {
	if st := s.lookup(id); st != nil {
		cur := st.snapshot()
		if cur.Status.Terminal() {
			return cur, perr.Conflictf("analysis run %s is already %s", id, cur.Status)
		}
		st.cancel()
		logger.C(logger.WithRun(ctx, id)).Info().Msg("analysis: cancel requested")
		return cur, nil
	}

	cur, err := s.getRun(ctx, id)
	if err != nil {
		return domain.Run{}, err
	}
	if cur.Status.Terminal() {
		return cur, perr.Conflictf("analysis run %s is already %s", id, cur.Status)
	}
	failed, reason, at := domain.StatusFailed, domain.CancelledReason, s.now().UTC()
	if err := s.updateRun(ctx, id, domain.RunPatch{Status: &failed, Error: &reason, FinishedAt: &at}); err != nil {
		return domain.Run{}, err
	}
	return s.getRun(ctx, id)
}

// Entities pages a run's entity aggregates
func (s *Service) Entities(ctx context.Context, q domain.EntityQuery) ([]claims.EntityAggregate, error) {
	var out []claims.EntityAggregate
	err := repokit.InTx(ctx, s.DB, s.Binder, func(r domain.StorageRepo) error {
		var e error
		out, e = r.ListEntities(ctx, q)
		return e
	})
	return out, err
}

// Alerts lists a run's alerts at or above a severity
func (s *Service) Alerts(ctx context.Context, q domain.AlertQuery) ([]claims.Alert, error) {
	var out []claims.Alert
	err := repokit.InTx(ctx, s.DB, s.Binder, func(r domain.StorageRepo) error {
		var e error
		out, e = r.ListAlerts(ctx, q)
		return e
	})
	return out, err
}

// Records lists a run's enriched records at or above a risk score
func (s *Service) Records(ctx context.Context, q domain.RecordQuery) ([]claims.EnrichedRecord, error) {
	return s.Sink.Records(ctx, q)
}

// Entity returns the latest aggregate for an entity id
func (s *Service) Entity(ctx context.Context, entityID string) (claims.EntityAggregate, error) {
	var out claims.EntityAggregate
	err := repokit.InTx(ctx, s.DB, s.Binder, func(r domain.StorageRepo) error {
		var e error
		out, e = r.EntityByID(ctx, entityID)
		return e
	})
	return out, err
}

// create validates input, persists a queued run and registers its live state
func (s *Service) create(ctx context.Context, in domain.StartInput) (*runState, error) {
	in.Source = strings.TrimSpace(in.Source)
	if in.Source == "" {
		return nil, perr.WithField(perr.InvalidArgf("source is required"), "source")
	}
	if in.ExpectedRows < 0 {
		return nil, perr.WithField(perr.InvalidArgf("expected_rows must not be negative"), "expected_rows")
	}

	run := domain.Run{
		ID:            s.newID(),
		Source:        in.Source,
		Status:        domain.StatusQueued,
		TotalSpending: decimal.Zero,
		CreatedAt:     s.now().UTC(),
	}
	err := repokit.InTx(ctx, s.DB, s.Binder, func(r domain.StorageRepo) error {
		return r.CreateRun(ctx, run)
	})
	if err != nil {
		return nil, err
	}

	expected := in.ExpectedRows
	if expected <= 0 {
		expected = s.Cfg.ExpectedRows
	}
	if expected <= 0 {
		expected = DefaultExpectedRows
	}
	seed := in.Seed
	if seed == 0 {
		seed = s.Cfg.Seed
	}

	st := newRunState(run, expected, seed)
	s.mu.Lock()
	s.live[run.ID] = st
	s.mu.Unlock()
	return st, nil
}

func (s *Service) lookup(id string) *runState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live[id]
}

func (s *Service) forget(id string) {
	s.mu.Lock()
	delete(s.live, id)
	s.mu.Unlock()
}

func (s *Service) getRun(ctx context.Context, id string) (domain.Run, error) {
	var out domain.Run
	err := repokit.InTx(ctx, s.DB, s.Binder, func(r domain.StorageRepo) error {
		var e error
		out, e = r.GetRun(ctx, id)
		return e
	})
	return out, err
}

// updateRun persists a patch bounded by the DB timeout
func (s *Service) updateRun(ctx context.Context, id string, p domain.RunPatch) error {
	dbCtx, cancel := guardrails.ForDB(ctx, s.timeouts())
	defer cancel()
	return repokit.InTx(dbCtx, s.DB, s.Binder, func(r domain.StorageRepo) error {
		return r.UpdateRun(dbCtx, id, p)
	})
}

func (s *Service) timeouts() guardrails.Timeouts {
	return guardrails.Timeouts{
		Run:   s.Cfg.RunTimeout,
		Fetch: s.Cfg.FetchTimeout,
		Read:  s.Cfg.ReadTimeout,
		DB:    s.Cfg.DBTimeout,
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string, string) error { return nil }

// errCancelled is the failure recorded on operator cancellation
var errCancelled = perr.Cancelledf(domain.CancelledReason)

func isCancelled(err error) bool {
	return errors.Is(err, errCancelled) || perr.IsCode(err, perr.ErrorCodeCancelled)
}
