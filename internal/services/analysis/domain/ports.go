package domain

import (
	"context"
	"io"
	"time"

	"claimguard/internal/adapters/ingest/claimsfile"
	"claimguard/internal/core/claims"

	"github.com/shopspring/decimal"
)

// Chunk and ReaderStats re-export the claims reader shapes
type (
	Chunk       = claimsfile.Chunk
	ReaderStats = claimsfile.Stats
)

// RunnerPort is the public port other modules call to drive runs
type RunnerPort interface {
	// Start queues a run and processes it in the background
	Start(ctx context.Context, in StartInput) (Run, error)

	// Run processes a run to completion on the calling goroutine
	Run(ctx context.Context, in StartInput) (Result, error)

	// Status returns the live or persisted view of a run
	Status(ctx context.Context, id string) (Run, error)

	// Cancel asks a non terminal run to stop after its in flight batch
	Cancel(ctx context.Context, id string) (Run, error)
}

// QueryPort reads persisted results
type QueryPort interface {
	Entities(ctx context.Context, q EntityQuery) ([]claims.EntityAggregate, error)
	Alerts(ctx context.Context, q AlertQuery) ([]claims.Alert, error)
	Records(ctx context.Context, q RecordQuery) ([]claims.EnrichedRecord, error)
	Entity(ctx context.Context, entityID string) (claims.EntityAggregate, error)
}

// RunPatch is a partial update of a run, nil fields are left alone
type RunPatch struct {
	Status           *RunStatus
	Progress         *int
	RowsProcessed    *int64
	RowsDropped      *int64
	TotalRecords     *int64
	AnomalousRecords *int64
	HighRiskEntities *int64
	CriticalAlerts   *int64
	Batches          *int
	TotalSpending    *decimal.Decimal
	PeriodStart      *string
	PeriodEnd        *string
	Error            *string
	StartedAt        *time.Time
	FinishedAt       *time.Time
}

// Empty reports whether the patch carries no fields
func (p RunPatch) Empty() bool { return p == RunPatch{} }

// Apply folds p into r with the forward only status and monotonic progress rules.
// A terminal run is left untouched
func (r *Run) Apply(p RunPatch) {
	if r.Status.Terminal() {
		return
	}
	if p.Status != nil && r.Status.CanMoveTo(*p.Status) {
		r.Status = *p.Status
	}
	if p.Progress != nil {
		r.Progress = max(r.Progress, *p.Progress)
	}
	setIf(&r.RowsProcessed, p.RowsProcessed)
	setIf(&r.RowsDropped, p.RowsDropped)
	setIf(&r.TotalRecords, p.TotalRecords)
	setIf(&r.AnomalousRecords, p.AnomalousRecords)
	setIf(&r.HighRiskEntities, p.HighRiskEntities)
	setIf(&r.CriticalAlerts, p.CriticalAlerts)
	setIf(&r.Batches, p.Batches)
	setIf(&r.TotalSpending, p.TotalSpending)
	setIf(&r.PeriodStart, p.PeriodStart)
	setIf(&r.PeriodEnd, p.PeriodEnd)
	setIf(&r.Error, p.Error)
	if p.StartedAt != nil {
		t := p.StartedAt.UTC()
		r.StartedAt = &t
	}
	if p.FinishedAt != nil {
		t := p.FinishedAt.UTC()
		r.FinishedAt = &t
	}
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// StorageRepo is the relational persistence collaborator, bound to one Queryer
type StorageRepo interface {
	// CreateRun inserts a new run row
	CreateRun(ctx context.Context, r Run) error

	// UpdateRun applies a partial update, never moving status backwards
	UpdateRun(ctx context.Context, id string, p RunPatch) error

	// GetRun loads a run by id
	GetRun(ctx context.Context, id string) (Run, error)

	// InsertBenchmarks stores one batch worth of category benchmarks
	InsertBenchmarks(ctx context.Context, runID string, batch int, bms []claims.Benchmark) error

	// UpsertEntities writes entity aggregates keyed by (run, entity)
	UpsertEntities(ctx context.Context, runID string, aggs []claims.EntityAggregate) error

	// InsertAlerts stores alerts raised by one batch
	InsertAlerts(ctx context.Context, runID string, alerts []claims.Alert) error

	ListEntities(ctx context.Context, q EntityQuery) ([]claims.EntityAggregate, error)
	ListAlerts(ctx context.Context, q AlertQuery) ([]claims.Alert, error)
	EntityByID(ctx context.Context, entityID string) (claims.EntityAggregate, error)
}

// RecordSink stores and reads enriched records, backed by Postgres or ClickHouse
type RecordSink interface {
	InsertRecords(ctx context.Context, runID string, recs []claims.EnrichedRecord) error
	Records(ctx context.Context, q RecordQuery) ([]claims.EnrichedRecord, error)
}

// Fetcher opens a claims source by uri
type Fetcher interface {
	Fetch(ctx context.Context, uri string) (io.ReadCloser, error)
}

// ReaderPort is the chunked claims reader
type ReaderPort interface {
	ReadChunk(n int) (Chunk, error)
	Close() error
	Stats() ReaderStats
}

// ReaderFactory builds a reader over a fetched body
type ReaderFactory interface {
	New(rc io.ReadCloser) (ReaderPort, error)
}

// Notifier receives run level notices
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

// BatchObserver sees every scored batch after it was persisted
type BatchObserver interface {
	OnBatch(ctx context.Context, b Batch) error
}

// BatchObserverFunc adapts a function to BatchObserver
type BatchObserverFunc func(ctx context.Context, b Batch) error

// OnBatch calls f
func (f BatchObserverFunc) OnBatch(ctx context.Context, b Batch) error { return f(ctx, b) }
