// Package module wires the analysis engine from shared deps
package module

import (
	"context"

	"claimguard/internal/modkit"
	"claimguard/internal/modkit/repokit"
	"claimguard/internal/platform/logger"
	phttp "claimguard/internal/platform/net/http"
	"claimguard/internal/services/analysis/domain"
	"claimguard/internal/services/analysis/guardrails"
	"claimguard/internal/services/analysis/ingest"
	"claimguard/internal/services/analysis/notify"
	"claimguard/internal/services/analysis/repo"
	"claimguard/internal/services/analysis/service"
)

// Ports defines the analysis module ports
type Ports struct {
	Runner domain.RunnerPort
	Query  domain.QueryPort
}

// Module implements the analysis module
type Module struct {
	deps  modkit.Deps
	opts  Options
	svc   *service.Service
	ports Ports
	chRec *repo.CHRecords
}

// New constructs the analysis module.
// Postgres backs runs and results when deps.PG is set, otherwise an in process
// store does. Records go to ClickHouse when RECORD_SINK=clickhouse and deps.CH is set
func New(deps modkit.Deps) *Module {
	opts := FromConfig(deps.Cfg)
	return NewWithOptions(deps, opts)
}

// NewWithOptions is New with explicit options, used by the CLI to apply flag overrides
func NewWithOptions(deps modkit.Deps, opts Options) *Module {
	m := &Module{deps: deps, opts: opts}

	var (
		db     repokit.TxRunner
		binder repokit.Binder[domain.StorageRepo]
		sink   domain.RecordSink
		claim  guardrails.ClaimFunc
	)
	if deps.PG != nil {
		db, binder = deps.PG, repo.NewPG()
		sink = repo.NewPGRecords(deps.PG)
		claim = guardrails.MakeRunClaim(deps.PG)
	} else {
		mem := repo.NewMemory()
		db, binder, sink = mem, mem, mem
	}
	if opts.RecordSink == SinkClickhouse {
		if deps.CH != nil {
			m.chRec = repo.NewCHRecords(deps.CH, opts.RecordTable)
			sink = m.chRec
		} else {
			logger.Named("analysis").Warn().Msg("RECORD_SINK=clickhouse but clickhouse is disabled, keeping the default sink")
		}
	}

	notifiers := notify.Multi{notify.Log{}}
	if opts.WebhookURL != "" {
		wh := notify.NewWebhook(opts.WebhookURL, opts.WebhookTimeout)
		wh.RunID = logger.RunIDFrom
		notifiers = append(notifiers, wh)
	}

	m.svc = service.New(
		db, binder, sink,
		ingest.NewFetcher(deps.Cfg),
		ingest.NewReaderFactory(opts.Delimiter),
		notifiers,
		service.Config{
			ChunkNetwork:      opts.ChunkNetwork,
			ChunkFile:         opts.ChunkFile,
			BatchSize:         opts.BatchSize,
			Trees:             opts.Trees,
			SampleCap:         opts.SampleCap,
			Threshold:         opts.Threshold,
			Seed:              opts.Seed,
			InsertChunk:       opts.InsertChunk,
			RunTimeout:        opts.RunTimeout,
			FetchTimeout:      opts.FetchTimeout,
			ReadTimeout:       opts.ReadTimeout,
			DBTimeout:         opts.DBTimeout,
			MaxConcurrentRuns: opts.MaxConcurrentRuns,
			ExpectedRows:      opts.ExpectedRows,
		},
		claim,
	)
	m.ports = Ports{Runner: m.svc, Query: m.svc}
	return m
}

// Migrate applies the schemas the module writes to, when enabled
func (m *Module) Migrate(ctx context.Context) error {
	if !m.opts.Migrate {
		return nil
	}
	if m.deps.PG != nil {
		if err := repo.Migrate(ctx, m.deps.PG); err != nil {
			return err
		}
	}
	if m.chRec != nil {
		return m.chRec.EnsureSchema(ctx)
	}
	return nil
}

// WithObserver registers a batch observer on the underlying service
func (m *Module) WithObserver(o domain.BatchObserver) *Module {
	m.svc.WithObserver(o)
	return m
}

// Wait blocks until background runs finish
func (m *Module) Wait() { m.svc.Wait() }

// Options returns the resolved options
func (m *Module) Options() Options { return m.opts }

// Name returns the module name
func (m *Module) Name() string { return "analysis" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Prefix returns the module prefix (none)
func (m *Module) Prefix() string { return "" }

// MountRoutes is a no-op, runs are exposed by the api runs module
func (m *Module) MountRoutes(_ phttp.Router) {}
