package repo

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"

	"claimguard/internal/core/claims"
	"claimguard/internal/modkit/repokit"
	perr "claimguard/internal/platform/errors"
	"claimguard/internal/platform/store"
	"claimguard/internal/services/analysis/domain"
)

// errNoSQL is returned when something tries raw SQL against the memory store
var errNoSQL = errors.New("analysis: memory store does not run sql")

// Memory is a process local store used when Postgres is disabled and in tests.
// It honours the same guards as the SQL repo: terminal runs are frozen,
// status only moves forward and progress only grows
type Memory struct {
	mu         sync.RWMutex
	seq        int64
	runs       map[string]domain.Run
	benchmarks map[string]map[int][]claims.Benchmark
	entities   map[string]map[string]memEntity
	alerts     map[string][]claims.Alert
	records    map[string][]claims.EnrichedRecord
}

type memEntity struct {
	agg claims.EntityAggregate
	seq int64
}

// NewMemory returns an empty Memory store
func NewMemory() *Memory {
	return &Memory{
		runs:       map[string]domain.Run{},
		benchmarks: map[string]map[int][]claims.Benchmark{},
		entities:   map[string]map[string]memEntity{},
		alerts:     map[string][]claims.Alert{},
		records:    map[string][]claims.EnrichedRecord{},
	}
}

var (
	_ domain.StorageRepo                 = (*Memory)(nil)
	_ domain.RecordSink                  = (*Memory)(nil)
	_ repokit.TxRunner                   = (*Memory)(nil)
	_ repokit.Binder[domain.StorageRepo] = (*Memory)(nil)
)

// Bind implements repokit.Binder, every Queryer maps to the same store
func (m *Memory) Bind(repokit.Queryer) domain.StorageRepo { return m }

// Tx runs fn with the store itself as the Queryer
func (m *Memory) Tx(ctx context.Context, fn func(q store.RowQuerier) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(m)
}

// Exec implements store.RowQuerier and always fails
func (m *Memory) Exec(context.Context, string, ...any) (store.CommandTag, error) {
	return nil, errNoSQL
}

// Query implements store.RowQuerier and always fails
func (m *Memory) Query(context.Context, string, ...any) (store.Rows, error) {
	return nil, errNoSQL
}

// QueryRow implements store.RowQuerier, Scan always fails
func (m *Memory) QueryRow(context.Context, string, ...any) store.Row { return errRow{} }

type errRow struct{}

func (errRow) Scan(...any) error { return errNoSQL }

// CreateRun inserts a new run
func (m *Memory) CreateRun(_ context.Context, r domain.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[r.ID]; ok {
		return perr.DuplicateKeyf("analysis run %s already exists", r.ID)
	}
	m.runs[r.ID] = r
	return nil
}

// UpdateRun applies p unless the run is terminal
func (m *Memory) UpdateRun(_ context.Context, id string, p domain.RunPatch) error {
	if p.Empty() {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok || r.Status.Terminal() {
		return nil
	}
	r.Apply(p)
	m.runs[id] = r
	return nil
}

// GetRun loads a run by id
func (m *Memory) GetRun(_ context.Context, id string) (domain.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[id]
	if !ok {
		return domain.Run{}, perr.NotFoundf("analysis run %s not found", id)
	}
	return r, nil
}

// InsertBenchmarks keeps the first write per (run, batch)
func (m *Memory) InsertBenchmarks(_ context.Context, runID string, batch int, bms []claims.Benchmark) error {
	if len(bms) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	byBatch := m.benchmarks[runID]
	if byBatch == nil {
		byBatch = map[int][]claims.Benchmark{}
		m.benchmarks[runID] = byBatch
	}
	if _, ok := byBatch[batch]; !ok {
		byBatch[batch] = slices.Clone(bms)
	}
	return nil
}

// Benchmarks returns the benchmarks stored for one batch
func (m *Memory) Benchmarks(runID string, batch int) []claims.Benchmark {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.benchmarks[runID][batch])
}

// UpsertEntities replaces aggregates keyed by (run, entity)
func (m *Memory) UpsertEntities(_ context.Context, runID string, aggs []claims.EntityAggregate) error {
	if len(aggs) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	byID := m.entities[runID]
	if byID == nil {
		byID = map[string]memEntity{}
		m.entities[runID] = byID
	}
	for _, a := range aggs {
		m.seq++
		byID[a.EntityID] = memEntity{agg: a, seq: m.seq}
	}
	return nil
}

// InsertAlerts appends alerts, duplicate ids are skipped
func (m *Memory) InsertAlerts(_ context.Context, runID string, alerts []claims.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := m.alerts[runID]
	for _, a := range alerts {
		if a.ID != "" && slices.ContainsFunc(cur, func(x claims.Alert) bool { return x.ID == a.ID }) {
			continue
		}
		if a.Status == "" {
			a.Status = claims.AlertNew
		}
		cur = append(cur, a)
	}
	m.alerts[runID] = cur
	return nil
}

// ListEntities pages a run's aggregates, riskiest first
func (m *Memory) ListEntities(_ context.Context, q domain.EntityQuery) ([]claims.EntityAggregate, error) {
	m.mu.RLock()
	out := make([]claims.EntityAggregate, 0, len(m.entities[q.RunID]))
	for _, e := range m.entities[q.RunID] {
		out = append(out, e.agg)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].AvgRiskScore != out[j].AvgRiskScore {
			return out[i].AvgRiskScore > out[j].AvgRiskScore
		}
		return out[i].EntityID < out[j].EntityID
	})
	return page(out, max(q.Offset, 0), limitOr(q.Limit, 100)), nil
}

// EntityByID returns the most recently written aggregate across runs
func (m *Memory) EntityByID(_ context.Context, entityID string) (claims.EntityAggregate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var (
		best  memEntity
		found bool
	)
	for _, byID := range m.entities {
		if e, ok := byID[entityID]; ok && (!found || e.seq > best.seq) {
			best, found = e, true
		}
	}
	if !found {
		return claims.EntityAggregate{}, perr.NotFoundf("entity %s not found", entityID)
	}
	return best.agg, nil
}

// ListAlerts returns a run's alerts at or above MinSeverity, critical first
func (m *Memory) ListAlerts(_ context.Context, q domain.AlertQuery) ([]claims.Alert, error) {
	minRank := q.MinSeverity.Rank()
	m.mu.RLock()
	var out []claims.Alert
	for _, a := range m.alerts[q.RunID] {
		if a.Severity.Rank() >= minRank {
			out = append(out, a)
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Severity.Rank(), out[j].Severity.Rank()
		if ri != rj {
			return ri > rj
		}
		if out[i].RiskScore != out[j].RiskScore {
			return out[i].RiskScore > out[j].RiskScore
		}
		return out[i].EntityID < out[j].EntityID
	})
	return page(out, 0, limitOr(q.Limit, 500)), nil
}

// InsertRecords appends enriched records for a run
func (m *Memory) InsertRecords(_ context.Context, runID string, recs []claims.EnrichedRecord) error {
	if len(recs) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[runID] = append(m.records[runID], recs...)
	return nil
}

// Records returns a run's records at or above MinScore, riskiest first
func (m *Memory) Records(_ context.Context, q domain.RecordQuery) ([]claims.EnrichedRecord, error) {
	m.mu.RLock()
	var out []claims.EnrichedRecord
	for _, r := range m.records[q.RunID] {
		if r.RiskScore >= q.MinScore {
			out = append(out, r)
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].RiskScore > out[j].RiskScore })
	return page(out, 0, limitOr(q.Limit, 1000)), nil
}

func page[T any](xs []T, offset, limit int) []T {
	if offset >= len(xs) {
		return []T{}
	}
	xs = xs[offset:]
	if len(xs) > limit {
		xs = xs[:limit]
	}
	return xs
}
