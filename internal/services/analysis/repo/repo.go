// Package repo provides postgres and clickhouse access for analysis runs
package repo

import (
	"context"
	"time"

	"claimguard/internal/core/claims"
	"claimguard/internal/modkit/repokit"
	perr "claimguard/internal/platform/errors"
	"claimguard/internal/platform/store"
	"claimguard/internal/services/analysis/domain"

	"github.com/shopspring/decimal"
)

type (
	// PG is a Postgres binder for domain.StorageRepo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a Postgres binder for domain.StorageRepo
func NewPG() repokit.Binder[domain.StorageRepo] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.StorageRepo { return &queries{q: q} }

const runColumns = `
	id::text, source, status, progress, rows_processed, rows_dropped, total_records,
	anomalous_records, high_risk_entities, critical_alerts, batches, total_spending::text,
	coalesce(period_start, ''), coalesce(period_end, ''), coalesce(error, ''),
	created_at, started_at, finished_at`

// CreateRun inserts a new run row
func (r *queries) CreateRun(ctx context.Context, run domain.Run) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO analysis_runs (id, source, status, progress, created_at)
		VALUES ($1::uuid, $2, $3, $4, $5)
	`, run.ID, run.Source, string(run.Status), run.Progress, run.CreatedAt.UTC())
	return perr.FromPostgresf(err, "analysis: create run %s", run.ID)
}

// UpdateRun applies a partial update. Terminal rows are left alone, progress
// only grows and status only moves forward
func (r *queries) UpdateRun(ctx context.Context, id string, p domain.RunPatch) error {
	if p.Empty() {
		return nil
	}
	var status *string
	if p.Status != nil {
		s := string(*p.Status)
		status = &s
	}
	var spending *string
	if p.TotalSpending != nil {
		s := p.TotalSpending.StringFixed(2)
		spending = &s
	}
	_, err := r.q.Exec(ctx, `
		UPDATE analysis_runs SET
			status = CASE
				WHEN $2::text IS NOT NULL AND run_status_rank($2::text) >= run_status_rank(status) THEN $2::text
				ELSE status
			END,
			progress           = GREATEST(progress, COALESCE($3::int, progress)),
			rows_processed     = COALESCE($4::bigint, rows_processed),
			rows_dropped       = COALESCE($5::bigint, rows_dropped),
			total_records      = COALESCE($6::bigint, total_records),
			anomalous_records  = COALESCE($7::bigint, anomalous_records),
			high_risk_entities = COALESCE($8::bigint, high_risk_entities),
			critical_alerts    = COALESCE($9::bigint, critical_alerts),
			batches            = COALESCE($10::int, batches),
			total_spending     = COALESCE($11::numeric, total_spending),
			period_start       = COALESCE($12::text, period_start),
			period_end         = COALESCE($13::text, period_end),
			error              = COALESCE($14::text, error),
			started_at         = COALESCE($15::timestamptz, started_at),
			finished_at        = COALESCE($16::timestamptz, finished_at),
			updated_at         = now()
		WHERE id = $1::uuid AND status NOT IN ('completed', 'failed')
	`,
		id, status, p.Progress, p.RowsProcessed, p.RowsDropped, p.TotalRecords,
		p.AnomalousRecords, p.HighRiskEntities, p.CriticalAlerts, p.Batches, spending,
		p.PeriodStart, p.PeriodEnd, p.Error, utcPtr(p.StartedAt), utcPtr(p.FinishedAt),
	)
	return perr.FromPostgresf(err, "analysis: update run %s", id)
}

// GetRun loads a run by id
func (r *queries) GetRun(ctx context.Context, id string) (domain.Run, error) {
	run, err := store.One(ctx, r.q, scanRun, `SELECT `+runColumns+` FROM analysis_runs WHERE id = $1::uuid`, id)
	if err != nil {
		if perr.IsCode(err, perr.ErrorCodeNotFound) {
			return domain.Run{}, perr.NotFoundf("analysis run %s not found", id)
		}
		return domain.Run{}, perr.FromPostgresf(err, "analysis: get run %s", id)
	}
	return run, nil
}

func scanRun(row store.Row) (domain.Run, error) {
	var (
		run      domain.Run
		status   string
		spending string
	)
	err := row.Scan(
		&run.ID, &run.Source, &status, &run.Progress, &run.RowsProcessed, &run.RowsDropped,
		&run.TotalRecords, &run.AnomalousRecords, &run.HighRiskEntities, &run.CriticalAlerts,
		&run.Batches, &spending, &run.PeriodStart, &run.PeriodEnd, &run.Error,
		&run.CreatedAt, &run.StartedAt, &run.FinishedAt,
	)
	if err != nil {
		return domain.Run{}, err
	}
	run.Status = domain.RunStatus(status)
	run.TotalSpending = parseDecimal(spending)
	return run, nil
}

// InsertBenchmarks stores one batch worth of category benchmarks
func (r *queries) InsertBenchmarks(ctx context.Context, runID string, batch int, bms []claims.Benchmark) error {
	if len(bms) == 0 {
		return nil
	}
	n := len(bms)
	codes := make([]string, 0, n)
	sizes := make([]int32, 0, n)
	cm, cs, cmed := make([]float64, 0, n), make([]float64, 0, n), make([]float64, 0, n)
	um, us, umed := make([]float64, 0, n), make([]float64, 0, n), make([]float64, 0, n)
	for _, b := range bms {
		codes = append(codes, b.Code)
		sizes = append(sizes, int32(b.SampleSize))
		cm, cs, cmed = append(cm, b.CostMean), append(cs, b.CostStd), append(cmed, b.CostMedian)
		um, us, umed = append(um, b.UnitsMean), append(us, b.UnitsStd), append(umed, b.UnitsMedian)
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO analysis_benchmarks (
			run_id, batch, code, sample_size,
			cost_mean, cost_std, cost_median, units_mean, units_std, units_median
		)
		SELECT $1::uuid, $2, t.*
		FROM UNNEST($3::text[], $4::int[], $5::float8[], $6::float8[], $7::float8[], $8::float8[], $9::float8[], $10::float8[])
		AS t(code, sample_size, cost_mean, cost_std, cost_median, units_mean, units_std, units_median)
		ON CONFLICT (run_id, batch, code) DO NOTHING
	`, runID, batch, codes, sizes, cm, cs, cmed, um, us, umed)
	return perr.FromPostgresf(err, "analysis: insert %d benchmarks", n)
}

// UpsertEntities writes entity aggregates keyed by (run, entity), the latest batch wins
func (r *queries) UpsertEntities(ctx context.Context, runID string, aggs []claims.EntityAggregate) error {
	if len(aggs) == 0 {
		return nil
	}
	n := len(aggs)
	ids := make([]string, 0, n)
	records, codes, risk := make([]int32, 0, n), make([]int32, 0, n), make([]int32, 0, n)
	paid, cpu := make([]string, 0, n), make([]string, 0, n)
	units, subjects := make([]int64, 0, n), make([]int64, 0, n)
	ups := make([]float64, 0, n)
	costA, volA, modelA := make([]int32, 0, n), make([]int32, 0, n), make([]int32, 0, n)
	for _, a := range aggs {
		ids = append(ids, a.EntityID)
		records = append(records, int32(a.Records))
		paid = append(paid, a.TotalPaid.StringFixed(2))
		units = append(units, a.TotalUnits)
		subjects = append(subjects, a.TotalSubjects)
		codes = append(codes, int32(a.UniqueCodes))
		risk = append(risk, int32(a.AvgRiskScore))
		cpu = append(cpu, a.AvgCostPerUnit.StringFixed(4))
		ups = append(ups, a.AvgUnitsPerSubject)
		costA = append(costA, int32(a.CostAnomalies))
		volA = append(volA, int32(a.VolumeAnomalies))
		modelA = append(modelA, int32(a.ModelAnomalies))
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO entity_aggregates (
			run_id, entity_id, records, total_paid, total_units, total_subjects, unique_codes,
			avg_risk_score, avg_cost_per_unit, avg_units_per_subject,
			cost_anomalies, volume_anomalies, model_anomalies
		)
		SELECT $1::uuid, t.*
		FROM UNNEST(
			$2::text[], $3::int[], $4::numeric[], $5::bigint[], $6::bigint[], $7::int[],
			$8::int[], $9::numeric[], $10::float8[], $11::int[], $12::int[], $13::int[]
		) AS t(entity_id, records, total_paid, total_units, total_subjects, unique_codes,
			avg_risk_score, avg_cost_per_unit, avg_units_per_subject,
			cost_anomalies, volume_anomalies, model_anomalies)
		ON CONFLICT (run_id, entity_id) DO UPDATE SET
			records               = EXCLUDED.records,
			total_paid            = EXCLUDED.total_paid,
			total_units           = EXCLUDED.total_units,
			total_subjects        = EXCLUDED.total_subjects,
			unique_codes          = EXCLUDED.unique_codes,
			avg_risk_score        = EXCLUDED.avg_risk_score,
			avg_cost_per_unit     = EXCLUDED.avg_cost_per_unit,
			avg_units_per_subject = EXCLUDED.avg_units_per_subject,
			cost_anomalies        = EXCLUDED.cost_anomalies,
			volume_anomalies      = EXCLUDED.volume_anomalies,
			model_anomalies       = EXCLUDED.model_anomalies,
			updated_at            = now()
	`, runID, ids, records, paid, units, subjects, codes, risk, cpu, ups, costA, volA, modelA)
	return perr.FromPostgresf(err, "analysis: upsert %d entities", n)
}

// InsertAlerts stores alerts raised by one batch
func (r *queries) InsertAlerts(ctx context.Context, runID string, alerts []claims.Alert) error {
	for _, a := range alerts {
		status := a.Status
		if status == "" {
			status = claims.AlertNew
		}
		_, err := r.q.Exec(ctx, `
			INSERT INTO analysis_alerts (
				id, run_id, entity_id, kind, severity, title, description, risk_score, total_paid, status
			)
			VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6, $7, $8, $9::numeric, $10)
			ON CONFLICT (id) DO NOTHING
		`, a.ID, runID, a.EntityID, string(a.Kind), string(a.Severity), a.Title, a.Description,
			a.RiskScore, a.TotalPaid.StringFixed(2), string(status))
		if err != nil {
			return perr.FromPostgresf(err, "analysis: insert alert %s for %s", a.Kind, a.EntityID)
		}
	}
	return nil
}

const entityColumns = `
	entity_id, records, total_paid::text, total_units, total_subjects, unique_codes,
	avg_risk_score, avg_cost_per_unit::text, avg_units_per_subject,
	cost_anomalies, volume_anomalies, model_anomalies`

// ListEntities pages a run's aggregates, riskiest first
func (r *queries) ListEntities(ctx context.Context, q domain.EntityQuery) ([]claims.EntityAggregate, error) {
	out, err := store.Many(ctx, r.q, scanEntity, `
		SELECT `+entityColumns+`
		FROM entity_aggregates
		WHERE run_id = $1::uuid
		ORDER BY avg_risk_score DESC, entity_id
		LIMIT $2 OFFSET $3
	`, q.RunID, limitOr(q.Limit, 100), max(q.Offset, 0))
	return out, perr.FromPostgresf(err, "analysis: list entities for %s", q.RunID)
}

// EntityByID returns the most recently written aggregate for an entity across runs
func (r *queries) EntityByID(ctx context.Context, entityID string) (claims.EntityAggregate, error) {
	a, err := store.One(ctx, r.q, scanEntity, `
		SELECT `+entityColumns+`
		FROM entity_aggregates
		WHERE entity_id = $1
		ORDER BY updated_at DESC
		LIMIT 1
	`, entityID)
	if err != nil {
		if perr.IsCode(err, perr.ErrorCodeNotFound) {
			return claims.EntityAggregate{}, perr.NotFoundf("entity %s not found", entityID)
		}
		return claims.EntityAggregate{}, perr.FromPostgresf(err, "analysis: entity %s", entityID)
	}
	return a, nil
}

func scanEntity(row store.Row) (claims.EntityAggregate, error) {
	var (
		a         claims.EntityAggregate
		paid, cpu string
	)
	err := row.Scan(
		&a.EntityID, &a.Records, &paid, &a.TotalUnits, &a.TotalSubjects, &a.UniqueCodes,
		&a.AvgRiskScore, &cpu, &a.AvgUnitsPerSubject,
		&a.CostAnomalies, &a.VolumeAnomalies, &a.ModelAnomalies,
	)
	if err != nil {
		return claims.EntityAggregate{}, err
	}
	a.TotalPaid = parseDecimal(paid)
	a.AvgCostPerUnit = parseDecimal(cpu)
	return a, nil
}

// ListAlerts returns a run's alerts at or above the minimum severity
func (r *queries) ListAlerts(ctx context.Context, q domain.AlertQuery) ([]claims.Alert, error) {
	minRank := q.MinSeverity.Rank()
	out, err := store.Many(ctx, r.q, scanAlert, `
		SELECT id::text, entity_id, kind, severity, title, description, risk_score, total_paid::text, status
		FROM analysis_alerts
		WHERE run_id = $1::uuid
		  AND CASE severity WHEN 'low' THEN 1 WHEN 'medium' THEN 2 WHEN 'high' THEN 3 WHEN 'critical' THEN 4 ELSE 0 END >= $2
		ORDER BY CASE severity WHEN 'critical' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END, risk_score DESC, entity_id
		LIMIT $3
	`, q.RunID, minRank, limitOr(q.Limit, 500))
	return out, perr.FromPostgresf(err, "analysis: list alerts for %s", q.RunID)
}

func scanAlert(row store.Row) (claims.Alert, error) {
	var (
		a                      claims.Alert
		kind, sev, paid, state string
	)
	if err := row.Scan(&a.ID, &a.EntityID, &kind, &sev, &a.Title, &a.Description, &a.RiskScore, &paid, &state); err != nil {
		return claims.Alert{}, err
	}
	a.Kind = claims.AlertKind(kind)
	a.Severity = claims.Severity(sev)
	a.Status = claims.AlertStatus(state)
	a.TotalPaid = parseDecimal(paid)
	return a, nil
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func limitOr(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
