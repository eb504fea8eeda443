package repo

import (
	"context"

	"claimguard/internal/core/claims"
	"claimguard/internal/modkit/repokit"
	perr "claimguard/internal/platform/errors"
	"claimguard/internal/platform/store"
	"claimguard/internal/services/analysis/domain"
)

// PGRecords stores enriched records in Postgres, one transaction per call
type PGRecords struct {
	DB repokit.TxRunner
}

// NewPGRecords returns a Postgres RecordSink
func NewPGRecords(db repokit.TxRunner) *PGRecords { return &PGRecords{DB: db} }

var _ domain.RecordSink = (*PGRecords)(nil)

// InsertRecords writes recs with one UNNEST insert
func (p *PGRecords) InsertRecords(ctx context.Context, runID string, recs []claims.EnrichedRecord) error {
	if len(recs) == 0 {
		return nil
	}
	n := len(recs)
	billing, servicing, codes, periods := make([]string, 0, n), make([]string, 0, n), make([]string, 0, n), make([]string, 0, n)
	units, subjects := make([]int64, 0, n), make([]int64, 0, n)
	paid, cpu := make([]string, 0, n), make([]string, 0, n)
	ups, cz, uz, score, pct := make([]float64, 0, n), make([]float64, 0, n), make([]float64, 0, n), make([]float64, 0, n), make([]float64, 0, n)
	flag, risk := make([]int16, 0, n), make([]int32, 0, n)
	for _, r := range recs {
		billing = append(billing, r.BillingID)
		servicing = append(servicing, r.ServicingID)
		codes = append(codes, r.Code)
		periods = append(periods, r.Period)
		units = append(units, r.Units)
		subjects = append(subjects, r.Subjects)
		paid = append(paid, r.Paid.StringFixed(2))
		cpu = append(cpu, r.CostPerUnit.StringFixed(4))
		ups = append(ups, r.UnitsPerSubject)
		cz = append(cz, r.CostZ)
		uz = append(uz, r.UnitsZ)
		score = append(score, r.AnomalyScore)
		flag = append(flag, int16(r.AnomalyFlag()))
		pct = append(pct, r.VolumePercentile)
		risk = append(risk, int32(r.RiskScore))
	}
	return p.DB.Tx(ctx, func(q repokit.Queryer) error {
		_, err := q.Exec(ctx, `
			INSERT INTO enriched_records (
				run_id, billing_id, servicing_id, code, period, units, subjects, paid,
				cost_per_unit, units_per_subject, cost_z, units_z, anomaly_score, is_anomaly,
				volume_percentile, risk_score
			)
			SELECT $1::uuid, t.*
			FROM UNNEST(
				$2::text[], $3::text[], $4::text[], $5::text[], $6::bigint[], $7::bigint[], $8::numeric[],
				$9::numeric[], $10::float8[], $11::float8[], $12::float8[], $13::float8[], $14::smallint[],
				$15::float8[], $16::int[]
			) AS t(billing_id, servicing_id, code, period, units, subjects, paid,
				cost_per_unit, units_per_subject, cost_z, units_z, anomaly_score, is_anomaly,
				volume_percentile, risk_score)
		`, runID, billing, servicing, codes, periods, units, subjects, paid,
			cpu, ups, cz, uz, score, flag, pct, risk)
		return perr.FromPostgresf(err, "analysis: insert %d records", n)
	})
}

// Records returns a run's records at or above MinScore, riskiest first
func (p *PGRecords) Records(ctx context.Context, rq domain.RecordQuery) ([]claims.EnrichedRecord, error) {
	out, err := store.Many(ctx, p.DB, scanRecord, `
		SELECT billing_id, servicing_id, code, period, units, subjects, paid::text,
			cost_per_unit::text, units_per_subject, cost_z, units_z, anomaly_score, is_anomaly,
			volume_percentile, risk_score
		FROM enriched_records
		WHERE run_id = $1::uuid AND risk_score >= $2
		ORDER BY risk_score DESC, id
		LIMIT $3
	`, rq.RunID, rq.MinScore, limitOr(rq.Limit, 1000))
	return out, perr.FromPostgresf(err, "analysis: list records for %s", rq.RunID)
}

func scanRecord(row store.Row) (claims.EnrichedRecord, error) {
	var (
		r         claims.EnrichedRecord
		paid, cpu string
		flag      int16
	)
	err := row.Scan(
		&r.BillingID, &r.ServicingID, &r.Code, &r.Period, &r.Units, &r.Subjects, &paid,
		&cpu, &r.UnitsPerSubject, &r.CostZ, &r.UnitsZ, &r.AnomalyScore, &flag,
		&r.VolumePercentile, &r.RiskScore,
	)
	if err != nil {
		return claims.EnrichedRecord{}, err
	}
	r.Paid = parseDecimal(paid)
	r.CostPerUnit = parseDecimal(cpu)
	r.Anomalous = flag == 1
	return r, nil
}
