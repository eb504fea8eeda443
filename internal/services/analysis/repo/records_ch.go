package repo

import (
	"context"
	"errors"
	"fmt"

	"claimguard/internal/core/claims"
	perr "claimguard/internal/platform/errors"
	"claimguard/internal/platform/store"
	"claimguard/internal/services/analysis/domain"

	"github.com/shopspring/decimal"
)

// DefaultRecordsTable is the ClickHouse table enriched records land in
const DefaultRecordsTable = "enriched_records"

// recordsDDL is a MergeTree ordered for per run risk scans
const recordsDDL = `
CREATE TABLE IF NOT EXISTS %s (
	run_id            UUID,
	billing_id        String,
	servicing_id      String,
	code              LowCardinality(String),
	period            LowCardinality(String),
	units             Int64,
	subjects          Int64,
	paid              Decimal(20, 2),
	cost_per_unit     Decimal(20, 4),
	units_per_subject Float64,
	cost_z            Float64,
	units_z           Float64,
	anomaly_score     Float64,
	is_anomaly        UInt8,
	volume_percentile Float64,
	risk_score        Int32,
	inserted_at       DateTime DEFAULT now()
)
ENGINE = MergeTree
ORDER BY (run_id, risk_score, billing_id)`

// CHRecords stores enriched records in ClickHouse
type CHRecords struct {
	CH    store.Clickhouse
	Table string
}

// NewCHRecords returns a ClickHouse RecordSink, table defaults to enriched_records
func NewCHRecords(c store.Clickhouse, table string) *CHRecords {
	if table == "" {
		table = DefaultRecordsTable
	}
	return &CHRecords{CH: c, Table: table}
}

var _ domain.RecordSink = (*CHRecords)(nil)

// EnsureSchema creates the records table when missing
func (c *CHRecords) EnsureSchema(ctx context.Context) error {
	if c == nil || c.CH == nil {
		return errors.New("analysis: nil clickhouse")
	}
	if err := c.CH.Exec(ctx, fmt.Sprintf(recordsDDL, c.Table)); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeDB, "analysis: ensure clickhouse table %s", c.Table)
	}
	return nil
}

// InsertRecords appends one block of rows
func (c *CHRecords) InsertRecords(ctx context.Context, runID string, recs []claims.EnrichedRecord) error {
	if len(recs) == 0 {
		return nil
	}
	if c == nil || c.CH == nil {
		return errors.New("analysis: nil clickhouse")
	}
	rows := make([][]any, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, []any{
			runID, r.BillingID, r.ServicingID, r.Code, r.Period, r.Units, r.Subjects,
			r.Paid.Round(2), r.CostPerUnit.Round(4), r.UnitsPerSubject, r.CostZ, r.UnitsZ,
			r.AnomalyScore, uint8(r.AnomalyFlag()), r.VolumePercentile, int32(r.RiskScore),
		})
	}
	cols := "(run_id, billing_id, servicing_id, code, period, units, subjects, paid, cost_per_unit, " +
		"units_per_subject, cost_z, units_z, anomaly_score, is_anomaly, volume_percentile, risk_score)"
	if err := c.CH.Insert(ctx, c.Table+" "+cols, rows); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "analysis: clickhouse insert %d records", len(recs))
	}
	return nil
}

// Records returns a run's records at or above MinScore, riskiest first
func (c *CHRecords) Records(ctx context.Context, q domain.RecordQuery) ([]claims.EnrichedRecord, error) {
	if c == nil || c.CH == nil {
		return nil, errors.New("analysis: nil clickhouse")
	}
	rows, err := c.CH.Query(ctx, `
		SELECT billing_id, servicing_id, code, period, units, subjects, paid, cost_per_unit,
			units_per_subject, cost_z, units_z, anomaly_score, is_anomaly, volume_percentile, risk_score
		FROM `+c.Table+`
		WHERE run_id = ? AND risk_score >= ?
		ORDER BY risk_score DESC, billing_id
		LIMIT ?`, q.RunID, int32(q.MinScore), uint64(limitOr(q.Limit, 1000)))
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeDB, "analysis: clickhouse records for %s", q.RunID)
	}
	defer rows.Close()

	var out []claims.EnrichedRecord
	for rows.Next() {
		var (
			r         claims.EnrichedRecord
			paid, cpu decimal.Decimal
			flag      uint8
			risk      int32
		)
		if err := rows.Scan(
			&r.BillingID, &r.ServicingID, &r.Code, &r.Period, &r.Units, &r.Subjects, &paid, &cpu,
			&r.UnitsPerSubject, &r.CostZ, &r.UnitsZ, &r.AnomalyScore, &flag, &r.VolumePercentile, &risk,
		); err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeDB, "analysis: scan clickhouse record")
		}
		r.Paid, r.CostPerUnit = paid, cpu
		r.Anomalous = flag == 1
		r.RiskScore = int(risk)
		out = append(out, r)
	}
	return out, rows.Err()
}
