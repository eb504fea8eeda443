// Package report accumulates a run wide view over scored batches and renders
// the entity results, detailed anomalies and the text summary
package report

import (
	"sort"

	"claimguard/internal/core/aggregate"
	"claimguard/internal/core/claims"

	"github.com/shopspring/decimal"
)

// Record risk cut lines used by the summary
const (
	HighRiskRecord     = 75
	CriticalRiskRecord = 90

	// entities above this average land in the results file
	ReportableEntityRisk = 50.0
	TopEntities          = 10
)

// Summary is the run wide rollup
type Summary struct {
	Records        int
	UniqueEntities int
	UniqueCodes    int
	TotalSpending  decimal.Decimal
	FirstPeriod    string
	LastPeriod     string

	CostAnomalies    int
	VolumeAnomalies  int
	ModelAnomalies   int
	AnomalousRecords int

	HighRiskRecords     int
	CriticalRiskRecords int

	EntitiesOver50 int
	EntitiesOver75 int
	EntitiesOver90 int
}

// EntityRow is one entity merged across every batch of a run
type EntityRow struct {
	EntityID        string
	Records         int
	AvgRiskScore    float64
	TotalSpending   decimal.Decimal
	TotalUnits      int64
	TotalSubjects   int64
	CostAnomalies   int
	VolumeAnomalies int
	ModelAnomalies  int
}

// TotalAnomalies sums the three anomaly counters
func (e EntityRow) TotalAnomalies() int {
	return e.CostAnomalies + e.VolumeAnomalies + e.ModelAnomalies
}

type entityAcc struct {
	row     EntityRow
	riskSum int
}

// Accumulator merges batches, it is not safe for concurrent use
type Accumulator struct {
	s        Summary
	codes    map[string]struct{}
	entities map[string]*entityAcc
}

// NewAccumulator returns an empty Accumulator
func NewAccumulator() *Accumulator {
	return &Accumulator{
		s:        Summary{TotalSpending: decimal.Zero},
		codes:    make(map[string]struct{}),
		entities: make(map[string]*entityAcc),
	}
}

// AddBatch folds one scored batch into the run view
func (a *Accumulator) AddBatch(records []claims.EnrichedRecord) {
	for _, r := range records {
		a.s.Records++
		a.s.TotalSpending = a.s.TotalSpending.Add(r.Paid)
		a.codes[r.Code] = struct{}{}
		if a.s.FirstPeriod == "" || r.Period < a.s.FirstPeriod {
			a.s.FirstPeriod = r.Period
		}
		if r.Period > a.s.LastPeriod {
			a.s.LastPeriod = r.Period
		}

		costA := r.CostZ > aggregate.AnomalyZ
		volA := r.UnitsZ > aggregate.AnomalyZ
		if costA {
			a.s.CostAnomalies++
		}
		if volA {
			a.s.VolumeAnomalies++
		}
		if r.Anomalous {
			a.s.ModelAnomalies++
		}
		if IsDetailedAnomaly(r) {
			a.s.AnomalousRecords++
		}
		if r.RiskScore > HighRiskRecord {
			a.s.HighRiskRecords++
		}
		if r.RiskScore > CriticalRiskRecord {
			a.s.CriticalRiskRecords++
		}

		e := a.entities[r.BillingID]
		if e == nil {
			e = &entityAcc{row: EntityRow{EntityID: r.BillingID, TotalSpending: decimal.Zero}}
			a.entities[r.BillingID] = e
		}
		e.row.Records++
		e.riskSum += r.RiskScore
		e.row.TotalSpending = e.row.TotalSpending.Add(r.Paid)
		e.row.TotalUnits += r.Units
		e.row.TotalSubjects += r.Subjects
		if costA {
			e.row.CostAnomalies++
		}
		if volA {
			e.row.VolumeAnomalies++
		}
		if r.Anomalous {
			e.row.ModelAnomalies++
		}
	}
}

// IsDetailedAnomaly reports whether a record belongs in the detailed anomalies output
func IsDetailedAnomaly(r claims.EnrichedRecord) bool {
	return r.CostZ > aggregate.AnomalyZ || r.UnitsZ > aggregate.AnomalyZ || r.Anomalous || r.RiskScore > HighRiskRecord
}

// Entities returns every entity ordered by average risk, highest first,
// ties broken by entity id
func (a *Accumulator) Entities() []EntityRow {
	out := make([]EntityRow, 0, len(a.entities))
	for _, e := range a.entities {
		row := e.row
		row.AvgRiskScore = float64(e.riskSum) / float64(row.Records)
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AvgRiskScore != out[j].AvgRiskScore {
			return out[i].AvgRiskScore > out[j].AvgRiskScore
		}
		return out[i].EntityID < out[j].EntityID
	})
	return out
}

// Summary returns the rollup including entity risk tiers
func (a *Accumulator) Summary() Summary {
	s := a.s
	s.UniqueCodes = len(a.codes)
	s.UniqueEntities = len(a.entities)
	for _, e := range a.Entities() {
		switch {
		case e.AvgRiskScore > 90:
			s.EntitiesOver90++
			fallthrough
		case e.AvgRiskScore > 75:
			s.EntitiesOver75++
			fallthrough
		case e.AvgRiskScore > ReportableEntityRisk:
			s.EntitiesOver50++
		}
	}
	return s
}

// Reportable filters rows to those above ReportableEntityRisk, keeping order
func Reportable(rows []EntityRow) []EntityRow {
	var out []EntityRow
	for _, r := range rows {
		if r.AvgRiskScore > ReportableEntityRisk {
			out = append(out, r)
		}
	}
	return out
}
