// Package benchmark builds per category peer benchmarks and enriches records against them
package benchmark

import (
	"claimguard/internal/core/claims"
	"claimguard/internal/core/stats"

	"github.com/shopspring/decimal"
)

// CostPerUnit is paid / units, zero when units is not positive
func CostPerUnit(r claims.RawRecord) decimal.Decimal {
	if r.Units <= 0 {
		return decimal.Zero
	}
	return r.Paid.Div(decimal.NewFromInt(r.Units))
}

// UnitsPerSubject is units / subjects, zero when subjects is not positive
func UnitsPerSubject(r claims.RawRecord) float64 {
	if r.Subjects <= 0 {
		return 0
	}
	return float64(r.Units) / float64(r.Subjects)
}

// Build groups records by category code and summarizes cost per unit and
// units per subject for each group. Records with a zero denominator are not
// sampled; ingestion drops them before they get here
func Build(records []claims.RawRecord) map[string]claims.Benchmark {
	type series struct {
		cost  []float64
		units []float64
	}
	groups := make(map[string]*series)
	for _, r := range records {
		if r.Units <= 0 || r.Subjects <= 0 {
			continue
		}
		g := groups[r.Code]
		if g == nil {
			g = &series{}
			groups[r.Code] = g
		}
		g.cost = append(g.cost, CostPerUnit(r).InexactFloat64())
		g.units = append(g.units, UnitsPerSubject(r))
	}

	out := make(map[string]claims.Benchmark, len(groups))
	for code, g := range groups {
		c := stats.Describe(g.cost)
		u := stats.Describe(g.units)
		out[code] = claims.Benchmark{
			Code:        code,
			SampleSize:  len(g.cost),
			CostMean:    c.Mean,
			CostStd:     c.Std,
			CostMedian:  c.Median,
			UnitsMean:   u.Mean,
			UnitsStd:    u.Std,
			UnitsMedian: u.Median,
		}
	}
	return out
}

// Enrich derives ratios and z-scores for each record against its category
// benchmark. A code without a benchmark gets zero z-scores
func Enrich(records []claims.RawRecord, bm map[string]claims.Benchmark) []claims.EnrichedRecord {
	out := make([]claims.EnrichedRecord, len(records))
	for i, r := range records {
		cpu := CostPerUnit(r)
		ups := UnitsPerSubject(r)
		e := claims.EnrichedRecord{
			RawRecord:       r,
			CostPerUnit:     cpu,
			UnitsPerSubject: ups,
		}
		if b, ok := bm[r.Code]; ok {
			e.CostZ = stats.ZScore(cpu.InexactFloat64(), b.CostMean, b.CostStd)
			e.UnitsZ = stats.ZScore(ups, b.UnitsMean, b.UnitsStd)
		}
		out[i] = e
	}
	return out
}
