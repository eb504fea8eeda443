// Package risk computes the additive 0-100 record risk score
package risk

import (
	"math"

	"claimguard/internal/core/claims"
	"claimguard/internal/core/stats"
)

// Score bands. These are fixed policy values
const (
	CostZHigh       = 3.0
	CostZHighPoints = 30
	CostZMid        = 2.0
	CostZMidPoints  = 15

	UnitsZHigh       = 3.0
	UnitsZHighPoints = 25
	UnitsZMid        = 2.0
	UnitsZMidPoints  = 12

	VolumeTopPercentile        = 99.0
	VolumeTopPercentilePoints  = 20
	VolumeHighPercentile       = 95.0
	VolumeHighPercentilePoints = 10

	AnomalyPoints = 25

	MaxScore = 100
)

// Inputs are the signals a single record contributes
type Inputs struct {
	CostZ      float64
	UnitsZ     float64
	Anomalous  bool
	Percentile float64
}

// Score returns the capped additive risk score for in
func Score(in Inputs) int {
	s := 0

	switch c := math.Abs(in.CostZ); {
	case c > CostZHigh:
		s += CostZHighPoints
	case c > CostZMid:
		s += CostZMidPoints
	}

	switch u := math.Abs(in.UnitsZ); {
	case u > UnitsZHigh:
		s += UnitsZHighPoints
	case u > UnitsZMid:
		s += UnitsZMidPoints
	}

	switch {
	case in.Percentile >= VolumeTopPercentile:
		s += VolumeTopPercentilePoints
	case in.Percentile >= VolumeHighPercentile:
		s += VolumeHighPercentilePoints
	}

	if in.Anomalous {
		s += AnomalyPoints
	}
	return min(s, MaxScore)
}

// ScoreRecords ranks every record's units against the whole slice and sets
// VolumePercentile and RiskScore in place
func ScoreRecords(records []claims.EnrichedRecord) {
	units := make([]float64, len(records))
	for i := range records {
		units[i] = float64(records[i].Units)
	}
	pct := stats.PercentileRanks(units)
	for i := range records {
		r := &records[i]
		r.VolumePercentile = pct[i]
		r.RiskScore = Score(Inputs{
			CostZ:      r.CostZ,
			UnitsZ:     r.UnitsZ,
			Anomalous:  r.Anomalous,
			Percentile: r.VolumePercentile,
		})
	}
}
