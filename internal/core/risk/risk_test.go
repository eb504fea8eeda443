package risk

import (
	"testing"

	"claimguard/internal/core/claims"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		in   Inputs
		want int
	}{
		{name: "all normal", in: Inputs{CostZ: 1.2, UnitsZ: -0.5, Percentile: 50}, want: 0},
		{name: "everything high is capped", in: Inputs{CostZ: 5, UnitsZ: 4, Anomalous: true, Percentile: 99}, want: 100},
		{name: "mid bands", in: Inputs{CostZ: -2.5, UnitsZ: 2.1, Percentile: 96}, want: 15 + 12 + 10},
		{name: "negative z counts by magnitude", in: Inputs{CostZ: -3.1}, want: 30},
		{name: "boundary z is exclusive", in: Inputs{CostZ: 2, UnitsZ: 3}, want: 12},
		{name: "boundary percentile is inclusive", in: Inputs{Percentile: 95}, want: 10},
		{name: "anomaly only", in: Inputs{Anomalous: true, Percentile: 10}, want: 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.in))
		})
	}
}

func TestScore_Ranges(t *testing.T) {
	assert.GreaterOrEqual(t, Score(Inputs{CostZ: 5, UnitsZ: 4, Anomalous: true, Percentile: 99}), 75)
	assert.Less(t, Score(Inputs{CostZ: 1.9, UnitsZ: -1.9, Percentile: 50}), 50)
}

func TestScoreRecords(t *testing.T) {
	records := make([]claims.EnrichedRecord, 100)
	for i := range records {
		records[i].Units = int64(i + 1)
	}
	records[99].CostZ = 4
	records[0].Anomalous = true

	ScoreRecords(records)

	require.InDelta(t, 100.0, records[99].VolumePercentile, 1e-9)
	assert.Equal(t, 30+20, records[99].RiskScore)
	assert.InDelta(t, 1.0, records[0].VolumePercentile, 1e-9)
	assert.Equal(t, 25, records[0].RiskScore)
	// 96th of 100 lands in the 95 band
	assert.Equal(t, 10, records[95].RiskScore)
	assert.Equal(t, 0, records[50].RiskScore)
}
