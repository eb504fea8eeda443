package benchmark

import (
	"testing"

	"claimguard/internal/core/claims"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(billing, code string, units, subjects int64, paid string) claims.RawRecord {
	return claims.RawRecord{
		BillingID: billing,
		Code:      code,
		Period:    "2024-01",
		Units:     units,
		Subjects:  subjects,
		Paid:      decimal.RequireFromString(paid),
	}
}

func TestBuild_UniformGroup(t *testing.T) {
	records := []claims.RawRecord{
		rec("A", "99213", 10, 5, "1200"),
		rec("B", "99213", 20, 10, "2400"),
		rec("C", "99213", 5, 5, "600"),
		rec("D", "99213", 1, 1, "120"),
	}
	bm := Build(records)
	require.Contains(t, bm, "99213")

	b := bm["99213"]
	assert.Equal(t, 4, b.SampleSize)
	assert.Equal(t, 120.0, b.CostMean)
	assert.Equal(t, 0.0, b.CostStd)
	assert.Equal(t, 120.0, b.CostMedian)
}

func TestBuild_SkipsZeroDenominators(t *testing.T) {
	records := []claims.RawRecord{
		rec("A", "X1", 10, 5, "100"),
		rec("B", "X1", 10, 0, "100"),
		rec("C", "X2", 0, 3, "100"),
	}
	bm := Build(records)
	assert.Equal(t, 1, bm["X1"].SampleSize)
	assert.NotContains(t, bm, "X2")
}

func TestEnrich(t *testing.T) {
	records := []claims.RawRecord{
		rec("A", "99213", 10, 10, "1000"),
		rec("B", "99213", 10, 10, "3000"),
		rec("C", "NOBENCH", 4, 2, "80"),
	}
	bm := Build(records[:2])
	out := Enrich(records, bm)
	require.Len(t, out, 3)

	// cost per unit 100 and 300, mean 200, std 100
	assert.True(t, out[0].CostPerUnit.Equal(decimal.NewFromInt(100)))
	assert.InDelta(t, -1.0, out[0].CostZ, 1e-9)
	assert.InDelta(t, 1.0, out[1].CostZ, 1e-9)
	assert.Equal(t, 0.0, out[0].UnitsZ)

	assert.Equal(t, 0.0, out[2].CostZ)
	assert.Equal(t, 0.0, out[2].UnitsZ)
	assert.Equal(t, 2.0, out[2].UnitsPerSubject)
	assert.False(t, out[2].Anomalous)
	assert.Equal(t, 0, out[2].RiskScore)
}

func TestEnrich_Idempotent(t *testing.T) {
	records := []claims.RawRecord{
		rec("A", "99213", 100, 50, "12000"),
		rec("A", "99213", 120, 55, "14400"),
		rec("B", "99214", 200, 90, "24000"),
		rec("B", "99214", 800, 100, "96000"),
	}
	first := Enrich(records, Build(records))
	second := Enrich(records, Build(records))
	assert.Equal(t, first, second)
}
