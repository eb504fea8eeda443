package forest

import (
	"math"
	"math/rand"
	"testing"

	"claimguard/internal/core/benchmark"
	"claimguard/internal/core/claims"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvgPathLength(t *testing.T) {
	assert.Equal(t, 0.0, AvgPathLength(0))
	assert.Equal(t, 0.0, AvgPathLength(1))
	assert.InDelta(t, 2*eulerGamma-1, AvgPathLength(2), 1e-12)
	want := 2*(math.Log(255)+eulerGamma) - 2*255.0/256.0
	assert.InDelta(t, want, AvgPathLength(256), 1e-12)
}

func TestNormalize(t *testing.T) {
	got := Normalize([][]float64{
		{10, 5, 1},
		{20, 5, 3},
		{30, 5, 2},
	})
	require.Len(t, got, 3)
	assert.Equal(t, []float64{0, 0, 0}, got[0])
	assert.Equal(t, []float64{0.5, 0, 1}, got[1])
	assert.Equal(t, []float64{1, 0, 0.5}, got[2])

	assert.Nil(t, Normalize(nil))
}

func TestFit_Empty(t *testing.T) {
	_, err := Fit(nil)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestFit_SinglePoint(t *testing.T) {
	f, err := Fit([][]float64{{0.5, 0.5}}, WithSeed(1), WithTrees(10))
	require.NoError(t, err)
	// every tree is a single leaf so the path is 0 and the score is 1
	assert.Equal(t, 1.0, f.Score([]float64{0.5, 0.5}))
}

func TestOptions(t *testing.T) {
	f, err := Fit([][]float64{{0}, {1}}, WithTrees(7), WithSampleCap(64), WithThreshold(0.9), WithSeed(3))
	require.NoError(t, err)
	assert.Len(t, f.trees, 7)
	assert.InDelta(t, AvgPathLength(64), f.norm, 1e-12)
	assert.False(t, f.Anomalous(0.9))
	assert.True(t, f.Anomalous(0.91))

	// non-positive values keep defaults
	g, err := Fit([][]float64{{0}, {1}}, WithTrees(0), WithSampleCap(-1), WithThreshold(0))
	require.NoError(t, err)
	assert.Len(t, g.trees, DefaultTrees)
	assert.Equal(t, DefaultThreshold, g.threshold)
}

func TestFit_SeededIsReproducible(t *testing.T) {
	r := rand.New(rand.NewSource(99))
	pts := make([][]float64, 300)
	for i := range pts {
		pts[i] = []float64{r.Float64(), r.Float64(), r.Float64()}
	}
	a, err := Fit(pts, WithSeed(42))
	require.NoError(t, err)
	b, err := Fit(pts, WithSeed(42))
	require.NoError(t, err)
	for _, p := range pts[:20] {
		assert.Equal(t, a.Score(p), b.Score(p))
	}
}

func TestScore_IsolatesOutlier(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	pts := make([][]float64, 500)
	for i := range pts {
		pts[i] = []float64{0.4 + r.Float64()*0.2, 0.4 + r.Float64()*0.2}
	}
	pts = append(pts, []float64{5, 5})

	f, err := Fit(Normalize(pts), WithSeed(11))
	require.NoError(t, err)
	norm := Normalize(pts)
	outlier := f.Score(norm[len(norm)-1])
	inlier := f.Score(norm[0])
	assert.Greater(t, outlier, inlier)
	assert.True(t, f.Anomalous(outlier))
}

func TestDetect_ClaimsOutlier(t *testing.T) {
	mk := func(billing string, units, subjects int64, paid string) claims.RawRecord {
		return claims.RawRecord{
			BillingID: billing,
			Code:      "99213",
			Period:    "2024-01",
			Units:     units,
			Subjects:  subjects,
			Paid:      decimal.RequireFromString(paid),
		}
	}
	raw := []claims.RawRecord{
		mk("A", 100, 50, "12000"),
		mk("A", 120, 55, "14400"),
		mk("B", 200, 90, "24000"),
		mk("B", 800, 100, "96000"),
	}
	records := benchmark.Enrich(raw, benchmark.Build(raw))

	require.NoError(t, Detect(records, WithSeed(2024)))

	b2 := records[3].AnomalyScore
	for _, a := range records[:2] {
		assert.Greater(t, b2-a.AnomalyScore, 0.02, "outlier should score materially higher")
	}
	for _, r := range records {
		assert.Greater(t, r.AnomalyScore, 0.0)
		assert.LessOrEqual(t, r.AnomalyScore, 1.0)
		assert.Equal(t, r.AnomalyScore > DefaultThreshold, r.Anomalous)
	}
}

func TestDetect_Empty(t *testing.T) {
	assert.NoError(t, Detect(nil))
}
