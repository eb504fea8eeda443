package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want Summary
	}{
		{name: "empty", in: nil, want: Summary{}},
		{name: "uniform", in: []float64{120, 120, 120, 120}, want: Summary{Mean: 120, Std: 0, Median: 120}},
		{name: "single", in: []float64{7}, want: Summary{Mean: 7, Std: 0, Median: 7}},
		{name: "odd", in: []float64{3, 1, 2}, want: Summary{Mean: 2, Std: math.Sqrt(2.0 / 3.0), Median: 2}},
		// even length takes the upper middle element
		{name: "even upper middle", in: []float64{4, 1, 3, 2}, want: Summary{Mean: 2.5, Std: math.Sqrt(1.25), Median: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Describe(tt.in)
			assert.InDelta(t, tt.want.Mean, got.Mean, 1e-12)
			assert.InDelta(t, tt.want.Std, got.Std, 1e-12)
			assert.Equal(t, tt.want.Median, got.Median)
		})
	}
}

func TestDescribe_DoesNotReorderInput(t *testing.T) {
	in := []float64{9, 1, 5}
	_ = Describe(in)
	assert.Equal(t, []float64{9, 1, 5}, in)
}

func TestDescribe_StdNeverNegative(t *testing.T) {
	series := [][]float64{
		{-5, -5, -5},
		{0.1, 0.2, 0.30000000000000004},
		{1e9, -1e9, 3},
	}
	for _, s := range series {
		assert.GreaterOrEqual(t, Describe(s).Std, 0.0)
	}
}

func TestZScore(t *testing.T) {
	assert.Equal(t, 0.0, ZScore(500, 10, 0))
	assert.Equal(t, 0.0, ZScore(-3, 99, 0))
	assert.InDelta(t, 2.0, ZScore(14, 10, 2), 1e-12)
	assert.InDelta(t, -1.5, ZScore(7, 10, 2), 1e-12)
}

func TestQuantile_LinearInterpolation(t *testing.T) {
	assert.Equal(t, 0.0, Quantile(nil, 0.99))
	assert.Equal(t, 5.0, Quantile([]float64{5}, 0.99))
	// positions: 0.99 * 3 = 2.97 -> 30 + 0.97*(40-30)
	assert.InDelta(t, 39.7, Quantile([]float64{40, 10, 30, 20}, 0.99), 1e-9)
	assert.Equal(t, 10.0, Quantile([]float64{40, 10, 30, 20}, 0))
	assert.Equal(t, 40.0, Quantile([]float64{40, 10, 30, 20}, 1))
}

func TestPercentileRanks(t *testing.T) {
	got := PercentileRanks([]float64{100, 120, 200, 800})
	require.Len(t, got, 4)
	assert.Equal(t, []float64{25, 50, 75, 100}, got)

	ties := PercentileRanks([]float64{5, 5, 1})
	assert.InDelta(t, 100.0, ties[0], 1e-9)
	assert.InDelta(t, 100.0, ties[1], 1e-9)
	assert.InDelta(t, 100.0/3.0, ties[2], 1e-9)

	assert.Empty(t, PercentileRanks(nil))
}
