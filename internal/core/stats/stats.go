// Package stats holds the zero-guarded numeric primitives used by every scoring stage
package stats

import (
	"math"
	"sort"
)

// Summary is the mean, population std and median of a series
type Summary struct {
	Mean   float64
	Std    float64
	Median float64
}

// Describe returns the population mean and std of values and the element at
// floor(n/2) of the sorted series, which is the upper middle for even n
// empty input yields the zero Summary
func Describe(values []float64) Summary {
	n := len(values)
	if n == 0 {
		return Summary{}
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	std := math.Sqrt(sq / float64(n))

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	return Summary{Mean: mean, Std: std, Median: sorted[n/2]}
}

// ZScore returns (value-mean)/std, or exactly 0 when std is 0
func ZScore(value, mean, std float64) float64 {
	if std == 0 {
		return 0
	}
	z := (value - mean) / std
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return 0
	}
	return z
}

// Quantile returns the q-th quantile (0..1) with linear interpolation
// between the closest ranks, empty input yields 0
func Quantile(values []float64, q float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	switch {
	case q <= 0:
		return sorted[0]
	case q >= 1:
		return sorted[n-1]
	}

	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := lo + 1
	if hi >= n {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// PercentileRanks returns, for every value, count(values <= v) / n * 100
// output order matches input order
func PercentileRanks(values []float64) []float64 {
	n := len(values)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	for i, v := range values {
		le := sort.Search(n, func(j int) bool { return sorted[j] > v })
		out[i] = float64(le) / float64(n) * 100
	}
	return out
}
