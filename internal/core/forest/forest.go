// Package forest implements the randomized isolation ensemble that flags
// records whose five billing features are jointly unusual within a batch
package forest

import (
	"errors"
	"math"
	"math/rand"
	"time"

	"claimguard/internal/core/claims"
)

// Defaults for the ensemble
const (
	DefaultTrees     = 100
	DefaultSampleCap = 256
	DefaultThreshold = 0.6

	eulerGamma = 0.5772156649
)

// ErrEmpty is returned when fitting on no points
var ErrEmpty = errors.New("forest: empty training data")

// Option configures a Forest
type Option func(*config)

type config struct {
	trees     int
	sampleCap int
	threshold float64
	rng       *rand.Rand
}

// WithTrees sets the number of trees
func WithTrees(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.trees = n
		}
	}
}

// WithSampleCap sets the per tree subsample cap, which is also the size the
// score normalizer is evaluated at
func WithSampleCap(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.sampleCap = n
		}
	}
}

// WithThreshold sets the score above which a point is flagged
func WithThreshold(t float64) Option {
	return func(c *config) {
		if t > 0 {
			c.threshold = t
		}
	}
}

// WithSeed makes tree construction reproducible
func WithSeed(seed int64) Option {
	return func(c *config) {
		c.rng = rand.New(rand.NewSource(seed))
	}
}

// Forest is a fitted ensemble
type Forest struct {
	trees     []*node
	threshold float64
	norm      float64
}

type node struct {
	feature int
	split   float64
	left    *node
	right   *node
	size    int
}

func (n *node) leaf() bool { return n.left == nil && n.right == nil }

// Fit builds the ensemble over points, each tree drawing min(sampleCap, n)
// points with replacement
func Fit(points [][]float64, opts ...Option) (*Forest, error) {
	if len(points) == 0 {
		return nil, ErrEmpty
	}
	cfg := config{
		trees:     DefaultTrees,
		sampleCap: DefaultSampleCap,
		threshold: DefaultThreshold,
	}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.rng == nil {
		cfg.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	n := len(points)
	sampleSize := min(cfg.sampleCap, n)
	maxDepth := int(math.Ceil(math.Log2(float64(sampleSize))))
	features := len(points[0])

	b := builder{rng: cfg.rng, maxDepth: maxDepth, features: features}
	f := &Forest{
		trees:     make([]*node, cfg.trees),
		threshold: cfg.threshold,
		norm:      AvgPathLength(cfg.sampleCap),
	}
	sample := make([][]float64, sampleSize)
	for i := range f.trees {
		for j := range sample {
			sample[j] = points[cfg.rng.Intn(n)]
		}
		f.trees[i] = b.grow(sample, 0)
	}
	return f, nil
}

type builder struct {
	rng      *rand.Rand
	maxDepth int
	features int
}

func (b builder) grow(data [][]float64, depth int) *node {
	n := len(data)
	if depth >= b.maxDepth || n <= 1 || b.features == 0 {
		return &node{size: n}
	}

	feature := b.rng.Intn(b.features)
	lo, hi := data[0][feature], data[0][feature]
	for _, p := range data[1:] {
		if p[feature] < lo {
			lo = p[feature]
		}
		if p[feature] > hi {
			hi = p[feature]
		}
	}
	if lo == hi {
		return &node{size: n}
	}

	split := lo + b.rng.Float64()*(hi-lo)
	var left, right [][]float64
	for _, p := range data {
		if p[feature] < split {
			left = append(left, p)
		} else {
			right = append(right, p)
		}
	}

	nd := &node{feature: feature, split: split, size: n}
	if len(left) > 0 {
		nd.left = b.grow(left, depth+1)
	}
	if len(right) > 0 {
		nd.right = b.grow(right, depth+1)
	}
	return nd
}

// Score returns 2^(-avgPath/c(sampleCap)), higher is more anomalous
func (f *Forest) Score(p []float64) float64 {
	if f == nil || len(f.trees) == 0 || f.norm == 0 {
		return 0
	}
	var total float64
	for _, t := range f.trees {
		total += pathLength(p, t, 0)
	}
	avg := total / float64(len(f.trees))
	return math.Pow(2, -avg/f.norm)
}

// Anomalous reports whether score crosses the decision threshold
func (f *Forest) Anomalous(score float64) bool { return score > f.threshold }

func pathLength(p []float64, n *node, depth int) float64 {
	for {
		if n.leaf() {
			return float64(depth) + AvgPathLength(n.size)
		}
		next := n.right
		if p[n.feature] < n.split {
			next = n.left
		}
		// a one sided split leaves the point at this node
		if next == nil {
			return float64(depth) + AvgPathLength(n.size)
		}
		n = next
		depth++
	}
}

// AvgPathLength is c(n), the expected path length of an unsuccessful search
// in a binary tree of n points, 0 for n <= 1
func AvgPathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	fn := float64(n)
	return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
}

// Features is the raw feature vector of a record:
// paid, units, subjects, cost per unit, units per subject
func Features(r claims.EnrichedRecord) []float64 {
	return []float64{
		r.Paid.InexactFloat64(),
		float64(r.Units),
		float64(r.Subjects),
		r.CostPerUnit.InexactFloat64(),
		r.UnitsPerSubject,
	}
}

// Normalize min-max scales each column independently, a zero range column becomes 0
func Normalize(m [][]float64) [][]float64 {
	if len(m) == 0 {
		return nil
	}
	cols := len(m[0])
	lo := make([]float64, cols)
	hi := make([]float64, cols)
	copy(lo, m[0])
	copy(hi, m[0])
	for _, row := range m[1:] {
		for j, v := range row {
			if v < lo[j] {
				lo[j] = v
			}
			if v > hi[j] {
				hi[j] = v
			}
		}
	}

	out := make([][]float64, len(m))
	for i, row := range m {
		nr := make([]float64, cols)
		for j, v := range row {
			if rng := hi[j] - lo[j]; rng > 0 {
				nr[j] = (v - lo[j]) / rng
			}
		}
		out[i] = nr
	}
	return out
}

// Detect fits a forest on the batch and writes AnomalyScore and Anomalous on
// every record in place
func Detect(records []claims.EnrichedRecord, opts ...Option) error {
	if len(records) == 0 {
		return nil
	}
	raw := make([][]float64, len(records))
	for i := range records {
		raw[i] = Features(records[i])
	}
	points := Normalize(raw)

	f, err := Fit(points, opts...)
	if err != nil {
		return err
	}
	for i := range records {
		s := f.Score(points[i])
		records[i].AnomalyScore = s
		records[i].Anomalous = f.Anomalous(s)
	}
	return nil
}
