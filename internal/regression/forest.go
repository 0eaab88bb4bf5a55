// Package regression implements a small ensemble of regression trees over a
// single numeric feature, plus the coefficient of determination used to score
// it. It exists to serve the monthly forecast and is not a general-purpose
// learning library.
package regression

import (
	"errors"
	"math/rand"
	"sort"
	"time"
)

// DefaultTrees is the ensemble size used when Config.Trees is not positive.
const DefaultTrees = 100

var (
	// ErrEmptyTrainingSet is returned by Fit when there are no samples.
	ErrEmptyTrainingSet = errors.New("regression: empty training set")
	// ErrLengthMismatch is returned by Fit when x and y differ in length.
	ErrLengthMismatch = errors.New("regression: feature and target lengths differ")
	// ErrNotFitted is returned by Predict before Fit succeeded.
	ErrNotFitted = errors.New("regression: forest has not been fitted")
)

// Config controls how the ensemble is grown.
type Config struct {
	// Trees is the number of trees. Non-positive means DefaultTrees.
	Trees int
	// MaxDepth limits tree depth. Zero grows trees until leaves are pure.
	MaxDepth int
	// MinSamplesLeaf is the minimum number of samples per leaf. Non-positive means 1.
	MinSamplesLeaf int
	// Bootstrap trains each tree on a resample drawn with replacement and
	// splits at midpoints. When false each tree sees every sample and the
	// split threshold is drawn uniformly between the two neighbouring values.
	Bootstrap bool
	// Seed makes fitting deterministic. Nil seeds from the clock, so two fits
	// of the same data may predict differently for unseen inputs.
	Seed *int64
}

// Forest is an averaged ensemble of regression trees. A Forest is not safe
// for concurrent use; create one per fit.
type Forest struct {
	cfg   Config
	rng   *rand.Rand
	trees []*node
}

// NewForest returns an unfitted forest.
func NewForest(cfg Config) *Forest {
	if cfg.Trees <= 0 {
		cfg.Trees = DefaultTrees
	}
	if cfg.MinSamplesLeaf <= 0 {
		cfg.MinSamplesLeaf = 1
	}
	seed := time.Now().UnixNano()
	if cfg.Seed != nil {
		seed = *cfg.Seed
	}
	return &Forest{cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

// Fit grows the ensemble on samples (x[i], y[i]). Any previous fit is discarded.
func (f *Forest) Fit(x, y []float64) error {
	if len(x) != len(y) {
		return ErrLengthMismatch
	}
	if len(x) == 0 {
		return ErrEmptyTrainingSet
	}

	samples := make([]sample, len(x))
	for i := range x {
		samples[i] = sample{x: x[i], y: y[i]}
	}

	f.trees = make([]*node, 0, f.cfg.Trees)
	for t := 0; t < f.cfg.Trees; t++ {
		train := samples
		if f.cfg.Bootstrap {
			train = f.resample(samples)
		} else {
			train = append([]sample(nil), samples...)
		}
		f.trees = append(f.trees, f.grow(train, 0))
	}
	return nil
}

// Predict returns the ensemble mean for feature value x.
func (f *Forest) Predict(x float64) (float64, error) {
	if len(f.trees) == 0 {
		return 0, ErrNotFitted
	}
	var sum float64
	for _, t := range f.trees {
		sum += t.predict(x)
	}
	return sum / float64(len(f.trees)), nil
}

// PredictAll applies Predict to every value in xs.
func (f *Forest) PredictAll(xs []float64) ([]float64, error) {
	out := make([]float64, len(xs))
	for i, x := range xs {
		p, err := f.Predict(x)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

// Score returns the R² of the forest's predictions on (x, y).
func (f *Forest) Score(x, y []float64) (float64, error) {
	if len(x) != len(y) {
		return 0, ErrLengthMismatch
	}
	pred, err := f.PredictAll(x)
	if err != nil {
		return 0, err
	}
	return RSquared(pred, y), nil
}

type sample struct {
	x, y float64
}

type node struct {
	leaf      bool
	value     float64
	threshold float64
	left      *node
	right     *node
}

func (n *node) predict(x float64) float64 {
	for !n.leaf {
		if x <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

func (f *Forest) resample(samples []sample) []sample {
	out := make([]sample, len(samples))
	for i := range out {
		out[i] = samples[f.rng.Intn(len(samples))]
	}
	return out
}

func (f *Forest) grow(samples []sample, depth int) *node {
	mean := meanY(samples)
	if len(samples) < 2*f.cfg.MinSamplesLeaf || (f.cfg.MaxDepth > 0 && depth >= f.cfg.MaxDepth) {
		return &node{leaf: true, value: mean}
	}

	sort.Slice(samples, func(i, j int) bool { return samples[i].x < samples[j].x })
	cut, ok := f.bestCut(samples)
	if !ok {
		return &node{leaf: true, value: mean}
	}

	lo, hi := samples[cut-1].x, samples[cut].x
	threshold := lo + (hi-lo)/2
	if !f.cfg.Bootstrap {
		threshold = lo + f.rng.Float64()*(hi-lo)
	}

	return &node{
		threshold: threshold,
		left:      f.grow(samples[:cut], depth+1),
		right:     f.grow(samples[cut:], depth+1),
	}
}

// bestCut returns the index i such that samples[:i] and samples[i:] is the
// split with the lowest summed squared error. samples must be sorted by x.
// Cuts are only considered between distinct x values. Ties between equally
// good cuts are broken at random.
func (f *Forest) bestCut(samples []sample) (int, bool) {
	n := len(samples)
	prefix := make([]float64, n+1)
	prefixSq := make([]float64, n+1)
	for i, s := range samples {
		prefix[i+1] = prefix[i] + s.y
		prefixSq[i+1] = prefixSq[i] + s.y*s.y
	}
	parent := sse(prefix[n], prefixSq[n], n)
	if parent <= 0 {
		return 0, false
	}

	const eps = 1e-12
	best := -1
	bestSSE := 0.0
	ties := 0
	for i := f.cfg.MinSamplesLeaf; i <= n-f.cfg.MinSamplesLeaf; i++ {
		if samples[i-1].x == samples[i].x {
			continue
		}
		left := sse(prefix[i], prefixSq[i], i)
		right := sse(prefix[n]-prefix[i], prefixSq[n]-prefixSq[i], n-i)
		total := left + right
		switch {
		case best < 0 || total < bestSSE-eps:
			best, bestSSE, ties = i, total, 1
		case total <= bestSSE+eps:
			ties++
			if f.rng.Intn(ties) == 0 {
				best = i
			}
		}
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}

func sse(sum, sumSq float64, n int) float64 {
	if n == 0 {
		return 0
	}
	v := sumSq - sum*sum/float64(n)
	if v < 0 {
		return 0
	}
	return v
}

func meanY(samples []sample) float64 {
	var sum float64
	for _, s := range samples {
		sum += s.y
	}
	return sum / float64(len(samples))
}
