package regression

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(v int64) *int64 { return &v }

func TestForest_FitErrors(t *testing.T) {
	f := NewForest(Config{Seed: seed(1)})
	assert.ErrorIs(t, f.Fit(nil, nil), ErrEmptyTrainingSet)
	assert.ErrorIs(t, f.Fit([]float64{1}, []float64{1, 2}), ErrLengthMismatch)

	_, err := f.Predict(3)
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestForest_Defaults(t *testing.T) {
	cfg := NewForest(Config{}).cfg
	assert.Equal(t, DefaultTrees, cfg.Trees)
	assert.Equal(t, 1, cfg.MinSamplesLeaf)
	assert.False(t, cfg.Bootstrap)
}

func TestForest_MemorisesDistinctMonths(t *testing.T) {
	x := []float64{10, 11}
	y := []float64{300, 1000}

	f := NewForest(Config{Seed: seed(42)})
	require.NoError(t, f.Fit(x, y))

	p, err := f.Predict(10)
	require.NoError(t, err)
	assert.Equal(t, 300.0, p)

	p, err = f.Predict(11)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, p)

	score, err := f.Score(x, y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)
}

func TestForest_FullYear(t *testing.T) {
	x := make([]float64, 12)
	y := make([]float64, 12)
	for i := range x {
		x[i] = float64(i + 1)
		y[i] = 100 + 37*float64((i*7)%12)
	}

	f := NewForest(Config{Trees: 25, Seed: seed(7)})
	require.NoError(t, f.Fit(x, y))

	pred, err := f.PredictAll(x)
	require.NoError(t, err)
	assert.InDeltaSlice(t, y, pred, 1e-9)
}

func TestForest_UnseenInputStaysWithinRange(t *testing.T) {
	x := []float64{1, 2, 3, 6}
	y := []float64{50, 80, 120, 400}

	f := NewForest(Config{Seed: seed(3)})
	require.NoError(t, f.Fit(x, y))

	for _, month := range []float64{4, 5, 7, 12} {
		p, err := f.Predict(month)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, p, 50.0)
		assert.LessOrEqual(t, p, 400.0)
	}
}

func TestForest_SeedIsDeterministic(t *testing.T) {
	x := []float64{1, 3, 5, 9}
	y := []float64{10, 40, 20, 90}

	predict := func(s int64) float64 {
		f := NewForest(Config{Seed: seed(s)})
		require.NoError(t, f.Fit(x, y))
		p, err := f.Predict(4)
		require.NoError(t, err)
		return p
	}
	assert.Equal(t, predict(99), predict(99))
}

func TestForest_Bootstrap(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	y := []float64{10, 20, 30, 40}

	f := NewForest(Config{Trees: 200, Bootstrap: true, Seed: seed(5)})
	require.NoError(t, f.Fit(x, y))

	score, err := f.Score(x, y)
	require.NoError(t, err)
	assert.Greater(t, score, 0.5)
	assert.LessOrEqual(t, score, 1.0)
}

func TestForest_SinglePoint(t *testing.T) {
	f := NewForest(Config{Seed: seed(1)})
	require.NoError(t, f.Fit([]float64{4}, []float64{250}))

	p, err := f.Predict(9)
	require.NoError(t, err)
	assert.Equal(t, 250.0, p)

	score, err := f.Score([]float64{4}, []float64{250})
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)
}

func TestForest_MaxDepthAndMinLeaf(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	y := []float64{0, 0, 100, 100}

	stump := NewForest(Config{Trees: 5, MaxDepth: 1, Seed: seed(1)})
	require.NoError(t, stump.Fit(x, y))
	p, err := stump.Predict(1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, p)

	wide := NewForest(Config{Trees: 5, MinSamplesLeaf: 4, Seed: seed(1)})
	require.NoError(t, wide.Fit(x, y))
	p, err = wide.Predict(1)
	require.NoError(t, err)
	assert.Equal(t, 50.0, p)
}

func TestRSquared(t *testing.T) {
	tests := []struct {
		name      string
		estimates []float64
		values    []float64
		want      float64
	}{
		{"perfect", []float64{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"mean predictor", []float64{2, 2, 2}, []float64{1, 2, 3}, 0},
		{"constant target perfect", []float64{5, 5}, []float64{5, 5}, 1},
		{"constant target missed", []float64{4, 5}, []float64{5, 5}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RSquared(tt.estimates, tt.values)
			assert.False(t, math.IsNaN(got) || math.IsInf(got, 0))
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}
