package regression

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// perfectTolerance is the largest absolute residual still counted as exact
// when the targets have no variance.
const perfectTolerance = 1e-9

// RSquared returns the coefficient of determination of estimates against
// values. When values have zero variance the ratio is undefined; the score is
// then 1 for a perfect fit and 0 otherwise, so the result is always finite.
func RSquared(estimates, values []float64) float64 {
	if len(values) == 0 || len(estimates) != len(values) {
		return 0
	}
	if constant(values) {
		for i := range values {
			if math.Abs(estimates[i]-values[i]) > perfectTolerance {
				return 0
			}
		}
		return 1
	}
	return stat.RSquaredFrom(estimates, values, nil)
}

func constant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}
