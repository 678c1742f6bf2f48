package analyzer

import "math"

// Trend reduces an ordered list of percentage readings to a single signed
// delta in percentage points: mean of the second half minus mean of the
// first half, rounded to one decimal. Lists shorter than two readings yield
// exactly 0.
//
// This is intentionally a coarse midpoint-split estimator rather than a
// regression: cheap, stable under noisy data, and sufficient for a
// directional indicator. The numeric output is part of the observable
// contract, so the method must not be swapped for a different statistic.
func Trend(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mid := len(values) / 2
	first, _ := mean(values[:mid])
	second, _ := mean(values[mid:])
	return math.Round((second-first)*10) / 10
}
