package analyzer

import (
	"math"
	"sort"

	"github.com/virtscope/capacity-engine/pkg/models"
)

// Stats computes average/P50/P95/peak over every valid reading collected in
// the lookback window for one metric. Returns a zero struct for an empty
// window.
func Stats(values []float64) models.MetricStats {
	if len(values) == 0 {
		return models.MetricStats{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	avg, _ := mean(sorted)
	return models.MetricStats{
		Average: round1(avg),
		P50:     round1(percentile(sorted, 50)),
		P95:     round1(percentile(sorted, 95)),
		Peak:    round1(sorted[len(sorted)-1]),
	}
}

// percentile computes the Nth percentile of sorted values using linear
// interpolation between the two nearest ranks.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := (p / 100.0) * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}

	fraction := rank - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*fraction
}
