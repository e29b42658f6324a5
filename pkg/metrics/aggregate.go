package metrics

import (
	"math"
	"sort"
)

// percentileValues computes the requested percentiles over values using the
// nearest-rank method: the result for percentile p is the element at
// 1-indexed rank ceil(p/100*N) of the ascending values, clamped to [1, N].
// Returns an empty map when no values are given; the keys are exactly the
// requested percentiles.
func percentileValues(values []float64, percentiles []float64) map[float64]float64 {
	result := make(map[float64]float64, len(percentiles))
	if len(values) == 0 {
		return result
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	for _, p := range percentiles {
		result[p] = nearestRank(sorted, p)
	}
	return result
}

func nearestRank(sorted []float64, percentile float64) float64 {
	rank := int(math.Ceil(percentile / 100.0 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}

// errorRate computes false/(false+true). A zero denominator means no
// success/failure information exists, which yields a rate of 0.
func errorRate(falseCount, trueCount int64) float64 {
	total := falseCount + trueCount
	if total == 0 {
		return 0.0
	}
	return float64(falseCount) / float64(total)
}
