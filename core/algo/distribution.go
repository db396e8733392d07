// Package algo has the numeric building blocks of the statistics engine.
package algo

import (
	"slices"
	"time"

	"github.com/huangsam/prstats/schema"
)

// NewDistribution summarizes values as count, minimum, maximum, mean and median.
// An empty input yields a zero Count and nil value fields. The input slice is not modified
// and its order has no effect on the result.
func NewDistribution(values []float64) schema.Distribution {
	if len(values) == 0 {
		return schema.Distribution{}
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}

	n := len(sorted)
	var median float64
	if n%2 == 1 {
		median = sorted[n/2]
	} else {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	return schema.Distribution{
		Count:   n,
		Minimum: schema.Float64Ptr(sorted[0]),
		Maximum: schema.Float64Ptr(sorted[n-1]),
		Mean:    schema.Float64Ptr(clamp(sum/float64(n), sorted[0], sorted[n-1])),
		Median:  schema.Float64Ptr(median),
	}
}

// clamp keeps the mean inside [lo, hi] when float rounding pushes it out by an ulp.
func clamp(v, lo, hi float64) float64 {
	return max(lo, min(v, hi))
}

// Rate returns numerator/denominator as a percentage, or nil when denominator is 0.
func Rate(numerator, denominator int) *float64 {
	if denominator == 0 {
		return nil
	}
	return schema.Float64Ptr(float64(numerator) / float64(denominator) * 100)
}

// Per100 returns count per 100 lines.
func Per100(count, lines int) float64 {
	return float64(count) / float64(lines) * 100
}

// Days returns the span between two instants in fractional days.
func Days(start, end time.Time) float64 {
	return end.Sub(start).Hours() / 24
}

// Hours returns the span between two instants in fractional hours.
func Hours(start, end time.Time) float64 {
	return end.Sub(start).Hours()
}
