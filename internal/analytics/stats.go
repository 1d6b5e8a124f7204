package analytics

import (
	"math"
	"sort"
)

// Descriptive-statistics helpers shared by the analyses. All of them work on
// plain float64 slices the caller has already filtered for nulls.

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

func mean(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	return sum(values) / float64(len(values)), true
}

// stddev is the sample standard deviation (n-1 denominator). Undefined for
// fewer than two observations.
func stddev(values []float64) (float64, bool) {
	if len(values) < 2 {
		return 0, false
	}
	m, _ := mean(values)
	var ss float64
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1)), true
}

func median(values []float64) (float64, bool) {
	return quantile(values, 0.5)
}

// quantile uses linear interpolation between closest ranks, matching the
// numpy default.
func quantile(values []float64, q float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if q <= 0 {
		return sorted[0], true
	}
	if q >= 1 {
		return sorted[len(sorted)-1], true
	}

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo], true
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac, true
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// modeString returns the most frequent value. Ties are pinned to the
// lexicographically smallest candidate so reruns are deterministic.
func modeString(values []string) (string, bool) {
	if len(values) == 0 {
		return "", false
	}
	counts := make(map[string]int, len(values))
	for _, v := range values {
		counts[v]++
	}
	var best string
	bestCount := -1
	for v, c := range counts {
		if c > bestCount || (c == bestCount && v < best) {
			best, bestCount = v, c
		}
	}
	return best, true
}

// modeInt returns the most frequent value, ties pinned to the smallest.
func modeInt(values []int) (int, bool) {
	if len(values) == 0 {
		return 0, false
	}
	counts := make(map[int]int, len(values))
	for _, v := range values {
		counts[v]++
	}
	best := 0
	bestCount := -1
	for v, c := range counts {
		if c > bestCount || (c == bestCount && v < best) {
			best, bestCount = v, c
		}
	}
	return best, true
}

func floatPtr(v float64) *float64 { return &v }
