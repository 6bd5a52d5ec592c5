package analysis

import (
	"math"
	"sort"

	"github.com/heliowatt/pvscope/internal/model"
)

// PRStats is a five-number-plus summary of the finite PR values in a run.
type PRStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	P25    float64 `json:"p25"`
	Median float64 `json:"median"`
	P75    float64 `json:"p75"`
	Max    float64 `json:"max"`
}

// Describe summarizes the PR distribution over finite values only; sensor
// outage rows carry no usable ratio. Returns nil when nothing is finite.
// Std is the sample standard deviation, zero for a single value.
func Describe(rows []model.PRRow) *PRStats {
	values := make([]float64, 0, len(rows))
	for _, r := range rows {
		if r.Finite() {
			values = append(values, r.PR)
		}
	}
	if len(values) == 0 {
		return nil
	}
	sort.Float64s(values)

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	std := 0.0
	if len(values) > 1 {
		std = math.Sqrt(sq / float64(len(values)-1))
	}

	return &PRStats{
		Count:  len(values),
		Mean:   mean,
		Std:    std,
		Min:    values[0],
		P25:    quantile(values, 0.25),
		Median: quantile(values, 0.5),
		P75:    quantile(values, 0.75),
		Max:    values[len(values)-1],
	}
}

// quantile linearly interpolates q over sorted values.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// StatusCounts tallies the primary classification over all rows.
func StatusCounts(rows []model.PRRow) map[model.PerformanceStatus]int {
	counts := make(map[model.PerformanceStatus]int, 2)
	for _, r := range rows {
		counts[r.Status]++
	}
	return counts
}

// IssueCounts tallies the diagnostic labels over rows that have one.
func IssueCounts(rows []model.PRRow) map[model.IssueLabel]int {
	counts := make(map[model.IssueLabel]int, 3)
	for _, r := range rows {
		if r.Issue == model.IssueNone {
			continue
		}
		counts[r.Issue]++
	}
	return counts
}
