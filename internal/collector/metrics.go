package collector

import (
	"sort"
	"time"
)

// Metrics contains aggregated run results.
type Metrics struct {
	TotalRequests  int                        `json:"totalRequests"`
	SuccessCount   int                        `json:"successCount"`
	FailureCount   int                        `json:"failureCount"`
	SuccessRate    float64                    `json:"successRate"`
	RequestsPerSec float64                    `json:"requestsPerSec"`
	TestDuration   time.Duration              `json:"testDuration"`
	Duration       DurationMetrics            `json:"durations"`
	Requests       map[string]*RequestMetrics `json:"requests"`
	Steps          map[string]DurationMetrics `json:"steps"` // latency per journey step kind
	StatusCodes    map[int]int                `json:"statusCodes"`
	Errors         map[string]int             `json:"errors"`
	Journeys       map[string]int             `json:"journeys"` // requests issued per journey pattern
	Outcomes       map[string]JourneyOutcome  `json:"outcomes"`
}

// JourneyOutcome counts finished journeys of one pattern.
type JourneyOutcome struct {
	Completed int `json:"completed"`
	Aborted   int `json:"aborted"`
}

// JourneyTotals returns aborted and finished journey counts over all patterns.
func (m *Metrics) JourneyTotals() (aborted, finished int) {
	for _, o := range m.Outcomes {
		aborted += o.Aborted
		finished += o.Completed + o.Aborted
	}
	return aborted, finished
}

// DurationMetrics contains latency statistics.
type DurationMetrics struct {
	Min time.Duration `json:"min"`
	Max time.Duration `json:"max"`
	Avg time.Duration `json:"avg"`
	P50 time.Duration `json:"p50"`
	P90 time.Duration `json:"p90"`
	P95 time.Duration `json:"p95"`
	P99 time.Duration `json:"p99"`
}

// RequestMetrics contains statistics for one request name, e.g. "Add to Cart".
type RequestMetrics struct {
	Count    int             `json:"count"`
	Success  int             `json:"success"`
	Failed   int             `json:"failed"`
	Duration DurationMetrics `json:"durations"`
}

// RequestNames returns the request names in alphabetical order.
func (m *Metrics) RequestNames() []string {
	names := make([]string, 0, len(m.Requests))
	for name := range m.Requests {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ComputePercentile calculates the percentile value from a sorted slice of durations.
// p is between 0 and 1 (e.g. 0.95 for p95) and sorted must be ascending.
func ComputePercentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}

	// nearest rank
	index := int(float64(len(sorted)-1) * p)
	return sorted[index]
}

// ComputeDurationMetrics calculates all duration statistics from a slice of durations.
func ComputeDurationMetrics(durations []time.Duration) DurationMetrics {
	if len(durations) == 0 {
		return DurationMetrics{}
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	var total time.Duration
	for _, d := range sorted {
		total += d
	}

	return DurationMetrics{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: total / time.Duration(len(sorted)),
		P50: ComputePercentile(sorted, 0.50),
		P90: ComputePercentile(sorted, 0.90),
		P95: ComputePercentile(sorted, 0.95),
		P99: ComputePercentile(sorted, 0.99),
	}
}
