package appd

import (
	"math"
	"sort"
	"time"
)

// MetricSample is one application's counters for one collection window.
// Error percentage and health are derived by NewSample and never set elsewhere.
type MetricSample struct {
	ApplicationName     string
	ApplicationID       int64
	CallsPerMinute      float64
	AverageResponseTime float64 // ms
	ErrorsPerMinute     float64
	ErrorPercentage     float64
	HealthStatus        HealthStatus
	Timestamp           time.Time
	Failed              bool // no counter could be fetched
}

// NewSample builds a classified sample.
func NewSample(name string, id int64, cpm, art, epm float64, ts time.Time) MetricSample {
	pct := ErrorPercentage(epm, cpm)
	return MetricSample{
		ApplicationName:     name,
		ApplicationID:       id,
		CallsPerMinute:      cpm,
		AverageResponseTime: art,
		ErrorsPerMinute:     epm,
		ErrorPercentage:     pct,
		HealthStatus:        Classify(pct, art, cpm),
		Timestamp:           ts,
	}
}

// ErrorPercentage returns epm/cpm as a percentage rounded to 2 decimals, or 0
// without traffic.
func ErrorPercentage(epm, cpm float64) float64 {
	if cpm <= 0 {
		return 0
	}
	return round2(epm / cpm * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// SortByName orders samples by application name for stable exports.
func SortByName(samples []MetricSample) {
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].ApplicationName < samples[j].ApplicationName
	})
}
