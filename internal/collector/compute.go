package collector

import (
	"time"

	"perfkit/internal/core"
)

// ComputeMetrics computes metrics from events. Pure function, no side effects.
func ComputeMetrics(events []core.Event, testDuration time.Duration) *Metrics {
	m := &Metrics{
		Requests:     make(map[string]*RequestMetrics),
		Steps:        make(map[string]DurationMetrics),
		StatusCodes:  make(map[int]int),
		Errors:       make(map[string]int),
		Journeys:     make(map[string]int),
		Outcomes:     make(map[string]JourneyOutcome),
		TestDuration: testDuration,
	}

	if len(events) == 0 {
		return m
	}

	allDurations := make([]time.Duration, 0, len(events))
	byName := make(map[string][]time.Duration)
	byStep := make(map[string][]time.Duration)

	for _, e := range events {
		m.TotalRequests++
		if e.Success {
			m.SuccessCount++
		} else {
			m.FailureCount++
		}
		if e.StatusCode != 0 {
			m.StatusCodes[e.StatusCode]++
		}
		if e.Error != "" {
			m.Errors[e.Error]++
		}
		if e.Journey != "" {
			m.Journeys[e.Journey]++
		}

		allDurations = append(allDurations, e.Duration)
		if e.Step != "" {
			byStep[e.Step] = append(byStep[e.Step], e.Duration)
		}

		key := e.Key()
		rm, ok := m.Requests[key]
		if !ok {
			rm = &RequestMetrics{}
			m.Requests[key] = rm
		}
		rm.Count++
		if e.Success {
			rm.Success++
		} else {
			rm.Failed++
		}
		byName[key] = append(byName[key], e.Duration)
	}

	m.SuccessRate = float64(m.SuccessCount) / float64(m.TotalRequests) * 100

	if m.TestDuration > 0 {
		m.RequestsPerSec = float64(m.TotalRequests) / m.TestDuration.Seconds()
	}

	m.Duration = ComputeDurationMetrics(allDurations)
	for name, durations := range byName {
		m.Requests[name].Duration = ComputeDurationMetrics(durations)
	}
	for step, durations := range byStep {
		m.Steps[step] = ComputeDurationMetrics(durations)
	}

	return m
}
