package collector

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Thresholds gate a load run. Every configured limit must hold for the run to
// pass; unset limits are not checked.
type Thresholds struct {
	HTTPReqDuration *LatencyLimits           `yaml:"http_req_duration"`
	HTTPReqFailed   *PercentLimit            `yaml:"http_req_failed"`
	JourneyAborted  *PercentLimit            `yaml:"journey_aborted"`
	StepDuration    map[string]LatencyLimits `yaml:"step_duration"` // keyed by step, e.g. "checkout"
}

// LatencyLimits are upper bounds on latency statistics. Zero fields are skipped.
type LatencyLimits struct {
	Avg time.Duration `yaml:"avg"`
	P50 time.Duration `yaml:"p50"`
	P90 time.Duration `yaml:"p90"`
	P95 time.Duration `yaml:"p95"`
	P99 time.Duration `yaml:"p99"`
}

// PercentLimit is an upper bound written as a percentage, e.g. "5%".
type PercentLimit struct {
	Rate string `yaml:"rate"`
}

// ThresholdResult is the verdict on one limit.
type ThresholdResult struct {
	Name      string `json:"name"`
	Passed    bool   `json:"passed"`
	Threshold string `json:"threshold"`
	Actual    string `json:"actual"`
}

// ThresholdResults collects every verdict of a run.
type ThresholdResults struct {
	Passed  bool              `json:"passed"`
	Results []ThresholdResult `json:"results"`
}

// Check judges m against the configured limits. A nil receiver passes with
// no results.
func (t *Thresholds) Check(m *Metrics) *ThresholdResults {
	if t == nil {
		return &ThresholdResults{Passed: true}
	}
	r := &ThresholdResults{Passed: true, Results: make([]ThresholdResult, 0)}

	if t.HTTPReqDuration != nil {
		r.latency("http_req_duration", *t.HTTPReqDuration, m.Duration)
	}
	if t.HTTPReqFailed != nil {
		r.percent("http_req_failed.rate", t.HTTPReqFailed.Rate, m.FailureCount, m.TotalRequests)
	}
	if t.JourneyAborted != nil {
		aborted, finished := m.JourneyTotals()
		r.percent("journey_aborted.rate", t.JourneyAborted.Rate, aborted, finished)
	}

	steps := make([]string, 0, len(t.StepDuration))
	for step := range t.StepDuration {
		steps = append(steps, step)
	}
	sort.Strings(steps)
	for _, step := range steps {
		actual, ok := m.Steps[step]
		if !ok {
			r.add(ThresholdResult{Name: "step_duration." + step, Passed: true, Actual: "no samples"})
			continue
		}
		r.latency("step_duration."+step, t.StepDuration[step], actual)
	}

	return r
}

func (r *ThresholdResults) add(res ThresholdResult) {
	if !res.Passed {
		r.Passed = false
	}
	r.Results = append(r.Results, res)
}

func (r *ThresholdResults) latency(prefix string, limits LatencyLimits, actual DurationMetrics) {
	checks := []struct {
		stat  string
		limit time.Duration
		got   time.Duration
	}{
		{"avg", limits.Avg, actual.Avg},
		{"p50", limits.P50, actual.P50},
		{"p90", limits.P90, actual.P90},
		{"p95", limits.P95, actual.P95},
		{"p99", limits.P99, actual.P99},
	}
	for _, c := range checks {
		if c.limit == 0 {
			continue
		}
		r.add(ThresholdResult{
			Name:      prefix + "." + c.stat,
			Passed:    c.got < c.limit,
			Threshold: FormatDuration(c.limit),
			Actual:    FormatDuration(c.got),
		})
	}
}

// percent checks part/total against a limit such as "5%". An empty total
// counts as 0%.
func (r *ThresholdResults) percent(name, limit string, part, total int) {
	if limit == "" {
		return
	}
	ceiling, err := parsePercentage(limit)
	if err != nil {
		r.add(ThresholdResult{Name: name, Threshold: limit, Actual: err.Error()})
		return
	}
	var rate float64
	if total > 0 {
		rate = float64(part) / float64(total) * 100
	}
	r.add(ThresholdResult{
		Name:      name,
		Passed:    rate < ceiling,
		Threshold: limit,
		Actual:    fmt.Sprintf("%.2f%% (%d/%d)", rate, part, total),
	})
}

func parsePercentage(s string) (float64, error) {
	v, ok := strings.CutSuffix(strings.TrimSpace(s), "%")
	if !ok {
		return 0, fmt.Errorf("invalid percentage %q", s)
	}
	return strconv.ParseFloat(v, 64)
}

// FormatDuration formats a duration for display.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return d.Round(time.Second).String()
}

// Violations returns the failed results.
func (r *ThresholdResults) Violations() []ThresholdResult {
	var out []ThresholdResult
	for _, res := range r.Results {
		if !res.Passed {
			out = append(out, res)
		}
	}
	return out
}
