package collector

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"
)

// maxErrorsShown caps the distinct error messages listed in text output.
const maxErrorsShown = 5

// FormatText writes metrics in human-readable format.
func FormatText(w io.Writer, m *Metrics, thresholds *ThresholdResults) {
	if m.TotalRequests == 0 {
		fmt.Fprintln(w, "No events collected")
		return
	}

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "perfkit - Load Test Results")
	fmt.Fprintln(w, "===========================")
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Duration:       %v\n", m.TestDuration.Round(time.Millisecond))
	fmt.Fprintf(w, "Total Requests: %s\n", formatNumber(m.TotalRequests))
	fmt.Fprintf(w, "Success Rate:   %.1f%% (%s / %s)\n",
		m.SuccessRate, formatNumber(m.SuccessCount), formatNumber(m.TotalRequests))
	fmt.Fprintf(w, "Requests/sec:   %.1f\n", m.RequestsPerSec)
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Response Times:")
	fmt.Fprintf(w, "  Min:    %s\n", FormatDuration(m.Duration.Min))
	fmt.Fprintf(w, "  Avg:    %s\n", FormatDuration(m.Duration.Avg))
	fmt.Fprintf(w, "  P50:    %s\n", FormatDuration(m.Duration.P50))
	fmt.Fprintf(w, "  P90:    %s\n", FormatDuration(m.Duration.P90))
	fmt.Fprintf(w, "  P95:    %s\n", FormatDuration(m.Duration.P95))
	fmt.Fprintf(w, "  P99:    %s\n", FormatDuration(m.Duration.P99))
	fmt.Fprintf(w, "  Max:    %s\n", FormatDuration(m.Duration.Max))
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "By Request:")
	for _, name := range m.RequestNames() {
		rm := m.Requests[name]
		fmt.Fprintf(w, "  %-28s %s reqs  %s failed   avg=%s  p95=%s  p99=%s\n",
			name, formatNumber(rm.Count), formatNumber(rm.Failed),
			FormatDuration(rm.Duration.Avg),
			FormatDuration(rm.Duration.P95),
			FormatDuration(rm.Duration.P99))
	}

	if len(m.Outcomes) > 0 {
		patterns := make([]string, 0, len(m.Outcomes))
		for p := range m.Outcomes {
			patterns = append(patterns, p)
		}
		sort.Strings(patterns)
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "Journeys:")
		for _, p := range patterns {
			o := m.Outcomes[p]
			fmt.Fprintf(w, "  %-20s %s completed  %s aborted\n",
				p, formatNumber(o.Completed), formatNumber(o.Aborted))
		}
	}

	if len(m.StatusCodes) > 0 {
		codes := make([]int, 0, len(m.StatusCodes))
		for code := range m.StatusCodes {
			codes = append(codes, code)
		}
		sort.Ints(codes)
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "Status Codes:")
		for _, code := range codes {
			fmt.Fprintf(w, "  %d: %s\n", code, formatNumber(m.StatusCodes[code]))
		}
	}

	if len(m.Errors) > 0 {
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "Top Errors:")
		for i, e := range topErrors(m.Errors) {
			if i == maxErrorsShown {
				break
			}
			fmt.Fprintf(w, "  %6s  %s\n", formatNumber(e.count), e.msg)
		}
	}

	if thresholds != nil && len(thresholds.Results) > 0 {
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "Thresholds:")
		for _, result := range thresholds.Results {
			symbol := "✓"
			if !result.Passed {
				symbol = "✗"
			}
			fmt.Fprintf(w, "  %s %s < %s (actual: %s)\n",
				symbol, result.Name, result.Threshold, result.Actual)
		}
	}
}

// FormatJSON writes metrics in JSON format.
func FormatJSON(w io.Writer, m *Metrics, thresholds *ThresholdResults) error {
	output := struct {
		Duration       string                         `json:"duration"`
		TotalRequests  int                            `json:"totalRequests"`
		SuccessCount   int                            `json:"successCount"`
		FailureCount   int                            `json:"failureCount"`
		SuccessRate    float64                        `json:"successRate"`
		RequestsPerSec float64                        `json:"requestsPerSec"`
		Durations      jsonDurationMetrics            `json:"durations"`
		Requests       map[string]jsonRequestMetrics  `json:"requests"`
		Steps          map[string]jsonDurationMetrics `json:"steps,omitempty"`
		StatusCodes    map[int]int                    `json:"statusCodes,omitempty"`
		Errors         map[string]int                 `json:"errors,omitempty"`
		Journeys       map[string]int                 `json:"journeys,omitempty"`
		Outcomes       map[string]JourneyOutcome      `json:"outcomes,omitempty"`
		Thresholds     *ThresholdResults              `json:"thresholds,omitempty"`
	}{
		Duration:       m.TestDuration.Round(time.Millisecond).String(),
		TotalRequests:  m.TotalRequests,
		SuccessCount:   m.SuccessCount,
		FailureCount:   m.FailureCount,
		SuccessRate:    m.SuccessRate,
		RequestsPerSec: m.RequestsPerSec,
		Durations:      toJSONDurationMetrics(m.Duration),
		Requests:       make(map[string]jsonRequestMetrics),
		Steps:          make(map[string]jsonDurationMetrics, len(m.Steps)),
		StatusCodes:    m.StatusCodes,
		Errors:         m.Errors,
		Journeys:       m.Journeys,
		Outcomes:       m.Outcomes,
		Thresholds:     thresholds,
	}

	for name, rm := range m.Requests {
		rate := 0.0
		if rm.Count > 0 {
			rate = float64(rm.Success) / float64(rm.Count) * 100
		}
		output.Requests[name] = jsonRequestMetrics{
			Count:       rm.Count,
			Success:     rm.Success,
			Failed:      rm.Failed,
			SuccessRate: rate,
			Durations:   toJSONDurationMetrics(rm.Duration),
		}
	}

	for step, d := range m.Steps {
		output.Steps[step] = toJSONDurationMetrics(d)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(output); err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}
	return nil
}

type jsonDurationMetrics struct {
	Min string `json:"min"`
	Max string `json:"max"`
	Avg string `json:"avg"`
	P50 string `json:"p50"`
	P90 string `json:"p90"`
	P95 string `json:"p95"`
	P99 string `json:"p99"`
}

type jsonRequestMetrics struct {
	Count       int                 `json:"count"`
	Success     int                 `json:"success"`
	Failed      int                 `json:"failed"`
	SuccessRate float64             `json:"successRate"`
	Durations   jsonDurationMetrics `json:"durations"`
}

func toJSONDurationMetrics(d DurationMetrics) jsonDurationMetrics {
	return jsonDurationMetrics{
		Min: FormatDuration(d.Min),
		Max: FormatDuration(d.Max),
		Avg: FormatDuration(d.Avg),
		P50: FormatDuration(d.P50),
		P90: FormatDuration(d.P90),
		P95: FormatDuration(d.P95),
		P99: FormatDuration(d.P99),
	}
}

type errorCount struct {
	msg   string
	count int
}

// topErrors orders error messages by frequency, then alphabetically.
func topErrors(errs map[string]int) []errorCount {
	out := make([]errorCount, 0, len(errs))
	for msg, n := range errs {
		out = append(out, errorCount{msg: msg, count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].msg < out[j].msg
	})
	return out
}

// formatNumber inserts thousands separators.
func formatNumber(n int) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	s := fmt.Sprintf("%d", n)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return s
}
