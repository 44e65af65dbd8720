package appd

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"perfkit/internal/style"
)

// Summary aggregates a collection run.
type Summary struct {
	TotalApplications   int
	ByStatus            map[HealthStatus]int
	FailedApplications  int
	TotalCallsPerMinute float64
	TotalErrorsPerMin   float64
	AverageResponseTime float64 // over all applications
	OverallErrorRate    float64 // percent, 0 without traffic
}

// Summarize computes run totals.
func Summarize(samples []MetricSample) Summary {
	s := Summary{
		TotalApplications: len(samples),
		ByStatus:          make(map[HealthStatus]int),
	}

	var rtSum float64
	for _, m := range samples {
		s.ByStatus[m.HealthStatus]++
		if m.Failed {
			s.FailedApplications++
		}
		s.TotalCallsPerMinute += m.CallsPerMinute
		s.TotalErrorsPerMin += m.ErrorsPerMinute
		rtSum += m.AverageResponseTime
	}

	if len(samples) > 0 {
		s.AverageResponseTime = round2(rtSum / float64(len(samples)))
	}
	if s.TotalCallsPerMinute > 0 {
		s.OverallErrorRate = round2(s.TotalErrorsPerMin / s.TotalCallsPerMinute * 100)
	}
	return s
}

// FormatSummary writes a styled summary block.
func FormatSummary(w io.Writer, s Summary) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, style.Title.Render("Summary Statistics"))
	fmt.Fprintln(w, style.Rule.Render(strings.Repeat("=", 50)))

	fmt.Fprintf(w, "%s %d\n", style.Label.Render("Total Applications:"), s.TotalApplications)
	fmt.Fprintf(w, "%s | %s | %s | %s\n",
		style.OK.Render(fmt.Sprintf("Healthy: %d", s.ByStatus[Healthy])),
		style.Warn.Render(fmt.Sprintf("Warning: %d", s.ByStatus[Warning])),
		style.Crit.Render(fmt.Sprintf("Critical: %d", s.ByStatus[Critical])),
		style.Muted.Render(fmt.Sprintf("No Traffic: %d", s.ByStatus[NoTraffic])),
	)
	if s.FailedApplications > 0 {
		fmt.Fprintln(w, style.Warn.Render(fmt.Sprintf("Failed to fetch: %d", s.FailedApplications)))
	}
	fmt.Fprintf(w, "%s %s\n", style.Label.Render("Total Calls/Min:"), formatFloat(s.TotalCallsPerMinute))
	fmt.Fprintf(w, "%s %s\n", style.Label.Render("Total Errors/Min:"), formatFloat(s.TotalErrorsPerMin))
	fmt.Fprintf(w, "%s %.2fms\n", style.Label.Render("Average Response Time:"), s.AverageResponseTime)
	if s.TotalCallsPerMinute > 0 {
		fmt.Fprintf(w, "%s %.2f%%\n", style.Label.Render("Overall Error Rate:"), s.OverallErrorRate)
	}
}

// formatFloat renders v with two decimals and thousands separators.
func formatFloat(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}
