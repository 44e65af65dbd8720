// Package healthcheck verifies that the load target and the trace collector
// are reachable before a run.
package healthcheck

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"time"

	phttp "perfkit/internal/http"
	"perfkit/internal/style"
)

// Timeout bounds each check.
const Timeout = 5 * time.Second

// Result is the outcome of one check.
type Result struct {
	Name     string
	Target   string
	OK       bool
	Detail   string
	Duration time.Duration
}

// Report holds every check of a run.
type Report struct {
	Time    time.Time
	Results []Result
}

// Healthy reports whether every check passed.
func (r Report) Healthy() bool {
	for _, res := range r.Results {
		if !res.OK {
			return false
		}
	}
	return true
}

// CheckTarget expects GET {baseURL}/health to answer 200.
func CheckTarget(ctx context.Context, baseURL string) Result {
	res := Result{Name: "Target Application", Target: baseURL}
	client := phttp.NewClient(baseURL, Timeout)

	resp, err := client.Do(ctx, phttp.Request{Name: "health", Method: "GET", Path: "/health"})
	if err != nil {
		res.Detail = fmt.Sprintf("cannot reach target: %v", err)
		return res
	}
	res.Duration = resp.Duration
	if resp.StatusCode != 200 {
		res.Detail = fmt.Sprintf("returned status %d", resp.StatusCode)
		return res
	}
	res.OK = true
	res.Detail = "healthy"
	return res
}

// CheckCollector opens a TCP connection to the OTLP endpoint.
func CheckCollector(ctx context.Context, endpoint string) Result {
	res := Result{Name: "OpenTelemetry Collector", Target: endpoint}

	addr, err := dialAddress(endpoint)
	if err != nil {
		res.Detail = err.Error()
		return res
	}

	ctx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	start := time.Now()
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	res.Duration = time.Since(start)
	if err != nil {
		res.Detail = fmt.Sprintf("not reachable: %v", err)
		return res
	}
	conn.Close()

	res.OK = true
	res.Detail = "reachable"
	return res
}

// Run performs both checks.
func Run(ctx context.Context, targetURL, collectorEndpoint string) Report {
	return Report{
		Time: time.Now(),
		Results: []Result{
			CheckTarget(ctx, targetURL),
			CheckCollector(ctx, collectorEndpoint),
		},
	}
}

// Format writes the report for a terminal.
func Format(w io.Writer, r Report) {
	fmt.Fprintln(w, style.Title.Render("Load Generator Health Check - "+r.Time.Format(time.DateTime)))
	fmt.Fprintln(w, style.Rule.Render(strings.Repeat("=", 50)))
	for _, res := range r.Results {
		mark := style.OK.Render("✓")
		if !res.OK {
			mark = style.Crit.Render("✗")
		}
		fmt.Fprintf(w, "%s %s %s: %s\n", mark, style.Label.Render(res.Name), res.Target, res.Detail)
	}
	fmt.Fprintln(w)
	if r.Healthy() {
		fmt.Fprintln(w, style.OK.Render("All health checks passed"))
	} else {
		fmt.Fprintln(w, style.Crit.Render("Some health checks failed"))
	}
}

// dialAddress turns an endpoint such as http://collector:4317 or
// collector:4317 into host:port.
func dialAddress(endpoint string) (string, error) {
	if endpoint == "" {
		return "", fmt.Errorf("no collector endpoint configured")
	}
	host := endpoint
	if strings.Contains(endpoint, "://") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return "", fmt.Errorf("parse endpoint %q: %w", endpoint, err)
		}
		host = u.Host
	}
	if _, _, err := net.SplitHostPort(host); err != nil {
		return "", fmt.Errorf("endpoint %q has no port", endpoint)
	}
	return host, nil
}
