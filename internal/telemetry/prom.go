package telemetry

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"perfkit/internal/core"
)

const namespace = "perfkit"

// PromReporter exports request and journey counters for scraping during a
// run. It implements core.Reporter and journey.JourneyObserver.
type PromReporter struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	journeys *prometheus.CounterVec
}

// NewPromReporter registers the load generator metrics on a fresh registry.
// activeUsers, when non-nil, backs the active users gauge.
func NewPromReporter(activeUsers func() int) *PromReporter {
	r := &PromReporter{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Requests sent by simulated users.",
		}, []string{"step", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Request latency by journey step.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"step"}),
		journeys: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "journeys_total",
			Help:      "Finished journeys by pattern and result.",
		}, []string{"pattern", "result"}),
	}
	r.registry.MustRegister(r.requests, r.duration, r.journeys)
	if activeUsers != nil {
		r.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_users",
			Help:      "Simulated users currently running.",
		}, func() float64 { return float64(activeUsers()) }))
	}
	return r
}

// Report records one request event.
func (r *PromReporter) Report(e core.Event) {
	step := e.Step
	if step == "" {
		step = e.Key()
	}
	status := "error"
	if e.StatusCode > 0 {
		status = strconv.Itoa(e.StatusCode)
	}
	r.requests.WithLabelValues(step, status).Inc()
	r.duration.WithLabelValues(step).Observe(e.Duration.Seconds())
}

// JourneyFinished counts a completed or aborted journey.
func (r *PromReporter) JourneyFinished(pattern string, aborted bool) {
	result := "completed"
	if aborted {
		result = "aborted"
	}
	r.journeys.WithLabelValues(pattern, result).Inc()
}

// Registry exposes the underlying registry.
func (r *PromReporter) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *PromReporter) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
