// Package demo produces a fixed set of metric samples for trying out the
// report pipeline without a controller.
package demo

import (
	"time"

	"perfkit/internal/appd"
)

// DefaultOutput is the file written by the demo command.
const DefaultOutput = "demo_performance_report.csv"

type app struct {
	name          string
	id            int64
	cpm, art, epm float64
}

var apps = []app{
	{"User-Service", 1001, 45.3, 120.5, 0.8},
	{"Product-Service", 1002, 78.9, 95.2, 2.1},
	{"Cart-Service", 1003, 34.6, 85.3, 0.3},
	{"Order-Service", 1004, 23.7, 180.4, 0.5},
	{"API-Gateway", 1005, 156.8, 45.7, 8.2},
	{"Frontend-Service", 1006, 89.2, 67.8, 1.4},
}

// Samples returns the demo applications stamped with now. Error rate and
// health come from appd.NewSample like any collected sample.
func Samples(now time.Time) []appd.MetricSample {
	out := make([]appd.MetricSample, len(apps))
	for i, a := range apps {
		out[i] = appd.NewSample(a.name, a.id, a.cpm, a.art, a.epm, now)
	}
	return out
}
