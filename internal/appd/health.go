// Package appd polls an AppDynamics controller for per-application
// performance counters and classifies application health.
package appd

// HealthStatus is the display form of an application's health.
type HealthStatus string

const (
	Critical  HealthStatus = "Critical"
	Warning   HealthStatus = "Warning"
	Healthy   HealthStatus = "Healthy"
	NoTraffic HealthStatus = "No Traffic"
)

// Health thresholds. Rules are checked in order and the first match wins.
const (
	criticalErrorPct = 5.0
	criticalRespMs   = 5000.0
	warningErrorPct  = 1.0
	warningRespMs    = 2000.0
)

// Classify maps error percentage, average response time (ms) and calls per
// minute to a health status.
func Classify(errorPct, avgRT, cpm float64) HealthStatus {
	switch {
	case errorPct > criticalErrorPct || avgRT > criticalRespMs:
		return Critical
	case errorPct > warningErrorPct || avgRT > warningRespMs:
		return Warning
	case cpm > 0:
		return Healthy
	default:
		return NoTraffic
	}
}
