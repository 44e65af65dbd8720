package appd

import (
	"context"

	"go.uber.org/zap"

	"perfkit/internal/core"
)

// Metric paths queried for every application.
const (
	PathCallsPerMinute      = "Application Infrastructure Performance|*|Calls per Minute"
	PathAverageResponseTime = "Application Infrastructure Performance|*|Average Response Time (ms)"
	PathErrorsPerMinute     = "Application Infrastructure Performance|*|Errors per Minute"
)

// MetricSource returns one metric value. *Client implements it.
type MetricSource interface {
	MetricValue(ctx context.Context, appID int64, path string, w Window) (float64, error)
}

// Fetcher builds one classified sample per application.
type Fetcher struct {
	source MetricSource
	logger *zap.Logger
	clock  core.Clock
}

// NewFetcher returns a fetcher. logger and clock may be nil.
func NewFetcher(source MetricSource, logger *zap.Logger, clock core.Clock) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = core.RealClock{}
	}
	return &Fetcher{source: source, logger: logger, clock: clock}
}

// Fetch queries the three metric paths independently. A failed path is
// logged and counts as 0; the sample is marked Failed only when all three fail.
func (f *Fetcher) Fetch(ctx context.Context, app Application, w Window) MetricSample {
	failures := 0
	value := func(path string) float64 {
		v, err := f.source.MetricValue(ctx, app.ID, path, w)
		if err != nil {
			failures++
			f.logger.Warn("metric unavailable",
				zap.String("application", app.Name),
				zap.Int64("application_id", app.ID),
				zap.String("metric", path),
				zap.Error(err))
			return 0
		}
		return v
	}

	cpm := value(PathCallsPerMinute)
	art := value(PathAverageResponseTime)
	epm := value(PathErrorsPerMinute)

	s := NewSample(app.Name, app.ID, cpm, art, epm, f.clock.Now())
	s.Failed = failures == 3
	return s
}
