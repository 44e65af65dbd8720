package appd

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"perfkit/internal/core"
)

// progressEvery is how many completed applications trigger a progress callback.
const progressEvery = 5

// SampleFetcher produces one sample per application. *Fetcher implements it.
type SampleFetcher interface {
	Fetch(ctx context.Context, app Application, w Window) MetricSample
}

// ProgressFunc is called with the number of finished applications.
type ProgressFunc func(done, total int)

// Collector fetches samples for many applications with bounded concurrency.
type Collector struct {
	fetcher     SampleFetcher
	concurrency int
	progress    ProgressFunc
	logger      *zap.Logger
	clock       core.Clock
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithProgress reports progress every few applications and at the end.
func WithProgress(fn ProgressFunc) CollectorOption {
	return func(c *Collector) { c.progress = fn }
}

// WithLogger sets the logger for recovered panics.
func WithLogger(l *zap.Logger) CollectorOption {
	return func(c *Collector) { c.logger = l }
}

// NewCollector returns a collector running at most concurrency fetches at once.
func NewCollector(f SampleFetcher, concurrency int, opts ...CollectorOption) *Collector {
	if concurrency < 1 {
		concurrency = 1
	}
	c := &Collector{
		fetcher:     f,
		concurrency: concurrency,
		logger:      zap.NewNop(),
		clock:       core.RealClock{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CollectAll returns one sample per application, in completion order. It
// returns only after every fetch has finished. An application whose fetch
// panics still gets a zero-valued sample marked Failed.
func (c *Collector) CollectAll(ctx context.Context, apps []Application, w Window) []MetricSample {
	var (
		mu      sync.Mutex
		samples = make([]MetricSample, 0, len(apps))
		done    int
		g       errgroup.Group
	)
	g.SetLimit(c.concurrency)

	for _, app := range apps {
		g.Go(func() error {
			s := c.fetchOne(ctx, app, w)

			mu.Lock()
			defer mu.Unlock()
			samples = append(samples, s)
			done++
			if c.progress != nil && (done%progressEvery == 0 || done == len(apps)) {
				c.progress(done, len(apps))
			}
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	return samples
}

func (c *Collector) fetchOne(ctx context.Context, app Application, w Window) (s MetricSample) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("metrics fetch panicked",
				zap.String("application", app.Name),
				zap.String("panic", fmt.Sprint(r)))
			s = NewSample(app.Name, app.ID, 0, 0, 0, c.clock.Now())
			s.Failed = true
		}
	}()
	return c.fetcher.Fetch(ctx, app, w)
}

// LimitApplications caps apps at limit entries. limit <= 0 means no cap.
func LimitApplications(apps []Application, limit int) []Application {
	if limit <= 0 || len(apps) <= limit {
		return apps
	}
	return apps[:limit]
}
