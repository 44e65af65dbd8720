// Package collector aggregates request events from simulated users and computes run metrics.
package collector

import (
	"sync"
	"sync/atomic"
	"time"

	"perfkit/internal/core"
)

// eventBuffer bounds how many events may be queued before Report starts dropping.
const eventBuffer = 10000

// Collector aggregates events from users and produces a summary.
type Collector struct {
	events    []core.Event
	ch        chan core.Event
	done      chan struct{}
	mu        sync.Mutex
	dropped   atomic.Int64
	closeOnce sync.Once
	outcomes  map[string]JourneyOutcome
	startTime time.Time
	endTime   time.Time
}

// NewCollector creates a new Collector and starts its collection goroutine.
func NewCollector() *Collector {
	c := &Collector{
		events:    make([]core.Event, 0),
		ch:        make(chan core.Event, eventBuffer),
		done:      make(chan struct{}),
		outcomes:  make(map[string]JourneyOutcome),
		startTime: time.Now(),
	}
	go c.collect()
	return c
}

func (c *Collector) collect() {
	for event := range c.ch {
		c.mu.Lock()
		c.events = append(c.events, event)
		c.mu.Unlock()
	}
	close(c.done)
}

// Report queues an event. It never blocks a user; when the buffer is full
// the event is counted as dropped instead.
func (c *Collector) Report(event core.Event) {
	select {
	case c.ch <- event:
	default:
		c.dropped.Add(1)
	}
}

// Close stops accepting events and waits until queued ones are stored.
// Calling Close more than once is a no-op.
func (c *Collector) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.endTime = time.Now()
		c.mu.Unlock()
		close(c.ch)
		<-c.done
	})
}

// Events returns a copy of collected events.
func (c *Collector) Events() []core.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]core.Event, len(c.events))
	copy(result, c.events)
	return result
}

// DroppedEvents returns how many events were discarded because the buffer was full.
func (c *Collector) DroppedEvents() int64 {
	return c.dropped.Load()
}

// Duration returns the run duration so far, or start to Close once closed.
func (c *Collector) Duration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.endTime.IsZero() {
		return c.endTime.Sub(c.startTime)
	}
	return time.Since(c.startTime)
}

// JourneyFinished records the end of one journey.
func (c *Collector) JourneyFinished(pattern string, aborted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	o := c.outcomes[pattern]
	if aborted {
		o.Aborted++
	} else {
		o.Completed++
	}
	c.outcomes[pattern] = o
}

// Compute returns metrics over everything collected so far.
func (c *Collector) Compute() *Metrics {
	m := ComputeMetrics(c.Events(), c.Duration())
	c.mu.Lock()
	for pattern, o := range c.outcomes {
		m.Outcomes[pattern] = o
	}
	c.mu.Unlock()
	return m
}
