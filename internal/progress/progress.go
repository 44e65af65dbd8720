// Package progress prints a live status line while a load run is in flight.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"perfkit/internal/collector"
)

// DefaultInterval is how often the status line is redrawn.
const DefaultInterval = time.Second

// Progress redraws one status line on stderr: elapsed time, active users,
// requests, RPS, errors and finished journeys. Messages printed through
// Print and Printf clear the line first so they do not interleave with it.
type Progress struct {
	collector   *collector.Collector
	activeUsers func() int
	interval    time.Duration
	quiet       bool

	startTime time.Time
	ticker    *time.Ticker
	stopCh    chan struct{}
	stopped   atomic.Bool

	mu     sync.Mutex
	output io.Writer
}

// NewProgress returns a progress printer. activeUsers may be nil.
func NewProgress(c *collector.Collector, activeUsers func() int, quiet bool) *Progress {
	return &Progress{
		collector:   c,
		activeUsers: activeUsers,
		interval:    DefaultInterval,
		quiet:       quiet,
		output:      os.Stderr,
	}
}

func (p *Progress) SetOutput(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.output = w
}

func (p *Progress) Start() {
	if p.quiet {
		return
	}
	p.startTime = time.Now()
	p.stopCh = make(chan struct{})
	p.ticker = time.NewTicker(p.interval)
	go p.run()
}

func (p *Progress) run() {
	for {
		select {
		case <-p.stopCh:
			return
		case <-p.ticker.C:
			p.printProgress()
		}
	}
}

func (p *Progress) printProgress() {
	line := p.line(time.Since(p.startTime))
	p.mu.Lock()
	fmt.Fprint(p.output, "\033[K"+line+"\r")
	p.mu.Unlock()
}

func (p *Progress) line(elapsed time.Duration) string {
	m := p.collector.Compute()
	elapsed = elapsed.Round(time.Second)
	mins := int(elapsed.Minutes())
	secs := int(elapsed.Seconds()) % 60

	errorRate := 0.0
	if m.TotalRequests > 0 {
		errorRate = float64(m.FailureCount) / float64(m.TotalRequests) * 100
	}
	var completed, aborted int
	for _, o := range m.Outcomes {
		completed += o.Completed
		aborted += o.Aborted
	}
	users := 0
	if p.activeUsers != nil {
		users = p.activeUsers()
	}

	return fmt.Sprintf("[%02d:%02d] Users: %d | Requests: %d | RPS: %.1f | Errors: %d (%.1f%%) | Journeys: %d done, %d aborted",
		mins, secs, users, m.TotalRequests, m.RequestsPerSec, m.FailureCount, errorRate, completed, aborted)
}

func (p *Progress) Stop() {
	if p.quiet || p.stopped.Swap(true) {
		return
	}
	if p.ticker != nil {
		p.ticker.Stop()
	}
	if p.stopCh != nil {
		close(p.stopCh)
	}
	p.mu.Lock()
	fmt.Fprint(p.output, "\033[K")
	p.mu.Unlock()
}

func (p *Progress) Print(message string) {
	if p.quiet {
		return
	}
	p.mu.Lock()
	fmt.Fprintf(p.output, "\033[K%s\n", message)
	p.mu.Unlock()
}

func (p *Progress) Printf(format string, args ...any) {
	p.Print(fmt.Sprintf(format, args...))
}
