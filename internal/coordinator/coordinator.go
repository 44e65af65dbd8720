// Package coordinator starts, paces and stops simulated users.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"perfkit/internal/config"
	"perfkit/internal/core"
	"perfkit/internal/ratelimit"
)

// phaseTickInterval is how often a load profile run checks for phase
// transitions and adjusts the user count.
const phaseTickInterval = 100 * time.Millisecond

// Printer receives run status messages. *progress.Progress implements it.
type Printer interface {
	Printf(format string, args ...any)
}

type zapPrinter struct{ l *zap.SugaredLogger }

func (p zapPrinter) Printf(format string, args ...any) { p.l.Infof(format, args...) }

// user is one running simulated user.
type user struct {
	id     int
	cancel context.CancelFunc
}

// Coordinator runs each simulated user in its own goroutine. Every user runs
// Workflow.Run in a loop until its context is cancelled or the workflow
// returns an error.
type Coordinator struct {
	reporter core.Reporter
	logger   *zap.Logger
	printer  Printer
	clock    core.Clock

	nextID atomic.Int64
	active atomic.Int32
	wg     sync.WaitGroup

	mu    sync.Mutex
	users []user // oldest first
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger for workflow failures and recovered panics.
func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithPrinter sends phase messages to p instead of the logger.
func WithPrinter(p Printer) Option {
	return func(c *Coordinator) { c.printer = p }
}

// WithClock sets the clock driving load profile phases.
func WithClock(clock core.Clock) Option {
	return func(c *Coordinator) { c.clock = clock }
}

func NewCoordinator(reporter core.Reporter, opts ...Option) *Coordinator {
	c := &Coordinator{
		reporter: reporter,
		logger:   zap.NewNop(),
		clock:    core.RealClock{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.printer == nil {
		c.printer = zapPrinter{c.logger.Sugar()}
	}
	return c
}

// Spawn starts count users at once. It implements core.Coordinator.
func (c *Coordinator) Spawn(ctx context.Context, count int, workflow core.Workflow) {
	for i := 0; i < count; i++ {
		c.spawn(ctx, workflow)
	}
}

// Wait blocks until every user goroutine has returned.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// ActiveUsers returns the number of running users.
func (c *Coordinator) ActiveUsers() int {
	return int(c.active.Load())
}

// RunUsers ramps up to users at spawnRate users per second, keeps them
// running until duration has elapsed or ctx is done, then stops every user
// and waits for them. A spawnRate <= 0 starts all users at once.
func (c *Coordinator) RunUsers(ctx context.Context, users int, spawnRate float64, duration time.Duration, workflow core.Workflow) {
	runCtx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	c.printer.Printf("Starting %d users at %.1f users/s for %v", users, spawnRate, duration)

	limiter := ratelimit.NewRateLimiter(spawnRate)
	for i := 0; i < users; i++ {
		if err := limiter.Wait(runCtx); err != nil {
			break
		}
		c.spawn(runCtx, workflow)
	}

	<-runCtx.Done()
	c.stopAll()
	c.Wait()
}

// RunWithProfile drives the user count from the profile's phases until the
// profile completes or ctx is done. When limiter is non-nil its rate follows
// the current phase's rps. It returns after every user has stopped.
func (c *Coordinator) RunWithProfile(ctx context.Context, profile *config.LoadProfile, workflow core.Workflow, limiter *ratelimit.RateLimiter) {
	pm := ratelimit.NewPhaseManagerWithClock(profile.Phases, c.clock)

	c.printer.Printf("Starting load profile with %d phases, total duration: %v",
		len(profile.Phases), profile.TotalDuration())

	defer func() {
		c.stopAll()
		c.Wait()
	}()

	currentPhase := -1
	ticker := time.NewTicker(phaseTickInterval)
	defer ticker.Stop()

	for {
		if pm.IsComplete() {
			return
		}
		if idx := pm.CurrentPhaseIndex(); idx != currentPhase {
			currentPhase = idx
			if phase := pm.CurrentPhase(); phase != nil {
				if phase.RPS > 0 {
					c.printer.Printf("Phase: %s (duration: %v, target users: %d, rps: %g)",
						phase.Name, phase.Duration, pm.TargetUsers(), phase.RPS)
				} else {
					c.printer.Printf("Phase: %s (duration: %v, target users: %d)",
						phase.Name, phase.Duration, pm.TargetUsers())
				}
			}
		}

		c.scaleTo(ctx, pm.TargetUsers(), workflow)
		if limiter != nil {
			limiter.SetRate(pm.CurrentRPS())
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// scaleTo starts or stops users until target are running. The oldest users
// are stopped first.
func (c *Coordinator) scaleTo(ctx context.Context, target int, workflow core.Workflow) {
	c.mu.Lock()
	current := len(c.users)
	c.mu.Unlock()

	switch {
	case current < target:
		for i := current; i < target; i++ {
			c.spawn(ctx, workflow)
		}
	case current > target:
		c.stop(current - target)
	}
}

func (c *Coordinator) spawn(parent context.Context, workflow core.Workflow) {
	id := int(c.nextID.Add(1))
	ctx, cancel := context.WithCancel(parent)

	c.mu.Lock()
	c.users = append(c.users, user{id: id, cancel: cancel})
	c.mu.Unlock()

	c.active.Add(1)
	c.wg.Add(1)
	go func() {
		defer func() {
			c.active.Add(-1)
			c.wg.Done()
		}()
		defer c.release(id)
		defer c.recoverPanic(id)

		for ctx.Err() == nil {
			if err := workflow.Run(ctx, id, c, c.reporter); err != nil {
				if ctx.Err() == nil {
					c.logger.Warn("user stopped", zap.Int("user", id), zap.Error(err))
				}
				return
			}
		}
	}()
}

// release cancels a finished user's context and forgets it.
func (c *Coordinator) release(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, u := range c.users {
		if u.id == id {
			u.cancel()
			c.users = append(c.users[:i], c.users[i+1:]...)
			return
		}
	}
}

func (c *Coordinator) stop(n int) {
	c.mu.Lock()
	n = min(n, len(c.users))
	stopping := c.users[:n]
	c.users = append([]user(nil), c.users[n:]...)
	c.mu.Unlock()

	for _, u := range stopping {
		u.cancel()
	}
}

func (c *Coordinator) stopAll() {
	c.mu.Lock()
	users := c.users
	c.users = nil
	c.mu.Unlock()

	for _, u := range users {
		u.cancel()
	}
}

// recoverPanic recovers from a panic in a user goroutine and reports it as a
// failed event.
func (c *Coordinator) recoverPanic(id int) {
	if r := recover(); r != nil {
		c.logger.Error("user panicked", zap.Int("user", id), zap.String("panic", fmt.Sprint(r)))
		c.reporter.Report(core.Event{
			ActorID:   id,
			Step:      "panic",
			Name:      "panic",
			Timestamp: c.clock.Now(),
			Success:   false,
			Error:     fmt.Sprintf("panic: %v", r),
		})
	}
}
