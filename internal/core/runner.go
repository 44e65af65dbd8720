package core

import (
	"context"
	"errors"
)

// ErrMaxIterationsReached indicates the runner hit its iteration limit.
var ErrMaxIterationsReached = errors.New("max iterations reached")

// RunnerConfig controls execution behavior.
type RunnerConfig struct {
	MaxIterations int // 0 = unlimited
	WarmupIters   int // iterations before metrics count (per-actor)
}

// IterationFunc is one unit of work, e.g. a single journey of a user session.
type IterationFunc func(ctx context.Context, rep Reporter) error

// Runner controls iteration-level execution for one actor.
// A Runner is NOT safe for concurrent use; each session must have its own Runner.
type Runner struct {
	reporter  Reporter
	config    RunnerConfig
	iteration int
}

// NewRunner creates a Runner reporting to reporter once warmup is over.
func NewRunner(reporter Reporter, config RunnerConfig) *Runner {
	return &Runner{
		reporter: reporter,
		config:   config,
	}
}

// RunIteration executes fn once.
// Returns nil on success, ErrMaxIterationsReached when limit hit, or fn's error.
func (r *Runner) RunIteration(ctx context.Context, fn IterationFunc) error {
	if r.Exhausted() {
		return ErrMaxIterationsReached
	}

	rep := r.reporter
	if r.iteration < r.config.WarmupIters {
		rep = NullReporter
	}

	err := fn(ctx, rep)
	r.iteration++
	return err
}

// Iteration returns current iteration count (1-indexed, after RunIteration completes).
func (r *Runner) Iteration() int {
	return r.iteration
}

// Exhausted reports whether the iteration limit has been reached.
func (r *Runner) Exhausted() bool {
	return r.config.MaxIterations > 0 && r.iteration >= r.config.MaxIterations
}

// IsWarmup returns true if still in warmup phase.
func (r *Runner) IsWarmup() bool {
	return r.iteration < r.config.WarmupIters
}
