// Package journey simulates e-commerce shoppers walking weighted journeys
// through the target shop.
package journey

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"perfkit/internal/core"
)

// TracerName is the instrumentation scope of journey spans.
const TracerName = "perfkit/journey"

// JourneyObserver is told about every journey that ends, except warmup ones
// and those cut short by the run ending.
type JourneyObserver interface {
	JourneyFinished(pattern string, aborted bool)
}

// JourneyObservers fans out to several observers.
type JourneyObservers []JourneyObserver

func (o JourneyObservers) JourneyFinished(pattern string, aborted bool) {
	for _, obs := range o {
		if obs != nil {
			obs.JourneyFinished(pattern, aborted)
		}
	}
}

// SimulatorConfig configures a Simulator.
type SimulatorConfig struct {
	Client         Doer
	Picker         *Picker
	Profiles       *ProfileGenerator
	Tracer         trace.Tracer
	Clock          core.Clock
	Logger         *zap.Logger
	Observer       JourneyObserver
	ThinkScale     float64
	MaxJourneys    int   // per session, 0 = until ctx is done
	WarmupJourneys int   // per session, excluded from reports
	Seed           int64 // 0 picks a time-based seed
}

// Simulator runs shopper sessions. It implements core.Workflow: one Run is
// one session of one user.
type Simulator struct {
	cfg      SimulatorConfig
	seed     int64
	sessions atomic.Int64
}

// NewSimulator validates cfg and fills defaults.
func NewSimulator(cfg SimulatorConfig) (*Simulator, error) {
	if cfg.Client == nil {
		return nil, errors.New("journey: client is required")
	}
	if cfg.Picker == nil {
		p, err := NewPicker(DefaultPatterns())
		if err != nil {
			return nil, err
		}
		cfg.Picker = p
	}
	if cfg.Profiles == nil {
		cfg.Profiles = NewProfileGenerator(nil, "")
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(TracerName)
	}
	if cfg.Clock == nil {
		cfg.Clock = core.RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Simulator{cfg: cfg, seed: seed}, nil
}

// Run simulates one session. It returns nil when the session ends normally
// or ctx is cancelled.
func (s *Simulator) Run(ctx context.Context, actorID int, _ core.Coordinator, rep core.Reporter) error {
	rng := rand.New(rand.NewSource(s.seed + s.sessions.Add(1)))
	faker := gofakeit.New(rng.Int63())
	profile := s.cfg.Profiles.New(rng, faker)
	sessionID := uuid.NewString()

	ctx = core.ContextWithActorID(ctx, actorID)
	ctx = core.ContextWithSessionID(ctx, sessionID)

	ctx, span := s.cfg.Tracer.Start(ctx, "user_session", trace.WithAttributes(
		attribute.String("user.id", profile.ID),
		attribute.String("user.email", profile.Email),
		attribute.String("user.shopping_frequency", profile.ShoppingFrequency),
		attribute.String("user.device_type", profile.DeviceType),
		attribute.String("session.id", sessionID),
	))
	start := s.cfg.Clock.Now()
	defer func() {
		span.SetAttributes(attribute.Float64("session.duration", s.cfg.Clock.Since(start).Seconds()))
		span.End()
	}()

	log := s.cfg.Logger.With(zap.Int("user", actorID), zap.String("session", sessionID))
	log.Debug("starting session", zap.String("email", profile.Email), zap.String("device", profile.DeviceType))
	defer log.Debug("ending session")

	state := NewSessionState(profile.ID, start)
	runner := core.NewRunner(rep, core.RunnerConfig{
		MaxIterations: s.cfg.MaxJourneys,
		WarmupIters:   s.cfg.WarmupJourneys,
	})

	for ctx.Err() == nil {
		warmup := runner.IsWarmup()
		err := runner.RunIteration(ctx, func(ctx context.Context, rep core.Reporter) error {
			exec := NewExecutor(ExecutorConfig{
				Client:     s.cfg.Client,
				Clock:      s.cfg.Clock,
				Rand:       rng,
				Faker:      faker,
				Tracer:     s.cfg.Tracer,
				Reporter:   rep,
				ThinkScale: s.cfg.ThinkScale,
				ActorID:    actorID,
				SessionID:  sessionID,
			}, profile)
			return s.runJourney(ctx, exec, rng, state, warmup, log)
		})
		if errors.Is(err, core.ErrMaxIterationsReached) || runner.Exhausted() {
			return nil
		}

		if sleepScaled(ctx, s.cfg.Clock, s.cfg.ThinkScale, uniform(rng, 1, 5)) != nil {
			return nil
		}
	}
	return nil
}

func (s *Simulator) runJourney(ctx context.Context, exec *Executor, rng Rand, state *SessionState, warmup bool, log *zap.Logger) error {
	pattern := s.cfg.Picker.Pick(rng)
	exec.cfg.Journey = pattern.Name

	ctx, span := s.cfg.Tracer.Start(ctx, "user_journey", trace.WithAttributes(
		attribute.String("journey.pattern", pattern.Name),
	))
	defer span.End()

	err := s.walk(ctx, exec, rng, pattern, state)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if ctx.Err() == nil {
			log.Warn("journey aborted", zap.String("journey", pattern.Name), zap.Error(err))
		}
	}

	if !warmup && ctx.Err() == nil && s.cfg.Observer != nil {
		s.cfg.Observer.JourneyFinished(pattern.Name, err != nil)
	}
	return err
}

func (s *Simulator) walk(ctx context.Context, exec *Executor, rng Rand, pattern Pattern, state *SessionState) error {
	for _, step := range pattern.Steps {
		if err := exec.Execute(ctx, step, state); err != nil {
			return fmt.Errorf("step %s: %w", step, err)
		}
		// think time between actions
		if err := sleepScaled(ctx, s.cfg.Clock, s.cfg.ThinkScale, uniform(rng, 0.5, 3)); err != nil {
			return err
		}
	}
	return nil
}
