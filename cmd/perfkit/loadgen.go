package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"perfkit/internal/collector"
	"perfkit/internal/coordinator"
	"perfkit/internal/core"
	"perfkit/internal/data"
	phttp "perfkit/internal/http"
	"perfkit/internal/journey"
	"perfkit/internal/progress"
	"perfkit/internal/ratelimit"
	"perfkit/internal/telemetry"
)

var (
	lgUsers       int
	lgSpawnRate   float64
	lgDuration    time.Duration
	lgTarget      string
	lgOutput      string
	lgQuiet       bool
	lgVerbose     bool
	lgMaxJourneys int
	lgWarmup      int
	lgThinkScale  float64
	lgMetricsAddr string
	lgSeed        int64
)

var loadgenCmd = &cobra.Command{
	Use:   "loadgen",
	Short: "Simulate shoppers against the shop services",
	Long: "loadgen runs concurrent shopper sessions that walk weighted journeys " +
		"(browse, search, cart, checkout) with realistic think times and trace every step.",
	RunE: runLoadgen,
}

func init() {
	f := loadgenCmd.Flags()
	f.IntVar(&lgUsers, "users", 0, "concurrent users (overrides loadgen.users)")
	f.Float64Var(&lgSpawnRate, "spawn-rate", 0, "users started per second")
	f.DurationVar(&lgDuration, "duration", 0, "test duration")
	f.StringVar(&lgTarget, "target", "", "target base URL")
	f.StringVar(&lgOutput, "output", "text", "output format: text, json")
	f.BoolVar(&lgQuiet, "quiet", false, "suppress progress output during test")
	f.BoolVar(&lgVerbose, "verbose", false, "dump requests and responses to stderr")
	f.IntVar(&lgMaxJourneys, "max-journeys", 0, "journeys per session (0 = until the run ends)")
	f.IntVar(&lgWarmup, "warmup", 0, "warmup journeys per session excluded from results")
	f.Float64Var(&lgThinkScale, "think-scale", 1, "multiplier on think and dwell times, 0 disables them")
	f.StringVar(&lgMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9100")
	f.Int64Var(&lgSeed, "seed", 0, "random seed (0 = time based)")
}

func applyLoadgenFlags(cmd *cobra.Command) error {
	f := cmd.Flags()
	lg := &cfg.LoadGen
	if f.Changed("users") {
		lg.Users = lgUsers
	}
	if f.Changed("spawn-rate") {
		lg.SpawnRate = lgSpawnRate
	}
	if f.Changed("duration") {
		lg.Duration = lgDuration
	}
	if f.Changed("target") {
		lg.TargetURL = lgTarget
	}
	if f.Changed("max-journeys") {
		lg.MaxJourneys = lgMaxJourneys
	}
	if f.Changed("warmup") {
		lg.WarmupJourneys = lgWarmup
	}
	if f.Changed("think-scale") {
		lg.ThinkScale = lgThinkScale
	}
	if f.Changed("metrics-addr") {
		lg.MetricsAddr = lgMetricsAddr
	}
	if f.Changed("seed") {
		lg.Seed = lgSeed
	}
	return cfg.Validate()
}

func runLoadgen(cmd *cobra.Command, args []string) error {
	if lgOutput != "text" && lgOutput != "json" {
		return &exitError{ExitError, fmt.Errorf("--output must be 'text' or 'json', got %q", lgOutput)}
	}
	if err := applyLoadgenFlags(cmd); err != nil {
		return &exitError{ExitError, err}
	}
	lg := cfg.LoadGen

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return &exitError{ExitError, err}
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			logger.Warn("trace flush failed", zap.Error(err))
		}
	}()

	var accounts *data.Source
	if lg.UsersFile != "" {
		accounts, err = data.LoadFile(lg.UsersFile, data.Mode(lg.UsersFileMode), filepath.Dir(configPath))
		if err != nil {
			return &exitError{ExitError, err}
		}
		logger.Info("loaded user accounts", zap.String("file", lg.UsersFile), zap.Int("accounts", accounts.Len()))
	}

	patterns, err := journey.PatternsFromConfig(lg.Journeys)
	if err != nil {
		return &exitError{ExitError, err}
	}
	picker, err := journey.NewPicker(patterns)
	if err != nil {
		return &exitError{ExitError, err}
	}

	rep := newReporting(lgQuiet, lg.MetricsAddr != "")
	coll, coord, prog := rep.coll, rep.coord, rep.prog
	if rep.prom != nil {
		_, stopMetrics, err := serveMetrics(lg.MetricsAddr, rep.prom.Handler())
		if err != nil {
			return &exitError{ExitError, err}
		}
		defer stopMetrics()
	}

	var limiter *ratelimit.RateLimiter
	clientOpts := []phttp.Option{}
	if lgVerbose {
		clientOpts = append(clientOpts, phttp.WithDebug(phttp.NewDebugLogger(os.Stderr)))
	}
	if cfg.LoadProfile != nil {
		for _, phase := range cfg.LoadProfile.Phases {
			if phase.RPS > 0 {
				limiter = ratelimit.NewRateLimiter(phase.RPS)
				clientOpts = append(clientOpts, phttp.WithRateLimiter(limiter))
				break
			}
		}
	}
	client := phttp.NewClient(lg.TargetURL, lg.RequestTimeout, clientOpts...)

	sim, err := journey.NewSimulator(journey.SimulatorConfig{
		Client:         client,
		Picker:         picker,
		Profiles:       journey.NewProfileGenerator(accounts, lg.Password),
		Logger:         logger,
		Observer:       rep.observers,
		ThinkScale:     lg.ThinkScale,
		MaxJourneys:    lg.MaxJourneys,
		WarmupJourneys: lg.WarmupJourneys,
		Seed:           lg.Seed,
	})
	if err != nil {
		return &exitError{ExitError, err}
	}

	prog.Start()
	if cfg.LoadProfile != nil && len(cfg.LoadProfile.Phases) > 0 {
		prog.Printf("perfkit loadgen starting with load profile against %s", lg.TargetURL)
		coord.RunWithProfile(ctx, cfg.LoadProfile, sim, limiter)
	} else {
		prog.Printf("perfkit loadgen starting: %d users, spawn rate %.1f/s, duration %v, target %s",
			lg.Users, lg.SpawnRate, lg.Duration, lg.TargetURL)
		coord.RunUsers(ctx, lg.Users, lg.SpawnRate, lg.Duration, sim)
	}
	prog.Stop()
	coll.Close()

	interrupted := ctx.Err() != nil
	if interrupted && !lgQuiet {
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, shutting down...")
	}
	if dropped := coll.DroppedEvents(); dropped > 0 {
		logger.Warn("events dropped", zap.Int64("count", dropped))
	}

	metrics := coll.Compute()
	var results *collector.ThresholdResults
	if cfg.Thresholds != nil {
		results = cfg.Thresholds.Check(metrics)
	}

	if lgOutput == "json" {
		if err := collector.FormatJSON(os.Stdout, metrics, results); err != nil {
			return &exitError{ExitError, err}
		}
	} else {
		collector.FormatText(os.Stdout, metrics, results)
	}

	if !interrupted && results != nil && !results.Passed {
		if lgOutput == "text" {
			fmt.Fprintln(os.Stderr, "\nThreshold check failed!")
		}
		return &exitError{code: ExitThresholdFailed}
	}
	return nil
}

// reporting bundles the sinks of one load run. The coordinator exists before
// anything can read its user count.
type reporting struct {
	coll      *collector.Collector
	coord     *coordinator.Coordinator
	prog      *progress.Progress
	prom      *telemetry.PromReporter
	observers journey.JourneyObservers
}

func newReporting(quiet, withProm bool) *reporting {
	r := &reporting{coll: collector.NewCollector()}
	activeUsers := func() int { return r.coord.ActiveUsers() }
	r.prog = progress.NewProgress(r.coll, activeUsers, quiet)

	reporters := core.MultiReporter{r.coll}
	r.observers = journey.JourneyObservers{r.coll}
	if withProm {
		r.prom = telemetry.NewPromReporter(activeUsers)
		reporters = append(reporters, r.prom)
		r.observers = append(r.observers, r.prom)
	}
	r.coord = coordinator.NewCoordinator(reporters, coordinator.WithLogger(logger), coordinator.WithPrinter(r.prog))
	return r
}

// serveMetrics listens on addr and serves h until the returned func is
// called. It returns the bound address.
func serveMetrics(addr string, h http.Handler) (string, func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("metrics listener: %w", err)
	}
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", ln.Addr().String()))
	return ln.Addr().String(), func() { _ = srv.Close() }, nil
}
