package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"perfkit/internal/appd"
	"perfkit/internal/core"
	"perfkit/internal/export"
	phttp "perfkit/internal/http"
)

var (
	appdFormat      string
	appdOutput      string
	appdHours       int
	appdConcurrency int
	appdMaxApps     int
	appdVerbose     bool
)

var appdCmd = &cobra.Command{
	Use:   "appd",
	Short: "Export application health metrics from an AppDynamics controller",
	Long: "appd authenticates against the controller, fetches calls per minute, average response time " +
		"and errors per minute for every application, classifies health and exports the result.",
	RunE: runAppD,
}

func init() {
	f := appdCmd.Flags()
	f.StringVar(&appdFormat, "format", "csv", "export format: csv, excel, greptime")
	f.StringVar(&appdOutput, "output", "", "output file (default appdynamics_metrics_<timestamp>.<ext>)")
	f.IntVar(&appdHours, "hours", 0, "metric window in hours (overrides appd.hours)")
	f.IntVar(&appdConcurrency, "concurrency", 0, "parallel application fetches (overrides appd.concurrency)")
	f.IntVar(&appdMaxApps, "max-apps", 0, "maximum applications to process (overrides appd.max_applications)")
	f.BoolVar(&appdVerbose, "verbose", false, "dump controller requests and responses to stderr")
}

func runAppD(cmd *cobra.Command, args []string) error {
	format, err := export.ParseFormat(appdFormat)
	if err != nil {
		return &exitError{ExitError, err}
	}
	a := &cfg.AppD
	if cmd.Flags().Changed("hours") {
		a.Hours = appdHours
	}
	if cmd.Flags().Changed("concurrency") {
		a.Concurrency = appdConcurrency
	}
	if cmd.Flags().Changed("max-apps") {
		a.MaxApplications = appdMaxApps
	}
	if err := cfg.Validate(); err != nil {
		return &exitError{ExitError, err}
	}
	if err := a.ValidateCredentials(); err != nil {
		return &exitError{ExitError, err}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tokens := appd.NewTokenProvider(ctx, a.ControllerURL, a.ClientID, a.ClientSecret, a.AccountName,
		&http.Client{Timeout: a.Timeout})
	if _, err := tokens.Token(ctx); err != nil {
		return &exitError{ExitError, err}
	}
	logger.Info("authenticated with controller", zap.String("controller", a.ControllerURL))

	opts := []phttp.Option{
		phttp.WithBearer(tokens.Token),
		phttp.WithRetry(phttp.DefaultRetryPolicy(a.Retries)),
	}
	if appdVerbose {
		opts = append(opts, phttp.WithDebug(phttp.NewDebugLogger(os.Stderr)))
	}
	client := appd.NewClient(phttp.NewClient(a.ControllerURL, a.Timeout, opts...))

	apps, err := client.Applications(ctx)
	if err != nil {
		return &exitError{ExitError, err}
	}
	if len(apps) == 0 {
		logger.Warn("controller returned no applications")
		return nil
	}
	if len(apps) > a.MaxApplications {
		logger.Warn("limiting applications",
			zap.Int("found", len(apps)), zap.Int("processing", a.MaxApplications))
		apps = appd.LimitApplications(apps, a.MaxApplications)
	}

	now := time.Now()
	window := appd.LastHours(now, a.Hours)
	fetcher := appd.NewFetcher(client, logger, core.RealClock{})
	collector := appd.NewCollector(fetcher, a.Concurrency,
		appd.WithLogger(logger),
		appd.WithProgress(func(done, total int) {
			fmt.Fprintf(os.Stderr, "Processed %d/%d applications\n", done, total)
		}))

	samples := collector.CollectAll(ctx, apps, window)
	if err := ctx.Err(); err != nil {
		return &exitError{ExitError, fmt.Errorf("collection interrupted: %w", err)}
	}
	appd.SortByName(samples)

	if err := exportSamples(ctx, format, samples, now); err != nil {
		return &exitError{ExitError, err}
	}
	appd.FormatSummary(os.Stdout, appd.Summarize(samples))
	return nil
}

func exportSamples(ctx context.Context, format export.Format, samples []appd.MetricSample, now time.Time) error {
	if format == export.FormatGreptime {
		sink, err := export.NewGreptimeSink(cfg.AppD.Greptime)
		if err != nil {
			return err
		}
		rows, err := sink.Write(ctx, samples)
		if err != nil {
			return err
		}
		logger.Info("wrote samples to greptime",
			zap.String("host", cfg.AppD.Greptime.Host), zap.Uint32("rows", rows))
		return nil
	}

	path := appdOutput
	if path == "" {
		path = export.DefaultFilename("appdynamics_metrics", format.Ext(), now)
	}
	var err error
	switch format {
	case export.FormatExcel:
		err = export.WriteExcel(path, samples, now)
	default:
		err = export.WriteCSVFile(path, samples)
	}
	if err != nil {
		return err
	}
	logger.Info("exported metrics", zap.String("file", path), zap.Int("applications", len(samples)))
	return nil
}
