package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate checks the semantic rules the schema cannot express.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.LoadGen.TargetURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("loadgen.target_url %q must be an absolute http(s) URL", c.LoadGen.TargetURL))
	}

	hasProfile := c.LoadProfile != nil && len(c.LoadProfile.Phases) > 0
	if !hasProfile {
		if c.LoadGen.Users <= 0 {
			errs = append(errs, fmt.Errorf("loadgen.users must be positive, got %d", c.LoadGen.Users))
		}
		if c.LoadGen.Duration <= 0 {
			errs = append(errs, fmt.Errorf("loadgen.duration must be positive, got %v", c.LoadGen.Duration))
		}
	}
	for i, p := range c.phases() {
		if p.Duration <= 0 {
			errs = append(errs, fmt.Errorf("load_profile.phases[%d] %q: duration must be positive", i, p.Name))
		}
	}
	if c.LoadGen.SpawnRate <= 0 {
		errs = append(errs, fmt.Errorf("loadgen.spawn_rate must be positive, got %v", c.LoadGen.SpawnRate))
	}
	if c.LoadGen.ThinkScale < 0 {
		errs = append(errs, fmt.Errorf("loadgen.think_scale must not be negative, got %v", c.LoadGen.ThinkScale))
	}
	if c.LoadGen.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("loadgen.request_timeout must be positive, got %v", c.LoadGen.RequestTimeout))
	}
	if c.LoadGen.MaxJourneys < 0 || c.LoadGen.WarmupJourneys < 0 {
		errs = append(errs, errors.New("loadgen.max_journeys and loadgen.warmup_journeys must not be negative"))
	}

	switch c.Telemetry.Exporter {
	case "otlp", "stdout", "both", "none":
	default:
		errs = append(errs, fmt.Errorf("telemetry.exporter %q must be otlp, stdout, both or none", c.Telemetry.Exporter))
	}

	if c.AppD.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("appd.concurrency must be at least 1, got %d", c.AppD.Concurrency))
	}
	if c.AppD.MaxApplications < 1 {
		errs = append(errs, fmt.Errorf("appd.max_applications must be at least 1, got %d", c.AppD.MaxApplications))
	}
	if c.AppD.Hours < 1 {
		errs = append(errs, fmt.Errorf("appd.hours must be at least 1, got %d", c.AppD.Hours))
	}

	return errors.Join(errs...)
}

// ValidateCredentials reports missing controller settings. Only the metrics
// poller needs them, so Validate does not call it.
func (a AppDConfig) ValidateCredentials() error {
	var errs []error
	if a.ControllerURL == "" {
		errs = append(errs, errors.New("APPDYNAMICS_CONTROLLER_URL (appd.controller_url) is required"))
	}
	if a.ClientID == "" {
		errs = append(errs, errors.New("APPDYNAMICS_CLIENT_ID (appd.client_id) is required"))
	}
	if a.ClientSecret == "" {
		errs = append(errs, errors.New("APPDYNAMICS_CLIENT_SECRET (appd.client_secret) is required"))
	}
	return errors.Join(errs...)
}

func (c *Config) phases() []Phase {
	if c.LoadProfile == nil {
		return nil
	}
	return c.LoadProfile.Phases
}
