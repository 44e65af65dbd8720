package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ApplyEnv overrides cfg with the environment variables the load generator and
// the metrics poller have always honoured. getenv is usually os.Getenv.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	if getenv == nil {
		return nil
	}
	var errs []error

	setString := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	setString("TARGET_BASE_URL", &cfg.LoadGen.TargetURL)
	setString("OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.Telemetry.Endpoint)
	setString("DEPLOYMENT_ENVIRONMENT", &cfg.Telemetry.Environment)
	setString("APPDYNAMICS_CONTROLLER_URL", &cfg.AppD.ControllerURL)
	setString("APPDYNAMICS_CLIENT_ID", &cfg.AppD.ClientID)
	setString("APPDYNAMICS_CLIENT_SECRET", &cfg.AppD.ClientSecret)
	setString("APPDYNAMICS_ACCOUNT_NAME", &cfg.AppD.AccountName)

	if v := getenv("CONCURRENT_USERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("CONCURRENT_USERS: %w", err))
		} else {
			cfg.LoadGen.Users = n
		}
	}
	if v := getenv("SPAWN_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("SPAWN_RATE: %w", err))
		} else {
			cfg.LoadGen.SpawnRate = f
		}
	}
	if v := getenv("TEST_DURATION"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("TEST_DURATION: %w", err))
		} else {
			cfg.LoadGen.Duration = d
		}
	}

	return errors.Join(errs...)
}

// parseSeconds accepts a bare number of seconds or a Go duration string.
func parseSeconds(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}
