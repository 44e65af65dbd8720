// Package config handles YAML configuration parsing, environment overrides and validation.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"perfkit/internal/collector"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	LoadGen     LoadGenConfig         `yaml:"loadgen"`
	LoadProfile *LoadProfile          `yaml:"load_profile,omitempty"`
	Thresholds  *collector.Thresholds `yaml:"thresholds,omitempty"`
	Telemetry   TelemetryConfig       `yaml:"telemetry"`
	AppD        AppDConfig            `yaml:"appd"`
	Log         LogConfig             `yaml:"log"`
}

// LoadGenConfig controls the user-journey load generator.
type LoadGenConfig struct {
	TargetURL      string          `yaml:"target_url"`
	Users          int             `yaml:"users"`
	SpawnRate      float64         `yaml:"spawn_rate"` // users started per second
	Duration       time.Duration   `yaml:"duration"`
	RequestTimeout time.Duration   `yaml:"request_timeout"`
	ThinkScale     float64         `yaml:"think_scale"`  // multiplier on dwell and think time, 0 disables waiting
	MaxJourneys    int             `yaml:"max_journeys"` // per session, 0 = until the run ends
	WarmupJourneys int             `yaml:"warmup_journeys"`
	Seed           int64           `yaml:"seed"`
	Password       string          `yaml:"password"`
	UsersFile      string          `yaml:"users_file"`
	UsersFileMode  string          `yaml:"users_file_mode"`
	MetricsAddr    string          `yaml:"metrics_addr"`
	Journeys       []JourneyConfig `yaml:"journeys,omitempty"`
}

// JourneyConfig overrides one entry of the journey table.
type JourneyConfig struct {
	Name   string   `yaml:"name"`
	Weight int      `yaml:"weight"`
	Steps  []string `yaml:"steps"`
}

// LoadProfile defines how the user count changes over the run.
type LoadProfile struct {
	Phases []Phase `yaml:"phases"`
}

// TotalDuration returns the sum of all phase durations.
func (lp *LoadProfile) TotalDuration() time.Duration {
	var total time.Duration
	for _, p := range lp.Phases {
		total += p.Duration
	}
	return total
}

// Phase represents a single phase in the load profile.
type Phase struct {
	Name       string        `yaml:"name"`
	Duration   time.Duration `yaml:"duration"`
	Users      int           `yaml:"users"`
	StartUsers int           `yaml:"start_users"`
	EndUsers   int           `yaml:"end_users"`
	RPS        float64       `yaml:"rps"`
}

// TelemetryConfig controls trace export.
type TelemetryConfig struct {
	Endpoint       string `yaml:"endpoint"`
	Exporter       string `yaml:"exporter"` // otlp, stdout, both or none
	Insecure       bool   `yaml:"insecure"`
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
	Environment    string `yaml:"environment"`
}

// AppDConfig controls the AppDynamics metrics poller.
type AppDConfig struct {
	ControllerURL   string         `yaml:"controller_url"`
	ClientID        string         `yaml:"client_id"`
	ClientSecret    string         `yaml:"client_secret"`
	AccountName     string         `yaml:"account_name"`
	Hours           int            `yaml:"hours"`
	Concurrency     int            `yaml:"concurrency"`
	MaxApplications int            `yaml:"max_applications"`
	Timeout         time.Duration  `yaml:"timeout"`
	Retries         int            `yaml:"retries"`
	Greptime        GreptimeConfig `yaml:"greptime"`
}

// GreptimeConfig addresses the optional GreptimeDB sink for metric samples.
type GreptimeConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Table    string `yaml:"table"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults returns the configuration used when no file or override sets a value.
func Defaults() *Config {
	return &Config{
		LoadGen: LoadGenConfig{
			TargetURL:      "http://frontend",
			Users:          10,
			SpawnRate:      1,
			Duration:       300 * time.Second,
			RequestTimeout: 30 * time.Second,
			ThinkScale:     1,
			Password:       "perfkit-load-test",
			UsersFileMode:  "sequential",
		},
		Telemetry: TelemetryConfig{
			Endpoint:       "http://otel-collector:4317",
			Exporter:       "otlp",
			Insecure:       true,
			ServiceName:    "load-generator",
			ServiceVersion: "1.0.0",
			Environment:    "docker",
		},
		AppD: AppDConfig{
			Hours:           1,
			Concurrency:     5,
			MaxApplications: 200,
			Timeout:         30 * time.Second,
			Retries:         3,
			Greptime: GreptimeConfig{
				Host:     "localhost",
				Port:     4001,
				Database: "public",
				Table:    "appd_metrics",
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig reads a YAML configuration file on top of Defaults.
// The file is checked against the embedded schema before decoding.
func LoadConfig(path string) (*Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}

	if err := ValidateSchema(path, data); err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// Load reads the file at path, applies environment overrides and validates the result.
func Load(path string, getenv func(string) string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg, getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
