package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfig_LoadGenSection(t *testing.T) {
	content := `
loadgen:
  target_url: "http://shop.local:8080"
  users: 25
  spawn_rate: 2.5
  duration: 90s
  think_scale: 0
  max_journeys: 3
  seed: 7
`
	cfg := loadConfigFromString(t, content)

	lg := cfg.LoadGen
	if lg.TargetURL != "http://shop.local:8080" {
		t.Errorf("expected target_url, got %q", lg.TargetURL)
	}
	if lg.Users != 25 {
		t.Errorf("expected 25 users, got %d", lg.Users)
	}
	if lg.SpawnRate != 2.5 {
		t.Errorf("expected spawn rate 2.5, got %v", lg.SpawnRate)
	}
	if lg.Duration != 90*time.Second {
		t.Errorf("expected duration 90s, got %v", lg.Duration)
	}
	if lg.ThinkScale != 0 {
		t.Errorf("expected explicit think_scale 0 to survive defaults, got %v", lg.ThinkScale)
	}
	if lg.MaxJourneys != 3 || lg.Seed != 7 {
		t.Errorf("expected max_journeys 3 and seed 7, got %d and %d", lg.MaxJourneys, lg.Seed)
	}
	// Untouched keys keep their defaults.
	if lg.RequestTimeout != 30*time.Second {
		t.Errorf("expected default request timeout, got %v", lg.RequestTimeout)
	}
	if cfg.AppD.Concurrency != 5 {
		t.Errorf("expected default appd concurrency 5, got %d", cfg.AppD.Concurrency)
	}
}

func TestLoadConfig_Journeys(t *testing.T) {
	content := `
loadgen:
  journeys:
    - name: browse_only
      weight: 100
      steps: [homepage, browse_products, exit]
`
	cfg := loadConfigFromString(t, content)

	if len(cfg.LoadGen.Journeys) != 1 {
		t.Fatalf("expected 1 journey, got %d", len(cfg.LoadGen.Journeys))
	}
	j := cfg.LoadGen.Journeys[0]
	if j.Name != "browse_only" || j.Weight != 100 || len(j.Steps) != 3 {
		t.Errorf("unexpected journey: %+v", j)
	}
}

func TestLoadConfig_WithLoadProfile(t *testing.T) {
	content := `
load_profile:
  phases:
    - name: "ramp_up"
      duration: 30s
      start_users: 1
      end_users: 50
    - name: "steady"
      duration: 2m
      users: 50
      rps: 100
    - name: "ramp_down"
      duration: 15s
      start_users: 50
      end_users: 0
`
	cfg := loadConfigFromString(t, content)

	if cfg.LoadProfile == nil {
		t.Fatal("expected load_profile to be set")
	}
	if len(cfg.LoadProfile.Phases) != 3 {
		t.Fatalf("expected 3 phases, got %d", len(cfg.LoadProfile.Phases))
	}

	phase := cfg.LoadProfile.Phases[0]
	if phase.Name != "ramp_up" {
		t.Errorf("expected phase name 'ramp_up', got %q", phase.Name)
	}
	if phase.Duration != 30*time.Second {
		t.Errorf("expected duration 30s, got %v", phase.Duration)
	}
	if phase.StartUsers != 1 || phase.EndUsers != 50 {
		t.Errorf("expected 1 -> 50 users, got %d -> %d", phase.StartUsers, phase.EndUsers)
	}

	steady := cfg.LoadProfile.Phases[1]
	if steady.Users != 50 || steady.RPS != 100 {
		t.Errorf("expected 50 users at 100 rps, got %d at %v", steady.Users, steady.RPS)
	}
	if cfg.LoadProfile.TotalDuration() != 165*time.Second {
		t.Errorf("expected total 165s, got %v", cfg.LoadProfile.TotalDuration())
	}
}

func TestLoadConfig_Thresholds(t *testing.T) {
	content := `
thresholds:
  http_req_duration:
    p95: 500ms
  http_req_failed:
    rate: "1%"
`
	cfg := loadConfigFromString(t, content)

	if cfg.Thresholds == nil || cfg.Thresholds.HTTPReqDuration == nil {
		t.Fatal("expected duration thresholds")
	}
	if cfg.Thresholds.HTTPReqDuration.P95 != 500*time.Millisecond {
		t.Errorf("expected p95 500ms, got %v", cfg.Thresholds.HTTPReqDuration.P95)
	}
	if cfg.Thresholds.HTTPReqFailed.Rate != "1%" {
		t.Errorf("expected rate 1%%, got %q", cfg.Thresholds.HTTPReqFailed.Rate)
	}
}

func TestLoadConfig_JourneyThresholds(t *testing.T) {
	content := `
thresholds:
  journey_aborted:
    rate: "2.5%"
  step_duration:
    checkout:
      p95: 2s
    add_to_cart:
      avg: 300ms
`
	cfg := loadConfigFromString(t, content)

	if cfg.Thresholds == nil || cfg.Thresholds.JourneyAborted == nil {
		t.Fatal("expected journey thresholds")
	}
	if cfg.Thresholds.JourneyAborted.Rate != "2.5%" {
		t.Errorf("expected rate 2.5%%, got %q", cfg.Thresholds.JourneyAborted.Rate)
	}
	if got := cfg.Thresholds.StepDuration["checkout"].P95; got != 2*time.Second {
		t.Errorf("expected checkout p95 2s, got %v", got)
	}
	if got := cfg.Thresholds.StepDuration["add_to_cart"].Avg; got != 300*time.Millisecond {
		t.Errorf("expected add_to_cart avg 300ms, got %v", got)
	}
}

func TestValidateSchema_UnknownStepThreshold(t *testing.T) {
	content := []byte("thresholds:\n  step_duration:\n    teleport:\n      p95: 1s\n")
	if err := ValidateSchema("perfkit.yaml", content); err == nil {
		t.Error("expected a threshold on an unknown step to be rejected")
	}
}

func TestLoadConfig_NoLoadProfile(t *testing.T) {
	cfg := loadConfigFromString(t, "loadgen:\n  users: 3\n")

	if cfg.LoadProfile != nil {
		t.Error("expected load_profile to be nil")
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	content := `
loadgen:
  target_url: "Invalid
  users: [[[invalid
`
	_, err := LoadConfig(createTempFile(t, content))
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadConfig_EmptyFile(t *testing.T) {
	cfg, err := LoadConfig(createTempFile(t, ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LoadGen.Users != 10 {
		t.Errorf("expected default users, got %d", cfg.LoadGen.Users)
	}
}

func TestLoadConfig_NoPath(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Telemetry.ServiceName != "load-generator" {
		t.Errorf("expected default service name, got %q", cfg.Telemetry.ServiceName)
	}
}

func TestLoadConfig_SchemaRejectsUnknownKey(t *testing.T) {
	content := `
loadgen:
  userz: 10
`
	_, err := LoadConfig(createTempFile(t, content))
	if err == nil {
		t.Fatal("expected schema error for unknown key")
	}
	if !strings.Contains(err.Error(), "schema") {
		t.Errorf("expected schema validation error, got %v", err)
	}
}

func TestLoadConfig_SchemaRejectsBadDuration(t *testing.T) {
	_, err := LoadConfig(createTempFile(t, "loadgen:\n  duration: 300\n"))
	if err == nil {
		t.Error("expected schema error for a duration without a unit")
	}
}

func TestLoadConfig_SchemaRejectsUnknownStep(t *testing.T) {
	content := `
loadgen:
  journeys:
    - name: odd
      weight: 100
      steps: [homepage, teleport]
`
	_, err := LoadConfig(createTempFile(t, content))
	if err == nil {
		t.Error("expected schema error for unknown step")
	}
}

func TestLoadProfile_TotalDuration_Empty(t *testing.T) {
	lp := &LoadProfile{Phases: []Phase{}}
	if lp.TotalDuration() != 0 {
		t.Errorf("expected 0 duration, got %v", lp.TotalDuration())
	}
}

func TestLoadProfile_TotalDuration_Multiple(t *testing.T) {
	lp := &LoadProfile{
		Phases: []Phase{
			{Duration: 10 * time.Second},
			{Duration: 20 * time.Second},
			{Duration: 5 * time.Second},
		},
	}

	expected := 35 * time.Second
	if lp.TotalDuration() != expected {
		t.Errorf("expected %v, got %v", expected, lp.TotalDuration())
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := createTempFile(t, "loadgen:\n  users: 3\n  target_url: http://from-file\n")
	env := map[string]string{
		"TARGET_BASE_URL":  "http://from-env:8080",
		"CONCURRENT_USERS": "12",
		"TEST_DURATION":    "60",
	}

	cfg, err := Load(path, func(k string) string { return env[k] })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LoadGen.TargetURL != "http://from-env:8080" {
		t.Errorf("expected env target, got %q", cfg.LoadGen.TargetURL)
	}
	if cfg.LoadGen.Users != 12 {
		t.Errorf("expected 12 users, got %d", cfg.LoadGen.Users)
	}
	if cfg.LoadGen.Duration != time.Minute {
		t.Errorf("expected 60s, got %v", cfg.LoadGen.Duration)
	}
}

func TestLoad_InvalidResult(t *testing.T) {
	env := map[string]string{"TARGET_BASE_URL": "frontend"}
	_, err := Load("", func(k string) string { return env[k] })
	if err == nil {
		t.Error("expected validation error for a target without scheme")
	}
}

// Helper functions

func loadConfigFromString(t *testing.T, content string) *Config {
	t.Helper()
	cfg, err := LoadConfig(createTempFile(t, content))
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func createTempFile(t *testing.T, content string) string {
	t.Helper()
	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	return tmpFile
}
