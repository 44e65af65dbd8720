package ratelimit

import (
	"testing"
	"time"

	"perfkit/internal/config"
	"perfkit/internal/core"
)

func newFakePhaseManager(phases []config.Phase) (*PhaseManager, *core.FakeClock) {
	clock := core.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	return NewPhaseManagerWithClock(phases, clock), clock
}

func TestPhaseManager_SteadyPhase(t *testing.T) {
	pm, _ := newFakePhaseManager([]config.Phase{
		{Name: "steady", Duration: time.Minute, Users: 10},
	})

	if pm.TargetUsers() != 10 {
		t.Errorf("expected 10 users, got %d", pm.TargetUsers())
	}
	if pm.IsComplete() {
		t.Error("expected phase not to be complete")
	}
	if phase := pm.CurrentPhase(); phase == nil || phase.Name != "steady" {
		t.Errorf("expected phase name 'steady', got %v", phase)
	}
}

func TestPhaseManager_RampPhase(t *testing.T) {
	pm, clock := newFakePhaseManager([]config.Phase{
		{Name: "ramp", Duration: 100 * time.Second, StartUsers: 0, EndUsers: 10},
	})

	if got := pm.TargetUsers(); got != 0 {
		t.Errorf("expected 0 users at start, got %d", got)
	}

	clock.Advance(50 * time.Second)
	if got := pm.TargetUsers(); got != 5 {
		t.Errorf("expected 5 users at midpoint, got %d", got)
	}

	clock.Advance(50 * time.Second)
	if !pm.IsComplete() {
		t.Error("expected phase to be complete")
	}
	if got := pm.TargetUsers(); got != 0 {
		t.Errorf("expected 0 users after the profile ends, got %d", got)
	}
}

func TestPhaseManager_RampDown(t *testing.T) {
	pm, clock := newFakePhaseManager([]config.Phase{
		{Name: "warm", Duration: 10 * time.Second, Users: 20},
		{Name: "ramp_down", Duration: 10 * time.Second, StartUsers: 20, EndUsers: 0},
	})

	clock.Advance(15 * time.Second)
	if got := pm.TargetUsers(); got != 10 {
		t.Errorf("expected 10 users halfway through ramp down, got %d", got)
	}
}

func TestPhaseManager_MultiplePhases(t *testing.T) {
	pm, clock := newFakePhaseManager([]config.Phase{
		{Name: "first", Duration: 50 * time.Second, Users: 5},
		{Name: "second", Duration: 50 * time.Second, Users: 10},
	})

	if phase := pm.CurrentPhase(); phase == nil || phase.Name != "first" {
		t.Errorf("expected phase 'first', got %v", phase)
	}
	if pm.TargetUsers() != 5 {
		t.Errorf("expected 5 users, got %d", pm.TargetUsers())
	}

	clock.Advance(60 * time.Second)

	if phase := pm.CurrentPhase(); phase == nil || phase.Name != "second" {
		t.Errorf("expected phase 'second', got %v", phase)
	}
	if pm.TargetUsers() != 10 {
		t.Errorf("expected 10 users, got %d", pm.TargetUsers())
	}
}

func TestPhaseManager_RPS(t *testing.T) {
	pm, clock := newFakePhaseManager([]config.Phase{
		{Name: "limited", Duration: time.Second, Users: 5, RPS: 100},
	})

	if pm.CurrentRPS() != 100 {
		t.Errorf("expected RPS 100, got %v", pm.CurrentRPS())
	}
	clock.Advance(2 * time.Second)
	if pm.CurrentRPS() != 0 {
		t.Errorf("expected RPS 0 after completion, got %v", pm.CurrentRPS())
	}
}

func TestPhaseManager_CurrentPhaseIndex(t *testing.T) {
	pm, clock := newFakePhaseManager([]config.Phase{
		{Name: "first", Duration: 50 * time.Millisecond, Users: 5},
		{Name: "second", Duration: 50 * time.Millisecond, Users: 10},
	})

	if pm.CurrentPhaseIndex() != 0 {
		t.Errorf("expected phase index 0, got %d", pm.CurrentPhaseIndex())
	}
	clock.Advance(60 * time.Millisecond)
	if pm.CurrentPhaseIndex() != 1 {
		t.Errorf("expected phase index 1, got %d", pm.CurrentPhaseIndex())
	}
	clock.Advance(60 * time.Millisecond)
	if pm.CurrentPhaseIndex() != 2 {
		t.Errorf("expected phase index 2 (complete), got %d", pm.CurrentPhaseIndex())
	}
}
