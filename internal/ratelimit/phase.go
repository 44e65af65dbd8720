package ratelimit

import (
	"time"

	"perfkit/internal/config"
	"perfkit/internal/core"
)

// PhaseManager tracks where a run is in its load profile and what user count
// and request rate the current phase asks for.
type PhaseManager struct {
	phases    []config.Phase
	startTime time.Time
	clock     core.Clock
}

// NewPhaseManager creates a PhaseManager with a real clock.
func NewPhaseManager(phases []config.Phase) *PhaseManager {
	return NewPhaseManagerWithClock(phases, core.RealClock{})
}

// NewPhaseManagerWithClock creates a PhaseManager with a custom clock (for testing).
func NewPhaseManagerWithClock(phases []config.Phase, clock core.Clock) *PhaseManager {
	return &PhaseManager{
		phases:    phases,
		startTime: clock.Now(),
		clock:     clock,
	}
}

func (pm *PhaseManager) Elapsed() time.Duration {
	return pm.clock.Since(pm.startTime)
}

func (pm *PhaseManager) CurrentPhaseIndex() int {
	elapsed := pm.Elapsed()
	var cumulative time.Duration
	for i, p := range pm.phases {
		cumulative += p.Duration
		if elapsed < cumulative {
			return i
		}
	}
	return len(pm.phases)
}

func (pm *PhaseManager) CurrentPhase() *config.Phase {
	idx := pm.CurrentPhaseIndex()
	if idx >= len(pm.phases) {
		return nil
	}
	return &pm.phases[idx]
}

func (pm *PhaseManager) IsComplete() bool {
	return pm.CurrentPhaseIndex() >= len(pm.phases)
}

// TargetUsers returns the number of concurrent users the current phase wants.
// Ramp phases interpolate linearly from StartUsers to EndUsers.
func (pm *PhaseManager) TargetUsers() int {
	idx := pm.CurrentPhaseIndex()
	if idx >= len(pm.phases) {
		return 0
	}
	phase := pm.phases[idx]
	if phase.Users > 0 {
		return phase.Users
	}
	if phase.StartUsers == phase.EndUsers {
		return phase.StartUsers
	}

	var phaseStart time.Duration
	for i := 0; i < idx; i++ {
		phaseStart += pm.phases[i].Duration
	}
	progress := float64(pm.Elapsed()-phaseStart) / float64(phase.Duration)
	if progress > 1 {
		progress = 1
	}
	delta := float64(phase.EndUsers - phase.StartUsers)
	return phase.StartUsers + int(delta*progress)
}

// CurrentRPS returns the request cap of the current phase; 0 means unlimited.
func (pm *PhaseManager) CurrentRPS() float64 {
	phase := pm.CurrentPhase()
	if phase == nil {
		return 0
	}
	return phase.RPS
}
