package ratelimit_test

import (
	"context"
	"fmt"
	"time"

	"perfkit/internal/config"
	"perfkit/internal/ratelimit"
)

func ExampleNewRateLimiter() {
	// Spawn up to 100 users per second.
	limiter := ratelimit.NewRateLimiter(100)

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := limiter.Wait(ctx); err != nil {
			fmt.Println("Context cancelled")
			return
		}
	}
	elapsed := time.Since(start)

	fmt.Printf("5 spawns completed in under 100ms: %v\n", elapsed < 100*time.Millisecond)
	// Output: 5 spawns completed in under 100ms: true
}

func ExampleRateLimiter_SetRate() {
	limiter := ratelimit.NewRateLimiter(10)
	limiter.SetRate(0.5)

	fmt.Printf("Rate updated to %.1f/s\n", limiter.Rate())
	// Output: Rate updated to 0.5/s
}

func ExampleNewPhaseManager() {
	phases := []config.Phase{
		{Name: "ramp_up", Duration: 10 * time.Second, StartUsers: 1, EndUsers: 10},
		{Name: "steady", Duration: 30 * time.Second, Users: 10, RPS: 100},
		{Name: "ramp_down", Duration: 5 * time.Second, StartUsers: 10, EndUsers: 0},
	}

	pm := ratelimit.NewPhaseManager(phases)

	fmt.Printf("Phase: %s, Target users: %d\n", pm.CurrentPhase().Name, pm.TargetUsers())
	// Output: Phase: ramp_up, Target users: 1
}
