// Package ratelimit provides rate limiting and load profile phase management.
package ratelimit

import (
	"context"
	"math"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket whose rate can change while in use.
// A rate of 0 disables limiting.
type RateLimiter struct {
	limiter *rate.Limiter
	mu      sync.RWMutex
}

// NewRateLimiter creates a limiter allowing perSecond events per second.
// Fractional rates are allowed, e.g. 0.5 spawns one user every two seconds.
func NewRateLimiter(perSecond float64) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(perSecond), burstFor(perSecond)),
	}
}

func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.RLock()
	limiter := r.limiter
	limit := limiter.Limit()
	r.mu.RUnlock()

	if limit <= 0 {
		return ctx.Err()
	}
	return limiter.Wait(ctx)
}

func (r *RateLimiter) SetRate(perSecond float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limiter.SetLimit(rate.Limit(perSecond))
	r.limiter.SetBurst(burstFor(perSecond))
}

// Rate returns the current limit in events per second.
func (r *RateLimiter) Rate() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return float64(r.limiter.Limit())
}

func burstFor(perSecond float64) int {
	if perSecond <= 0 {
		return 0
	}
	return int(math.Max(1, math.Ceil(perSecond)))
}
