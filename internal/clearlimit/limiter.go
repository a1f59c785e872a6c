// Package clearlimit provides a single shared token-bucket limiter guarding
// the POST /api/clear endpoint, which restarts both background loops and
// wipes the catalog — cheap to call, expensive to allow unbounded.
package clearlimit

import (
	"sync"
	"time"
)

// Limiter is a single token-bucket rate limiter. Adapted from the
// teacher's per-key ratelimit.Limiter, stripped down to the one instance
// this endpoint needs.
type Limiter struct {
	mu         sync.Mutex
	rate       float64
	burst      float64
	tokens     float64
	lastRefill time.Time
}

// New creates a Limiter allowing ratePerSecond requests/s with a burst
// capacity. If burst <= 0, it defaults to ratePerSecond (no extra burst).
func New(ratePerSecond, burst float64) *Limiter {
	if burst <= 0 {
		burst = ratePerSecond
	}
	return &Limiter{
		rate:       ratePerSecond,
		burst:      burst,
		tokens:     burst,
		lastRefill: time.Now(),
	}
}

// Allow consumes one token and reports whether the request is permitted.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(l.lastRefill).Seconds()
	l.tokens += elapsed * l.rate
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
	l.lastRefill = now

	if l.tokens >= 1.0 {
		l.tokens--
		return true
	}
	return false
}
