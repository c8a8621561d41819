package pcloudapi

import (
	"context"
	"sync"
	"time"
)

// rateLimiter is a token-bucket limiter shaping outbound API call *rate*,
// independent of the coordinator's file-level concurrency (§9 Non-goals: this
// is not bandwidth throttling — it never looks at transferred bytes).
//
// Adapted from the teacher's internal/ratelimit/limiter.go token bucket, with
// the cross-process coordinator hook and per-scope constants dropped (see
// DESIGN.md) since this engine has no multi-process licensing concern.
type rateLimiter struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
}

// newRateLimiter builds a limiter allowing burstSize calls immediately and
// refilling at tokensPerSecond thereafter.
func newRateLimiter(tokensPerSecond float64, burstSize int) *rateLimiter {
	return &rateLimiter{
		tokens:     float64(burstSize),
		maxTokens:  float64(burstSize),
		refillRate: tokensPerSecond,
		lastRefill: time.Now(),
	}
}

func (r *rateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(r.lastRefill).Seconds()
	r.tokens += elapsed * r.refillRate
	if r.tokens > r.maxTokens {
		r.tokens = r.maxTokens
	}
	r.lastRefill = now
}

func (r *rateLimiter) tryAcquire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refill()
	if r.tokens >= 1 {
		r.tokens--
		return true
	}
	return false
}

func (r *rateLimiter) timeUntilNextToken() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refill()
	if r.tokens >= 1 {
		return 0
	}
	deficit := 1 - r.tokens
	return time.Duration(deficit/r.refillRate*1000) * time.Millisecond
}

// Wait blocks until a token is available or ctx is cancelled.
func (r *rateLimiter) Wait(ctx context.Context) error {
	for {
		if r.tryAcquire() {
			return nil
		}
		wait := r.timeUntilNextToken()
		if wait <= 0 {
			wait = time.Millisecond
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
