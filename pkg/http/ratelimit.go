package http

import (
	"context"
	"sync"
	"time"
)

// HostRateLimiter spaces out requests that go to the same host
type HostRateLimiter interface {
	// Wait blocks until a request to host may proceed or ctx is done
	Wait(ctx context.Context, host string) error
}

// HostDelayLimiter enforces a minimum delay between requests to the same host
type HostDelayLimiter struct {
	mu       sync.Mutex
	next     map[string]time.Time
	minDelay time.Duration
	now      func() time.Time
}

// NewHostDelayLimiter creates a limiter with the given minimum delay per host
func NewHostDelayLimiter(minDelay time.Duration) *HostDelayLimiter {
	return &HostDelayLimiter{
		next:     make(map[string]time.Time),
		minDelay: minDelay,
		now:      time.Now,
	}
}

// Wait reserves the next slot for host and sleeps until it arrives
func (rl *HostDelayLimiter) Wait(ctx context.Context, host string) error {
	rl.mu.Lock()
	now := rl.now()
	slot := rl.next[host]
	if slot.Before(now) {
		slot = now
	}
	rl.next[host] = slot.Add(rl.minDelay)
	rl.mu.Unlock()

	wait := slot.Sub(now)
	if wait <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NoOpRateLimiter performs no rate limiting
type NoOpRateLimiter struct{}

// NewNoOpRateLimiter creates a rate limiter that performs no limiting
func NewNoOpRateLimiter() *NoOpRateLimiter {
	return &NoOpRateLimiter{}
}

// Wait returns immediately unless ctx is already done
func (rl *NoOpRateLimiter) Wait(ctx context.Context, _ string) error {
	return ctx.Err()
}
