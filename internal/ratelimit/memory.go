// Package ratelimit provides per-client request rate limiting.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter implements Limiter with per-key token buckets held in
// process memory. Suitable for single-instance deployments.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64
	burst   float64
	now     func() time.Time

	lastPrune time.Time
}

type bucket struct {
	tokens   float64
	lastFill time.Time
}

// NewMemoryLimiter creates a token-bucket limiter refilling at rate
// tokens per second with the given burst capacity.
func NewMemoryLimiter(rate float64, burst int) *MemoryLimiter {
	if rate <= 0 {
		rate = 1
	}
	if burst < 1 {
		burst = 1
	}

	return &MemoryLimiter{
		buckets:   make(map[string]*bucket),
		rate:      rate,
		burst:     float64(burst),
		now:       time.Now,
		lastPrune: time.Now(),
	}
}

// Allow takes one token from the client's bucket.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.pruneLocked(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.burst, lastFill: now}
		l.buckets[key] = b
	}

	elapsed := now.Sub(b.lastFill).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * l.rate
		if b.tokens > l.burst {
			b.tokens = l.burst
		}
		b.lastFill = now
	}

	if b.tokens < 1 {
		return false, nil
	}

	b.tokens--
	return true, nil
}

// Close releases limiter resources.
func (l *MemoryLimiter) Close() error {
	return nil
}

// pruneLocked drops buckets that have been idle long enough to refill
// completely. Called with the mutex held.
func (l *MemoryLimiter) pruneLocked(now time.Time) {
	if now.Sub(l.lastPrune) < time.Minute {
		return
	}
	l.lastPrune = now

	idle := time.Duration(l.burst/l.rate*float64(time.Second)) + time.Minute
	for key, b := range l.buckets {
		if now.Sub(b.lastFill) > idle {
			delete(l.buckets, key)
		}
	}
}

// Ensure MemoryLimiter implements Limiter
var _ Limiter = (*MemoryLimiter)(nil)
