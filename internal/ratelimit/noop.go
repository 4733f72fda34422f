// Package ratelimit provides per-client request rate limiting.
package ratelimit

import "context"

// NoopLimiter implements Limiter without limiting anything.
// Used when rate limiting is disabled.
type NoopLimiter struct{}

// NewNoopLimiter creates a NoopLimiter.
func NewNoopLimiter() *NoopLimiter {
	return &NoopLimiter{}
}

// Allow always permits the request.
func (l *NoopLimiter) Allow(_ context.Context, _ string) (bool, error) {
	return true, nil
}

// Close is a no-op.
func (l *NoopLimiter) Close() error {
	return nil
}

// Ensure NoopLimiter implements Limiter
var _ Limiter = (*NoopLimiter)(nil)
