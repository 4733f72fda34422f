package identity

import (
	"context"
	"time"
)

// TimedVerifier wraps a Verifier and reports each round-trip duration in
// seconds to an observe callback. The callback fires on failures too, so
// provider timeouts show up in the recorded distribution.
type TimedVerifier struct {
	next    Verifier
	observe func(seconds float64)
}

// NewTimedVerifier creates a TimedVerifier. The observe func is typically
// a Prometheus histogram's Observe method.
func NewTimedVerifier(next Verifier, observe func(float64)) *TimedVerifier {
	return &TimedVerifier{next: next, observe: observe}
}

// Verify delegates to the wrapped verifier and records the elapsed time.
func (v *TimedVerifier) Verify(ctx context.Context, token string) (*Caller, error) {
	start := time.Now()
	caller, err := v.next.Verify(ctx, token)
	v.observe(time.Since(start).Seconds())
	return caller, err
}

// Ensure TimedVerifier implements Verifier
var _ Verifier = (*TimedVerifier)(nil)
