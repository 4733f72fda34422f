package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubVerifier struct {
	caller *Caller
	err    error
}

func (v *stubVerifier) Verify(_ context.Context, _ string) (*Caller, error) {
	return v.caller, v.err
}

func TestTimedVerifierPassesThrough(t *testing.T) {
	var observed []float64
	verifier := NewTimedVerifier(
		&stubVerifier{caller: &Caller{UserID: "abc123"}},
		func(seconds float64) { observed = append(observed, seconds) },
	)

	caller, err := verifier.Verify(context.Background(), "token")
	require.NoError(t, err)
	require.Equal(t, "abc123", caller.UserID)

	require.Len(t, observed, 1)
	require.GreaterOrEqual(t, observed[0], 0.0)
}

func TestTimedVerifierObservesFailures(t *testing.T) {
	var observed []float64
	verifier := NewTimedVerifier(
		&stubVerifier{err: ErrUnauthorized},
		func(seconds float64) { observed = append(observed, seconds) },
	)

	_, err := verifier.Verify(context.Background(), "bad-token")
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Len(t, observed, 1)
}
