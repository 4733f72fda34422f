// Package identity verifies bearer credentials against the external
// identity provider that fronts the Lysbox user base.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Verification errors.
var (
	// ErrMissingAuthHeader indicates no bearer credential was supplied.
	ErrMissingAuthHeader = errors.New("missing authorization header")

	// ErrUnauthorized indicates the identity provider rejected the credential.
	ErrUnauthorized = errors.New("unauthorized")
)

// Caller is the identity the provider resolved for a bearer credential.
type Caller struct {
	// UserID is the provider's stable identifier for the user.
	UserID string
}

// Verifier resolves a bearer credential into a caller identity.
type Verifier interface {
	// Verify exchanges a bearer token for a caller identity.
	// The round-trip honors ctx cancellation and the verifier's own timeout.
	Verify(ctx context.Context, token string) (*Caller, error)
}

// Config contains configuration for the HTTP verifier.
type Config struct {
	// BaseURL is the identity provider root URL.
	BaseURL string

	// PublicKey is the provider's public API key, sent as the apikey header.
	PublicKey string

	// Timeout bounds the verification round-trip.
	Timeout time.Duration
}

// HTTPVerifier verifies tokens by calling the identity provider's user
// endpoint. Every presign call re-verifies; nothing is cached locally.
type HTTPVerifier struct {
	baseURL   string
	publicKey string
	client    *http.Client
	logger    zerolog.Logger
}

// NewHTTPVerifier creates a new HTTPVerifier.
func NewHTTPVerifier(cfg Config, logger zerolog.Logger) *HTTPVerifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &HTTPVerifier{
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		publicKey: cfg.PublicKey,
		client:    &http.Client{Timeout: timeout},
		logger:    logger.With().Str("component", "identity").Logger(),
	}
}

// userResponse is the subset of the provider's user record we consume.
type userResponse struct {
	ID string `json:"id"`
}

// Verify exchanges a bearer token for a caller identity.
// A provider error, timeout, or empty user record all surface as
// ErrUnauthorized; the caller retries by issuing a new presign request.
func (v *HTTPVerifier) Verify(ctx context.Context, token string) (*Caller, error) {
	if token == "" {
		return nil, ErrMissingAuthHeader
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", v.publicKey)

	resp, err := v.client.Do(req)
	if err != nil {
		v.logger.Debug().Err(err).Msg("identity provider round-trip failed")
		return nil, ErrUnauthorized
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		v.logger.Debug().Int("status", resp.StatusCode).Msg("identity provider rejected token")
		return nil, ErrUnauthorized
	}

	var user userResponse
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		v.logger.Debug().Err(err).Msg("failed to decode identity provider response")
		return nil, ErrUnauthorized
	}

	if user.ID == "" {
		return nil, ErrUnauthorized
	}

	return &Caller{UserID: user.ID}, nil
}

// Ensure HTTPVerifier implements Verifier
var _ Verifier = (*HTTPVerifier)(nil)

// BearerToken extracts the token from an Authorization header value.
// Returns ErrMissingAuthHeader when the header is absent or not a
// Bearer credential.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingAuthHeader
	}

	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", ErrMissingAuthHeader
	}

	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", ErrMissingAuthHeader
	}

	return token, nil
}
