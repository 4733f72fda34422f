// Package service provides the presign business logic for the Lysbox
// presign service.
package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Thanawat984/lysbox-presign/internal/config"
	"github.com/Thanawat984/lysbox-presign/internal/identity"
	"github.com/Thanawat984/lysbox-presign/internal/sigv4"
)

// Mode selects the single object operation a presigned URL authorizes.
type Mode string

const (
	// ModePut authorizes a single object upload.
	ModePut Mode = "put"

	// ModeGet authorizes a single object download.
	ModeGet Mode = "get"
)

// ParseMode validates a caller-supplied mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case ModePut:
		return ModePut, nil
	case ModeGet:
		return ModeGet, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// HTTPMethod returns the HTTP method the presigned URL is bound to.
func (m Mode) HTTPMethod() string {
	if m == ModePut {
		return http.MethodPut
	}
	return http.MethodGet
}

// PresignService issues presigned single-object URLs.
// The signing computation is pure and shares no mutable state; the only
// suspension point is the identity verification round-trip.
type PresignService struct {
	verifier  identity.Verifier
	storage   config.StorageConfig
	signing   config.SigningConfig
	templates config.TemplateConfig
	logger    zerolog.Logger
}

// NewPresignService creates a new PresignService.
func NewPresignService(verifier identity.Verifier, cfg *config.Config, logger zerolog.Logger) *PresignService {
	return &PresignService{
		verifier:  verifier,
		storage:   cfg.Storage,
		signing:   cfg.Signing,
		templates: cfg.Templates,
		logger:    logger.With().Str("service", "presign").Logger(),
	}
}

// PresignInput contains the data needed to generate a presigned URL.
type PresignInput struct {
	// Token is the caller's bearer credential.
	Token string

	// Mode is the operation the URL authorizes.
	Mode Mode

	// PathTemplate is the object key template with <user> and <yyyy>
	// placeholders.
	PathTemplate string

	// ContentType is the upload content type. Only meaningful for ModePut.
	ContentType string

	// Expiry is the URL validity window. If zero, the configured default
	// is used.
	Expiry time.Duration
}

// PresignOutput contains the result of generating a presigned URL.
type PresignOutput struct {
	// URL is the presigned URL, usable verbatim within the expiry window.
	URL string

	// Key is the resolved object key.
	Key string

	// Method is the HTTP method for the request.
	Method string

	// Expiration is when the URL expires.
	Expiration time.Time
}

// GeneratePresignedURL authenticates the caller, resolves the object key,
// and signs a single-object request against the configured endpoint.
func (s *PresignService) GeneratePresignedURL(ctx context.Context, input PresignInput) (*PresignOutput, error) {
	if input.PathTemplate == "" {
		return nil, ErrMissingPath
	}
	if input.Mode != ModePut && input.Mode != ModeGet {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, string(input.Mode))
	}

	expiry := input.Expiry
	if expiry == 0 {
		expiry = s.signing.DefaultExpiry
	}
	if expiry < time.Second || expiry > s.signing.MaxExpiry {
		return nil, ErrInvalidExpiration
	}

	// Authenticate before touching configuration or crypto: an
	// unauthenticated request must never reach the signing stage.
	caller, err := s.verifier.Verify(ctx, input.Token)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	key, err := ResolveObjectKey(input.PathTemplate, caller.UserID, now, ResolveOptions{
		Strict:              s.templates.Strict,
		EnforceCallerPrefix: s.templates.EnforceCallerPrefix,
	})
	if err != nil {
		return nil, err
	}

	// Config gate: all four storage values must be present before any
	// signature is computed.
	if err := s.storage.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingConfiguration, err)
	}

	presignedURL, err := s.buildPresignedURL(input.Mode, key, input.ContentType, now, int64(expiry.Seconds()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}

	s.logger.Debug().
		Str("user_id", caller.UserID).
		Str("mode", string(input.Mode)).
		Str("key", key).
		Time("expires_at", now.Add(expiry)).
		Msg("generated presigned URL")

	return &PresignOutput{
		URL:        presignedURL,
		Key:        key,
		Method:     input.Mode.HTTPMethod(),
		Expiration: now.Add(expiry),
	}, nil
}

// buildPresignedURL builds the presigned URL with signature.
func (s *PresignService) buildPresignedURL(mode Mode, key, contentType string, requestTime time.Time, expirySeconds int64) (string, error) {
	endpoint := strings.TrimSuffix(s.storage.Endpoint, "/")
	parsedEndpoint, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	host := parsedEndpoint.Host

	// Build credential scope
	scope := sigv4.CredentialScope{
		Date:    requestTime,
		Region:  s.signing.Region,
		Service: s.signing.Service,
	}
	credential := s.storage.AccessKeyID + "/" + scope.String()

	// Only the host header participates in the signature. This is the
	// minimal signing scope for presigned GET/PUT.
	signedHeadersList := []string{"host"}
	signedHeaders := strings.Join(signedHeadersList, ";")
	headers := map[string]string{"host": host}

	// Build query parameters for presigned URL
	query := url.Values{}
	query.Set(sigv4.XAmzAlgorithm, sigv4.Algorithm)
	query.Set(sigv4.XAmzCredential, credential)
	query.Set(sigv4.XAmzDate, requestTime.Format(sigv4.ISO8601BasicFormat))
	query.Set(sigv4.XAmzExpires, strconv.FormatInt(expirySeconds, 10))
	query.Set(sigv4.XAmzSignedHeaders, signedHeaders)

	// The upload content type rides along as a signed query parameter for
	// PUT. It never joins the signed header set: a header the uploading
	// client must echo exactly is a common source of signature mismatches.
	if mode == ModePut && contentType != "" {
		query.Set("content-type", contentType)
	}

	// Build canonical request
	path := "/" + s.storage.Bucket + "/" + key
	canonicalURI := sigv4.CanonicalURI(path)
	canonicalQueryString := sigv4.CanonicalQueryString(query)
	canonicalHeaders := sigv4.CanonicalHeaders(headers, signedHeadersList)

	canonicalRequest := sigv4.BuildCanonicalRequest(
		mode.HTTPMethod(),
		canonicalURI,
		canonicalQueryString,
		canonicalHeaders,
		signedHeaders,
		sigv4.UnsignedPayload,
	)

	// Build string to sign
	stringToSign := sigv4.StringToSign(canonicalRequest, requestTime, scope)

	// Derive signing key and sign
	signingKey := sigv4.SigningKey(s.storage.SecretAccessKey, requestTime, s.signing.Region, s.signing.Service)
	signature := sigv4.Signature(signingKey, stringToSign)

	// Append signature and assemble the final URL
	query.Set(sigv4.XAmzSignature, signature)

	return endpoint + canonicalURI + "?" + sigv4.EncodeQuery(query), nil
}
