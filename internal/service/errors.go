// Package service provides the presign business logic for the Lysbox
// presign service.
package service

import "errors"

// Common service errors.
var (
	// Validation errors
	ErrInvalidMode           = errors.New("invalid mode: must be \"put\" or \"get\"")
	ErrMissingPath           = errors.New("path is required")
	ErrInvalidExpiration     = errors.New("invalid expiration: must be between 1 second and 1 hour")
	ErrUnresolvedPlaceholder = errors.New("path template contains an unknown placeholder")
	ErrKeyOutsideNamespace   = errors.New("resolved key is outside the caller's namespace")

	// Configuration errors
	ErrMissingConfiguration = errors.New("storage configuration is incomplete")

	// Signing errors
	ErrSigningFailed = errors.New("failed to sign request")

	// General errors
	ErrInternalError = errors.New("internal server error")
)
