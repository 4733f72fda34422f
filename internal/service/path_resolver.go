// Package service provides the presign business logic for the Lysbox
// presign service.
package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Placeholder tokens recognized in path templates.
const (
	// PlaceholderUser is replaced by the caller's user id.
	PlaceholderUser = "<user>"

	// PlaceholderYear is replaced by the current UTC four-digit year.
	PlaceholderYear = "<yyyy>"
)

// placeholderPattern matches any remaining angle-bracket token after
// substitution.
var placeholderPattern = regexp.MustCompile(`<[^<>/]*>`)

// ResolveOptions controls template resolution behavior.
type ResolveOptions struct {
	// Strict rejects templates that still contain placeholder tokens
	// after substitution instead of passing them through verbatim.
	Strict bool

	// EnforceCallerPrefix rejects resolved keys that do not start with
	// the caller's own namespace prefix.
	EnforceCallerPrefix bool
}

// CallerPrefix returns the object-key prefix owned by a caller.
func CallerPrefix(userID string) string {
	return "u/" + userID + "/"
}

// ResolveObjectKey expands a path template into a concrete object key.
// Substitution is purely textual: <user> becomes the caller id and <yyyy>
// the current UTC year. The key is returned without a leading slash.
func ResolveObjectKey(template, userID string, now time.Time, opts ResolveOptions) (string, error) {
	if template == "" {
		return "", ErrMissingPath
	}

	key := strings.ReplaceAll(template, PlaceholderUser, userID)
	key = strings.ReplaceAll(key, PlaceholderYear, strconv.Itoa(now.UTC().Year()))
	key = strings.TrimPrefix(key, "/")

	if opts.Strict {
		if token := placeholderPattern.FindString(key); token != "" {
			return "", fmt.Errorf("%w: %s", ErrUnresolvedPlaceholder, token)
		}
	}

	if opts.EnforceCallerPrefix && !strings.HasPrefix(key, CallerPrefix(userID)) {
		return "", ErrKeyOutsideNamespace
	}

	return key, nil
}
