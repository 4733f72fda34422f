// Package ratelimit provides per-client request rate limiting with local
// and distributed backends.
package ratelimit

import "context"

// Limiter decides whether a client may proceed with a request.
type Limiter interface {
	// Allow reports whether the client identified by key may proceed.
	// A limiter error fails open: the caller should treat it as allowed
	// rather than reject traffic on infrastructure failure.
	Allow(ctx context.Context, key string) (bool, error)

	// Close releases any resources held by the limiter.
	Close() error
}
