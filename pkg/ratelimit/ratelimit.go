// Package ratelimit provides a pluggable request limiter keyed by client
// identifier. Two backends exist: an in-process map for single-instance
// deployments and Redis for scaled-out ones.
package ratelimit

import "context"

// Limiter decides whether a request identified by key may proceed within the
// current window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}
