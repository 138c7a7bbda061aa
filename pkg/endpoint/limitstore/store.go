// Package limitstore provides the shared counter store behind the
// fixed-window rate limiter. Stores follow a fail-open contract: any
// error is a signal for the caller to allow the request, never to
// block it, so an unavailable store degrades enforcement instead of
// availability.
package limitstore

import (
	"context"
	"time"
)

// Store counts submissions per key within a fixed window.
type Store interface {
	// Increment adds one submission for key and returns the updated
	// count for the current window. A fresh window starts at 1. The
	// increment that crosses a caller's limit still counts toward the
	// window.
	Increment(ctx context.Context, key string, window time.Duration) (int, error)
}
