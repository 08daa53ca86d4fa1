// Package ratelimit admits or rejects requests per client key using a
// sliding-window log of previously admitted requests.
package ratelimit

import (
	"context"
	"math"
	"time"
)

// Decision is the outcome of a single Allow call
type Decision struct {
	Allowed           bool
	RetryAfterSeconds int
}

// Limiter gates requests by an opaque client key
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// Clock returns the current time; tests inject a fake one
type Clock func() time.Time

// retryAfter is the whole seconds until the oldest admitted request leaves the window, never below 1
func retryAfter(oldest time.Time, window time.Duration, now time.Time) int {
	wait := oldest.Add(window).Sub(now)
	seconds := int(math.Ceil(wait.Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}
