package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// GlobalThrottle caps the process-wide request rate before consulting the per-key limiter
type GlobalThrottle struct {
	limiter *rate.Limiter
	next    Limiter
}

// NewGlobalThrottle wraps next with a token bucket of rps requests per second.
// A non-positive rps returns next unchanged.
func NewGlobalThrottle(rps float64, next Limiter) Limiter {
	if rps <= 0 {
		return next
	}

	burst := int(rps)
	if burst < 1 {
		burst = 1
	}

	return &GlobalThrottle{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		next:    next,
	}
}

// Allow rejects with a one second retry when the global bucket is empty
func (g *GlobalThrottle) Allow(ctx context.Context, key string) (Decision, error) {
	if !g.limiter.Allow() {
		return Decision{Allowed: false, RetryAfterSeconds: 1}, nil
	}
	return g.next.Allow(ctx, key)
}
