// Package ratelimit implements sliding-window request limiting.  A window
// admits a request only if fewer than Limit requests for the same key were
// admitted during the trailing Window.
package ratelimit

import (
	"context"
	"time"
)

// Defaults guarding the authentication endpoints.
const (
	DefaultLimit  = 30
	DefaultWindow = 60 * time.Second
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter decides whether the request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}
