// Package limiter defines interfaces and implementations for attempt rate limiting.
package limiter

import (
	"context"
	"time"
)

// Actions guarded by the limiter.
const (
	ActionLogin = "login"
	ActionJoin  = "join"
)

// Key identifies a stream of attempts: an action by a subject from a hashed address.
type Key struct {
	Action  string
	Subject string
	IPHash  []byte
}

// Limiter controls attempts and temporary lockouts.
type Limiter interface {
	// Allow reports whether an attempt is currently allowed and optional retry-after.
	Allow(ctx context.Context, k Key) (bool, time.Duration, error)
	// Success resets counters after a successful attempt.
	Success(ctx context.Context, k Key) error
	// Failure records a failed attempt; may place a temporary block.
	Failure(ctx context.Context, k Key) (bool, time.Duration, error)
}
