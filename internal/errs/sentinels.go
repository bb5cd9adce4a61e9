// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across store/cache/repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates failed authentication/authorization.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the caller does not own the entity.
	ErrForbidden = errors.New("forbidden")

	// ErrRateLimited indicates a temporary lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., username taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("validation")

	// ErrInvalidTarget indicates a comment/like without exactly one of photo or album.
	ErrInvalidTarget = errors.New("invalid target")

	// ErrInvalidInviteCode indicates a join code matching no group.
	ErrInvalidInviteCode = errors.New("invalid invite code")
)
