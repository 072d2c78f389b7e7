package access

import "errors"

var (
	// ErrInvalidCredentials covers unknown identifier, wrong password, and
	// inactive account alike so callers cannot probe which one applied.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthorized is returned for a missing, invalid, or expired token, or
	// a token whose subject no longer exists.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAccountInactive is returned when a valid token belongs to a deactivated user.
	ErrAccountInactive = errors.New("inactive user")

	// ErrForbidden is returned when a non-superuser calls an admin operation.
	ErrForbidden = errors.New("forbidden")
)
