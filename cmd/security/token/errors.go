package token

import "errors"

var (
	// ErrInvalidToken covers every verification failure: bad signature, wrong
	// algorithm, malformed payload, missing or non-numeric subject, expiry.
	ErrInvalidToken = errors.New("invalid token")

	ErrSecretMissing  = errors.New("token secret missing")
	ErrSecretTooShort = errors.New("token secret too short")
)
