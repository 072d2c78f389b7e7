package identity

import (
	"errors"

	"taskflow/cmd/security/password"
)

// Hasher derives and checks password hashes and applies the password policy.
// password.Config satisfies it.
type Hasher interface {
	Hash(plain string) (string, error)
	Matches(encodedHash, plain string) bool
	Validate(plain string) error
}

var _ Hasher = password.Config{}

// passwordPolicyMessage turns a policy failure into client-safe text.
func passwordPolicyMessage(err error) string {
	switch {
	case errors.Is(err, password.ErrPasswordTooShort):
		return "password too short"
	case errors.Is(err, password.ErrPasswordTooLong):
		return "password too long"
	case errors.Is(err, password.ErrWeakPassword):
		return "weak password"
	default:
		return "invalid password"
	}
}
