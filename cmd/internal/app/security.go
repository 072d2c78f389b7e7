package app

import (
	"errors"
	"fmt"

	"taskflow/cmd/security/token"
)

// ValidateSecurityConfig enforces the token secret policy at startup.
// With TASKFLOW_REQUIRE_STRONG_SECRET the server refuses to start on a short key.
func ValidateSecurityConfig(cfg Config) error {
	if !cfg.RequireStrongSecret {
		return nil
	}

	err := token.CheckSecretStrength(cfg.SecretKey, token.MinStrongSecretBytes)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, token.ErrSecretMissing):
		return errors.New("security policy: TASKFLOW_REQUIRE_STRONG_SECRET=true but TASKFLOW_SECRET_KEY is missing")
	case errors.Is(err, token.ErrSecretTooShort):
		return fmt.Errorf("security policy: TASKFLOW_SECRET_KEY is too short (min %d bytes)", token.MinStrongSecretBytes)
	default:
		return err
	}
}
