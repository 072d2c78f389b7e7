package access

import (
	"context"
	"fmt"
	"strings"

	"taskflow/cmd/identity"
)

// TokenVerifier checks access tokens. token.Codec satisfies it.
type TokenVerifier interface {
	Verify(raw string) (int64, error)
}

// Guard resolves bearer tokens to users.
type Guard struct {
	users  UserLookup
	tokens TokenVerifier
}

// NewGuard wires a Guard.
func NewGuard(users UserLookup, tokens TokenVerifier) (*Guard, error) {
	if users == nil || tokens == nil {
		return nil, fmt.Errorf("access: nil dependency")
	}
	return &Guard{users: users, tokens: tokens}, nil
}

// Authenticate returns the active user named by raw.
func (g *Guard) Authenticate(ctx context.Context, raw string) (identity.User, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return identity.User{}, ErrUnauthorized
	}

	id, err := g.tokens.Verify(raw)
	if err != nil {
		return identity.User{}, ErrUnauthorized
	}

	u, err := g.users.GetByID(ctx, id)
	if err != nil {
		if identity.IsNotFound(err) {
			return identity.User{}, ErrUnauthorized
		}
		return identity.User{}, fmt.Errorf("access: load user: %w", err)
	}
	if !u.IsActive {
		return identity.User{}, ErrAccountInactive
	}
	return u, nil
}

// RequireSuperuser passes u through when it is a superuser.
func (g *Guard) RequireSuperuser(u identity.User) (identity.User, error) {
	if !u.IsSuperuser {
		return identity.User{}, ErrForbidden
	}
	return u, nil
}
