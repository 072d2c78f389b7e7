package access

import (
	"context"
	"fmt"
	"strings"
	"time"

	"taskflow/cmd/identity"
)

// DefaultAccessTokenTTL applies when the configured TTL is not positive.
const DefaultAccessTokenTTL = 30 * time.Minute

// UserLookup is the read side of identity.Store used for login and guarding.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (identity.User, error)
	GetByUsername(ctx context.Context, username string) (identity.User, error)
	GetByEmail(ctx context.Context, email string) (identity.User, error)
}

// PasswordChecker hashes and matches passwords. password.Config satisfies it.
type PasswordChecker interface {
	Hash(plain string) (string, error)
	Matches(encodedHash, plain string) bool
}

// TokenIssuer signs access tokens. token.Codec satisfies it.
type TokenIssuer interface {
	Issue(subjectID int64, ttl time.Duration) (string, time.Time, error)
}

// Token is the result of a successful login.
type Token struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
	UserID      int64
}

// Authenticator implements credential login.
type Authenticator struct {
	users     UserLookup
	passwords PasswordChecker
	tokens    TokenIssuer
	ttl       time.Duration

	// dummyHash is verified when the identifier is unknown so that missing
	// users cost the same argon2 work as wrong passwords.
	dummyHash string
}

// NewAuthenticator wires an Authenticator. It derives a throwaway hash up front,
// which costs one argon2 evaluation.
func NewAuthenticator(users UserLookup, passwords PasswordChecker, tokens TokenIssuer, ttl time.Duration) (*Authenticator, error) {
	if users == nil || passwords == nil || tokens == nil {
		return nil, fmt.Errorf("access: nil dependency")
	}
	if ttl <= 0 {
		ttl = DefaultAccessTokenTTL
	}
	dummy, err := passwords.Hash("taskflow-timing-equalizer")
	if err != nil {
		return nil, fmt.Errorf("access: dummy hash: %w", err)
	}
	return &Authenticator{
		users:     users,
		passwords: passwords,
		tokens:    tokens,
		ttl:       ttl,
		dummyHash: dummy,
	}, nil
}

// TTL returns the access token lifetime.
func (a *Authenticator) TTL() time.Duration { return a.ttl }

// Login resolves identifier as a username, then as an email, and checks password.
// Every credential failure returns ErrInvalidCredentials; store failures other
// than not-found are returned wrapped.
func (a *Authenticator) Login(ctx context.Context, identifier, password string) (Token, error) {
	u, found, err := a.lookup(ctx, strings.TrimSpace(identifier))
	if err != nil {
		return Token{}, err
	}
	if !found {
		_ = a.passwords.Matches(a.dummyHash, password)
		return Token{}, ErrInvalidCredentials
	}
	if !a.passwords.Matches(u.HashedPassword, password) {
		return Token{}, ErrInvalidCredentials
	}
	if !u.IsActive {
		return Token{}, ErrInvalidCredentials
	}

	raw, exp, err := a.tokens.Issue(u.ID, a.ttl)
	if err != nil {
		return Token{}, fmt.Errorf("access: issue token: %w", err)
	}
	return Token{AccessToken: raw, TokenType: "bearer", ExpiresAt: exp, UserID: u.ID}, nil
}

func (a *Authenticator) lookup(ctx context.Context, identifier string) (identity.User, bool, error) {
	if identifier == "" {
		return identity.User{}, false, nil
	}

	u, err := a.users.GetByUsername(ctx, identifier)
	if err == nil {
		return u, true, nil
	}
	if !identity.IsNotFound(err) {
		return identity.User{}, false, fmt.Errorf("access: lookup username: %w", err)
	}

	u, err = a.users.GetByEmail(ctx, identifier)
	if err == nil {
		return u, true, nil
	}
	if !identity.IsNotFound(err) {
		return identity.User{}, false, fmt.Errorf("access: lookup email: %w", err)
	}
	return identity.User{}, false, nil
}
