package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"taskflow/cmd/internal/dbx"
)

// RegisterInput describes a new account. IsSuperuser is only set by the seeder.
type RegisterInput struct {
	Email       string
	Username    string
	Password    string
	FullName    *string
	IsSuperuser bool
}

// UpdateInput carries a partial update; nil fields are left unchanged.
// A non-nil Password is validated against the policy and re-hashed.
type UpdateInput struct {
	Email    *string
	Username *string
	FullName *string
	Password *string
	IsActive *bool
}

// Service implements account use cases over a Store.
type Service struct {
	store  Store
	hasher Hasher
	now    func() time.Time
}

// NewService wires a Service. Both collaborators are required.
func NewService(store Store, hasher Hasher) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("identity: nil store")
	}
	if hasher == nil {
		return nil, fmt.Errorf("identity: nil hasher")
	}
	return &Service{store: store, hasher: hasher, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Store exposes the underlying store for read paths (login, guard).
func (s *Service) Store() Store { return s.store }

// Register creates an active account. Email is checked before username so a
// request that clashes on both reports the email.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	const op = "identity.Register"

	if err := validateAccount(op, in.Email, in.Username, in.FullName); err != nil {
		return User{}, err
	}
	if err := s.hasher.Validate(in.Password); err != nil {
		return User{}, invalid(op, passwordPolicyMessage(err))
	}
	if err := s.ensureFree(ctx, op, in.Email, in.Username, 0); err != nil {
		return User{}, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return User{}, fmt.Errorf("%s: hash: %w", op, err)
	}

	return s.store.Create(ctx, NewUser{
		Email:          in.Email,
		Username:       in.Username,
		FullName:       in.FullName,
		HashedPassword: hash,
		IsActive:       true,
		IsSuperuser:    in.IsSuperuser,
		Now:            s.now(),
	})
}

// Get loads a user by id.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.store.GetByID(ctx, id)
}

// Update applies a partial update to user id.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (User, error) {
	const op = "identity.Update"

	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}

	if in.Email != nil {
		u.Email = strings.TrimSpace(*in.Email)
	}
	if in.Username != nil {
		u.Username = strings.TrimSpace(*in.Username)
	}
	if in.FullName != nil {
		u.FullName = in.FullName
	}
	if err := validateAccount(op, u.Email, u.Username, u.FullName); err != nil {
		return User{}, err
	}

	if in.Email != nil || in.Username != nil {
		if err := s.ensureFree(ctx, op, u.Email, u.Username, u.ID); err != nil {
			return User{}, err
		}
	}

	if in.Password != nil {
		if err := s.hasher.Validate(*in.Password); err != nil {
			return User{}, invalid(op, passwordPolicyMessage(err))
		}
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return User{}, fmt.Errorf("%s: hash: %w", op, err)
		}
		u.HashedPassword = hash
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}

	u.UpdatedAt = s.now()
	return s.store.Update(ctx, u)
}

// SetActive toggles is_active on user id.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) (User, error) {
	return s.Update(ctx, id, UpdateInput{IsActive: &active})
}

// Delete removes user id.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.Delete(ctx, id)
}

// List returns a page of users ordered by id.
func (s *Service) List(ctx context.Context, page dbx.Page) ([]User, error) {
	return s.store.List(ctx, page)
}

// ensureFree reports a ConflictError when email or username belongs to a user
// other than selfID. The store's unique constraints still catch races.
func (s *Service) ensureFree(ctx context.Context, op, email, username string, selfID int64) error {
	if u, err := s.store.GetByEmail(ctx, email); err == nil {
		if u.ID != selfID {
			return ConflictError{Op: op, Field: "email"}
		}
	} else if !IsNotFound(err) {
		return err
	}

	if u, err := s.store.GetByUsername(ctx, username); err == nil {
		if u.ID != selfID {
			return ConflictError{Op: op, Field: "username"}
		}
	} else if !IsNotFound(err) {
		return err
	}
	return nil
}
