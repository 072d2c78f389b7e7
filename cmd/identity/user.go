package identity

import (
	"context"
	"time"

	"taskflow/cmd/internal/dbx"
)

// Column limits shared by validation and the schema.
const (
	MaxEmailLen    = 255
	MaxUsernameLen = 100
	MaxFullNameLen = 255
)

// User is TaskFlow's security principal.
// HashedPassword is never serialized by the HTTP layer.
type User struct {
	ID             int64
	Email          string
	Username       string
	FullName       *string
	HashedPassword string
	IsActive       bool
	IsSuperuser    bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewUser is the store-level input for Create. The password is already hashed.
type NewUser struct {
	Email          string
	Username       string
	FullName       *string
	HashedPassword string
	IsActive       bool
	IsSuperuser    bool
	Now            time.Time
}

// Store is the identity persistence boundary.
//
// Lookups by username and email compare normalized values. Create and Update
// return ConflictError{Field: "email"|"username"} on uniqueness violations, and
// missing rows surface as NotFoundError.
type Store interface {
	GetByID(ctx context.Context, id int64) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	Create(ctx context.Context, in NewUser) (User, error)
	Update(ctx context.Context, u User) (User, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, page dbx.Page) ([]User, error)
}
