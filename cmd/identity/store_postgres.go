package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskflow/cmd/internal/dbx"
)

// PostgresStore implements Store over PostgreSQL through database/sql.
//
// The *sql.DB is owned by the caller; the store never closes it.
// Schema and table identifiers are quoted with dbx.Ident.
type PostgresStore struct {
	db     *sql.DB
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

// WithSchema sets the schema holding the users table (default "public").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		if err := dbx.ValidSchema(schema); err != nil {
			return fmt.Errorf("identity: %w", err)
		}
		s.schema = strings.TrimSpace(schema)
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(db *sql.DB, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{db: db, schema: "public"}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.db == nil {
		return nil, fmt.Errorf("identity: nil db")
	}
	return st, nil
}

const userColumns = `id, email, username, full_name, hashed_password, is_active, is_superuser, created_at, updated_at`

func (s *PostgresStore) users() string { return dbx.Ident(s.schema, "users") }

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var (
		u        User
		fullName sql.NullString
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.Username, &fullName, &u.HashedPassword,
		&u.IsActive, &u.IsSuperuser, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return User{}, err
	}
	if fullName.Valid {
		fn := fullName.String
		u.FullName = &fn
	}
	return u, nil
}

func (s *PostgresStore) getOne(ctx context.Context, op, where string, arg any) (User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM `+s.users()+` WHERE `+where+` = $1`, arg)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, NotFoundError{Op: op, Resource: "user"}
		}
		return User{}, err
	}
	return u, nil
}

// GetByID loads a user by primary key.
func (s *PostgresStore) GetByID(ctx context.Context, id int64) (User, error) {
	return s.getOne(ctx, "identity.GetByID", "id", id)
}

// GetByUsername loads a user by normalized username.
func (s *PostgresStore) GetByUsername(ctx context.Context, username string) (User, error) {
	return s.getOne(ctx, "identity.GetByUsername", "username_norm", NormalizeUsername(username))
}

// GetByEmail loads a user by normalized email.
func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (User, error) {
	return s.getOne(ctx, "identity.GetByEmail", "email_norm", NormalizeEmail(email))
}

// Create inserts a user and returns it with its assigned id.
func (s *PostgresStore) Create(ctx context.Context, in NewUser) (User, error) {
	const op = "identity.Create"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	if strings.TrimSpace(in.HashedPassword) == "" {
		return User{}, invalid(op, "hashed password is required")
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	email := strings.TrimSpace(in.Email)
	username := strings.TrimSpace(in.Username)

	row := s.db.QueryRowContext(ctx,
		`INSERT INTO `+s.users()+` (
		     email, email_norm, username, username_norm, hashed_password,
		     full_name, is_active, is_superuser, created_at, updated_at
		   ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		 RETURNING `+userColumns,
		email, NormalizeEmail(email),
		username, NormalizeUsername(username),
		in.HashedPassword, trimPtr(in.FullName),
		in.IsActive, in.IsSuperuser, now,
	)

	u, err := scanUser(row)
	if err != nil {
		if field, ok := classifyUserUnique(err); ok {
			return User{}, ConflictError{Op: op, Field: field}
		}
		return User{}, err
	}
	return u, nil
}

// Update persists every mutable column of u.
func (s *PostgresStore) Update(ctx context.Context, u User) (User, error) {
	const op = "identity.Update"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	now := u.UpdatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	row := s.db.QueryRowContext(ctx,
		`UPDATE `+s.users()+`
		    SET email = $1, email_norm = $2,
		        username = $3, username_norm = $4,
		        hashed_password = $5, full_name = $6,
		        is_active = $7, is_superuser = $8,
		        updated_at = $9
		  WHERE id = $10
		 RETURNING `+userColumns,
		u.Email, NormalizeEmail(u.Email),
		u.Username, NormalizeUsername(u.Username),
		u.HashedPassword, trimPtr(u.FullName),
		u.IsActive, u.IsSuperuser, now, u.ID,
	)

	out, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, NotFoundError{Op: op, Resource: "user"}
		}
		if field, ok := classifyUserUnique(err); ok {
			return User{}, ConflictError{Op: op, Field: field}
		}
		return User{}, err
	}
	return out, nil
}

// Delete removes a user; owned tasks go with it (ON DELETE CASCADE).
func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+s.users()+` WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return NotFoundError{Op: "identity.Delete", Resource: "user"}
	}
	return nil
}

// List returns users ordered by id.
func (s *PostgresStore) List(ctx context.Context, page dbx.Page) ([]User, error) {
	page = page.Normalize()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM `+s.users()+` ORDER BY id OFFSET $1 LIMIT $2`,
		page.Skip, page.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func classifyUserUnique(err error) (field string, ok bool) {
	c, ok := dbx.UniqueViolation(err)
	if !ok {
		return "", false
	}
	switch {
	case c == "uq_users_username_norm", strings.Contains(c, "username"):
		return "username", true
	case c == "uq_users_email_norm", strings.Contains(c, "email"):
		return "email", true
	default:
		return "unique", true
	}
}
