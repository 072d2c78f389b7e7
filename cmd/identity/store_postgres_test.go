package identity

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/cmd/internal/dbx"
)

var userCols = []string{"id", "email", "username", "full_name", "hashed_password", "is_active", "is_superuser", "created_at", "updated_at"}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s, err := NewPostgresStore(db, WithSchema("app"))
	require.NoError(t, err)
	return s, mock
}

func TestNewPostgresStore_Validation(t *testing.T) {
	_, err := NewPostgresStore(nil)
	require.Error(t, err)

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = NewPostgresStore(db, WithSchema("bad-schema;"))
	require.Error(t, err)
}

func TestPostgresStore_GetByUsername_UsesNormalizedColumn(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .+ FROM "app"\."users" WHERE username_norm = \$1`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(int64(3), "a@example.com", "Alice", nil, "hash", true, false, now, now))

	u, err := s.GetByUsername(context.Background(), "  ALICE ")
	require.NoError(t, err)
	assert.Equal(t, int64(3), u.ID)
	assert.Equal(t, "Alice", u.Username)
	assert.Nil(t, u.FullName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetByID_NotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .+ WHERE id = \$1`).
		WithArgs(int64(9)).
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetByID(context.Background(), 9)
	require.True(t, IsNotFound(err), "got %v", err)
}

func TestPostgresStore_Create_ReturnsRow(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO "app"\."users"`).
		WithArgs("Bob@Example.com", "bob@example.com", "Bob", "bob", "hash", "Bob B", true, false, now).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(int64(1), "Bob@Example.com", "Bob", "Bob B", "hash", true, false, now, now))

	u, err := s.Create(context.Background(), NewUser{
		Email:          " Bob@Example.com ",
		Username:       "Bob",
		FullName:       strPtr("Bob B"),
		HashedPassword: "hash",
		IsActive:       true,
		Now:            now,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)
	require.NotNil(t, u.FullName)
	assert.Equal(t, "Bob B", *u.FullName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Create_ClassifiesUniqueViolation(t *testing.T) {
	cases := map[string]string{
		"uq_users_email_norm":    "email",
		"uq_users_username_norm": "username",
	}
	for constraint, field := range cases {
		t.Run(constraint, func(t *testing.T) {
			s, mock := newMockStore(t)
			mock.ExpectQuery(`INSERT INTO`).
				WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: constraint})

			_, err := s.Create(context.Background(), NewUser{Email: "x@y.z", Username: "x", HashedPassword: "h"})
			got, ok := ConflictField(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, field, got)
		})
	}
}

func TestPostgresStore_Update_NotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`UPDATE "app"\."users"`).WillReturnError(sql.ErrNoRows)

	_, err := s.Update(context.Background(), User{ID: 5, Email: "a@b.co", Username: "a", HashedPassword: "h"})
	require.True(t, IsNotFound(err))
}

func TestPostgresStore_Delete(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM "app"\."users" WHERE id = \$1`).
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.Delete(context.Background(), 4))

	mock.ExpectExec(`DELETE FROM`).
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.True(t, IsNotFound(s.Delete(context.Background(), 4)))

	mock.ExpectExec(`DELETE FROM`).WillReturnError(errors.New("conn reset"))
	require.Error(t, s.Delete(context.Background(), 4))
}

func TestPostgresStore_List_NormalizesPage(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`ORDER BY id OFFSET \$1 LIMIT \$2`).
		WithArgs(0, 100).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(int64(1), "a@x.io", "a", nil, "h", true, true, now, now).
			AddRow(int64(2), "b@x.io", "b", "Bee", "h", false, false, now, now))

	out, err := s.List(context.Background(), dbx.Page{Skip: -1, Limit: 500})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.True(t, out[0].IsSuperuser)
	assert.False(t, out[1].IsActive)
	require.NoError(t, mock.ExpectationsWereMet())
}
