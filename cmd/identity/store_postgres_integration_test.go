package identity

import (
	"context"
	"testing"
	"time"

	"taskflow/cmd/internal/dbx"
	"taskflow/cmd/internal/dbx/dbtest"
)

func mustIntegrationStore(t *testing.T) *PostgresStore {
	t.Helper()
	db, schema := dbtest.Open(t)
	s, err := NewPostgresStore(db, WithSchema(schema))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func TestPostgresStore_Integration_ConflictUsername_CaseInsensitive(t *testing.T) {
	t.Parallel()
	s := mustIntegrationStore(t)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if _, err := s.Create(ctx, NewUser{Email: "one@example.com", Username: "Navid", HashedPassword: "h1", IsActive: true}); err != nil {
		t.Fatalf("create user 1: %v", err)
	}
	_, err := s.Create(ctx, NewUser{Email: "two@example.com", Username: "nAvId", HashedPassword: "h2", IsActive: true})
	if field, ok := ConflictField(err); !ok || field != "username" {
		t.Fatalf("expected username conflict, got: %v", err)
	}
}

func TestPostgresStore_Integration_ConflictEmail_CaseInsensitive(t *testing.T) {
	t.Parallel()
	s := mustIntegrationStore(t)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if _, err := s.Create(ctx, NewUser{Email: "User@Example.com", Username: "u1", HashedPassword: "h"}); err != nil {
		t.Fatalf("create user 1: %v", err)
	}
	_, err := s.Create(ctx, NewUser{Email: "user@example.COM", Username: "u2", HashedPassword: "h"})
	if field, ok := ConflictField(err); !ok || field != "email" {
		t.Fatalf("expected email conflict, got: %v", err)
	}
}

func TestPostgresStore_Integration_CRUD(t *testing.T) {
	t.Parallel()
	s := mustIntegrationStore(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	fn := "Ada Lovelace"
	u, err := s.Create(ctx, NewUser{Email: "ada@example.com", Username: "ada", FullName: &fn, HashedPassword: "h", IsActive: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.ID <= 0 || u.CreatedAt.IsZero() {
		t.Fatalf("unexpected created row: %+v", u)
	}

	byEmail, err := s.GetByEmail(ctx, "ADA@example.com")
	if err != nil || byEmail.ID != u.ID {
		t.Fatalf("get by email: %v (%+v)", err, byEmail)
	}

	u.IsActive = false
	u.Username = "ada2"
	u.UpdatedAt = time.Now().UTC()
	upd, err := s.Update(ctx, u)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if upd.IsActive || upd.Username != "ada2" {
		t.Fatalf("update not applied: %+v", upd)
	}

	list, err := s.List(ctx, dbx.Page{})
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v (%d rows)", err, len(list))
	}

	if err := s.Delete(ctx, u.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetByID(ctx, u.ID); !IsNotFound(err) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}
