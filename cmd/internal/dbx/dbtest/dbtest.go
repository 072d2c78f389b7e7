// Package dbtest provisions throwaway PostgreSQL schemas for integration tests.
//
// Tests are opt-in: without TASKFLOW_DATABASE_URL they skip. Outside CI an
// unreachable server also skips, keeping local runs fast.
package dbtest

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"taskflow/cmd/internal/migrations"
)

// EnvDatabaseURL names the variable that enables integration tests.
const EnvDatabaseURL = "TASKFLOW_DATABASE_URL"

// Open creates an isolated schema, applies migrations into it, and returns a
// *sql.DB whose search_path points at that schema. Everything is dropped on cleanup.
func Open(t *testing.T) (*sql.DB, string) {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv(EnvDatabaseURL))
	if dsn == "" {
		t.Skip(EnvDatabaseURL + " not set; skipping postgres integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	admin, err := pgxpool.New(ctx, dsn)
	if err != nil {
		skipOrFail(t, err, "open admin pool")
	}
	if err := admin.Ping(ctx); err != nil {
		admin.Close()
		skipOrFail(t, err, "ping")
	}

	schema := "taskflow_it_" + randomSuffix(t)
	if _, err := admin.Exec(ctx, "CREATE SCHEMA "+pgx.Identifier{schema}.Sanitize()); err != nil {
		admin.Close()
		t.Fatalf("create schema: %v", err)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		admin.Close()
		t.Fatalf("parse config: %v", err)
	}
	cfg.ConnConfig.RuntimeParams["search_path"] = schema

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		admin.Close()
		t.Fatalf("open schema pool: %v", err)
	}
	db := stdlib.OpenDBFromPool(pool)

	t.Cleanup(func() {
		_ = db.Close()
		pool.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if _, err := admin.Exec(ctx, "DROP SCHEMA IF EXISTS "+pgx.Identifier{schema}.Sanitize()+" CASCADE"); err != nil {
			t.Logf("drop schema %s: %v", schema, err)
		}
		admin.Close()
	})

	if err := migrations.Up(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db, schema
}

func skipOrFail(t *testing.T, err error, what string) {
	t.Helper()
	if shouldSkip(err) {
		t.Skipf("postgres unreachable (%s): %v", what, err)
	}
	t.Fatalf("%s: %v", what, err)
}

func shouldSkip(err error) bool {
	if err == nil || os.Getenv("CI") != "" {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection refused", "context deadline exceeded", "timeout", "dial tcp", "no such host"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func randomSuffix(t *testing.T) string {
	t.Helper()
	var b [6]byte
	if _, err := rand.Read(b[:]); err != nil {
		t.Fatalf("rand: %v", err)
	}
	return hex.EncodeToString(b[:])
}
