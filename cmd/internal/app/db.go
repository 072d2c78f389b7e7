package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"taskflow/cmd/internal/migrations"
)

// Database bundles the pgx pool with the database/sql handle the stores use.
// Both share the same connections; Close releases them once.
type Database struct {
	Pool *pgxpool.Pool
	SQL  *sql.DB
}

// OpenDatabase builds the pool, confirms connectivity, and applies migrations
// when cfg.RunMigrations is set. Every connection uses cfg.DBSchema as its
// search_path so unqualified migration statements land in that schema.
func OpenDatabase(ctx context.Context, cfg Config) (*Database, error) {
	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	db := &Database{Pool: pool, SQL: stdlib.OpenDBFromPool(pool)}

	if cfg.RunMigrations {
		if err := migrations.Up(ctx, db.SQL); err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}

// Close releases the sql handle and the pool.
func (d *Database) Close() {
	if d == nil {
		return
	}
	if d.SQL != nil {
		_ = d.SQL.Close()
	}
	if d.Pool != nil {
		d.Pool.Close()
	}
}

// NewDBPool builds a pgxpool from cfg and validates connectivity.
func NewDBPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db: parse url: %w", err)
	}

	if cfg.DBMaxConns > 0 {
		pcfg.MaxConns = cfg.DBMaxConns
	}
	if cfg.DBMinConns >= 0 {
		pcfg.MinConns = cfg.DBMinConns
	}
	if cfg.DBSchema != "" {
		pcfg.ConnConfig.RuntimeParams["search_path"] = cfg.DBSchema
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("db: open pool: %w", err)
	}

	if err := PingDB(ctx, pool, 3*time.Second); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db: ping: %w", err)
	}

	return pool, nil
}

// PingDB checks if we can acquire a connection within timeout.
func PingDB(parent context.Context, pool *pgxpool.Pool, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()
	return conn.Ping(ctx)
}
