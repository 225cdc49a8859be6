// Package database opens the PostgreSQL pool shared by the account, consent,
// request and audit stores. The pgx stdlib driver is used so the stores stay
// on database/sql.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Pool sizing for the consent service. Writes are small and bursty: a minor
// registration fans out to at most five rows, so a modest pool suffices.
const (
	maxOpenConns    = 20
	maxIdleConns    = 4
	connMaxLifetime = 30 * time.Minute
	connectTimeout  = 5 * time.Second
)

// Pool wraps the *sql.DB handed to the postgres-backed stores.
type Pool struct {
	db *sql.DB
}

// Connect opens the pool and verifies the database is reachable. Backend
// selection happens in cmd/server; by the time Connect is called a URL is
// required.
func Connect(ctx context.Context, url string) (*Pool, error) {
	if url == "" {
		return nil, fmt.Errorf("postgres URL is required")
	}

	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{db: db}, nil
}

// DB returns the underlying *sql.DB the stores are built on.
func (p *Pool) DB() *sql.DB {
	return p.db
}

// Health reports whether PostgreSQL is reachable. Registered as the
// "postgres" readiness check.
func (p *Pool) Health(ctx context.Context) error {
	if p == nil || p.db == nil {
		return fmt.Errorf("database not configured")
	}
	return p.db.PingContext(ctx)
}

// Close closes the pool.
func (p *Pool) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}
