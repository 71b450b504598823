// Package postgres persists content documents and combat event records in
// PostgreSQL using pgx v5.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/melee/internal/config"
)

// uniqueViolation is the SQLSTATE of a unique constraint violation.
const uniqueViolation = "23505"

// Pool is the connection pool shared by the content and event repositories.
type Pool struct {
	pool *pgxpool.Pool
}

// NewPool opens the combat database described by cfg and verifies it answers
// before returning.
//
// Precondition: cfg describes a reachable database with the schema migrated.
// Postcondition: Returns an open Pool, or a non-nil error with every
// connection released.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("postgres: parsing config for %s/%s: %w", cfg.Host, cfg.Name, err)
	}
	pc.MaxConns, pc.MinConns = cfg.MaxConns, cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("postgres: opening pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: first ping: %w", err)
	}
	return &Pool{pool: pool}, nil
}

// Health pings the database, giving up after timeout. The daemon's health
// service reports NOT_SERVING while this fails.
func (p *Pool) Health(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.pool.Ping(ctx)
}

// Close releases every connection. The Pool is unusable afterwards.
func (p *Pool) Close() { p.pool.Close() }

// DB returns the pgx pool the repositories query through.
func (p *Pool) DB() *pgxpool.Pool { return p.pool }

// isDuplicateKeyError reports whether err is a unique constraint violation,
// such as a second event record with the same ID.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
