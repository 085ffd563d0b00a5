// Package postgres implements account resolution on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/socialgate/internal/store"
)

// Store resolves accounts against the app_user/identity tables.
type Store struct {
	pool *pgxpool.Pool
}

// New connects a pool against the given DSN.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewWithPool wraps an existing pool (tests, shared wiring).
func NewWithPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the pool.
func (s *Store) Close() { s.pool.Close() }

// Ping reports database reachability, for readiness checks.
func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// LoginOrRegister upserts app_user by email and links the provider
// identity. The identity link is informative; resolution is keyed by
// email so a returning user keeps their account regardless of provider.
func (s *Store) LoginOrRegister(ctx context.Context, email, fullname, provider string) (store.Account, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return store.Account{}, store.ErrEmailRequired
	}

	var (
		userID  string
		created bool
	)

	err := s.pool.QueryRow(ctx,
		`SELECT id FROM app_user WHERE email=$1 LIMIT 1`, email).Scan(&userID)
	switch {
	case err == nil:
		if fullname != "" {
			_, _ = s.pool.Exec(ctx,
				`UPDATE app_user SET full_name=$1 WHERE id=$2 AND (full_name IS NULL OR full_name='')`,
				fullname, userID)
		}
	case errors.Is(err, pgx.ErrNoRows):
		if err := s.pool.QueryRow(ctx,
			`INSERT INTO app_user (email, full_name, status) VALUES ($1,$2,'active') RETURNING id`,
			email, fullname).Scan(&userID); err != nil {
			return store.Account{}, fmt.Errorf("%w: insert app_user: %v", store.ErrResolveFailed, err)
		}
		created = true
	default:
		return store.Account{}, fmt.Errorf("%w: lookup app_user: %v", store.ErrResolveFailed, err)
	}

	if _, err := s.pool.Exec(ctx, `
INSERT INTO identity (user_id, provider, email)
VALUES ($1,$2,$3)
ON CONFLICT (user_id, provider) DO UPDATE SET email=EXCLUDED.email`,
		userID, provider, email); err != nil {
		return store.Account{}, fmt.Errorf("%w: link identity: %v", store.ErrResolveFailed, err)
	}

	return store.Account{ID: userID, Created: created}, nil
}
