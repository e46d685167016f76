package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/ovaphlow/pitchfork/service-signup/internal/identity/entity"
	"github.com/ovaphlow/pitchfork/service-signup/pkg/database"
)

var (
	ErrEmailTaken  = errors.New("email already registered")
	ErrUnavailable = errors.New("identity store unavailable")
)

// IdentityRepo provides data access for the identities table using sqlx.
type IdentityRepo struct {
	db *sqlx.DB
}

func NewIdentityRepo(db *sqlx.DB) *IdentityRepo { return &IdentityRepo{db: db} }

// EnsureTable creates the identities table if not exists (idempotent).
// This is a convenience for early development; prefer migrations in production.
func (r *IdentityRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE EXTENSION IF NOT EXISTS citext;
CREATE TABLE IF NOT EXISTS identities (
  id TEXT PRIMARY KEY,
  email CITEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  password_algo TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Create inserts a new identity. A duplicate email yields ErrEmailTaken.
func (r *IdentityRepo) Create(ctx context.Context, i *entity.Identity) error {
	const q = `INSERT INTO identities (id, email, password_hash, password_algo)
		VALUES (:id, :email, :password_hash, :password_algo)`
	if _, err := r.db.NamedExecContext(ctx, q, i); err != nil {
		return classify(err)
	}
	return nil
}

// GetByEmail returns an identity matched by email (case-insensitive due to citext) or sql.ErrNoRows.
func (r *IdentityRepo) GetByEmail(ctx context.Context, email string) (*entity.Identity, error) {
	const q = `SELECT id, email, password_hash, password_algo, created_at FROM identities WHERE email=$1`
	var row entity.Identity
	if err := r.db.GetContext(ctx, &row, q, email); err != nil {
		return nil, classify(err)
	}
	return &row, nil
}

// Delete removes an identity; deleting a missing row is not an error.
func (r *IdentityRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM identities WHERE id=$1`, id)
	return classify(err)
}

func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case database.IsUniqueViolation(err):
		return fmt.Errorf("%w: %w", ErrEmailTaken, err)
	case database.IsUnavailable(err):
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	default:
		return err
	}
}
