package repo

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/ovaphlow/pitchfork/service-signup/internal/registration/entity"
)

// OrphanRepo records identities left without a profile after a failed signup.
type OrphanRepo struct {
	db *sqlx.DB
}

func NewOrphanRepo(db *sqlx.DB) *OrphanRepo { return &OrphanRepo{db: db} }

func (r *OrphanRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS orphan_identities (
  identity_id TEXT PRIMARY KEY,
  email TEXT NOT NULL,
  role TEXT NOT NULL,
  reason TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Record marks an identity as orphaned. Recording the same identity twice is a no-op.
func (r *OrphanRepo) Record(ctx context.Context, o *entity.OrphanIdentity) error {
	const q = `INSERT INTO orphan_identities (identity_id, email, role, reason)
		VALUES ($1, $2, $3, $4) ON CONFLICT (identity_id) DO NOTHING`
	_, err := r.db.ExecContext(ctx, q, o.IdentityID, o.Email, string(o.Role), o.Reason)
	return classify(err)
}

// List returns orphaned identities, oldest first.
func (r *OrphanRepo) List(ctx context.Context, limit int) ([]entity.OrphanIdentity, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT identity_id, email, role, reason, created_at FROM orphan_identities ORDER BY created_at LIMIT $1`
	var rows []entity.OrphanIdentity
	if err := r.db.SelectContext(ctx, &rows, q, limit); err != nil {
		return nil, classify(err)
	}
	return rows, nil
}
