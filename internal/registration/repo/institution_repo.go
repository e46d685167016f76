package repo

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/ovaphlow/pitchfork/service-signup/internal/registration/entity"
)

// FallbackInstitutionName names the row seeded for the fallback id.
const FallbackInstitutionName = "Unaffiliated"

type InstitutionRepo struct {
	db *sqlx.DB
}

func NewInstitutionRepo(db *sqlx.DB) *InstitutionRepo { return &InstitutionRepo{db: db} }

// EnsureTable creates the institutions table and seeds the fallback row so
// profiles linked to it satisfy the foreign key.
func (r *InstitutionRepo) EnsureTable(ctx context.Context, fallbackID int64) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS institutions (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_institutions_name ON institutions(name);
`
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO institutions (id, name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
		fallbackID, FallbackInstitutionName); err != nil {
		return err
	}
	// keep the serial ahead of the explicitly seeded id
	_, err := r.db.ExecContext(ctx,
		`SELECT setval(pg_get_serial_sequence('institutions', 'id'), GREATEST((SELECT MAX(id) FROM institutions), 1))`)
	return err
}

// FindByName returns every institution whose name matches exactly, lowest id first.
// An empty slice means no match.
func (r *InstitutionRepo) FindByName(ctx context.Context, name string) ([]entity.Institution, error) {
	const q = `SELECT id, name FROM institutions WHERE name = $1 ORDER BY id`
	var rows []entity.Institution
	if err := r.db.SelectContext(ctx, &rows, q, name); err != nil {
		return nil, classify(err)
	}
	return rows, nil
}
