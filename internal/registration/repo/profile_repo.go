package repo

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/ovaphlow/pitchfork/service-signup/internal/registration/entity"
)

// Collection is a handle on one role's profile table. The zero value is invalid;
// obtain one through CollectionFor.
type Collection struct {
	role  entity.Role
	table string
}

func (c Collection) Role() entity.Role { return c.role }
func (c Collection) String() string    { return c.table }

var collections = map[entity.Role]Collection{
	entity.RoleLearner: {role: entity.RoleLearner, table: "learner"},
	entity.RoleProctor: {role: entity.RoleProctor, table: "proctor"},
}

// CollectionFor maps a role to its profile table.
func CollectionFor(role entity.Role) (Collection, error) {
	c, ok := collections[role]
	if !ok {
		return Collection{}, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	return c, nil
}

// IDSource hands out primary keys for new profiles.
type IDSource interface {
	Next() int64
}

type ProfileRepo struct {
	db  *sqlx.DB
	ids IDSource
}

func NewProfileRepo(db *sqlx.DB, ids IDSource) *ProfileRepo { return &ProfileRepo{db: db, ids: ids} }

// EnsureTable creates one profile table per role. Requires the institutions table.
func (r *ProfileRepo) EnsureTable(ctx context.Context) error {
	for _, role := range entity.Roles {
		c := collections[role]
		ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
  id BIGINT PRIMARY KEY,
  identity_id TEXT NOT NULL,
  institution_id BIGINT NOT NULL REFERENCES institutions(id),
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  email TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_%[1]s_identity_id ON %[1]s(identity_id);
CREATE INDEX IF NOT EXISTS idx_%[1]s_institution_id ON %[1]s(institution_id);
`, c.table)
		if _, err := r.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("ensure %s: %w", c.table, err)
		}
	}
	return nil
}

// Insert writes p into the collection's table and returns its new id.
func (r *ProfileRepo) Insert(ctx context.Context, c Collection, p *entity.Profile) (int64, error) {
	if c.table == "" {
		return 0, ErrUnknownRole
	}
	if p.ID == 0 {
		p.ID = r.ids.Next()
	}
	// table name comes from the closed collections map, never from input
	q := `INSERT INTO ` + c.table + ` (id, identity_id, institution_id, first_name, last_name, email)
		VALUES (:id, :identity_id, :institution_id, :first_name, :last_name, :email)`
	if _, err := r.db.NamedExecContext(ctx, q, p); err != nil {
		return 0, classify(err)
	}
	return p.ID, nil
}
