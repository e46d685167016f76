package entity

import "time"

// Institution is a row of the `institutions` table. Read only for signup.
type Institution struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

// Profile is the role specific record linking an identity to an institution.
// Every role collection shares this shape.
type Profile struct {
	ID            int64     `db:"id"`
	IdentityID    string    `db:"identity_id"`
	InstitutionID int64     `db:"institution_id"`
	FirstName     string    `db:"first_name"`
	LastName      string    `db:"last_name"`
	Email         string    `db:"email"`
	CreatedAt     time.Time `db:"created_at"`
}

// OrphanIdentity marks an identity whose profile could not be created.
type OrphanIdentity struct {
	IdentityID string    `db:"identity_id" json:"identity_id"`
	Email      string    `db:"email" json:"email"`
	Role       Role      `db:"role" json:"role"`
	Reason     string    `db:"reason" json:"reason"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
