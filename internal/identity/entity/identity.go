package entity

import "time"

// Identity represents a row in the `identities` table owned by the local provider.
// The plaintext password never reaches this struct.
type Identity struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	PasswordAlgo string    `db:"password_algo"`
	CreatedAt    time.Time `db:"created_at"`
}
