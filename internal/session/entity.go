package session

import "time"

// Session is the result of a successful password authentication.
type Session struct {
	Token     string    `json:"token"`
	Subject   string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}
