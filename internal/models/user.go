package models

import "time"

// Account is a row in the PostgreSQL users table. Local accounts carry a
// bcrypt hash in Password; Google accounts carry a GoogleID. Every account
// has at least one of the two, enforced by a CHECK constraint.
type Account struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	Password  string    `json:"-"` // never serialize
	GoogleID  string    `json:"-"`
	Thumbnail string    `json:"thumbnail"`
	CreatedAt time.Time `json:"created_at"`
}

// IsLocal reports whether the account can log in with a password.
func (a *Account) IsLocal() bool {
	return a.Password != ""
}
