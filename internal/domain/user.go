// Package domain contains core domain types for the assessor client.
package domain

import (
	"time"
)

// User is the server-owned account snapshot held by the session manager.
// It is never mutated locally; a fresh copy arrives with every login,
// register or current-user fetch.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// DisplayName returns the name to greet the user with, falling back to the
// email address when the profile has no full name.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}
