package domain

import (
	"slices"
	"time"
)

type User struct {
	ID           string
	Username     string
	FullName     string
	Email        string
	PasswordHash string   // argon2id PHC string, or a legacy value awaiting rehash
	Roles        []string // Stored space-delimited
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasRole reports whether the user currently holds role.
func (u User) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}

// Credential returns the part of the user the auth core works with.
func (u User) Credential() Credential {
	return Credential{
		Subject:      u.ID,
		Identity:     u.Username,
		PasswordHash: u.PasswordHash,
		Roles:        u.Roles,
		Active:       u.Active,
	}
}
