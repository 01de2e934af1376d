package models

import "time"

// Role determines a user's capability set. Roles are assigned by admins and
// never change as a side effect of workflow operations.
type Role string

const (
	RoleUser    Role = "user"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// ValidRole reports whether r is one of the three known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleUser, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// User is an account record. PasswordHash and the reset fields never leave
// the server.
type User struct {
	ID           string     `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	Email        string     `json:"email" db:"email"`
	Role         Role       `json:"role" db:"role"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Active       bool       `json:"active" db:"active"`
	ResetToken   *string    `json:"-" db:"reset_token"`
	ResetExpires *time.Time `json:"-" db:"reset_expires"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
}

// Ref returns the lightweight reference embedded in request records.
func (u *User) Ref() UserRef {
	return UserRef{ID: u.ID, Name: u.Name}
}
