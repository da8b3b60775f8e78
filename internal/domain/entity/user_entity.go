package entity

import (
	"time"
)

// User is the aggregate root for the credential domain.
// PasswordHash holds a bcrypt hash, never the plaintext.
//
// Scopes is only populated when the caller asked the store for grants.
// An inactive user cannot authenticate until an administrator activates it.
type User struct {
	ID           string
	Email        string
	FullName     string
	PasswordHash string
	IsActive     bool
	Scopes       []string
	CreatedAt    time.Time
}

// UserProfile is the view of a User that is safe to return to clients.
type UserProfile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	IsActive  bool      `json:"is_active"`
	Scopes    []string  `json:"scopes"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile strips the password hash.
func (u *User) Profile() *UserProfile {
	scopes := make([]string, len(u.Scopes))
	copy(scopes, u.Scopes)
	return &UserProfile{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		IsActive:  u.IsActive,
		Scopes:    scopes,
		CreatedAt: u.CreatedAt,
	}
}
