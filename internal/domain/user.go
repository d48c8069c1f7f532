package domain

import "time"

// User represents a registered account.
// AuthToken and TokenExpiresAt are nil when the user is signed out; they
// are always written together so a token can never be half-valid.
type User struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	PasswordHash   string     `json:"-"`
	AuthToken      *string    `json:"-"`
	TokenExpiresAt *time.Time `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Touch updates the UpdatedAt timestamp.
func (u *User) Touch() {
	u.UpdatedAt = time.Now()
}

// InitTimestamps sets CreatedAt and UpdatedAt for a new user.
func (u *User) InitTimestamps() {
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now
}

// TokenValid reports whether a stored token is usable at the given instant.
// A token whose expiry is at or before now is treated as absent even if it
// is still physically stored. Both the authentication path and the sweep
// job derive their expiry semantics from this single function.
func TokenValid(token *string, expiresAt *time.Time, now time.Time) bool {
	if token == nil || *token == "" {
		return false
	}
	if expiresAt == nil {
		return false
	}
	return expiresAt.After(now)
}
