// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// Primary identity is email + password (bcrypt hash). Users can also sign in
// through GitHub OAuth, in which case GitHubID is set and PasswordHash stays
// empty — such accounts cannot log in with a password until one is set via
// the reset flow.
//
// WHY json:"-" ON THE SENSITIVE FIELDS?
// PasswordHash and the reset-token fields must never leave the server.
// Tagging them with `json:"-"` means encoding/json skips them entirely, so
// even if a handler accidentally serializes a *model.User, the hash and the
// reset token digest stay out of the response.
//
// RESET TOKEN FIELDS:
// ResetTokenHash holds the SHA-256 hex digest of the one-time reset token —
// never the raw value. ResetTokenExpires is the hard cutoff; a lookup at or
// past that instant must fail. Both are cleared together: either a user has
// a pending (hash, expiry) pair or neither field is set.
type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"` // stored lowercased + trimmed
	PasswordHash string `json:"-"`
	GitHubID     int64  `json:"-"` // 0 unless the account was linked via OAuth

	ResetTokenHash    string    `json:"-"`
	ResetTokenExpires time.Time `json:"-"` // zero value = no pending reset

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PublicUser is the subset of User that is safe to embed in API responses
// (login/register payloads, resolved event creators).
type PublicUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Public returns the API-safe view of the user.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email}
}
