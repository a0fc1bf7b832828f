package models

import (
	"time"

	"github.com/google/uuid"
)

// AuthProvider identifies the trust source an account originated from.
type AuthProvider string

const (
	// ProviderLocal is an email+password account registered directly with us
	ProviderLocal AuthProvider = "LOCAL"
	// ProviderGoogle is a federated Google OAuth2 account
	ProviderGoogle AuthProvider = "GOOGLE"
)

// User represents an identity in the system. At most one user exists per
// email address regardless of provider; emails are stored lower-cased.
type User struct {
	ID             uuid.UUID    `json:"id"`
	Email          string       `json:"email"`
	FirstName      string       `json:"first_name"`
	LastName       string       `json:"last_name"`
	ProfilePicture *string      `json:"profile_picture,omitempty"`
	PasswordHash   *string      `json:"-"`
	Provider       AuthProvider `json:"provider"`
	ProviderID     *string      `json:"provider_id,omitempty"`
	EmailVerified  bool         `json:"email_verified"`
	Enabled        bool         `json:"enabled"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// HasPassword reports whether the account can authenticate with a password.
// An account upgraded from LOCAL to a federated provider keeps its password
// hash and stays dual-capable.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}
