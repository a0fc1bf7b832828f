package models

import (
	"time"

	"github.com/google/uuid"
)

// OTPType distinguishes what a one-time code proves.
type OTPType string

const (
	// OTPTypeEmailVerification gates the emailVerified flip after registration
	OTPTypeEmailVerification OTPType = "EMAIL_VERIFICATION"
	// OTPTypePasswordReset gates a password change
	OTPTypePasswordReset OTPType = "PASSWORD_RESET"
)

// OTPState is the lifecycle state of an OTP record at a point in time.
// Per (email, type) pair the cycle is NONE -> ACTIVE -> CONSUMED | EXPIRED;
// only generating a brand-new record restarts it.
type OTPState string

const (
	// OTPStateActive means the code can still satisfy a verification check
	OTPStateActive OTPState = "ACTIVE"
	// OTPStateConsumed means the code was verified once; consumption is terminal
	OTPStateConsumed OTPState = "CONSUMED"
	// OTPStateExpired means the code outlived its expiry without being consumed
	OTPStateExpired OTPState = "EXPIRED"
)

// OTPRecord is a single-use, time-bounded verification code bound to an email.
type OTPRecord struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Code      string    `json:"-"`
	Type      OTPType   `json:"type"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// State computes the record's lifecycle state at the given instant.
// Consumption is terminal and takes precedence over expiry.
func (r *OTPRecord) State(now time.Time) OTPState {
	if r.Verified {
		return OTPStateConsumed
	}
	if now.After(r.ExpiresAt) {
		return OTPStateExpired
	}
	return OTPStateActive
}
