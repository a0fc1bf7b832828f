package auth

import "errors"

// Domain errors surfaced by the auth flows. Each is terminal to its flow;
// anything else returned by a flow is an infrastructure failure from the
// store and is wrapped rather than mapped onto this taxonomy.
var (
	// ErrEmailTaken means registration was attempted for an email that already has an account
	ErrEmailTaken = errors.New("email is already in use")
	// ErrUserNotFound means no account capable of the requested flow exists for the email
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailNotVerified means a password login was attempted before email verification
	ErrEmailNotVerified = errors.New("email not verified")
	// ErrAlreadyVerified means a verification resend was requested for a verified account
	ErrAlreadyVerified = errors.New("email is already verified")
	// ErrBadCredentials means the supplied password did not match
	ErrBadCredentials = errors.New("bad credentials")
	// ErrInvalidOTP means the code was wrong, expired, or already consumed
	ErrInvalidOTP = errors.New("invalid or expired otp")
	// ErrUnsupportedProvider means a federated assertion named a provider we do not support
	ErrUnsupportedProvider = errors.New("unsupported oauth provider")
)
