package auth

import (
	"fmt"
	"time"

	"github.com/foodkeeper/foodkeeper/internal/models"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// TokenIssuer mints signed, time-limited bearer tokens. It performs no
// validation of its own: callers must have already checked that the
// identity is enabled and, for password logins, verified and matching.
// Minting never mutates stored state.
type TokenIssuer struct {
	key      []byte
	issuer   string
	lifetime time.Duration
	now      func() time.Time
}

// NewTokenIssuer creates a token issuer signing with the given HS256 key.
func NewTokenIssuer(key []byte, issuer string, lifetime time.Duration) *TokenIssuer {
	return &TokenIssuer{
		key:      key,
		issuer:   issuer,
		lifetime: lifetime,
		now:      time.Now,
	}
}

// Issue mints a token binding the identity's email as subject.
func (i *TokenIssuer) Issue(user *models.User) (string, error) {
	now := i.now()

	token, err := jwt.NewBuilder().
		Subject(user.Email).
		Issuer(i.issuer).
		IssuedAt(now).
		Expiration(now.Add(i.lifetime)).
		Claim("uid", user.ID.String()).
		Build()
	if err != nil {
		return "", fmt.Errorf("failed to build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, i.key))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return string(signed), nil
}

// Verify parses and validates a bearer token, returning the subject email.
func (i *TokenIssuer) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse([]byte(tokenString),
		jwt.WithKey(jwa.HS256, i.key),
		jwt.WithValidate(true),
		jwt.WithIssuer(i.issuer),
		jwt.WithClock(jwt.ClockFunc(i.now)),
	)
	if err != nil {
		return "", fmt.Errorf("failed to parse/verify token: %w", err)
	}

	if token.Subject() == "" {
		return "", fmt.Errorf("token missing subject claim")
	}

	return token.Subject(), nil
}
