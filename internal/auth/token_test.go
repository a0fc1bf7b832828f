package auth

import (
	"testing"
	"time"

	"github.com/foodkeeper/foodkeeper/internal/models"
	"github.com/google/uuid"
)

func testUser() *models.User {
	return &models.User{
		ID:            uuid.New(),
		Email:         "jane@example.com",
		FirstName:     "Jane",
		EmailVerified: true,
		Enabled:       true,
	}
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	t.Parallel()
	issuer := NewTokenIssuer([]byte("0123456789abcdef0123456789abcdef"), "foodkeeper", time.Hour)

	token, err := issuer.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	subject, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if subject != "jane@example.com" {
		t.Errorf("subject = %q, want jane@example.com", subject)
	}
}

func TestTokenIssuer_RejectsForeignKey(t *testing.T) {
	t.Parallel()
	issuer := NewTokenIssuer([]byte("0123456789abcdef0123456789abcdef"), "foodkeeper", time.Hour)
	other := NewTokenIssuer([]byte("ffffffffffffffffffffffffffffffff"), "foodkeeper", time.Hour)

	token, err := issuer.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if _, err := other.Verify(token); err == nil {
		t.Error("Verify() accepted a token signed with a different key")
	}
}

func TestTokenIssuer_RejectsWrongIssuer(t *testing.T) {
	t.Parallel()
	key := []byte("0123456789abcdef0123456789abcdef")
	issuer := NewTokenIssuer(key, "foodkeeper", time.Hour)
	other := NewTokenIssuer(key, "someone-else", time.Hour)

	token, err := issuer.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if _, err := other.Verify(token); err == nil {
		t.Error("Verify() accepted a token from a different issuer")
	}
}

func TestTokenIssuer_RejectsExpiredToken(t *testing.T) {
	t.Parallel()
	issuer := NewTokenIssuer([]byte("0123456789abcdef0123456789abcdef"), "foodkeeper", time.Hour)

	token, err := issuer.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	issuer.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := issuer.Verify(token); err == nil {
		t.Error("Verify() accepted an expired token")
	}
}

func TestTokenIssuer_RejectsGarbage(t *testing.T) {
	t.Parallel()
	issuer := NewTokenIssuer([]byte("0123456789abcdef0123456789abcdef"), "foodkeeper", time.Hour)
	if _, err := issuer.Verify("not.a.token"); err == nil {
		t.Error("Verify() accepted a malformed token")
	}
}
