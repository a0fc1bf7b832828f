package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/foodkeeper/foodkeeper/internal/database"
	"github.com/foodkeeper/foodkeeper/internal/models"
	"github.com/google/uuid"
)

const (
	// OTPLength is the number of digits in a generated code
	OTPLength = 6
	// OTPLifetime is the fixed, non-sliding expiry window for a code
	OTPLifetime = 10 * time.Minute
)

// codeSpace is the size of the 6-digit numeric code space. Codes keep
// leading zeros, so the space is 000000-999999, not 100000-999999.
var codeSpace = big.NewInt(1_000_000)

// OTPManager owns the OTP lifecycle state machine. Per (email, type) pair
// at most one record is unconsumed at a time: Generate replaces everything
// for the pair before inserting, and Verify consumes exactly once.
type OTPManager struct {
	otps database.OTPRepositoryInterface
	now  func() time.Time
}

// NewOTPManager creates a new OTP manager
func NewOTPManager(otps database.OTPRepositoryInterface) *OTPManager {
	return &OTPManager{otps: otps, now: time.Now}
}

// Generate invalidates all prior codes for (email, type), stores a fresh
// code, and returns the plaintext code for out-of-band delivery. The code
// must never appear in logs or response payloads.
func (m *OTPManager) Generate(ctx context.Context, email string, otpType models.OTPType) (string, error) {
	code, err := m.newCode()
	if err != nil {
		return "", err
	}

	now := m.now()
	rec := &models.OTPRecord{
		ID:        uuid.New(),
		Email:     email,
		Code:      code,
		Type:      otpType,
		Verified:  false,
		CreatedAt: now,
		ExpiresAt: now.Add(OTPLifetime),
	}

	if err := m.otps.Replace(ctx, rec); err != nil {
		return "", fmt.Errorf("failed to store otp: %w", err)
	}

	return code, nil
}

// Verify consumes the unconsumed record matching (email, code, type).
// It returns false for an unknown code and false for an expired one
// without mutating it; a consumed record never verifies again.
func (m *OTPManager) Verify(ctx context.Context, email, code string, otpType models.OTPType) (bool, error) {
	rec, err := m.otps.FindUnconsumed(ctx, email, code, otpType)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up otp: %w", err)
	}

	if rec.State(m.now()) != models.OTPStateActive {
		return false, nil
	}

	// The conditional consume decides the winner under concurrent verifies.
	consumed, err := m.otps.MarkConsumed(ctx, rec.ID)
	if err != nil {
		return false, fmt.Errorf("failed to consume otp: %w", err)
	}

	return consumed, nil
}

// PeekValid reports whether an active record matches (email, code, type)
// without consuming it. Only for validation probes; flows with a
// security-sensitive outcome must use Verify.
func (m *OTPManager) PeekValid(ctx context.Context, email, code string, otpType models.OTPType) (bool, error) {
	rec, err := m.otps.FindUnconsumed(ctx, email, code, otpType)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up otp: %w", err)
	}

	return rec.State(m.now()) == models.OTPStateActive, nil
}

// SweepExpired bulk-removes records past their expiry. Purely storage
// hygiene: expired records already fail Verify.
func (m *OTPManager) SweepExpired(ctx context.Context) (int64, error) {
	return m.otps.DeleteExpired(ctx, m.now())
}

// newCode draws a 6-digit code uniformly from a cryptographically secure
// random source.
func (m *OTPManager) newCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", OTPLength, n), nil
}
