package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/foodkeeper/foodkeeper/internal/models"
	"github.com/google/uuid"
)

// OTPRepository handles OTP record database operations. The state machine
// over these rows lives in the auth package; this layer only guarantees the
// row-level atomicity the auth package relies on (Replace and MarkConsumed).
type OTPRepository struct {
	db *DB
}

// NewOTPRepository creates a new OTP repository
func NewOTPRepository(db *DB) *OTPRepository {
	return &OTPRepository{db: db}
}

// Replace deletes every record for the new record's (email, type) pair and
// inserts the new record, in a single transaction. Two concurrent Replace
// calls for the same pair cannot leave two active codes behind.
func (r *OTPRepository) Replace(ctx context.Context, rec *models.OTPRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM otp_verifications WHERE email = $1 AND type = $2`,
		rec.Email, rec.Type,
	); err != nil {
		return fmt.Errorf("failed to delete prior otps: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO otp_verifications (id, email, code, type, verified, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.Email, rec.Code, rec.Type, rec.Verified, rec.CreatedAt, rec.ExpiresAt,
	); err != nil {
		return fmt.Errorf("failed to insert otp: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit otp replace: %w", err)
	}

	return nil
}

// DeleteActive removes all records for an (email, type) pair
func (r *OTPRepository) DeleteActive(ctx context.Context, email string, otpType models.OTPType) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM otp_verifications WHERE email = $1 AND type = $2`,
		email, otpType,
	)
	if err != nil {
		return fmt.Errorf("failed to delete otps: %w", err)
	}

	return nil
}

// FindUnconsumed retrieves the unconsumed record matching email, code and type
func (r *OTPRepository) FindUnconsumed(ctx context.Context, email, code string, otpType models.OTPType) (*models.OTPRecord, error) {
	rec := &models.OTPRecord{}
	query := `
		SELECT id, email, code, type, verified, created_at, expires_at
		FROM otp_verifications
		WHERE email = $1 AND code = $2 AND type = $3 AND verified = false
	`

	err := r.db.QueryRowContext(ctx, query, email, code, otpType).Scan(
		&rec.ID,
		&rec.Email,
		&rec.Code,
		&rec.Type,
		&rec.Verified,
		&rec.CreatedAt,
		&rec.ExpiresAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("otp not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get otp: %w", err)
	}

	return rec, nil
}

// MarkConsumed flips a record to verified and reports whether this call won
// the flip. The conditional update makes consumption exactly-once: of two
// concurrent calls for the same record, exactly one sees a row affected.
func (r *OTPRepository) MarkConsumed(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE otp_verifications SET verified = true WHERE id = $1 AND verified = false`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to consume otp: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// DeleteExpired removes all records whose expiry is before the given instant.
// The rows it touches are already inert, so it is safe to run alongside
// Replace and MarkConsumed.
func (r *OTPRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM otp_verifications WHERE expires_at < $1`,
		before,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired otps: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
