package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/foodkeeper/foodkeeper/internal/models"
)

// ErrDuplicateEmail is returned by Create when the email address is
// already registered. Callers race against concurrent signups, so a
// prior existence check does not rule this out.
var ErrDuplicateEmail = errors.New("email already registered")

// pgUniqueViolation is the Postgres error code for unique_violation
const pgUniqueViolation = "23505"

// UserRepository handles user database operations
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, first_name, last_name, profile_picture, password_hash, provider, provider_id, email_verified, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		user.ID,
		user.Email,
		user.FirstName,
		user.LastName,
		user.ProfilePicture,
		user.PasswordHash,
		user.Provider,
		user.ProviderID,
		user.EmailVerified,
		user.Enabled,
		now,
		now,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, email, first_name, last_name, profile_picture, password_hash, provider, provider_id, email_verified, enabled, created_at, updated_at
		FROM users
		WHERE email = $1
	`

	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

// GetByProviderIdentity retrieves a user by provider name and provider subject id
func (r *UserRepository) GetByProviderIdentity(ctx context.Context, provider models.AuthProvider, providerID string) (*models.User, error) {
	query := `
		SELECT id, email, first_name, last_name, profile_picture, password_hash, provider, provider_id, email_verified, enabled, created_at, updated_at
		FROM users
		WHERE provider = $1 AND provider_id = $2
	`

	return r.scanOne(r.db.QueryRowContext(ctx, query, provider, providerID))
}

// ExistsByEmail reports whether a user with the given email exists
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`

	if err := r.db.QueryRowContext(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}

	return exists, nil
}

// Update updates an existing user
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET email = $2, first_name = $3, last_name = $4, profile_picture = $5, password_hash = $6, provider = $7, provider_id = $8, email_verified = $9, enabled = $10, updated_at = $11
		WHERE id = $1
		RETURNING updated_at
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		user.ID,
		user.Email,
		user.FirstName,
		user.LastName,
		user.ProfilePicture,
		user.PasswordHash,
		user.Provider,
		user.ProviderID,
		user.EmailVerified,
		user.Enabled,
		now,
	).Scan(&user.UpdatedAt)

	if err == sql.ErrNoRows {
		return fmt.Errorf("user not found: %w", err)
	}
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	return nil
}

// List returns all users ordered by creation time, newest first
func (r *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	query := `
		SELECT id, email, first_name, last_name, profile_picture, password_hash, provider, provider_id, email_verified, enabled, created_at, updated_at
		FROM users
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user := &models.User{}
		if err := scanUser(rows, user); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *UserRepository) scanOne(row rowScanner) (*models.User, error) {
	user := &models.User{}
	err := scanUser(row, user)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

func scanUser(row rowScanner, user *models.User) error {
	return row.Scan(
		&user.ID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.ProfilePicture,
		&user.PasswordHash,
		&user.Provider,
		&user.ProviderID,
		&user.EmailVerified,
		&user.Enabled,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
}
