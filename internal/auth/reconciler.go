package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/foodkeeper/foodkeeper/internal/database"
	"github.com/foodkeeper/foodkeeper/internal/models"
	"github.com/google/uuid"
)

// FederatedAssertion is the normalized identity claim from an external
// OAuth2 provider. It contains facts only, no decisions.
type FederatedAssertion struct {
	Provider    string
	SubjectID   string
	Email       string
	DisplayName string
	Picture     string
}

// Reconciler decides, for each federated assertion, whether to create a new
// identity or merge into an existing one. Email is the merge key; the
// provider subject id alone never matches an account.
type Reconciler struct {
	users database.UserRepositoryInterface
}

// NewReconciler creates a new identity reconciler
func NewReconciler(users database.UserRepositoryInterface) *Reconciler {
	return &Reconciler{users: users}
}

// Reconcile produces an identity that is safe to issue a session for.
// Unknown providers abort before any store access. For an unseen email a
// new identity is created with emailVerified=true (federated providers
// have already proven email ownership). For an existing identity only the
// fields that actually differ are written: name, picture, a one-way
// LOCAL-to-federated provider upgrade, and the emailVerified flip. The
// password hash is never touched, so an upgraded account remains
// dual-capable.
func (r *Reconciler) Reconcile(ctx context.Context, assertion FederatedAssertion) (*models.User, error) {
	provider, err := resolveProvider(assertion.Provider)
	if err != nil {
		return nil, err
	}

	firstName, lastName := SplitDisplayName(assertion.DisplayName)
	email := NormalizeEmail(assertion.Email)

	existing, err := r.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r.create(ctx, provider, assertion, email, firstName, lastName)
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	return r.merge(ctx, existing, provider, firstName, lastName, assertion.Picture)
}

func (r *Reconciler) create(ctx context.Context, provider models.AuthProvider, assertion FederatedAssertion, email, firstName, lastName string) (*models.User, error) {
	providerID := assertion.SubjectID
	user := &models.User{
		ID:            uuid.New(),
		Email:         email,
		FirstName:     firstName,
		LastName:      lastName,
		Provider:      provider,
		ProviderID:    &providerID,
		EmailVerified: true,
		Enabled:       true,
	}
	if assertion.Picture != "" {
		picture := assertion.Picture
		user.ProfilePicture = &picture
	}

	if err := r.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

func (r *Reconciler) merge(ctx context.Context, user *models.User, provider models.AuthProvider, firstName, lastName, picture string) (*models.User, error) {
	updated := false

	if user.FirstName != firstName {
		user.FirstName = firstName
		updated = true
	}
	if user.LastName != lastName {
		user.LastName = lastName
		updated = true
	}
	if picture != "" && (user.ProfilePicture == nil || *user.ProfilePicture != picture) {
		p := picture
		user.ProfilePicture = &p
		updated = true
	}

	// One-way upgrade: a LOCAL account becomes federated on first federated
	// login; a federated account is never downgraded back to LOCAL here.
	if user.Provider == models.ProviderLocal {
		user.Provider = provider
		updated = true
	}

	if !user.EmailVerified {
		user.EmailVerified = true
		updated = true
	}

	if updated {
		if err := r.users.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
	}

	return user, nil
}

// SplitDisplayName splits a display name on the first whitespace boundary.
// A single-token or empty name yields an empty last name.
func SplitDisplayName(name string) (firstName, lastName string) {
	parts := strings.SplitN(strings.TrimSpace(name), " ", 2)
	firstName = parts[0]
	if len(parts) > 1 {
		lastName = strings.TrimSpace(parts[1])
	}
	return firstName, lastName
}

// NormalizeEmail applies the system-wide email case policy: emails are
// compared and stored lower-cased.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func resolveProvider(name string) (models.AuthProvider, error) {
	switch strings.ToLower(name) {
	case "google":
		return models.ProviderGoogle, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedProvider, name)
	}
}
