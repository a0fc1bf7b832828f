package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/foodkeeper/foodkeeper/internal/database"
	"github.com/foodkeeper/foodkeeper/internal/logger"
	"github.com/foodkeeper/foodkeeper/internal/models"
	"github.com/foodkeeper/foodkeeper/internal/notify"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service orchestrates the user-facing auth flows over the reconciler, the
// OTP manager and the token issuer. Every flow takes its subject
// explicitly; nothing is read from ambient request state.
type Service struct {
	users      database.UserRepositoryInterface
	otp        *OTPManager
	reconciler *Reconciler
	hasher     PasswordHasher
	tokens     *TokenIssuer
	notifier   notify.Notifier
	log        *zap.Logger
}

// NewService creates a new auth service
func NewService(
	users database.UserRepositoryInterface,
	otp *OTPManager,
	reconciler *Reconciler,
	hasher PasswordHasher,
	tokens *TokenIssuer,
	notifier notify.Notifier,
	log *zap.Logger,
) *Service {
	return &Service{
		users:      users,
		otp:        otp,
		reconciler: reconciler,
		hasher:     hasher,
		tokens:     tokens,
		notifier:   notifier,
		log:        log,
	}
}

// RegisterInput carries the fields of a local registration request.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// Register creates a LOCAL identity and dispatches an email-verification
// code. OTP dispatch failure is logged and swallowed; registration still
// succeeds.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	email := NormalizeEmail(input.Email)

	taken, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if taken {
		return nil, ErrEmailTaken
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:            uuid.New(),
		Email:         email,
		FirstName:     input.FirstName,
		LastName:      input.LastName,
		PasswordHash:  &hash,
		Provider:      models.ProviderLocal,
		EmailVerified: false,
		Enabled:       true,
	}

	if err := s.users.Create(ctx, user); err != nil {
		// The existence check above races against concurrent signups;
		// the unique index on users.email is the real arbiter.
		if errors.Is(err, database.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// Registration succeeds even when the verification code cannot be
	// generated or dispatched; the user can request a resend.
	if err := s.dispatchOTP(ctx, email, models.OTPTypeEmailVerification); err != nil {
		s.log.Warn("verification_otp_dispatch_failed",
			zap.String("email", logger.SanitizeEmail(email)),
			zap.Error(err),
		)
	}

	return user, nil
}

// Login authenticates a password login and issues a session token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.findPasswordUser(ctx, email)
	if err != nil {
		return "", nil, err
	}

	if !user.EmailVerified {
		return "", nil, ErrEmailNotVerified
	}

	// A disabled account is indistinguishable from a wrong password to the
	// caller; don't leak account state.
	if !user.Enabled || !s.hasher.Verify(password, *user.PasswordHash) {
		return "", nil, ErrBadCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return token, user, nil
}

// VerifyEmail consumes an EMAIL_VERIFICATION code and marks the identity
// verified. A welcome notification is dispatched best-effort.
func (s *Service) VerifyEmail(ctx context.Context, email, code string) error {
	email = NormalizeEmail(email)

	ok, err := s.otp.Verify(ctx, email, code, models.OTPTypeEmailVerification)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidOTP
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	if !user.EmailVerified {
		user.EmailVerified = true
		if err := s.users.Update(ctx, user); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
	}

	if err := s.notifier.SendWelcome(ctx, user.Email, user.FirstName); err != nil {
		s.log.Warn("welcome_email_dispatch_failed",
			zap.String("email", logger.SanitizeEmail(user.Email)),
			zap.Error(err),
		)
	}

	return nil
}

// ResendVerification supersedes any prior EMAIL_VERIFICATION code with a
// fresh one for an unverified account.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	email = NormalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	if user.EmailVerified {
		return ErrAlreadyVerified
	}

	return s.dispatchOTP(ctx, email, models.OTPTypeEmailVerification)
}

// ForgotPassword generates and dispatches a PASSWORD_RESET code for a
// password-capable account.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.findPasswordUser(ctx, email)
	if err != nil {
		return err
	}

	return s.dispatchOTP(ctx, user.Email, models.OTPTypePasswordReset)
}

// ResetPassword consumes a PASSWORD_RESET code and replaces the account's
// password hash.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = NormalizeEmail(email)

	ok, err := s.otp.Verify(ctx, email, code, models.OTPTypePasswordReset)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidOTP
	}

	user, err := s.findPasswordUser(ctx, email)
	if err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	user.PasswordHash = &hash
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	return nil
}

// CheckOTP is a read-only probe for whether a code is currently valid,
// without consuming it. It backs UI validation only; the consuming flows
// never rely on it.
func (s *Service) CheckOTP(ctx context.Context, email, code string, otpType models.OTPType) (bool, error) {
	return s.otp.PeekValid(ctx, NormalizeEmail(email), code, otpType)
}

// FederatedLogin reconciles a federated assertion into an identity and
// issues a session token. Federated identities are always emailVerified,
// so the token is issued unconditionally on reconcile success.
func (s *Service) FederatedLogin(ctx context.Context, assertion FederatedAssertion) (string, *models.User, error) {
	user, err := s.reconciler.Reconcile(ctx, assertion)
	if err != nil {
		return "", nil, err
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return token, user, nil
}

// findPasswordUser loads the account for a password-based flow. The account
// must still hold a password hash; a purely federated identity cannot do
// password login or reset.
func (s *Service) findPasswordUser(ctx context.Context, email string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !user.HasPassword() {
		return nil, ErrUserNotFound
	}

	return user, nil
}

// dispatchOTP generates a fresh code and hands it to the notifier. A
// failure to store the code is an infrastructure error and is returned;
// a notifier failure is a best-effort side effect and surfaces only as a
// structured warn event.
func (s *Service) dispatchOTP(ctx context.Context, email string, otpType models.OTPType) error {
	code, err := s.otp.Generate(ctx, email, otpType)
	if err != nil {
		return err
	}

	if err := s.notifier.SendOTP(ctx, email, code, otpType); err != nil {
		s.log.Warn("otp_email_dispatch_failed",
			zap.String("email", logger.SanitizeEmail(email)),
			zap.String("otp_type", string(otpType)),
			zap.Error(err),
		)
	}

	return nil
}
