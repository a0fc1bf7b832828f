package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/foodkeeper/foodkeeper/internal/database"
	"github.com/foodkeeper/foodkeeper/internal/models"
	"go.uber.org/zap"
)

// testService wires a Service over an in-memory user map so the full
// register/verify/login flows can run end to end.
type testService struct {
	svc      *Service
	users    map[string]*models.User
	otps     *memOTPRepo
	notifier *mockNotifier
	tokens   *TokenIssuer
	manager  *OTPManager
}

func newTestService(t *testing.T) *testService {
	t.Helper()

	users := make(map[string]*models.User)
	repo := &mockUserRepo{
		createFunc: func(ctx context.Context, user *models.User) error {
			users[user.Email] = user
			return nil
		},
		getByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			if user, ok := users[email]; ok {
				return user, nil
			}
			return nil, fmt.Errorf("user not found: %w", sql.ErrNoRows)
		},
		existsByEmailFunc: func(ctx context.Context, email string) (bool, error) {
			_, ok := users[email]
			return ok, nil
		},
		updateFunc: func(ctx context.Context, user *models.User) error {
			users[user.Email] = user
			return nil
		},
	}

	otps := newMemOTPRepo()
	manager := NewOTPManager(otps)
	notifier := &mockNotifier{}
	tokens := NewTokenIssuer([]byte("0123456789abcdef0123456789abcdef"), "foodkeeper-test", time.Hour)

	svc := NewService(repo, manager, NewReconciler(repo), plainHasher{}, tokens, notifier, zap.NewNop())
	return &testService{
		svc:      svc,
		users:    users,
		otps:     otps,
		notifier: notifier,
		tokens:   tokens,
		manager:  manager,
	}
}

func (ts *testService) register(t *testing.T, email, password string) *models.User {
	t.Helper()
	user, err := ts.svc.Register(context.Background(), RegisterInput{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     email,
		Password:  password,
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return user
}

func TestService_RegisterVerifyLogin(t *testing.T) {
	t.Parallel()
	ts := newTestService(t)
	ctx := context.Background()

	user := ts.register(t, "Jane.Doe@Example.com", "secret1pw")
	if user.Email != "jane.doe@example.com" {
		t.Errorf("Email = %q, want lowercased", user.Email)
	}
	if user.EmailVerified {
		t.Error("fresh local account must start unverified")
	}
	if user.Provider != models.ProviderLocal {
		t.Errorf("Provider = %q, want LOCAL", user.Provider)
	}

	code := ts.notifier.lastOTP()
	if len(code) != OTPLength {
		t.Fatalf("dispatched code %q has length %d, want %d", code, len(code), OTPLength)
	}

	// Unverified accounts cannot sign in yet.
	if _, _, err := ts.svc.Login(ctx, "jane.doe@example.com", "secret1pw"); !errors.Is(err, ErrEmailNotVerified) {
		t.Fatalf("Login() before verification error = %v, want ErrEmailNotVerified", err)
	}

	if err := ts.svc.VerifyEmail(ctx, "jane.doe@example.com", code); err != nil {
		t.Fatalf("VerifyEmail() error = %v", err)
	}
	if !ts.users["jane.doe@example.com"].EmailVerified {
		t.Error("EmailVerified not persisted")
	}
	if len(ts.notifier.welcomes) != 1 {
		t.Errorf("welcome deliveries = %d, want 1", len(ts.notifier.welcomes))
	}

	token, _, err := ts.svc.Login(ctx, "jane.doe@example.com", "secret1pw")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	subject, err := ts.tokens.Verify(token)
	if err != nil {
		t.Fatalf("issued token failed verification: %v", err)
	}
	if subject != "jane.doe@example.com" {
		t.Errorf("token subject = %q", subject)
	}
}

func TestService_RegisterDuplicateEmail(t *testing.T) {
	t.Parallel()
	ts := newTestService(t)

	ts.register(t, "jane@example.com", "secret1pw")
	_, err := ts.svc.Register(context.Background(), RegisterInput{
		FirstName: "Other",
		Email:     "JANE@example.com",
		Password:  "another1pw",
	})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("Register() error = %v, want ErrEmailTaken", err)
	}
}

func TestService_RegisterLostRaceReportsEmailTaken(t *testing.T) {
	t.Parallel()

	// A concurrent signup can land between the existence check and the
	// insert; the unique index rejects the insert and the caller still
	// gets the duplicate-email answer, not a generic failure.
	repo := &mockUserRepo{
		existsByEmailFunc: func(ctx context.Context, email string) (bool, error) {
			return false, nil
		},
		createFunc: func(ctx context.Context, user *models.User) error {
			return database.ErrDuplicateEmail
		},
	}
	manager := NewOTPManager(newMemOTPRepo())
	tokens := NewTokenIssuer([]byte("0123456789abcdef0123456789abcdef"), "foodkeeper-test", time.Hour)
	svc := NewService(repo, manager, NewReconciler(repo), plainHasher{}, tokens, &mockNotifier{}, zap.NewNop())

	_, err := svc.Register(context.Background(), RegisterInput{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@example.com",
		Password:  "secret1pw",
	})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("Register() error = %v, want ErrEmailTaken", err)
	}
}

func TestService_RegisterSurvivesNotifierFailure(t *testing.T) {
	t.Parallel()
	ts := newTestService(t)
	ts.notifier.otpErr = errors.New("smtp down")

	ts.register(t, "jane@example.com", "secret1pw")

	// The code was still stored, so a later resend or direct verify works.
	if ts.otps.count() != 1 {
		t.Errorf("stored OTP records = %d, want 1", ts.otps.count())
	}
}

func TestService_LoginFailures(t *testing.T) {
	t.Parallel()
	ts := newTestService(t)
	ctx := context.Background()

	ts.register(t, "jane@example.com", "secret1pw")
	if err := ts.svc.VerifyEmail(ctx, "jane@example.com", ts.notifier.lastOTP()); err != nil {
		t.Fatalf("VerifyEmail() error = %v", err)
	}

	tests := []struct {
		name    string
		prep    func()
		email   string
		pass    string
		wantErr error
	}{
		{
			name:    "wrong password",
			email:   "jane@example.com",
			pass:    "wrong1pw",
			wantErr: ErrBadCredentials,
		},
		{
			name:    "unknown account",
			email:   "nobody@example.com",
			pass:    "secret1pw",
			wantErr: ErrUserNotFound,
		},
		{
			name:    "disabled account looks like bad credentials",
			prep:    func() { ts.users["jane@example.com"].Enabled = false },
			email:   "jane@example.com",
			pass:    "secret1pw",
			wantErr: ErrBadCredentials,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.prep != nil {
				tt.prep()
			}
			_, _, err := ts.svc.Login(ctx, tt.email, tt.pass)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Login() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestService_PasswordFlowsRejectFederatedOnlyAccount(t *testing.T) {
	t.Parallel()
	ts := newTestService(t)
	ctx := context.Background()

	if _, _, err := ts.svc.FederatedLogin(ctx, googleAssertion()); err != nil {
		t.Fatalf("FederatedLogin() error = %v", err)
	}

	if _, _, err := ts.svc.Login(ctx, "jane.doe@example.com", "whatever1"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Login() error = %v, want ErrUserNotFound", err)
	}
	if err := ts.svc.ForgotPassword(ctx, "jane.doe@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("ForgotPassword() error = %v, want ErrUserNotFound", err)
	}
}

func TestService_VerifyEmailRejectsBadAndReusedCodes(t *testing.T) {
	t.Parallel()
	ts := newTestService(t)
	ctx := context.Background()

	ts.register(t, "jane@example.com", "secret1pw")
	code := ts.notifier.lastOTP()

	wrong := "000000"
	if code == wrong {
		wrong = "000001"
	}
	if err := ts.svc.VerifyEmail(ctx, "jane@example.com", wrong); !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("VerifyEmail() with wrong code error = %v, want ErrInvalidOTP", err)
	}

	if err := ts.svc.VerifyEmail(ctx, "jane@example.com", code); err != nil {
		t.Fatalf("VerifyEmail() error = %v", err)
	}
	if err := ts.svc.VerifyEmail(ctx, "jane@example.com", code); !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("VerifyEmail() with consumed code error = %v, want ErrInvalidOTP", err)
	}
}

func TestService_ResendVerification(t *testing.T) {
	t.Parallel()
	ts := newTestService(t)
	ctx := context.Background()

	if err := ts.svc.ResendVerification(ctx, "nobody@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("ResendVerification() error = %v, want ErrUserNotFound", err)
	}

	ts.register(t, "jane@example.com", "secret1pw")
	first := ts.notifier.lastOTP()

	if err := ts.svc.ResendVerification(ctx, "jane@example.com"); err != nil {
		t.Fatalf("ResendVerification() error = %v", err)
	}
	second := ts.notifier.lastOTP()
	if ts.otps.count() != 1 {
		t.Errorf("stored OTP records = %d, the resent code must supersede", ts.otps.count())
	}
	if first != second {
		if err := ts.svc.VerifyEmail(ctx, "jane@example.com", first); !errors.Is(err, ErrInvalidOTP) {
			t.Errorf("superseded code still accepted, error = %v", err)
		}
	}
	if err := ts.svc.VerifyEmail(ctx, "jane@example.com", second); err != nil {
		t.Fatalf("VerifyEmail() with resent code error = %v", err)
	}

	if err := ts.svc.ResendVerification(ctx, "jane@example.com"); !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("ResendVerification() after verify error = %v, want ErrAlreadyVerified", err)
	}
}

func TestService_PasswordReset(t *testing.T) {
	t.Parallel()
	ts := newTestService(t)
	ctx := context.Background()

	ts.register(t, "jane@example.com", "old1password")
	if err := ts.svc.VerifyEmail(ctx, "jane@example.com", ts.notifier.lastOTP()); err != nil {
		t.Fatalf("VerifyEmail() error = %v", err)
	}

	if err := ts.svc.ForgotPassword(ctx, "jane@example.com"); err != nil {
		t.Fatalf("ForgotPassword() error = %v", err)
	}
	code := ts.notifier.lastOTP()

	if err := ts.svc.ResetPassword(ctx, "jane@example.com", code, "new1password"); err != nil {
		t.Fatalf("ResetPassword() error = %v", err)
	}

	if _, _, err := ts.svc.Login(ctx, "jane@example.com", "old1password"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("Login() with old password error = %v, want ErrBadCredentials", err)
	}
	if _, _, err := ts.svc.Login(ctx, "jane@example.com", "new1password"); err != nil {
		t.Errorf("Login() with new password error = %v", err)
	}

	// A reset code is gone once it was spent.
	if err := ts.svc.ResetPassword(ctx, "jane@example.com", code, "third1password"); !errors.Is(err, ErrInvalidOTP) {
		t.Errorf("ResetPassword() with consumed code error = %v, want ErrInvalidOTP", err)
	}
}

func TestService_ResetCodeIsPurposeBound(t *testing.T) {
	t.Parallel()
	ts := newTestService(t)
	ctx := context.Background()

	ts.register(t, "jane@example.com", "secret1pw")
	verificationCode := ts.notifier.lastOTP()

	if err := ts.svc.ResetPassword(ctx, "jane@example.com", verificationCode, "new1password"); !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("ResetPassword() with a verification code error = %v, want ErrInvalidOTP", err)
	}
	// The verification code survives the failed reset attempt.
	if err := ts.svc.VerifyEmail(ctx, "jane@example.com", verificationCode); err != nil {
		t.Fatalf("VerifyEmail() error = %v", err)
	}
}

func TestService_FederatedLoginIssuesToken(t *testing.T) {
	t.Parallel()
	ts := newTestService(t)

	token, user, err := ts.svc.FederatedLogin(context.Background(), googleAssertion())
	if err != nil {
		t.Fatalf("FederatedLogin() error = %v", err)
	}
	if !user.EmailVerified {
		t.Error("federated identity must be verified")
	}
	subject, err := ts.tokens.Verify(token)
	if err != nil {
		t.Fatalf("issued token failed verification: %v", err)
	}
	if subject != user.Email {
		t.Errorf("token subject = %q, want %q", subject, user.Email)
	}
}
