package auth

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/foodkeeper/foodkeeper/internal/database"
	"github.com/foodkeeper/foodkeeper/internal/models"
	"github.com/google/uuid"
)

// mockUserRepo is a mock implementation of UserRepositoryInterface
type mockUserRepo struct {
	createFunc                func(ctx context.Context, user *models.User) error
	getByEmailFunc            func(ctx context.Context, email string) (*models.User, error)
	getByProviderIdentityFunc func(ctx context.Context, provider models.AuthProvider, providerID string) (*models.User, error)
	existsByEmailFunc         func(ctx context.Context, email string) (bool, error)
	updateFunc                func(ctx context.Context, user *models.User) error
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.getByEmailFunc != nil {
		return m.getByEmailFunc(ctx, email)
	}
	return nil, fmt.Errorf("user not found: %w", sql.ErrNoRows)
}

func (m *mockUserRepo) GetByProviderIdentity(ctx context.Context, provider models.AuthProvider, providerID string) (*models.User, error) {
	if m.getByProviderIdentityFunc != nil {
		return m.getByProviderIdentityFunc(ctx, provider, providerID)
	}
	return nil, fmt.Errorf("user not found: %w", sql.ErrNoRows)
}

func (m *mockUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if m.existsByEmailFunc != nil {
		return m.existsByEmailFunc(ctx, email)
	}
	return false, nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, user)
	}
	return nil
}

var _ database.UserRepositoryInterface = (*mockUserRepo)(nil)

// memOTPRepo is an in-memory OTP ledger that honors the repository
// contract, including the replace and conditional-consume semantics
type memOTPRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]*models.OTPRecord
}

func newMemOTPRepo() *memOTPRepo {
	return &memOTPRepo{records: make(map[uuid.UUID]*models.OTPRecord)}
}

func (m *memOTPRepo) Replace(ctx context.Context, rec *models.OTPRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.records {
		if r.Email == rec.Email && r.Type == rec.Type {
			delete(m.records, id)
		}
	}
	clone := *rec
	m.records[rec.ID] = &clone
	return nil
}

func (m *memOTPRepo) FindUnconsumed(ctx context.Context, email, code string, otpType models.OTPType) (*models.OTPRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.Email == email && r.Code == code && r.Type == otpType && !r.Verified {
			clone := *r
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("otp not found: %w", sql.ErrNoRows)
}

func (m *memOTPRepo) MarkConsumed(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok || r.Verified {
		return false, nil
	}
	r.Verified = true
	return true, nil
}

func (m *memOTPRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for id, r := range m.records {
		if before.After(r.ExpiresAt) {
			delete(m.records, id)
			removed++
		}
	}
	return removed, nil
}

func (m *memOTPRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

var _ database.OTPRepositoryInterface = (*memOTPRepo)(nil)

// mockNotifier records deliveries
type mockNotifier struct {
	mu       sync.Mutex
	otps     []string
	welcomes []string
	otpErr   error
}

func (m *mockNotifier) SendOTP(ctx context.Context, email, code string, purpose models.OTPType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.otpErr != nil {
		return m.otpErr
	}
	m.otps = append(m.otps, code)
	return nil
}

func (m *mockNotifier) SendWelcome(ctx context.Context, email, firstName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.welcomes = append(m.welcomes, email)
	return nil
}

func (m *mockNotifier) lastOTP() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.otps) == 0 {
		return ""
	}
	return m.otps[len(m.otps)-1]
}

// plainHasher is a transparent hasher for tests, real hashing is covered
// separately
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "hash:" + password, nil }
func (plainHasher) Verify(password, hash string) bool    { return "hash:"+password == hash }

var _ PasswordHasher = plainHasher{}
