package database

import (
	"context"
	"time"

	"github.com/foodkeeper/foodkeeper/internal/models"
	"github.com/google/uuid"
)

// UserRepositoryInterface defines the interface for user repository operations
// This interface enables better testability by allowing mock implementations
type UserRepositoryInterface interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByProviderIdentity(ctx context.Context, provider models.AuthProvider, providerID string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, user *models.User) error
}

// OTPRepositoryInterface defines the interface for OTP ledger operations
type OTPRepositoryInterface interface {
	Replace(ctx context.Context, rec *models.OTPRecord) error
	FindUnconsumed(ctx context.Context, email, code string, otpType models.OTPType) (*models.OTPRecord, error)
	MarkConsumed(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// FoodItemRepositoryInterface defines the interface for food item repository operations
type FoodItemRepositoryInterface interface {
	Create(ctx context.Context, item *models.FoodItem) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*models.FoodItem, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.FoodItem, error)
	SearchByName(ctx context.Context, userID uuid.UUID, name string) ([]*models.FoodItem, error)
	GetRecent(ctx context.Context, userID uuid.UUID, limit int) ([]*models.FoodItem, error)
	GetRecentlyConsumed(ctx context.Context, userID uuid.UUID, limit int) ([]*models.FoodItem, error)
	GetByDateRange(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]*models.FoodItem, error)
	CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
	Update(ctx context.Context, item *models.FoodItem) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// Ensure concrete types implement the interfaces
var (
	_ UserRepositoryInterface     = (*UserRepository)(nil)
	_ OTPRepositoryInterface      = (*OTPRepository)(nil)
	_ FoodItemRepositoryInterface = (*FoodItemRepository)(nil)
)
