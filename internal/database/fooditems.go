package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/foodkeeper/foodkeeper/internal/models"
	"github.com/google/uuid"
)

const foodItemColumns = "id, user_id, name, description, calorie, quantity, consumed_date, created_at, updated_at"

// FoodItemRepository handles food item database operations
type FoodItemRepository struct {
	db *DB
}

// NewFoodItemRepository creates a new food item repository
func NewFoodItemRepository(db *DB) *FoodItemRepository {
	return &FoodItemRepository{db: db}
}

// Create creates a new food item
func (r *FoodItemRepository) Create(ctx context.Context, item *models.FoodItem) error {
	query := `
		INSERT INTO food_items (id, user_id, name, description, calorie, quantity, consumed_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		item.ID,
		item.UserID,
		item.Name,
		item.Description,
		item.Calorie,
		item.Quantity,
		item.ConsumedDate,
		now,
		now,
	).Scan(&item.CreatedAt, &item.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create food item: %w", err)
	}

	return nil
}

// GetByID retrieves a food item owned by the given user
func (r *FoodItemRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.FoodItem, error) {
	query := `
		SELECT ` + foodItemColumns + `
		FROM food_items
		WHERE id = $1 AND user_id = $2
	`

	item := &models.FoodItem{}
	err := scanFoodItem(r.db.QueryRowContext(ctx, query, id, userID), item)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("food item not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get food item: %w", err)
	}

	return item, nil
}

// GetByUserID retrieves all food items for a user, newest first
func (r *FoodItemRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.FoodItem, error) {
	query := `
		SELECT ` + foodItemColumns + `
		FROM food_items
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	return r.queryMany(ctx, query, userID)
}

// SearchByName retrieves a user's food items whose name contains the given
// fragment, case-insensitively
func (r *FoodItemRepository) SearchByName(ctx context.Context, userID uuid.UUID, name string) ([]*models.FoodItem, error) {
	query := `
		SELECT ` + foodItemColumns + `
		FROM food_items
		WHERE user_id = $1 AND name ILIKE '%' || $2 || '%'
		ORDER BY created_at DESC
	`

	return r.queryMany(ctx, query, userID, name)
}

// GetRecent retrieves a user's most recently added items
func (r *FoodItemRepository) GetRecent(ctx context.Context, userID uuid.UUID, limit int) ([]*models.FoodItem, error) {
	query := `
		SELECT ` + foodItemColumns + `
		FROM food_items
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	return r.queryMany(ctx, query, userID, limit)
}

// GetRecentlyConsumed retrieves a user's most recently consumed items
func (r *FoodItemRepository) GetRecentlyConsumed(ctx context.Context, userID uuid.UUID, limit int) ([]*models.FoodItem, error) {
	query := `
		SELECT ` + foodItemColumns + `
		FROM food_items
		WHERE user_id = $1 AND consumed_date IS NOT NULL
		ORDER BY consumed_date DESC
		LIMIT $2
	`

	return r.queryMany(ctx, query, userID, limit)
}

// GetByDateRange retrieves a user's food items created within [start, end]
func (r *FoodItemRepository) GetByDateRange(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]*models.FoodItem, error) {
	query := `
		SELECT ` + foodItemColumns + `
		FROM food_items
		WHERE user_id = $1 AND created_at >= $2 AND created_at <= $3
		ORDER BY created_at DESC
	`

	return r.queryMany(ctx, query, userID, start, end)
}

// CountByUserID returns the number of food items a user owns
func (r *FoodItemRepository) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM food_items WHERE user_id = $1`

	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count food items: %w", err)
	}

	return count, nil
}

// Update updates an existing food item owned by the given user
func (r *FoodItemRepository) Update(ctx context.Context, item *models.FoodItem) error {
	query := `
		UPDATE food_items
		SET name = $3, description = $4, calorie = $5, quantity = $6, consumed_date = $7, updated_at = $8
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		item.ID,
		item.UserID,
		item.Name,
		item.Description,
		item.Calorie,
		item.Quantity,
		item.ConsumedDate,
		now,
	).Scan(&item.UpdatedAt)

	if err == sql.ErrNoRows {
		return fmt.Errorf("food item not found: %w", err)
	}
	if err != nil {
		return fmt.Errorf("failed to update food item: %w", err)
	}

	return nil
}

// Delete deletes a food item owned by the given user
func (r *FoodItemRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM food_items WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete food item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("food item not found: %w", sql.ErrNoRows)
	}

	return nil
}

func (r *FoodItemRepository) queryMany(ctx context.Context, query string, args ...any) ([]*models.FoodItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query food items: %w", err)
	}
	defer rows.Close()

	var items []*models.FoodItem
	for rows.Next() {
		item := &models.FoodItem{}
		if err := scanFoodItem(rows, item); err != nil {
			return nil, fmt.Errorf("failed to scan food item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating food items: %w", err)
	}

	return items, nil
}

func scanFoodItem(row rowScanner, item *models.FoodItem) error {
	var consumedDate sql.NullTime

	err := row.Scan(
		&item.ID,
		&item.UserID,
		&item.Name,
		&item.Description,
		&item.Calorie,
		&item.Quantity,
		&consumedDate,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if consumedDate.Valid {
		item.ConsumedDate = &consumedDate.Time
	}

	return nil
}
