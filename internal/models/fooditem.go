package models

import (
	"time"

	"github.com/google/uuid"
)

// FoodItem represents a tracked food entry owned by a single user.
type FoodItem struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	Name         string     `json:"name"`
	Description  *string    `json:"description,omitempty"`
	Calorie      *int       `json:"calorie,omitempty"`
	Quantity     *string    `json:"quantity,omitempty"`
	ConsumedDate *time.Time `json:"consumed_date,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsConsumed reports whether the item has been marked consumed.
func (f *FoodItem) IsConsumed() bool {
	return f.ConsumedDate != nil
}
