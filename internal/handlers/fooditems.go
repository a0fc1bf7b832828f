package handlers

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/foodkeeper/foodkeeper/internal/database"
	"github.com/foodkeeper/foodkeeper/internal/models"
	"github.com/foodkeeper/foodkeeper/internal/request"
	"github.com/foodkeeper/foodkeeper/internal/validation"
)

// FoodItemHandler handles food item requests
type FoodItemHandler struct {
	items database.FoodItemRepositoryInterface
}

// NewFoodItemHandler creates a new food item handler
func NewFoodItemHandler(items database.FoodItemRepositoryInterface) *FoodItemHandler {
	return &FoodItemHandler{items: items}
}

// RegisterRoutes registers food item routes on the given router
// The router should already have the /food-items prefix
func (h *FoodItemHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.List).Methods("GET")
	r.HandleFunc("", h.Create).Methods("POST")
	r.HandleFunc("/search", h.Search).Methods("GET")
	r.HandleFunc("/recent", h.Recent).Methods("GET")
	r.HandleFunc("/recently-consumed", h.RecentlyConsumed).Methods("GET")
	r.HandleFunc("/count", h.Count).Methods("GET")
	r.HandleFunc("/export", h.ExportCSV).Methods("GET")
	r.HandleFunc("/{id}", h.Get).Methods("GET")
	r.HandleFunc("/{id}", h.Update).Methods("PATCH")
	r.HandleFunc("/{id}", h.Delete).Methods("DELETE")
	r.HandleFunc("/{id}/consume", h.Consume).Methods("POST")
}

const (
	// DefaultRecentLimit is the default number of items for recent queries
	DefaultRecentLimit = 10
	// MaxRecentLimit is the maximum number of items for recent queries
	MaxRecentLimit = 100
	// csvTimeFormat is used for timestamps in CSV exports
	csvTimeFormat = "2006-01-02 15:04:05"
)

// CreateFoodItemRequest represents a create food item request
type CreateFoodItemRequest struct {
	Name         string     `json:"name" validate:"required,min=1,max=200"`
	Description  *string    `json:"description,omitempty" validate:"omitempty,max=2000"`
	Calorie      *int       `json:"calorie,omitempty" validate:"omitempty,min=0"`
	Quantity     *string    `json:"quantity,omitempty" validate:"omitempty,max=100"`
	ConsumedDate *time.Time `json:"consumed_date,omitempty"`
}

// UpdateFoodItemRequest represents an update food item request
type UpdateFoodItemRequest struct {
	Name         *string    `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description  *string    `json:"description,omitempty" validate:"omitempty,max=2000"`
	Calorie      *int       `json:"calorie,omitempty" validate:"omitempty,min=0"`
	Quantity     *string    `json:"quantity,omitempty" validate:"omitempty,max=100"`
	ConsumedDate *time.Time `json:"consumed_date,omitempty"`
}

// List lists all food items for the authenticated user. Either bound of
// the creation window may be given on its own: a missing start means the
// beginning of time, a missing end means now.
func (h *FoodItemHandler) List(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	ctx := r.Context()
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	var items []*models.FoodItem
	var err error
	if startStr != "" || endStr != "" {
		var start time.Time
		end := time.Now()
		if startStr != "" {
			start, err = time.Parse(time.RFC3339, startStr)
			if err != nil {
				respondJSONError(w, http.StatusBadRequest, "Bad Request", "start must be an RFC 3339 timestamp")
				return
			}
		}
		if endStr != "" {
			end, err = time.Parse(time.RFC3339, endStr)
			if err != nil {
				respondJSONError(w, http.StatusBadRequest, "Bad Request", "end must be an RFC 3339 timestamp")
				return
			}
		}
		if end.Before(start) {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "end must not be before start")
			return
		}
		items, err = h.items.GetByDateRange(ctx, user.ID, start, end)
	} else {
		items, err = h.items.GetByUserID(ctx, user.ID)
	}
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve food items")
		return
	}

	respondJSON(w, http.StatusOK, items)
}

// Create creates a new food item
func (h *FoodItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req CreateFoodItemRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	now := time.Now()
	item := &models.FoodItem{
		ID:           uuid.New(),
		UserID:       user.ID,
		Name:         validation.SanitizeText(req.Name),
		Description:  req.Description,
		Calorie:      req.Calorie,
		Quantity:     req.Quantity,
		ConsumedDate: req.ConsumedDate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.items.Create(r.Context(), item); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create food item")
		return
	}

	respondJSON(w, http.StatusCreated, item)
}

// Get retrieves a single food item
func (h *FoodItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid food item ID")
		return
	}

	item, err := h.items.GetByID(r.Context(), user.ID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Food item not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve food item")
		return
	}

	respondJSON(w, http.StatusOK, item)
}

// Update applies a partial update to a food item
func (h *FoodItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid food item ID")
		return
	}

	var req UpdateFoodItemRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ctx := r.Context()
	item, err := h.items.GetByID(ctx, user.ID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Food item not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve food item")
		return
	}

	if req.Name != nil {
		item.Name = validation.SanitizeText(*req.Name)
	}
	if req.Description != nil {
		item.Description = req.Description
	}
	if req.Calorie != nil {
		item.Calorie = req.Calorie
	}
	if req.Quantity != nil {
		item.Quantity = req.Quantity
	}
	if req.ConsumedDate != nil {
		item.ConsumedDate = req.ConsumedDate
	}
	item.UpdatedAt = time.Now()

	if err := h.items.Update(ctx, item); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update food item")
		return
	}

	respondJSON(w, http.StatusOK, item)
}

// Delete removes a food item
func (h *FoodItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid food item ID")
		return
	}

	if err := h.items.Delete(r.Context(), user.ID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Food item not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete food item")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Food item deleted"})
}

// Consume marks a food item as consumed now
func (h *FoodItemHandler) Consume(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid food item ID")
		return
	}

	ctx := r.Context()
	item, err := h.items.GetByID(ctx, user.ID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Food item not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve food item")
		return
	}

	now := time.Now()
	item.ConsumedDate = &now
	item.UpdatedAt = now

	if err := h.items.Update(ctx, item); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update food item")
		return
	}

	respondJSON(w, http.StatusOK, item)
}

// Search finds food items by name fragment
func (h *FoodItemHandler) Search(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	name := validation.SanitizeText(r.URL.Query().Get("name"))
	if name == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "name query parameter is required")
		return
	}

	items, err := h.items.SearchByName(r.Context(), user.ID, name)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to search food items")
		return
	}

	respondJSON(w, http.StatusOK, items)
}

// Recent lists the user's most recently added items
func (h *FoodItemHandler) Recent(w http.ResponseWriter, r *http.Request) {
	h.recentBy(w, r, h.items.GetRecent)
}

// RecentlyConsumed lists the user's most recently consumed items
func (h *FoodItemHandler) RecentlyConsumed(w http.ResponseWriter, r *http.Request) {
	h.recentBy(w, r, h.items.GetRecentlyConsumed)
}

func (h *FoodItemHandler) recentBy(w http.ResponseWriter, r *http.Request, fetch func(ctx context.Context, userID uuid.UUID, limit int) ([]*models.FoodItem, error)) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	limit := DefaultRecentLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
			if limit > MaxRecentLimit {
				limit = MaxRecentLimit
			}
		}
	}

	items, err := fetch(r.Context(), user.ID, limit)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve food items")
		return
	}

	respondJSON(w, http.StatusOK, items)
}

// Count returns the number of food items the user owns
func (h *FoodItemHandler) Count(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	count, err := h.items.CountByUserID(r.Context(), user.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to count food items")
		return
	}

	respondJSON(w, http.StatusOK, map[string]int64{"count": count})
}

// exportDateFormat is the day granularity accepted by the export filter
const exportDateFormat = "2006-01-02"

// ExportCSV streams the user's food items as a CSV attachment. The
// optional startDate and endDate query parameters (YYYY-MM-DD) restrict
// the export to items created within that window; endDate is inclusive
// through the end of the day. The filename reflects the chosen range.
func (h *FoodItemHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	startStr := r.URL.Query().Get("startDate")
	endStr := r.URL.Query().Get("endDate")

	var start, end time.Time
	if startStr != "" {
		var err error
		start, err = time.Parse(exportDateFormat, startStr)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid start date format. Use YYYY-MM-DD")
			return
		}
	}
	if endStr != "" {
		day, err := time.Parse(exportDateFormat, endStr)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid end date format. Use YYYY-MM-DD")
			return
		}
		end = day.Add(24*time.Hour - time.Second)
	}

	filename := "food-items-all-time"
	switch {
	case startStr != "" && endStr != "":
		filename = fmt.Sprintf("food-items-%s-to-%s", startStr, endStr)
	case startStr != "":
		filename = fmt.Sprintf("food-items-from-%s", startStr)
	case endStr != "":
		filename = fmt.Sprintf("food-items-through-%s", endStr)
	}

	var items []*models.FoodItem
	var err error
	if startStr != "" || endStr != "" {
		if endStr == "" {
			end = time.Now()
		}
		items, err = h.items.GetByDateRange(r.Context(), user.ID, start, end)
	} else {
		items, err = h.items.GetByUserID(r.Context(), user.ID)
	}
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve food items")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", filename))

	writer := csv.NewWriter(w)
	_ = writer.Write([]string{"name", "description", "calorie", "quantity", "consumed_date", "created_at", "updated_at"})

	for _, item := range items {
		record := []string{
			item.Name,
			stringOrEmpty(item.Description),
			intOrEmpty(item.Calorie),
			stringOrEmpty(item.Quantity),
			timeOrEmpty(item.ConsumedDate),
			item.CreatedAt.Format(csvTimeFormat),
			item.UpdatedAt.Format(csvTimeFormat),
		}
		if err := writer.Write(record); err != nil {
			// Headers are already sent, nothing sensible left to do
			return
		}
	}
	writer.Flush()
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intOrEmpty(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

func timeOrEmpty(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(csvTimeFormat)
}
