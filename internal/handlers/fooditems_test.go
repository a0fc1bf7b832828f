package handlers

import (
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/foodkeeper/foodkeeper/internal/models"
	"github.com/foodkeeper/foodkeeper/internal/request"
	"github.com/google/uuid"
)

// mockFoodItemRepo is a func-field database.FoodItemRepositoryInterface
type mockFoodItemRepo struct {
	createFunc              func(ctx context.Context, item *models.FoodItem) error
	getByIDFunc             func(ctx context.Context, userID, id uuid.UUID) (*models.FoodItem, error)
	getByUserIDFunc         func(ctx context.Context, userID uuid.UUID) ([]*models.FoodItem, error)
	searchByNameFunc        func(ctx context.Context, userID uuid.UUID, name string) ([]*models.FoodItem, error)
	getRecentFunc           func(ctx context.Context, userID uuid.UUID, limit int) ([]*models.FoodItem, error)
	getRecentlyConsumedFunc func(ctx context.Context, userID uuid.UUID, limit int) ([]*models.FoodItem, error)
	getByDateRangeFunc      func(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]*models.FoodItem, error)
	countByUserIDFunc       func(ctx context.Context, userID uuid.UUID) (int64, error)
	updateFunc              func(ctx context.Context, item *models.FoodItem) error
	deleteFunc              func(ctx context.Context, userID, id uuid.UUID) error
}

func (m *mockFoodItemRepo) Create(ctx context.Context, item *models.FoodItem) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, item)
	}
	return nil
}

func (m *mockFoodItemRepo) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.FoodItem, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, userID, id)
	}
	return nil, nil
}

func (m *mockFoodItemRepo) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.FoodItem, error) {
	if m.getByUserIDFunc != nil {
		return m.getByUserIDFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockFoodItemRepo) SearchByName(ctx context.Context, userID uuid.UUID, name string) ([]*models.FoodItem, error) {
	if m.searchByNameFunc != nil {
		return m.searchByNameFunc(ctx, userID, name)
	}
	return nil, nil
}

func (m *mockFoodItemRepo) GetRecent(ctx context.Context, userID uuid.UUID, limit int) ([]*models.FoodItem, error) {
	if m.getRecentFunc != nil {
		return m.getRecentFunc(ctx, userID, limit)
	}
	return nil, nil
}

func (m *mockFoodItemRepo) GetRecentlyConsumed(ctx context.Context, userID uuid.UUID, limit int) ([]*models.FoodItem, error) {
	if m.getRecentlyConsumedFunc != nil {
		return m.getRecentlyConsumedFunc(ctx, userID, limit)
	}
	return nil, nil
}

func (m *mockFoodItemRepo) GetByDateRange(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]*models.FoodItem, error) {
	if m.getByDateRangeFunc != nil {
		return m.getByDateRangeFunc(ctx, userID, start, end)
	}
	return nil, nil
}

func (m *mockFoodItemRepo) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	if m.countByUserIDFunc != nil {
		return m.countByUserIDFunc(ctx, userID)
	}
	return 0, nil
}

func (m *mockFoodItemRepo) Update(ctx context.Context, item *models.FoodItem) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, item)
	}
	return nil
}

func (m *mockFoodItemRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, userID, id)
	}
	return nil
}

// authedGet builds a GET request with the user already in context
func authedGet(user *models.User, target string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return req.WithContext(request.WithUser(req.Context(), user))
}

func testUser() *models.User {
	return &models.User{ID: uuid.New(), Email: "jane@example.com"}
}

func sampleItem(userID uuid.UUID, name string) *models.FoodItem {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return &models.FoodItem{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestExportCSV_AllItems(t *testing.T) {
	t.Parallel()
	user := testUser()
	repo := &mockFoodItemRepo{
		getByUserIDFunc: func(ctx context.Context, userID uuid.UUID) ([]*models.FoodItem, error) {
			return []*models.FoodItem{sampleItem(userID, "apples"), sampleItem(userID, "rice")}, nil
		},
		getByDateRangeFunc: func(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]*models.FoodItem, error) {
			t.Error("GetByDateRange called without a date filter")
			return nil, nil
		},
	}
	h := NewFoodItemHandler(repo)

	rec := httptest.NewRecorder()
	h.ExportCSV(rec, authedGet(user, "/food-items/export"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Header().Get("Content-Disposition"); got != "attachment; filename=food-items-all-time.csv" {
		t.Errorf("Content-Disposition = %q, want all-time filename", got)
	}

	rows, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("csv rows = %d, want header + 2 items", len(rows))
	}
	if rows[1][0] != "apples" || rows[2][0] != "rice" {
		t.Errorf("csv names = %q, %q", rows[1][0], rows[2][0])
	}
}

func TestExportCSV_DateRange(t *testing.T) {
	t.Parallel()
	user := testUser()
	var gotStart, gotEnd time.Time
	repo := &mockFoodItemRepo{
		getByUserIDFunc: func(ctx context.Context, userID uuid.UUID) ([]*models.FoodItem, error) {
			t.Error("GetByUserID called despite a date filter")
			return nil, nil
		},
		getByDateRangeFunc: func(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]*models.FoodItem, error) {
			gotStart, gotEnd = start, end
			return []*models.FoodItem{sampleItem(userID, "bread")}, nil
		},
	}
	h := NewFoodItemHandler(repo)

	rec := httptest.NewRecorder()
	h.ExportCSV(rec, authedGet(user, "/food-items/export?startDate=2026-08-01&endDate=2026-08-15"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Header().Get("Content-Disposition"); got != "attachment; filename=food-items-2026-08-01-to-2026-08-15.csv" {
		t.Errorf("Content-Disposition = %q, want range filename", got)
	}

	wantStart := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	if !gotStart.Equal(wantStart) {
		t.Errorf("range start = %v, want %v", gotStart, wantStart)
	}
	// endDate is inclusive through the last second of the day
	wantEnd := time.Date(2026, 8, 15, 23, 59, 59, 0, time.UTC)
	if !gotEnd.Equal(wantEnd) {
		t.Errorf("range end = %v, want %v", gotEnd, wantEnd)
	}

	if !strings.Contains(rec.Body.String(), "bread") {
		t.Error("filtered item missing from csv body")
	}
}

func TestExportCSV_StartDateOnly(t *testing.T) {
	t.Parallel()
	user := testUser()
	var gotEnd time.Time
	repo := &mockFoodItemRepo{
		getByDateRangeFunc: func(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]*models.FoodItem, error) {
			gotEnd = end
			return nil, nil
		},
	}
	h := NewFoodItemHandler(repo)

	rec := httptest.NewRecorder()
	h.ExportCSV(rec, authedGet(user, "/food-items/export?startDate=2026-08-01"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Header().Get("Content-Disposition"); got != "attachment; filename=food-items-from-2026-08-01.csv" {
		t.Errorf("Content-Disposition = %q, want from filename", got)
	}
	if time.Since(gotEnd) > time.Minute {
		t.Errorf("open-ended range end = %v, want approximately now", gotEnd)
	}
}

func TestExportCSV_BadDates(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		target  string
		message string
	}{
		{
			name:    "bad start date",
			target:  "/food-items/export?startDate=01-08-2026",
			message: "Invalid start date format. Use YYYY-MM-DD",
		},
		{
			name:    "bad end date",
			target:  "/food-items/export?startDate=2026-08-01&endDate=15/08/2026",
			message: "Invalid end date format. Use YYYY-MM-DD",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := NewFoodItemHandler(&mockFoodItemRepo{})

			rec := httptest.NewRecorder()
			h.ExportCSV(rec, authedGet(testUser(), tt.target))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
			if got := errorMessage(t, rec); got != tt.message {
				t.Errorf("message = %q, want %q", got, tt.message)
			}
		})
	}
}

func TestList_SingleBound(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		target    string
		wantStart time.Time
		checkEnd  func(t *testing.T, end time.Time)
	}{
		{
			name:      "start only defaults end to now",
			target:    "/food-items?start=2026-08-01T00:00:00Z",
			wantStart: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
			checkEnd: func(t *testing.T, end time.Time) {
				if time.Since(end) > time.Minute {
					t.Errorf("end = %v, want approximately now", end)
				}
			},
		},
		{
			name:   "end only defaults start to zero",
			target: "/food-items?end=2026-08-15T00:00:00Z",
			checkEnd: func(t *testing.T, end time.Time) {
				want := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
				if !end.Equal(want) {
					t.Errorf("end = %v, want %v", end, want)
				}
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var gotStart, gotEnd time.Time
			ranged := false
			repo := &mockFoodItemRepo{
				getByDateRangeFunc: func(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]*models.FoodItem, error) {
					ranged = true
					gotStart, gotEnd = start, end
					return nil, nil
				},
			}
			h := NewFoodItemHandler(repo)

			rec := httptest.NewRecorder()
			h.List(rec, authedGet(testUser(), tt.target))

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
			}
			if !ranged {
				t.Fatal("GetByDateRange not called for a bounded query")
			}
			if !gotStart.Equal(tt.wantStart) {
				t.Errorf("start = %v, want %v", gotStart, tt.wantStart)
			}
			tt.checkEnd(t, gotEnd)
		})
	}
}

func TestList_BadBounds(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		target string
	}{
		{name: "malformed start", target: "/food-items?start=yesterday"},
		{name: "malformed end", target: "/food-items?end=2026-08-15"},
		{name: "inverted range", target: "/food-items?start=2026-08-15T00:00:00Z&end=2026-08-01T00:00:00Z"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := NewFoodItemHandler(&mockFoodItemRepo{})

			rec := httptest.NewRecorder()
			h.List(rec, authedGet(testUser(), tt.target))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}
