package mealplans_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"ms-backoffice/internal/logger"
	"ms-backoffice/internal/mealplans"
	"ms-backoffice/internal/models"
)

// Mock implementations for testing

type MockPlanDB struct {
	plans        map[int64]*models.MealPlan
	days         map[int64]*models.DaySchedule
	entries      map[int64]*models.DayScheduleRecipe
	recipes      map[int64]bool
	nextID       int64
	shouldFailOn string
}

func NewMockPlanDB() *MockPlanDB {
	return &MockPlanDB{
		plans:   make(map[int64]*models.MealPlan),
		days:    make(map[int64]*models.DaySchedule),
		entries: make(map[int64]*models.DayScheduleRecipe),
		recipes: make(map[int64]bool),
		nextID:  1,
	}
}

func (m *MockPlanDB) id() int64 {
	id := m.nextID
	m.nextID++
	return id
}

func (m *MockPlanDB) CreatePlan(ctx context.Context, plan *models.MealPlan) error {
	if m.shouldFailOn == "CreatePlan" {
		return errors.New("db failure")
	}
	plan.ID = m.id()
	m.plans[plan.ID] = plan
	return nil
}

func (m *MockPlanDB) GetPlanByID(ctx context.Context, id int64) (*models.MealPlan, error) {
	plan, exists := m.plans[id]
	if !exists {
		return nil, sql.ErrNoRows
	}
	return plan, nil
}

func (m *MockPlanDB) ListPlans(ctx context.Context, userID int64) ([]models.MealPlan, error) {
	result := make([]models.MealPlan, 0)
	for _, plan := range m.plans {
		if plan.UserID == userID {
			result = append(result, *plan)
		}
	}
	return result, nil
}

func (m *MockPlanDB) UpdatePlan(ctx context.Context, plan *models.MealPlan) error {
	if _, exists := m.plans[plan.ID]; !exists {
		return sql.ErrNoRows
	}
	m.plans[plan.ID] = plan
	return nil
}

func (m *MockPlanDB) DeletePlan(ctx context.Context, id int64) error {
	if _, exists := m.plans[id]; !exists {
		return sql.ErrNoRows
	}
	delete(m.plans, id)
	return nil
}

func (m *MockPlanDB) ListDays(ctx context.Context, planID int64, from, to time.Time) ([]models.DaySchedule, error) {
	result := make([]models.DaySchedule, 0)
	for _, day := range m.days {
		if day.MealPlanID == planID && !day.Date.Before(from) && !day.Date.After(to) {
			result = append(result, *day)
		}
	}
	return result, nil
}

func (m *MockPlanDB) GetOrCreateDay(ctx context.Context, planID int64, date time.Time) (*models.DaySchedule, error) {
	for _, day := range m.days {
		if day.MealPlanID == planID && day.Date.Equal(date) {
			return day, nil
		}
	}
	day := &models.DaySchedule{ID: m.id(), MealPlanID: planID, Date: date}
	m.days[day.ID] = day
	return day, nil
}

func (m *MockPlanDB) GetDayByID(ctx context.Context, id int64) (*models.DaySchedule, error) {
	day, exists := m.days[id]
	if !exists {
		return nil, sql.ErrNoRows
	}
	loaded := *day
	loaded.Recipes = nil
	for _, entry := range m.entries {
		if entry.DayScheduleID == id {
			loaded.Recipes = append(loaded.Recipes, entry)
		}
	}
	return &loaded, nil
}

func (m *MockPlanDB) OrderTaken(ctx context.Context, dayID int64, order int) (bool, error) {
	for _, entry := range m.entries {
		if entry.DayScheduleID == dayID && entry.Order == order {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockPlanDB) AddDayRecipe(ctx context.Context, entry *models.DayScheduleRecipe) error {
	entry.ID = m.id()
	m.entries[entry.ID] = entry
	return nil
}

func (m *MockPlanDB) GetDayRecipe(ctx context.Context, id int64) (*models.DayScheduleRecipe, error) {
	entry, exists := m.entries[id]
	if !exists {
		return nil, sql.ErrNoRows
	}
	return entry, nil
}

func (m *MockPlanDB) UpdateDayRecipe(ctx context.Context, entry *models.DayScheduleRecipe) error {
	if _, exists := m.entries[entry.ID]; !exists {
		return sql.ErrNoRows
	}
	m.entries[entry.ID] = entry
	return nil
}

func (m *MockPlanDB) DeleteDayRecipe(ctx context.Context, id int64) error {
	if _, exists := m.entries[id]; !exists {
		return sql.ErrNoRows
	}
	delete(m.entries, id)
	return nil
}

func (m *MockPlanDB) ReorderDayRecipes(ctx context.Context, dayID int64, orders map[int64]int) error {
	for id, order := range orders {
		entry, exists := m.entries[id]
		if !exists {
			return sql.ErrNoRows
		}
		entry.Order = order
	}
	return nil
}

func (m *MockPlanDB) RecipeExists(ctx context.Context, id int64) (bool, error) {
	return m.recipes[id], nil
}

func newTestService(db *MockPlanDB) *mealplans.Service {
	return mealplans.NewService(db, logger.NewLogger())
}

func seedPlan(t *testing.T, service *mealplans.Service, userID int64) *models.MealPlan {
	plan, err := service.CreatePlan(context.Background(), userID, "Week 12")
	if err != nil {
		t.Fatalf("Failed to create plan: %v", err)
	}
	return plan
}

func TestGetPlanHidesOtherUsers(t *testing.T) {
	service := newTestService(NewMockPlanDB())
	plan := seedPlan(t, service, 1)

	if _, err := service.GetPlan(context.Background(), plan.ID, 1); err != nil {
		t.Fatalf("Failed to get own plan: %v", err)
	}
	if _, err := service.GetPlan(context.Background(), plan.ID, 2); !errors.Is(err, mealplans.ErrPlanNotFound) {
		t.Errorf("Expected ErrPlanNotFound for another user, got %v", err)
	}
}

func TestAddDayRecipe(t *testing.T) {
	mockDB := NewMockPlanDB()
	mockDB.recipes[10] = true
	service := newTestService(mockDB)
	plan := seedPlan(t, service, 1)
	ctx := context.Background()

	date := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	entry, err := service.AddDayRecipe(ctx, plan.ID, 1, date, 10, 1)
	if err != nil {
		t.Fatalf("Failed to add day recipe: %v", err)
	}
	if entry.Order != 1 {
		t.Errorf("Expected order 1, got %d", entry.Order)
	}

	// Same day and slot again.
	_, err = service.AddDayRecipe(ctx, plan.ID, 1, date, 10, 1)
	if !errors.Is(err, mealplans.ErrOrderTaken) {
		t.Errorf("Expected ErrOrderTaken, got %v", err)
	}

	// Same day, next slot reuses the day row.
	if _, err := service.AddDayRecipe(ctx, plan.ID, 1, date, 10, 2); err != nil {
		t.Fatalf("Failed to add second slot: %v", err)
	}
	if len(mockDB.days) != 1 {
		t.Errorf("Expected both slots on one day, got %d days", len(mockDB.days))
	}
}

func TestAddDayRecipeUnknownRecipe(t *testing.T) {
	service := newTestService(NewMockPlanDB())
	plan := seedPlan(t, service, 1)

	date := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	_, err := service.AddDayRecipe(context.Background(), plan.ID, 1, date, 404, 1)
	if !errors.Is(err, mealplans.ErrRecipeNotFound) {
		t.Errorf("Expected ErrRecipeNotFound, got %v", err)
	}
}

func TestReorderDay(t *testing.T) {
	mockDB := NewMockPlanDB()
	mockDB.recipes[10] = true
	mockDB.recipes[11] = true
	service := newTestService(mockDB)
	plan := seedPlan(t, service, 1)
	ctx := context.Background()

	date := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	first, err := service.AddDayRecipe(ctx, plan.ID, 1, date, 10, 1)
	if err != nil {
		t.Fatalf("Failed to add entry: %v", err)
	}
	second, err := service.AddDayRecipe(ctx, plan.ID, 1, date, 11, 2)
	if err != nil {
		t.Fatalf("Failed to add entry: %v", err)
	}

	day, err := service.ReorderDay(ctx, plan.ID, 1, first.DayScheduleID, []int64{second.ID, first.ID})
	if err != nil {
		t.Fatalf("Failed to reorder day: %v", err)
	}

	orders := make(map[int64]int)
	for _, entry := range day.Recipes {
		orders[entry.ID] = entry.Order
	}
	if orders[second.ID] != 1 || orders[first.ID] != 2 {
		t.Errorf("Expected reversed order, got %v", orders)
	}
}

func TestReorderDayRejectsWrongSet(t *testing.T) {
	mockDB := NewMockPlanDB()
	mockDB.recipes[10] = true
	service := newTestService(mockDB)
	plan := seedPlan(t, service, 1)
	ctx := context.Background()

	date := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	entry, err := service.AddDayRecipe(ctx, plan.ID, 1, date, 10, 1)
	if err != nil {
		t.Fatalf("Failed to add entry: %v", err)
	}

	cases := [][]int64{
		{},
		{entry.ID, entry.ID},
		{999},
	}
	for _, entryIDs := range cases {
		if _, err := service.ReorderDay(ctx, plan.ID, 1, entry.DayScheduleID, entryIDs); !errors.Is(err, mealplans.ErrBadReorder) {
			t.Errorf("Expected ErrBadReorder for %v, got %v", entryIDs, err)
		}
	}
}

func TestRemoveDayRecipeChecksOwnership(t *testing.T) {
	mockDB := NewMockPlanDB()
	mockDB.recipes[10] = true
	service := newTestService(mockDB)
	mine := seedPlan(t, service, 1)
	other := seedPlan(t, service, 2)
	ctx := context.Background()

	date := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	entry, err := service.AddDayRecipe(ctx, mine.ID, 1, date, 10, 1)
	if err != nil {
		t.Fatalf("Failed to add entry: %v", err)
	}

	// The entry belongs to plan 1, not plan 2.
	err = service.RemoveDayRecipe(ctx, other.ID, 2, entry.ID)
	if !errors.Is(err, mealplans.ErrDayRecipeNotFound) {
		t.Errorf("Expected ErrDayRecipeNotFound, got %v", err)
	}

	if err := service.RemoveDayRecipe(ctx, mine.ID, 1, entry.ID); err != nil {
		t.Fatalf("Failed to remove entry: %v", err)
	}
}
