package mealplans

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-backoffice/internal/logger"
	"ms-backoffice/internal/mealplans/db"
	"ms-backoffice/internal/models"
)

var (
	ErrPlanNotFound      = errors.New("meal plan not found")
	ErrDayNotFound       = errors.New("day schedule not found")
	ErrDayRecipeNotFound = errors.New("day recipe not found")
	ErrRecipeNotFound    = errors.New("recipe not found")
	ErrOrderTaken        = errors.New("order slot is already taken")
	ErrBadReorder        = errors.New("reorder must list exactly the day's recipe ids")
)

type DBLayer interface {
	CreatePlan(ctx context.Context, plan *models.MealPlan) error
	GetPlanByID(ctx context.Context, id int64) (*models.MealPlan, error)
	ListPlans(ctx context.Context, userID int64) ([]models.MealPlan, error)
	UpdatePlan(ctx context.Context, plan *models.MealPlan) error
	DeletePlan(ctx context.Context, id int64) error
	ListDays(ctx context.Context, planID int64, from, to time.Time) ([]models.DaySchedule, error)
	GetOrCreateDay(ctx context.Context, planID int64, date time.Time) (*models.DaySchedule, error)
	GetDayByID(ctx context.Context, id int64) (*models.DaySchedule, error)
	OrderTaken(ctx context.Context, dayID int64, order int) (bool, error)
	AddDayRecipe(ctx context.Context, entry *models.DayScheduleRecipe) error
	GetDayRecipe(ctx context.Context, id int64) (*models.DayScheduleRecipe, error)
	UpdateDayRecipe(ctx context.Context, entry *models.DayScheduleRecipe) error
	DeleteDayRecipe(ctx context.Context, id int64) error
	ReorderDayRecipes(ctx context.Context, dayID int64, orders map[int64]int) error
	RecipeExists(ctx context.Context, id int64) (bool, error)
}

type Service struct {
	DB     DBLayer
	Logger *logger.Logger
}

func NewService(db DBLayer, logger *logger.Logger) *Service {
	return &Service{DB: db, Logger: logger}
}

// CreatePlan stores a new plan owned by the user.
func (s *Service) CreatePlan(ctx context.Context, userID int64, name string) (*models.MealPlan, error) {
	plan := &models.MealPlan{UserID: userID, Name: name}
	if err := s.DB.CreatePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("failed to create meal plan: %w", err)
	}
	return plan, nil
}

// GetPlan returns the user's plan. Plans of other users answer not-found so
// their existence is not leaked.
func (s *Service) GetPlan(ctx context.Context, planID, userID int64) (*models.MealPlan, error) {
	plan, err := s.DB.GetPlanByID(ctx, planID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("failed to load meal plan %d: %w", planID, err)
	}
	if plan.UserID != userID {
		return nil, ErrPlanNotFound
	}
	return plan, nil
}

// ListPlans returns every plan the user owns.
func (s *Service) ListPlans(ctx context.Context, userID int64) ([]models.MealPlan, error) {
	plans, err := s.DB.ListPlans(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list meal plans: %w", err)
	}
	return plans, nil
}

// RenamePlan updates the plan name.
func (s *Service) RenamePlan(ctx context.Context, planID, userID int64, name string) (*models.MealPlan, error) {
	plan, err := s.GetPlan(ctx, planID, userID)
	if err != nil {
		return nil, err
	}
	plan.Name = name
	if err := s.DB.UpdatePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("failed to update meal plan %d: %w", planID, err)
	}
	return plan, nil
}

// DeletePlan removes the plan with its days and slots.
func (s *Service) DeletePlan(ctx context.Context, planID, userID int64) error {
	if _, err := s.GetPlan(ctx, planID, userID); err != nil {
		return err
	}
	if err := s.DB.DeletePlan(ctx, planID); err != nil {
		if db.IsNotFound(err) {
			return ErrPlanNotFound
		}
		return fmt.Errorf("failed to delete meal plan %d: %w", planID, err)
	}
	return nil
}

// ListDays returns the plan's scheduled days inside [from,to].
func (s *Service) ListDays(ctx context.Context, planID, userID int64, from, to time.Time) ([]models.DaySchedule, error) {
	if _, err := s.GetPlan(ctx, planID, userID); err != nil {
		return nil, err
	}
	days, err := s.DB.ListDays(ctx, planID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list days: %w", err)
	}
	if len(days) == 0 {
		return nil, ErrDayNotFound
	}
	return days, nil
}

// AddDayRecipe puts a recipe into a slot of the plan's day, creating the day
// on first use.
func (s *Service) AddDayRecipe(ctx context.Context, planID, userID int64, date time.Time, recipeID int64, order int) (*models.DayScheduleRecipe, error) {
	if _, err := s.GetPlan(ctx, planID, userID); err != nil {
		return nil, err
	}

	exists, err := s.DB.RecipeExists(ctx, recipeID)
	if err != nil {
		return nil, fmt.Errorf("failed to check recipe: %w", err)
	}
	if !exists {
		return nil, ErrRecipeNotFound
	}

	day, err := s.DB.GetOrCreateDay(ctx, planID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve day: %w", err)
	}

	taken, err := s.DB.OrderTaken(ctx, day.ID, order)
	if err != nil {
		return nil, fmt.Errorf("failed to check slot: %w", err)
	}
	if taken {
		return nil, ErrOrderTaken
	}

	entry := &models.DayScheduleRecipe{
		DayScheduleID: day.ID,
		RecipeID:      recipeID,
		Order:         order,
	}
	if err := s.DB.AddDayRecipe(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to add day recipe: %w", err)
	}
	return entry, nil
}

// SwapDayRecipe replaces the recipe in an existing slot.
func (s *Service) SwapDayRecipe(ctx context.Context, planID, userID, entryID, recipeID int64) (*models.DayScheduleRecipe, error) {
	entry, err := s.dayRecipeOfPlan(ctx, planID, userID, entryID)
	if err != nil {
		return nil, err
	}

	exists, err := s.DB.RecipeExists(ctx, recipeID)
	if err != nil {
		return nil, fmt.Errorf("failed to check recipe: %w", err)
	}
	if !exists {
		return nil, ErrRecipeNotFound
	}

	entry.RecipeID = recipeID
	if err := s.DB.UpdateDayRecipe(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to update day recipe %d: %w", entryID, err)
	}
	return entry, nil
}

// RemoveDayRecipe frees a slot.
func (s *Service) RemoveDayRecipe(ctx context.Context, planID, userID, entryID int64) error {
	if _, err := s.dayRecipeOfPlan(ctx, planID, userID, entryID); err != nil {
		return err
	}
	if err := s.DB.DeleteDayRecipe(ctx, entryID); err != nil {
		if db.IsNotFound(err) {
			return ErrDayRecipeNotFound
		}
		return fmt.Errorf("failed to delete day recipe %d: %w", entryID, err)
	}
	return nil
}

// ReorderDay rewrites the day's slots 1..n following the given entry id
// sequence. The sequence must contain exactly the day's entries.
func (s *Service) ReorderDay(ctx context.Context, planID, userID, dayID int64, entryIDs []int64) (*models.DaySchedule, error) {
	if _, err := s.GetPlan(ctx, planID, userID); err != nil {
		return nil, err
	}

	day, err := s.DB.GetDayByID(ctx, dayID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrDayNotFound
		}
		return nil, fmt.Errorf("failed to load day %d: %w", dayID, err)
	}
	if day.MealPlanID != planID {
		return nil, ErrDayNotFound
	}

	current := make(map[int64]bool, len(day.Recipes))
	for _, entry := range day.Recipes {
		current[entry.ID] = true
	}
	if len(entryIDs) != len(current) {
		return nil, ErrBadReorder
	}
	orders := make(map[int64]int, len(entryIDs))
	for i, id := range entryIDs {
		if !current[id] || orders[id] != 0 {
			return nil, ErrBadReorder
		}
		orders[id] = i + 1
	}

	if err := s.DB.ReorderDayRecipes(ctx, dayID, orders); err != nil {
		return nil, fmt.Errorf("failed to reorder day %d: %w", dayID, err)
	}
	return s.DB.GetDayByID(ctx, dayID)
}

func (s *Service) dayRecipeOfPlan(ctx context.Context, planID, userID, entryID int64) (*models.DayScheduleRecipe, error) {
	if _, err := s.GetPlan(ctx, planID, userID); err != nil {
		return nil, err
	}

	entry, err := s.DB.GetDayRecipe(ctx, entryID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrDayRecipeNotFound
		}
		return nil, fmt.Errorf("failed to load day recipe %d: %w", entryID, err)
	}

	day, err := s.DB.GetDayByID(ctx, entry.DayScheduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load day %d: %w", entry.DayScheduleID, err)
	}
	if day.MealPlanID != planID {
		return nil, ErrDayRecipeNotFound
	}
	return entry, nil
}
