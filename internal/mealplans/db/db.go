package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"ms-backoffice/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// CreatePlan → insert new meal plan
func (d *DB) CreatePlan(ctx context.Context, plan *models.MealPlan) error {
	_, err := d.Bun.NewInsert().Model(plan).Exec(ctx)
	return err
}

// GetPlanByID → fetch one plan without days
func (d *DB) GetPlanByID(ctx context.Context, id int64) (*models.MealPlan, error) {
	var plan models.MealPlan
	err := d.Bun.NewSelect().
		Model(&plan).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// ListPlans → every plan owned by the user
func (d *DB) ListPlans(ctx context.Context, userID int64) ([]models.MealPlan, error) {
	var plans []models.MealPlan
	err := d.Bun.NewSelect().
		Model(&plans).
		Where("user_id = ?", userID).
		Order("id ASC").
		Scan(ctx)
	return plans, err
}

// UpdatePlan → rename a plan
func (d *DB) UpdatePlan(ctx context.Context, plan *models.MealPlan) error {
	_, err := d.Bun.NewUpdate().
		Model(plan).
		Column("name").
		Where("id = ?", plan.ID).
		Exec(ctx)
	return err
}

// DeletePlan → delete a plan; day schedules and their recipes cascade.
func (d *DB) DeletePlan(ctx context.Context, id int64) error {
	res, err := d.Bun.NewDelete().
		Model((*models.MealPlan)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListDays → the plan's day schedules inside [from,to] with recipes ordered
// by their slot
func (d *DB) ListDays(ctx context.Context, planID int64, from, to time.Time) ([]models.DaySchedule, error) {
	var days []models.DaySchedule
	err := d.Bun.NewSelect().
		Model(&days).
		Where("day_schedule.meal_plan_id = ?", planID).
		Where("day_schedule.date >= ?", from).
		Where("day_schedule.date <= ?", to).
		Relation("Recipes", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("\"order\" ASC")
		}).
		Relation("Recipes.Recipe").
		Order("day_schedule.date ASC").
		Scan(ctx)
	return days, err
}

// GetOrCreateDay resolves the plan's schedule for a date, inserting it when
// new. The unique index on (meal_plan_id, date) keeps concurrent callers on
// one row.
func (d *DB) GetOrCreateDay(ctx context.Context, planID int64, date time.Time) (*models.DaySchedule, error) {
	day := &models.DaySchedule{MealPlanID: planID, Date: date}
	_, err := d.Bun.NewInsert().
		Model(day).
		On("CONFLICT (meal_plan_id, date) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	var existing models.DaySchedule
	err = d.Bun.NewSelect().
		Model(&existing).
		Where("meal_plan_id = ?", planID).
		Where("date = ?", date).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &existing, nil
}

// GetDayByID → fetch one day schedule with its recipes
func (d *DB) GetDayByID(ctx context.Context, id int64) (*models.DaySchedule, error) {
	var day models.DaySchedule
	err := d.Bun.NewSelect().
		Model(&day).
		Where("day_schedule.id = ?", id).
		Relation("Recipes", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("\"order\" ASC")
		}).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &day, nil
}

// OrderTaken reports whether the day already has a recipe in that slot.
func (d *DB) OrderTaken(ctx context.Context, dayID int64, order int) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.DayScheduleRecipe)(nil)).
		Where("day_schedule_id = ?", dayID).
		Where("\"order\" = ?", order).
		Exists(ctx)
}

// AddDayRecipe → insert a recipe into a day slot
func (d *DB) AddDayRecipe(ctx context.Context, entry *models.DayScheduleRecipe) error {
	_, err := d.Bun.NewInsert().Model(entry).Exec(ctx)
	return err
}

// GetDayRecipe → fetch one day slot entry
func (d *DB) GetDayRecipe(ctx context.Context, id int64) (*models.DayScheduleRecipe, error) {
	var entry models.DayScheduleRecipe
	err := d.Bun.NewSelect().
		Model(&entry).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// UpdateDayRecipe → swap the recipe in a slot
func (d *DB) UpdateDayRecipe(ctx context.Context, entry *models.DayScheduleRecipe) error {
	_, err := d.Bun.NewUpdate().
		Model(entry).
		Column("recipe_id").
		Where("id = ?", entry.ID).
		Exec(ctx)
	return err
}

// DeleteDayRecipe → remove a recipe from a day
func (d *DB) DeleteDayRecipe(ctx context.Context, id int64) error {
	res, err := d.Bun.NewDelete().
		Model((*models.DayScheduleRecipe)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ReorderDayRecipes rewrites the slot order of a day in one transaction.
// orders maps entry id to its new 1-based slot.
func (d *DB) ReorderDayRecipes(ctx context.Context, dayID int64, orders map[int64]int) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		// Park the rows outside the occupied range first so the unique
		// index never sees two rows in one slot mid-rewrite.
		for id := range orders {
			_, err := tx.NewUpdate().
				Model((*models.DayScheduleRecipe)(nil)).
				Set("\"order\" = -id").
				Where("id = ?", id).
				Where("day_schedule_id = ?", dayID).
				Exec(ctx)
			if err != nil {
				return err
			}
		}
		for id, order := range orders {
			_, err := tx.NewUpdate().
				Model((*models.DayScheduleRecipe)(nil)).
				Set("\"order\" = ?", order).
				Where("id = ?", id).
				Where("day_schedule_id = ?", dayID).
				Exec(ctx)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// RecipeExists reports whether a recipe row exists.
func (d *DB) RecipeExists(ctx context.Context, id int64) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.Recipe)(nil)).
		Where("id = ?", id).
		Exists(ctx)
}

// IsNotFound reports whether err is the driver's empty-result error.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
