package models

import (
	"time"

	"github.com/uptrace/bun"
)

type MealPlan struct {
	bun.BaseModel `bun:"table:meal_plans"`

	ID     int64  `bun:"id,pk,autoincrement" json:"id"`
	UserID int64  `bun:"user_id,notnull" json:"-"`
	Name   string `bun:"name,notnull" json:"name"`

	Days []*DaySchedule `bun:"rel:has-many,join:id=meal_plan_id" json:"days"`
}

// DaySchedule is unique per (meal_plan_id, date).
type DaySchedule struct {
	bun.BaseModel `bun:"table:day_schedules"`

	ID         int64     `bun:"id,pk,autoincrement" json:"id"`
	MealPlanID int64     `bun:"meal_plan_id,notnull,unique:day_plan_date" json:"-"`
	Date       time.Time `bun:"date,notnull,unique:day_plan_date" json:"date"`

	Recipes []*DayScheduleRecipe `bun:"rel:has-many,join:id=day_schedule_id" json:"recipes"`
}

type DayScheduleRecipe struct {
	bun.BaseModel `bun:"table:day_schedule_recipes"`

	ID            int64 `bun:"id,pk,autoincrement" json:"id"`
	DayScheduleID int64 `bun:"day_schedule_id,notnull,unique:day_slot" json:"-"`
	RecipeID      int64 `bun:"recipe_id,notnull" json:"recipe_id"`
	Order         int   `bun:"\"order\",notnull,unique:day_slot" json:"order"`

	Recipe *Recipe `bun:"rel:belongs-to,join:recipe_id=id" json:"recipe,omitempty"`
}
