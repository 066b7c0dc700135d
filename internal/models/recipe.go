package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

type Recipe struct {
	bun.BaseModel `bun:"table:recipes"`

	ID          int64      `bun:"id,pk,autoincrement" json:"id"`
	AuthorID    int64      `bun:"author_id,notnull" json:"author_id"`
	Title       string     `bun:"title,notnull" json:"title"`
	Description string     `bun:"description,nullzero" json:"description,omitempty"`
	ViewCount   int        `bun:"view_count,notnull,default:0" json:"view_count"`
	CreatedAt   time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	PublishedAt *time.Time `bun:"published_at,nullzero" json:"published_at,omitempty"`
	IsPublished bool       `bun:"is_published,notnull,default:false" json:"is_published"`
	Servings    int        `bun:"servings,notnull,default:1" json:"servings"`
	Difficulty  Difficulty `bun:"difficulty,notnull,default:'EASY'" json:"difficulty"`
	Calories    float64    `bun:"calories,notnull,default:0" json:"calories"`
	PhotoURL    string     `bun:"photo_url,nullzero" json:"photo_url,omitempty"`

	Stages      []*RecipeStage      `bun:"rel:has-many,join:id=recipe_id" json:"stages,omitempty"`
	Ingredients []*RecipeIngredient `bun:"rel:has-many,join:id=recipe_id" json:"ingredients,omitempty"`
	Tags        []*Tag              `bun:"m2m:recipe_tags,join:Recipe=Tag" json:"tags,omitempty"`
}

type RecipeStage struct {
	bun.BaseModel `bun:"table:recipe_stages"`

	ID          int64  `bun:"id,pk,autoincrement" json:"id"`
	RecipeID    int64  `bun:"recipe_id,notnull,unique:stage_recipe_order" json:"recipe_id"`
	OrderIndex  int    `bun:"order_index,notnull,unique:stage_recipe_order" json:"order_index"`
	Minutes     int    `bun:"minutes,notnull" json:"minutes"`
	Title       string `bun:"title,notnull" json:"title"`
	Description string `bun:"description,nullzero" json:"description,omitempty"`
	PhotoURL    string `bun:"photo_url,nullzero" json:"photo_url,omitempty"`
}

type Ingredient struct {
	bun.BaseModel `bun:"table:ingredients"`

	ID      int64  `bun:"id,pk,autoincrement" json:"id"`
	Name    string `bun:"name,unique,notnull" json:"name"`
	IconURL string `bun:"icon_url,nullzero" json:"icon_url,omitempty"`
}

type UnitOfMeasurement struct {
	bun.BaseModel `bun:"table:units_of_measurement"`

	ID   int64  `bun:"id,pk,autoincrement" json:"id"`
	Name string `bun:"name,unique,notnull" json:"name"`
}

type RecipeIngredient struct {
	bun.BaseModel `bun:"table:recipe_ingredients"`

	ID           int64   `bun:"id,pk,autoincrement" json:"id"`
	RecipeID     int64   `bun:"recipe_id,notnull" json:"recipe_id"`
	IngredientID int64   `bun:"ingredient_id,notnull" json:"ingredient_id"`
	UnitID       int64   `bun:"unit_id,notnull" json:"unit_id"`
	Quantity     float64 `bun:"quantity,notnull,default:0" json:"quantity"`

	Ingredient *Ingredient        `bun:"rel:belongs-to,join:ingredient_id=id" json:"ingredient,omitempty"`
	Unit       *UnitOfMeasurement `bun:"rel:belongs-to,join:unit_id=id" json:"unit,omitempty"`
}

type Tag struct {
	bun.BaseModel `bun:"table:tags"`

	ID   int64  `bun:"id,pk,autoincrement" json:"id"`
	Name string `bun:"name,unique,notnull" json:"name"`
}

type RecipeTag struct {
	bun.BaseModel `bun:"table:recipe_tags"`

	RecipeID int64   `bun:"recipe_id,pk" json:"recipe_id"`
	TagID    int64   `bun:"tag_id,pk" json:"tag_id"`
	Recipe   *Recipe `bun:"rel:belongs-to,join:recipe_id=id" json:"-"`
	Tag      *Tag    `bun:"rel:belongs-to,join:tag_id=id" json:"-"`
}

// RecipeLike is unique per (user_id, recipe_id); liking twice toggles.
type RecipeLike struct {
	bun.BaseModel `bun:"table:recipe_likes"`

	ID       int64 `bun:"id,pk,autoincrement" json:"id"`
	UserID   int64 `bun:"user_id,notnull,unique:like_user_recipe" json:"user_id"`
	RecipeID int64 `bun:"recipe_id,notnull,unique:like_user_recipe" json:"recipe_id"`
}
