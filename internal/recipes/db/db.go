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

// ListFilter narrows and pages the recipe listing.
type ListFilter struct {
	Query         string
	TagIDs        []int64
	Difficulty    models.Difficulty
	MaxCalories   float64
	OnlyPublished bool
	Page          int
	PageSize      int
}

// CreateRecipe inserts the recipe with its stages, ingredient rows and tag
// links in one transaction.
func (d *DB) CreateRecipe(ctx context.Context, recipe *models.Recipe, stages []models.RecipeStage, ingredients []models.RecipeIngredient, tagIDs []int64) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(recipe).Exec(ctx); err != nil {
			return err
		}

		for i := range stages {
			stages[i].RecipeID = recipe.ID
		}
		if len(stages) > 0 {
			if _, err := tx.NewInsert().Model(&stages).Exec(ctx); err != nil {
				return err
			}
		}

		for i := range ingredients {
			ingredients[i].RecipeID = recipe.ID
		}
		if len(ingredients) > 0 {
			if _, err := tx.NewInsert().Model(&ingredients).Exec(ctx); err != nil {
				return err
			}
		}

		if len(tagIDs) > 0 {
			links := make([]models.RecipeTag, 0, len(tagIDs))
			for _, tagID := range tagIDs {
				links = append(links, models.RecipeTag{RecipeID: recipe.ID, TagID: tagID})
			}
			if _, err := tx.NewInsert().Model(&links).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetRecipeByID → fetch a recipe with stages, ingredients and tags
func (d *DB) GetRecipeByID(ctx context.Context, id int64) (*models.Recipe, error) {
	var recipe models.Recipe
	err := d.Bun.NewSelect().
		Model(&recipe).
		Where("recipe.id = ?", id).
		Relation("Stages", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("order_index ASC")
		}).
		Relation("Ingredients").
		Relation("Ingredients.Ingredient").
		Relation("Ingredients.Unit").
		Relation("Tags").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &recipe, nil
}

// ListRecipes applies the filter and returns one page plus the total count,
// newest first.
func (d *DB) ListRecipes(ctx context.Context, filter ListFilter) ([]models.Recipe, int, error) {
	query := d.Bun.NewSelect().
		Model((*models.Recipe)(nil)).
		Relation("Tags")

	if filter.Query != "" {
		query = query.Where("recipe.title ILIKE ?", "%"+filter.Query+"%")
	}
	if filter.Difficulty != "" {
		query = query.Where("recipe.difficulty = ?", filter.Difficulty)
	}
	if filter.MaxCalories > 0 {
		query = query.Where("recipe.calories <= ?", filter.MaxCalories)
	}
	if filter.OnlyPublished {
		query = query.Where("recipe.is_published = TRUE")
	}
	if len(filter.TagIDs) > 0 {
		query = query.
			Join("JOIN recipe_tags AS frt ON frt.recipe_id = recipe.id").
			Where("frt.tag_id IN (?)", bun.In(filter.TagIDs)).
			Distinct()
	}

	total, err := query.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	var recipes []models.Recipe
	offset := (filter.Page - 1) * filter.PageSize
	err = query.
		Order("recipe.created_at DESC").
		Offset(offset).
		Limit(filter.PageSize).
		Scan(ctx, &recipes)
	if err != nil {
		return nil, 0, err
	}
	return recipes, total, nil
}

// SetPublished flips the publish flag and stamps published_at.
func (d *DB) SetPublished(ctx context.Context, id int64, published bool, at time.Time) error {
	query := d.Bun.NewUpdate().
		Model((*models.Recipe)(nil)).
		Set("is_published = ?", published).
		Where("id = ?", id)
	if published {
		query = query.Set("published_at = ?", at)
	} else {
		query = query.Set("published_at = NULL")
	}

	res, err := query.Exec(ctx)
	if err != nil {
		return err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetPhotoURL → store the preview path
func (d *DB) SetPhotoURL(ctx context.Context, id int64, url string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Recipe)(nil)).
		Set("photo_url = ?", url).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// SetStagePhotoURL → store a stage photo path
func (d *DB) SetStagePhotoURL(ctx context.Context, recipeID int64, orderIndex int, url string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.RecipeStage)(nil)).
		Set("photo_url = ?", url).
		Where("recipe_id = ?", recipeID).
		Where("order_index = ?", orderIndex).
		Exec(ctx)
	return err
}

// IncrementViews bumps the view counter without racing parallel readers.
func (d *DB) IncrementViews(ctx context.Context, id int64) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Recipe)(nil)).
		Set("view_count = view_count + 1").
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// DeleteRecipe → delete a recipe; stages, ingredients, tag links, likes and
// comments cascade.
func (d *DB) DeleteRecipe(ctx context.Context, id int64) error {
	res, err := d.Bun.NewDelete().
		Model((*models.Recipe)(nil)).
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

// MissingIngredientIDs returns ids from the input that have no row.
func (d *DB) MissingIngredientIDs(ctx context.Context, ids []int64) ([]int64, error) {
	return d.missingIDs(ctx, (*models.Ingredient)(nil), ids)
}

// MissingTagIDs returns ids from the input that have no row.
func (d *DB) MissingTagIDs(ctx context.Context, ids []int64) ([]int64, error) {
	return d.missingIDs(ctx, (*models.Tag)(nil), ids)
}

// MissingUnitIDs returns ids from the input that have no row.
func (d *DB) MissingUnitIDs(ctx context.Context, ids []int64) ([]int64, error) {
	return d.missingIDs(ctx, (*models.UnitOfMeasurement)(nil), ids)
}

func (d *DB) missingIDs(ctx context.Context, model interface{}, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []int64
	err := d.Bun.NewSelect().
		Model(model).
		Column("id").
		Where("id IN (?)", bun.In(ids)).
		Scan(ctx, &found)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]bool, len(found))
	for _, id := range found {
		seen[id] = true
	}
	var missing []int64
	for _, id := range ids {
		if !seen[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// LikeExists reports whether the user already likes the recipe.
func (d *DB) LikeExists(ctx context.Context, userID, recipeID int64) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.RecipeLike)(nil)).
		Where("user_id = ?", userID).
		Where("recipe_id = ?", recipeID).
		Exists(ctx)
}

// InsertLike records a like; the unique index keeps it one per user.
func (d *DB) InsertLike(ctx context.Context, like *models.RecipeLike) error {
	_, err := d.Bun.NewInsert().
		Model(like).
		On("CONFLICT (user_id, recipe_id) DO NOTHING").
		Exec(ctx)
	return err
}

// DeleteLike removes the user's like.
func (d *DB) DeleteLike(ctx context.Context, userID, recipeID int64) error {
	_, err := d.Bun.NewDelete().
		Model((*models.RecipeLike)(nil)).
		Where("user_id = ?", userID).
		Where("recipe_id = ?", recipeID).
		Exec(ctx)
	return err
}

// CountLikes → like count for a recipe
func (d *DB) CountLikes(ctx context.Context, recipeID int64) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.RecipeLike)(nil)).
		Where("recipe_id = ?", recipeID).
		Count(ctx)
}

// CountComments → visible comment count for a recipe
func (d *DB) CountComments(ctx context.Context, recipeID int64) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.Comment)(nil)).
		Where("recipe_id = ?", recipeID).
		Where("deleted = FALSE").
		Count(ctx)
}

// ListComments → all comments for a recipe, oldest first, authors joined
func (d *DB) ListComments(ctx context.Context, recipeID int64) ([]models.Comment, error) {
	var comments []models.Comment
	err := d.Bun.NewSelect().
		Model(&comments).
		Where("comment.recipe_id = ?", recipeID).
		Relation("Author").
		Order("comment.created_at ASC").
		Scan(ctx)
	return comments, err
}

// GetComment → fetch one comment
func (d *DB) GetComment(ctx context.Context, id int64) (*models.Comment, error) {
	var comment models.Comment
	err := d.Bun.NewSelect().
		Model(&comment).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// CreateComment → insert a comment
func (d *DB) CreateComment(ctx context.Context, comment *models.Comment) error {
	_, err := d.Bun.NewInsert().Model(comment).Exec(ctx)
	return err
}

// UpdateComment → update text and rating
func (d *DB) UpdateComment(ctx context.Context, comment *models.Comment) error {
	_, err := d.Bun.NewUpdate().
		Model(comment).
		Column("text", "rating").
		Where("id = ?", comment.ID).
		Exec(ctx)
	return err
}

// SoftDeleteComment keeps the row so replies stay attached.
func (d *DB) SoftDeleteComment(ctx context.Context, id int64) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Comment)(nil)).
		Set("deleted = TRUE").
		Where("id = ?", id).
		Exec(ctx)
	return err
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
