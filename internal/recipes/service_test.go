package recipes_test

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-backoffice/internal/logger"
	"ms-backoffice/internal/models"
	"ms-backoffice/internal/recipes"
	"ms-backoffice/internal/recipes/db"
)

type MockMedia struct {
	removed []string
}

func (m *MockMedia) SaveRecipePreview(recipeID int64, r io.Reader) (string, error) {
	return "media/recipes/preview.jpg", nil
}

func (m *MockMedia) SaveRecipeStagePhoto(recipeID int64, orderIndex int, r io.Reader) (string, error) {
	return "media/recipes/stage.jpg", nil
}

func (m *MockMedia) Remove(path string) error {
	if path != "" {
		m.removed = append(m.removed, path)
	}
	return nil
}

func setupTestService(t *testing.T) (*recipes.Service, *db.DB) {
	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	bunDB.RegisterModel((*models.RecipeTag)(nil))

	ctx := context.Background()
	tables := []interface{}{
		(*models.User)(nil),
		(*models.Ingredient)(nil),
		(*models.UnitOfMeasurement)(nil),
		(*models.Tag)(nil),
		(*models.Recipe)(nil),
		(*models.RecipeStage)(nil),
		(*models.RecipeIngredient)(nil),
		(*models.RecipeTag)(nil),
		(*models.RecipeLike)(nil),
		(*models.Comment)(nil),
	}
	for _, table := range tables {
		if err := bunDB.ResetModel(ctx, table); err != nil {
			t.Fatalf("Failed to reset model: %v", err)
		}
	}
	t.Cleanup(func() { bunDB.Close() })

	database := &db.DB{Bun: bunDB}
	return recipes.NewService(database, &MockMedia{}, logger.NewLogger()), database
}

func seedCatalog(t *testing.T, database *db.DB) (ingredientID, unitID int64) {
	ctx := context.Background()

	ingredient := &models.Ingredient{Name: "Tomato"}
	if _, err := database.Bun.NewInsert().Model(ingredient).Exec(ctx); err != nil {
		t.Fatalf("Failed to insert ingredient: %v", err)
	}
	unit := &models.UnitOfMeasurement{Name: "g"}
	if _, err := database.Bun.NewInsert().Model(unit).Exec(ctx); err != nil {
		t.Fatalf("Failed to insert unit: %v", err)
	}
	return ingredient.ID, unit.ID
}

func createRecipe(t *testing.T, service *recipes.Service, database *db.DB, authorID int64, title string) *recipes.RecipeFull {
	ingredientID, unitID := seedCatalog(t, database)

	recipe, err := service.CreateRecipe(context.Background(), authorID, recipes.RecipeCreate{
		Title:      title,
		Difficulty: models.DifficultyEasy,
		Servings:   2,
		Stages: []recipes.StageInput{
			{OrderIndex: 1, Minutes: 10, Title: "Chop"},
		},
		Ingredients: []recipes.IngredientInput{
			{IngredientID: ingredientID, UnitID: unitID, Quantity: 400},
		},
	}, strings.NewReader("jpeg"), nil)
	if err != nil {
		t.Fatalf("Failed to create recipe: %v", err)
	}
	return recipe
}

func TestCreateRecipeRejectsUnknownIngredient(t *testing.T) {
	service, _ := setupTestService(t)

	_, err := service.CreateRecipe(context.Background(), 1, recipes.RecipeCreate{
		Title:       "Tomato soup",
		Ingredients: []recipes.IngredientInput{{IngredientID: 404, UnitID: 404}},
	}, nil, nil)
	if !errors.Is(err, recipes.ErrIngredientNotFound) {
		t.Errorf("Expected ErrIngredientNotFound, got %v", err)
	}
}

func TestToggleLike(t *testing.T) {
	service, database := setupTestService(t)
	recipe := createRecipe(t, service, database, 1, "Tomato soup")
	ctx := context.Background()

	liked, err := service.ToggleLike(ctx, recipe.ID, 2)
	if err != nil {
		t.Fatalf("Failed to toggle like: %v", err)
	}
	if !liked {
		t.Error("Expected first toggle to like")
	}

	liked, err = service.ToggleLike(ctx, recipe.ID, 2)
	if err != nil {
		t.Fatalf("Failed to toggle like: %v", err)
	}
	if liked {
		t.Error("Expected second toggle to unlike")
	}

	if _, err := service.ToggleLike(ctx, 404, 2); !errors.Is(err, recipes.ErrRecipeNotFound) {
		t.Errorf("Expected ErrRecipeNotFound, got %v", err)
	}
}

func TestListRecipesPagination(t *testing.T) {
	service, database := setupTestService(t)
	createRecipe(t, service, database, 1, "Tomato soup")
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		recipe := &models.Recipe{AuthorID: 1, Title: "Pasta", Difficulty: models.DifficultyEasy, Servings: 1}
		if _, err := database.Bun.NewInsert().Model(recipe).Exec(ctx); err != nil {
			t.Fatalf("Failed to insert recipe: %v", err)
		}
	}

	result, err := service.ListRecipes(ctx, db.ListFilter{Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("Failed to list recipes: %v", err)
	}
	if result.TotalCount != 5 {
		t.Errorf("Expected total 5, got %d", result.TotalCount)
	}
	if len(result.Recipes) != 2 {
		t.Errorf("Expected 2 recipes on the page, got %d", len(result.Recipes))
	}

	result, err = service.ListRecipes(ctx, db.ListFilter{Page: 3, PageSize: 2})
	if err != nil {
		t.Fatalf("Failed to list last page: %v", err)
	}
	if len(result.Recipes) != 1 {
		t.Errorf("Expected 1 recipe on the last page, got %d", len(result.Recipes))
	}
}

func TestCommentAuthorChecks(t *testing.T) {
	service, database := setupTestService(t)
	recipe := createRecipe(t, service, database, 1, "Tomato soup")
	ctx := context.Background()

	author := &models.User{Login: "anna", Role: models.RoleUser}
	if _, err := database.Bun.NewInsert().Model(author).Exec(ctx); err != nil {
		t.Fatalf("Failed to insert user: %v", err)
	}

	comment, err := service.CreateComment(ctx, recipe.ID, author.ID, "Delicious", 5, nil)
	if err != nil {
		t.Fatalf("Failed to create comment: %v", err)
	}

	// Another user may not edit or delete it.
	if _, err := service.UpdateComment(ctx, comment.ID, author.ID+1, "Edited", 4); !errors.Is(err, recipes.ErrForbidden) {
		t.Errorf("Expected ErrForbidden, got %v", err)
	}
	if err := service.DeleteComment(ctx, comment.ID, author.ID+1); !errors.Is(err, recipes.ErrForbidden) {
		t.Errorf("Expected ErrForbidden, got %v", err)
	}

	if err := service.DeleteComment(ctx, comment.ID, author.ID); err != nil {
		t.Fatalf("Failed to delete own comment: %v", err)
	}

	// Editing a deleted comment is rejected.
	if _, err := service.UpdateComment(ctx, comment.ID, author.ID, "Edited", 4); !errors.Is(err, recipes.ErrCommentDeleted) {
		t.Errorf("Expected ErrCommentDeleted, got %v", err)
	}
}
