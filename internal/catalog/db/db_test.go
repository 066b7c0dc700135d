package db_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-backoffice/internal/catalog/db"
	"ms-backoffice/internal/models"
)

func setupTestDB(t *testing.T) *db.DB {
	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	ctx := context.Background()
	tables := []interface{}{
		(*models.Ingredient)(nil),
		(*models.Tag)(nil),
		(*models.UnitOfMeasurement)(nil),
	}
	for _, table := range tables {
		if err := bunDB.ResetModel(ctx, table); err != nil {
			t.Fatalf("Failed to reset model: %v", err)
		}
	}

	t.Cleanup(func() { bunDB.Close() })
	return &db.DB{Bun: bunDB}
}

func TestGetOrCreateTag(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	tag, created, err := database.GetOrCreateTag(ctx, "vegan")
	if err != nil {
		t.Fatalf("Failed to create tag: %v", err)
	}
	if !created {
		t.Error("Expected first call to report creation")
	}

	again, created, err := database.GetOrCreateTag(ctx, "vegan")
	if err != nil {
		t.Fatalf("Failed to get tag: %v", err)
	}
	if created {
		t.Error("Expected second call to find the existing row")
	}
	if again.ID != tag.ID {
		t.Errorf("Expected same tag row, got ids %d and %d", tag.ID, again.ID)
	}

	count, err := database.Bun.NewSelect().Model((*models.Tag)(nil)).Count(ctx)
	if err != nil {
		t.Fatalf("Failed to count tags: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 tag row, got %d", count)
	}
}

func TestGetIngredientByID(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	ingredient := &models.Ingredient{Name: "Tomato"}
	if _, err := database.Bun.NewInsert().Model(ingredient).Exec(ctx); err != nil {
		t.Fatalf("Failed to insert ingredient: %v", err)
	}

	loaded, err := database.GetIngredientByID(ctx, ingredient.ID)
	if err != nil {
		t.Fatalf("Failed to load ingredient: %v", err)
	}
	if loaded.Name != "Tomato" {
		t.Errorf("Expected Tomato, got %s", loaded.Name)
	}

	if _, err := database.GetIngredientByID(ctx, 404); !db.IsNotFound(err) {
		t.Errorf("Expected not-found, got %v", err)
	}
}

func TestListUnits(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	for _, name := range []string{"kg", "g", "ml"} {
		unit := &models.UnitOfMeasurement{Name: name}
		if _, err := database.Bun.NewInsert().Model(unit).Exec(ctx); err != nil {
			t.Fatalf("Failed to insert unit: %v", err)
		}
	}

	units, err := database.ListUnits(ctx)
	if err != nil {
		t.Fatalf("Failed to list units: %v", err)
	}
	if len(units) != 3 {
		t.Fatalf("Expected 3 units, got %d", len(units))
	}
	if units[0].Name != "g" {
		t.Errorf("Expected units ordered by name, got %s first", units[0].Name)
	}
}
