package db_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-backoffice/internal/employees/db"
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
		(*models.Department)(nil),
		(*models.Position)(nil),
		(*models.Employee)(nil),
		(*models.EmployeePhoto)(nil),
	}
	for _, table := range tables {
		if err := bunDB.ResetModel(ctx, table); err != nil {
			t.Fatalf("Failed to reset model: %v", err)
		}
	}

	t.Cleanup(func() { bunDB.Close() })
	return &db.DB{Bun: bunDB}
}

func TestGetOrCreateDepartmentIdempotent(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	first, err := database.GetOrCreateDepartment(ctx, "Engineering")
	if err != nil {
		t.Fatalf("Failed to create department: %v", err)
	}
	second, err := database.GetOrCreateDepartment(ctx, "Engineering")
	if err != nil {
		t.Fatalf("Failed to get department: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("Expected same department row, got ids %d and %d", first.ID, second.ID)
	}

	count, err := database.Bun.NewSelect().Model((*models.Department)(nil)).Count(ctx)
	if err != nil {
		t.Fatalf("Failed to count departments: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 department row, got %d", count)
	}
}

func TestDeleteDepartmentIfUnused(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	used, err := database.GetOrCreateDepartment(ctx, "Engineering")
	if err != nil {
		t.Fatalf("Failed to create department: %v", err)
	}
	orphan, err := database.GetOrCreateDepartment(ctx, "Legal")
	if err != nil {
		t.Fatalf("Failed to create department: %v", err)
	}

	employee := &models.Employee{Name: "Anna", Surname: "Petrova", DepartmentID: used.ID}
	if err := database.CreateEmployee(ctx, employee); err != nil {
		t.Fatalf("Failed to create employee: %v", err)
	}

	if err := database.DeleteDepartmentIfUnused(ctx, used.ID); err != nil {
		t.Fatalf("Failed to check used department: %v", err)
	}
	if err := database.DeleteDepartmentIfUnused(ctx, orphan.ID); err != nil {
		t.Fatalf("Failed to delete orphan department: %v", err)
	}

	departments, err := database.ListDepartments(ctx)
	if err != nil {
		t.Fatalf("Failed to list departments: %v", err)
	}
	if len(departments) != 1 {
		t.Fatalf("Expected 1 department left, got %d", len(departments))
	}
	if departments[0].Name != "Engineering" {
		t.Errorf("Expected the used department to survive, got %s", departments[0].Name)
	}
}

func TestEmployeePhotoRoundTrip(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	employee := &models.Employee{Name: "Anna", Surname: "Petrova"}
	if err := database.CreateEmployee(ctx, employee); err != nil {
		t.Fatalf("Failed to create employee: %v", err)
	}

	photo := &models.EmployeePhoto{EmployeeID: employee.ID, Photo: "media/employees/1/photo/face.jpg"}
	if err := database.AddPhoto(ctx, photo); err != nil {
		t.Fatalf("Failed to add photo: %v", err)
	}

	loaded, err := database.GetPhoto(ctx, photo.ID)
	if err != nil {
		t.Fatalf("Failed to load photo: %v", err)
	}
	if loaded.EmployeeID != employee.ID {
		t.Errorf("Expected photo owner %d, got %d", employee.ID, loaded.EmployeeID)
	}

	if err := database.DeletePhoto(ctx, photo.ID); err != nil {
		t.Fatalf("Failed to delete photo: %v", err)
	}
	if _, err := database.GetPhoto(ctx, photo.ID); !db.IsNotFound(err) {
		t.Errorf("Expected not-found after delete, got %v", err)
	}
}

func TestGetEmployeeLoadsRelations(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	department, err := database.GetOrCreateDepartment(ctx, "Engineering")
	if err != nil {
		t.Fatalf("Failed to create department: %v", err)
	}
	position, err := database.GetOrCreatePosition(ctx, "Backend developer")
	if err != nil {
		t.Fatalf("Failed to create position: %v", err)
	}

	employee := &models.Employee{
		Name: "Anna", Surname: "Petrova",
		DepartmentID: department.ID, PositionID: position.ID,
	}
	if err := database.CreateEmployee(ctx, employee); err != nil {
		t.Fatalf("Failed to create employee: %v", err)
	}

	loaded, err := database.GetEmployeeByID(ctx, employee.ID)
	if err != nil {
		t.Fatalf("Failed to load employee: %v", err)
	}
	if loaded.Department == nil || loaded.Department.Name != "Engineering" {
		t.Errorf("Expected department relation to be loaded, got %+v", loaded.Department)
	}
	if loaded.Position == nil || loaded.Position.Name != "Backend developer" {
		t.Errorf("Expected position relation to be loaded, got %+v", loaded.Position)
	}
}
