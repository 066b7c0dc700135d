package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-backoffice/internal/models"
	"ms-backoffice/internal/visits/db"
)

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { sqldb.Close() })

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	ctx := context.Background()
	tables := []interface{}{
		(*models.Event)(nil),
		(*models.Employee)(nil),
		(*models.VisitInterval)(nil),
		(*models.IntervalEmployee)(nil),
	}
	for _, table := range tables {
		if err := bunDB.ResetModel(ctx, table); err != nil {
			t.Fatalf("Failed to reset model %T: %v", table, err)
		}
	}
	return &db.DB{Bun: bunDB}
}

func createEvent(t *testing.T, d *db.DB, start time.Time) *models.Event {
	t.Helper()
	event := &models.Event{
		Name:          "quarterly meeting",
		StartDatetime: start,
		EndDatetime:   start.Add(2 * time.Hour),
	}
	if _, err := d.Bun.NewInsert().Model(event).Exec(context.Background()); err != nil {
		t.Fatalf("Failed to create event: %v", err)
	}
	return event
}

func TestGetOrCreateIntervalReturnsOneRow(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	start := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	event := createEvent(t, d, start)

	first, err := d.GetOrCreateInterval(ctx, &models.VisitInterval{
		EventID:       event.ID,
		Order:         2,
		StartDatetime: start.Add(10 * time.Minute),
		EndDatetime:   start.Add(15 * time.Minute),
	})
	if err != nil {
		t.Fatalf("Failed to create interval: %v", err)
	}

	second, err := d.GetOrCreateInterval(ctx, &models.VisitInterval{
		EventID:       event.ID,
		Order:         2,
		StartDatetime: start.Add(10 * time.Minute),
		EndDatetime:   start.Add(15 * time.Minute),
	})
	if err != nil {
		t.Fatalf("Failed to resolve existing interval: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("Expected the same interval row, got ids %d and %d", first.ID, second.ID)
	}

	count, err := d.Bun.NewSelect().Model((*models.VisitInterval)(nil)).Count(ctx)
	if err != nil {
		t.Fatalf("Failed to count intervals: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 interval row, got %d", count)
	}
}

func TestInsertIntervalEmployeeFirstSightingWins(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	start := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	event := createEvent(t, d, start)

	interval, err := d.GetOrCreateInterval(ctx, &models.VisitInterval{
		EventID:       event.ID,
		Order:         0,
		StartDatetime: start,
		EndDatetime:   start.Add(5 * time.Minute),
	})
	if err != nil {
		t.Fatalf("Failed to create interval: %v", err)
	}

	firstSpot := start.Add(30 * time.Second)
	inserted, err := d.InsertIntervalEmployee(ctx, &models.IntervalEmployee{
		IntervalID:        interval.ID,
		EmployeeID:        7,
		Photo:             "media/intervals/1_0/photo/employee/7.jpg",
		FirstSpotDatetime: firstSpot,
	})
	if err != nil {
		t.Fatalf("Failed to insert interval employee: %v", err)
	}
	if !inserted {
		t.Fatal("Expected the first insert to report inserted=true")
	}

	inserted, err = d.InsertIntervalEmployee(ctx, &models.IntervalEmployee{
		IntervalID:        interval.ID,
		EmployeeID:        7,
		FirstSpotDatetime: start.Add(3 * time.Minute),
	})
	if err != nil {
		t.Fatalf("Failed to insert duplicate interval employee: %v", err)
	}
	if inserted {
		t.Error("Expected the duplicate insert to report inserted=false")
	}

	var stored models.IntervalEmployee
	err = d.Bun.NewSelect().
		Model(&stored).
		Where("interval_id = ?", interval.ID).
		Where("employee_id = ?", 7).
		Scan(ctx)
	if err != nil {
		t.Fatalf("Failed to load interval employee: %v", err)
	}
	if !stored.FirstSpotDatetime.Equal(firstSpot) {
		t.Errorf("Expected first sighting %v to be kept, got %v", firstSpot, stored.FirstSpotDatetime)
	}
}

func TestUpdateUnregisteredLastWriteWins(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	start := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	event := createEvent(t, d, start)

	interval, err := d.GetOrCreateInterval(ctx, &models.VisitInterval{
		EventID:       event.ID,
		Order:         1,
		StartDatetime: start.Add(5 * time.Minute),
		EndDatetime:   start.Add(10 * time.Minute),
	})
	if err != nil {
		t.Fatalf("Failed to create interval: %v", err)
	}

	if err := d.UpdateUnregistered(ctx, interval.ID, 3, "photo_3.jpg"); err != nil {
		t.Fatalf("Failed to update unregistered count: %v", err)
	}
	if err := d.UpdateUnregistered(ctx, interval.ID, 5, "photo_5.jpg"); err != nil {
		t.Fatalf("Failed to update unregistered count again: %v", err)
	}

	var stored models.VisitInterval
	if err := d.Bun.NewSelect().Model(&stored).Where("id = ?", interval.ID).Scan(ctx); err != nil {
		t.Fatalf("Failed to load interval: %v", err)
	}
	if stored.MaxUnregistered != 5 {
		t.Errorf("Expected latest count 5, got %d", stored.MaxUnregistered)
	}
	if stored.MaxUnregisteredPhoto != "photo_5.jpg" {
		t.Errorf("Expected latest photo, got %s", stored.MaxUnregisteredPhoto)
	}
}

func TestUpdateUnregisteredMissingInterval(t *testing.T) {
	d := setupTestDB(t)

	err := d.UpdateUnregistered(context.Background(), 9999, 1, "photo.jpg")
	if !db.IsNotFound(err) {
		t.Errorf("Expected a not-found error, got %v", err)
	}
}
