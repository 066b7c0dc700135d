package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"ms-backoffice/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// GetEventByID → fetch one event by its ID
func (d *DB) GetEventByID(ctx context.Context, id int64) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// EmployeeExists reports whether an employee row exists.
func (d *DB) EmployeeExists(ctx context.Context, id int64) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.Employee)(nil)).
		Where("id = ?", id).
		Exists(ctx)
}

// GetOrCreateInterval inserts the interval for (event_id, order) and returns
// the winning row. The unique constraint plus ON CONFLICT DO NOTHING makes
// concurrent ingestion calls converge on a single row.
func (d *DB) GetOrCreateInterval(ctx context.Context, interval *models.VisitInterval) (*models.VisitInterval, error) {
	_, err := d.Bun.NewInsert().
		Model(interval).
		On("CONFLICT (event_id, \"order\") DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	var existing models.VisitInterval
	err = d.Bun.NewSelect().
		Model(&existing).
		Where("event_id = ?", interval.EventID).
		Where("\"order\" = ?", interval.Order).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &existing, nil
}

// InsertIntervalEmployee records the first sighting of an employee in an
// interval. Returns false when a row already exists: first sighting wins and
// later ones are dropped.
func (d *DB) InsertIntervalEmployee(ctx context.Context, ie *models.IntervalEmployee) (bool, error) {
	res, err := d.Bun.NewInsert().
		Model(ie).
		On("CONFLICT (interval_id, employee_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		// Driver without RowsAffected support; fall back to a lookup.
		exists, selErr := d.Bun.NewSelect().
			Model((*models.IntervalEmployee)(nil)).
			Where("interval_id = ?", ie.IntervalID).
			Where("employee_id = ?", ie.EmployeeID).
			Exists(ctx)
		return exists, selErr
	}
	return affected > 0, nil
}

// UpdateUnregistered overwrites the interval's unregistered count and photo
// with the latest reported values.
func (d *DB) UpdateUnregistered(ctx context.Context, intervalID int64, count int, photo string) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.VisitInterval)(nil)).
		Set("max_unregistered = ?", count).
		Set("max_unregistered_photo = ?", photo).
		Where("id = ?", intervalID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// IsNotFound reports whether err is the driver's empty-result error.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
