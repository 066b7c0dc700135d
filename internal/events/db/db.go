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

// ListFilter narrows and pages the event listing.
type ListFilter struct {
	Search   string
	DateFrom time.Time
	DateTo   time.Time

	// Participant attribute filters; an event matches when at least one of
	// its planned participants matches every set condition.
	EmployeeName       string
	EmployeeSurname    string
	EmployeePatronymic string
	Department         string
	Position           string

	Page     int
	PageSize int
}

func (f ListFilter) hasEmployeeFilter() bool {
	return f.EmployeeName != "" || f.EmployeeSurname != "" || f.EmployeePatronymic != "" ||
		f.Department != "" || f.Position != ""
}

// CreateEvent → insert new event
func (d *DB) CreateEvent(ctx context.Context, event *models.Event) error {
	_, err := d.Bun.NewInsert().Model(event).Exec(ctx)
	return err
}

// GetEventByID → fetch one event without relations
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

// GetEventWithParticipants → fetch an event with its planned participants
// and their department, position and photos.
func (d *DB) GetEventWithParticipants(ctx context.Context, id int64) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("event.id = ?", id).
		Relation("Participants").
		Relation("Participants.Employee").
		Relation("Participants.Employee.Department").
		Relation("Participants.Employee.Position").
		Relation("Participants.Employee.Photos").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// GetEventWithIntervals → fetch an event with its visit intervals and their
// employee rows, used for on-disk cleanup before deletion.
func (d *DB) GetEventWithIntervals(ctx context.Context, id int64) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("event.id = ?", id).
		Relation("Intervals").
		Relation("Intervals.Employees").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// UpdateEvent → update allowed fields
func (d *DB) UpdateEvent(ctx context.Context, event *models.Event) error {
	_, err := d.Bun.NewUpdate().
		Model(event).
		Column("name", "start_datetime", "end_datetime", "video").
		Where("id = ?", event.ID).
		Exec(ctx)
	return err
}

// DeleteEvent → delete an event; participant and interval rows cascade.
func (d *DB) DeleteEvent(ctx context.Context, id int64) error {
	res, err := d.Bun.NewDelete().
		Model((*models.Event)(nil)).
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

// ListEvents applies the filter and returns one page plus the total count.
func (d *DB) ListEvents(ctx context.Context, filter ListFilter) ([]models.Event, int, error) {
	query := d.Bun.NewSelect().
		Model((*models.Event)(nil)).
		Relation("Participants")

	query = applyFilter(query, filter)

	total, err := query.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	var events []models.Event
	offset := (filter.Page - 1) * filter.PageSize
	err = query.
		Order("event.start_datetime DESC").
		Offset(offset).
		Limit(filter.PageSize).
		Scan(ctx, &events)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func applyFilter(query *bun.SelectQuery, filter ListFilter) *bun.SelectQuery {
	if filter.Search != "" {
		query = query.Where("event.name ILIKE ?", "%"+filter.Search+"%")
	}
	if !filter.DateFrom.IsZero() {
		query = query.Where("event.start_datetime >= ?", filter.DateFrom)
	}
	if !filter.DateTo.IsZero() {
		query = query.Where("event.end_datetime <= ?", filter.DateTo)
	}
	if filter.hasEmployeeFilter() {
		query = query.
			Join("JOIN planned_participants AS fpp ON fpp.event_id = event.id").
			Join("JOIN employees AS fe ON fe.id = fpp.employee_id").
			Distinct()
		if filter.EmployeeName != "" {
			query = query.Where("fe.name ILIKE ?", "%"+filter.EmployeeName+"%")
		}
		if filter.EmployeeSurname != "" {
			query = query.Where("fe.surname ILIKE ?", "%"+filter.EmployeeSurname+"%")
		}
		if filter.EmployeePatronymic != "" {
			query = query.Where("fe.patronymic ILIKE ?", "%"+filter.EmployeePatronymic+"%")
		}
		if filter.Department != "" {
			query = query.
				Join("JOIN departments AS fd ON fd.id = fe.department_id").
				Where("fd.name = ?", filter.Department)
		}
		if filter.Position != "" {
			query = query.
				Join("JOIN positions AS fpos ON fpos.id = fe.position_id").
				Where("fpos.name = ?", filter.Position)
		}
	}
	return query
}

// ParticipantExists reports whether the employee is already planned for the event.
func (d *DB) ParticipantExists(ctx context.Context, eventID, employeeID int64) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.PlannedParticipant)(nil)).
		Where("event_id = ?", eventID).
		Where("employee_id = ?", employeeID).
		Exists(ctx)
}

// AddParticipants → insert planned participants for an event
func (d *DB) AddParticipants(ctx context.Context, participants []models.PlannedParticipant) error {
	if len(participants) == 0 {
		return nil
	}
	_, err := d.Bun.NewInsert().Model(&participants).Exec(ctx)
	return err
}

// RemoveParticipant → delete one planned participant
func (d *DB) RemoveParticipant(ctx context.Context, eventID, employeeID int64) error {
	res, err := d.Bun.NewDelete().
		Model((*models.PlannedParticipant)(nil)).
		Where("event_id = ?", eventID).
		Where("employee_id = ?", employeeID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// EmployeeExists reports whether an employee row exists.
func (d *DB) EmployeeExists(ctx context.Context, id int64) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.Employee)(nil)).
		Where("id = ?", id).
		Exists(ctx)
}

// IsNotFound reports whether err is the driver's empty-result error.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
