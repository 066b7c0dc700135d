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

// ListFilter narrows and pages the employee listing.
type ListFilter struct {
	Search     string
	Department string
	Position   string
	Page       int
	PageSize   int
}

// ActivityFilter narrows and pages an employee's attendance history.
type ActivityFilter struct {
	Search   string
	DateFrom time.Time
	DateTo   time.Time
	Page     int
	PageSize int
}

// CreateEmployee → insert new employee
func (d *DB) CreateEmployee(ctx context.Context, employee *models.Employee) error {
	_, err := d.Bun.NewInsert().Model(employee).Exec(ctx)
	return err
}

// GetEmployeeByID → fetch an employee with department, position and photos
func (d *DB) GetEmployeeByID(ctx context.Context, id int64) (*models.Employee, error) {
	var employee models.Employee
	err := d.Bun.NewSelect().
		Model(&employee).
		Where("employee.id = ?", id).
		Relation("Department").
		Relation("Position").
		Relation("Photos").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &employee, nil
}

// ListEmployees applies the filter and returns one page plus the total count.
// Search matches against surname, name and patronymic.
func (d *DB) ListEmployees(ctx context.Context, filter ListFilter) ([]models.Employee, int, error) {
	query := d.Bun.NewSelect().
		Model((*models.Employee)(nil)).
		Relation("Department").
		Relation("Position").
		Relation("Photos")

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("employee.surname ILIKE ?", pattern).
				WhereOr("employee.name ILIKE ?", pattern).
				WhereOr("employee.patronymic ILIKE ?", pattern)
		})
	}
	if filter.Department != "" {
		query = query.
			Join("JOIN departments AS fd ON fd.id = employee.department_id").
			Where("fd.name = ?", filter.Department)
	}
	if filter.Position != "" {
		query = query.
			Join("JOIN positions AS fpos ON fpos.id = employee.position_id").
			Where("fpos.name = ?", filter.Position)
	}

	total, err := query.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	var employees []models.Employee
	offset := (filter.Page - 1) * filter.PageSize
	err = query.
		Order("employee.surname ASC", "employee.name ASC").
		Offset(offset).
		Limit(filter.PageSize).
		Scan(ctx, &employees)
	if err != nil {
		return nil, 0, err
	}
	return employees, total, nil
}

// UpdateEmployee → update employee fields
func (d *DB) UpdateEmployee(ctx context.Context, employee *models.Employee) error {
	_, err := d.Bun.NewUpdate().
		Model(employee).
		Column("name", "surname", "patronymic", "department_id", "position_id").
		Where("id = ?", employee.ID).
		Exec(ctx)
	return err
}

// DeleteEmployee → delete one employee; photos and participations cascade.
func (d *DB) DeleteEmployee(ctx context.Context, id int64) error {
	res, err := d.Bun.NewDelete().
		Model((*models.Employee)(nil)).
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

// GetOrCreateDepartment resolves a department by name, inserting it when new.
// The unique index on name makes the insert race-free: a concurrent insert
// loses the conflict and both callers reselect the same row.
func (d *DB) GetOrCreateDepartment(ctx context.Context, name string) (*models.Department, error) {
	department := &models.Department{Name: name}
	_, err := d.Bun.NewInsert().
		Model(department).
		On("CONFLICT (name) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	var existing models.Department
	err = d.Bun.NewSelect().
		Model(&existing).
		Where("name = ?", name).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &existing, nil
}

// GetOrCreatePosition resolves a position by name, inserting it when new.
func (d *DB) GetOrCreatePosition(ctx context.Context, name string) (*models.Position, error) {
	position := &models.Position{Name: name}
	_, err := d.Bun.NewInsert().
		Model(position).
		On("CONFLICT (name) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	var existing models.Position
	err = d.Bun.NewSelect().
		Model(&existing).
		Where("name = ?", name).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &existing, nil
}

// DeleteDepartmentIfUnused removes the department when no employee
// references it anymore.
func (d *DB) DeleteDepartmentIfUnused(ctx context.Context, id int64) error {
	if id == 0 {
		return nil
	}
	inUse, err := d.Bun.NewSelect().
		Model((*models.Employee)(nil)).
		Where("department_id = ?", id).
		Exists(ctx)
	if err != nil || inUse {
		return err
	}
	_, err = d.Bun.NewDelete().
		Model((*models.Department)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// DeletePositionIfUnused removes the position when no employee references it
// anymore.
func (d *DB) DeletePositionIfUnused(ctx context.Context, id int64) error {
	if id == 0 {
		return nil
	}
	inUse, err := d.Bun.NewSelect().
		Model((*models.Employee)(nil)).
		Where("position_id = ?", id).
		Exists(ctx)
	if err != nil || inUse {
		return err
	}
	_, err = d.Bun.NewDelete().
		Model((*models.Position)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// ListDepartments → all departments ordered by name
func (d *DB) ListDepartments(ctx context.Context) ([]models.Department, error) {
	var departments []models.Department
	err := d.Bun.NewSelect().
		Model(&departments).
		Order("name ASC").
		Scan(ctx)
	return departments, err
}

// ListPositions → all positions ordered by name
func (d *DB) ListPositions(ctx context.Context) ([]models.Position, error) {
	var positions []models.Position
	err := d.Bun.NewSelect().
		Model(&positions).
		Order("name ASC").
		Scan(ctx)
	return positions, err
}

// AddPhoto → insert a gallery photo row
func (d *DB) AddPhoto(ctx context.Context, photo *models.EmployeePhoto) error {
	_, err := d.Bun.NewInsert().Model(photo).Exec(ctx)
	return err
}

// GetPhoto → fetch one photo row
func (d *DB) GetPhoto(ctx context.Context, id int64) (*models.EmployeePhoto, error) {
	var photo models.EmployeePhoto
	err := d.Bun.NewSelect().
		Model(&photo).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &photo, nil
}

// DeletePhoto → delete one photo row
func (d *DB) DeletePhoto(ctx context.Context, id int64) error {
	res, err := d.Bun.NewDelete().
		Model((*models.EmployeePhoto)(nil)).
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

// GetPlannedEvents → one page of events the employee is a planned
// participant of, plus the total count
func (d *DB) GetPlannedEvents(ctx context.Context, employeeID int64, filter ActivityFilter) ([]models.Event, int, error) {
	query := d.Bun.NewSelect().
		Model((*models.Event)(nil)).
		Join("JOIN planned_participants AS pp ON pp.event_id = event.id").
		Where("pp.employee_id = ?", employeeID)
	if filter.Search != "" {
		query = query.Where("event.name ILIKE ?", "%"+filter.Search+"%")
	}
	if !filter.DateFrom.IsZero() {
		query = query.Where("event.start_datetime >= ?", filter.DateFrom)
	}
	if !filter.DateTo.IsZero() {
		query = query.Where("event.start_datetime <= ?", filter.DateTo)
	}

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

// GetVisitedEventIDs → ids of events where the employee was spotted in at
// least one interval
func (d *DB) GetVisitedEventIDs(ctx context.Context, employeeID int64) ([]int64, error) {
	var ids []int64
	err := d.Bun.NewSelect().
		ColumnExpr("DISTINCT vi.event_id").
		TableExpr("interval_employees AS ie").
		Join("JOIN visit_intervals AS vi ON vi.id = ie.interval_id").
		Where("ie.employee_id = ?", employeeID).
		Scan(ctx, &ids)
	return ids, err
}

// IsNotFound reports whether err is the driver's empty-result error.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
