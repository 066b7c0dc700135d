package employees

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"ms-backoffice/internal/employees/db"
	"ms-backoffice/internal/logger"
	"ms-backoffice/internal/models"
)

var (
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrPhotoNotFound    = errors.New("photo not found")
)

type EmployeeCreate struct {
	Name       string
	Surname    string
	Patronymic string
	Department string
	Position   string
}

type EmployeeUpdate struct {
	Name       *string
	Surname    *string
	Patronymic *string
	Department *string
	Position   *string
}

type ListResult struct {
	TotalCount int               `json:"total_count"`
	Employees  []models.Employee `json:"employees"`
}

// EventActivity is one event in an employee's attendance history.
type EventActivity struct {
	EventID       int64     `json:"event_id"`
	Name          string    `json:"name"`
	StartDatetime time.Time `json:"start_datetime"`
	EndDatetime   time.Time `json:"end_datetime"`
	Visited       bool      `json:"visited"`
}

// ActivityResult is one page of an employee's attendance history.
type ActivityResult struct {
	TotalCount int             `json:"total_count"`
	Events     []EventActivity `json:"events"`
}

type DBLayer interface {
	CreateEmployee(ctx context.Context, employee *models.Employee) error
	GetEmployeeByID(ctx context.Context, id int64) (*models.Employee, error)
	ListEmployees(ctx context.Context, filter db.ListFilter) ([]models.Employee, int, error)
	UpdateEmployee(ctx context.Context, employee *models.Employee) error
	DeleteEmployee(ctx context.Context, id int64) error
	GetOrCreateDepartment(ctx context.Context, name string) (*models.Department, error)
	GetOrCreatePosition(ctx context.Context, name string) (*models.Position, error)
	DeleteDepartmentIfUnused(ctx context.Context, id int64) error
	DeletePositionIfUnused(ctx context.Context, id int64) error
	ListDepartments(ctx context.Context) ([]models.Department, error)
	ListPositions(ctx context.Context) ([]models.Position, error)
	AddPhoto(ctx context.Context, photo *models.EmployeePhoto) error
	GetPhoto(ctx context.Context, id int64) (*models.EmployeePhoto, error)
	DeletePhoto(ctx context.Context, id int64) error
	GetPlannedEvents(ctx context.Context, employeeID int64, filter db.ActivityFilter) ([]models.Event, int, error)
	GetVisitedEventIDs(ctx context.Context, employeeID int64) ([]int64, error)
}

type MediaStore interface {
	SaveEmployeePhoto(employeeID int64, filename string, r io.Reader) (string, error)
	Remove(path string) error
}

// BadgeGenerator renders the printable badge QR for an employee.
type BadgeGenerator interface {
	GenerateBadgeQR(employee *models.Employee) ([]byte, error)
}

type Service struct {
	DB     DBLayer
	Media  MediaStore
	Badge  BadgeGenerator
	Logger *logger.Logger
}

func NewService(db DBLayer, media MediaStore, badge BadgeGenerator, logger *logger.Logger) *Service {
	return &Service{DB: db, Media: media, Badge: badge, Logger: logger}
}

// CreateEmployee stores the employee, resolving department and position by
// name and creating them when they do not exist yet.
func (s *Service) CreateEmployee(ctx context.Context, input EmployeeCreate) (*models.Employee, error) {
	employee := &models.Employee{
		Name:       input.Name,
		Surname:    input.Surname,
		Patronymic: input.Patronymic,
	}

	if input.Department != "" {
		department, err := s.DB.GetOrCreateDepartment(ctx, input.Department)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve department: %w", err)
		}
		employee.DepartmentID = department.ID
	}
	if input.Position != "" {
		position, err := s.DB.GetOrCreatePosition(ctx, input.Position)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve position: %w", err)
		}
		employee.PositionID = position.ID
	}

	if err := s.DB.CreateEmployee(ctx, employee); err != nil {
		return nil, fmt.Errorf("failed to create employee: %w", err)
	}

	s.Logger.Info("EMPLOYEE", fmt.Sprintf("Created employee %d (%s %s)", employee.ID, employee.Surname, employee.Name))
	return s.GetEmployee(ctx, employee.ID)
}

// GetEmployee returns one employee with department, position and photos.
func (s *Service) GetEmployee(ctx context.Context, id int64) (*models.Employee, error) {
	employee, err := s.DB.GetEmployeeByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrEmployeeNotFound
		}
		return nil, fmt.Errorf("failed to load employee %d: %w", id, err)
	}
	return employee, nil
}

// ListEmployees returns one page of employees matching the filter.
func (s *Service) ListEmployees(ctx context.Context, filter db.ListFilter) (*ListResult, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}

	rows, total, err := s.DB.ListEmployees(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	return &ListResult{TotalCount: total, Employees: rows}, nil
}

// UpdateEmployee applies the provided fields. When department or position
// changes, the previous one is dropped if no other employee still uses it.
func (s *Service) UpdateEmployee(ctx context.Context, id int64, update EmployeeUpdate) (*models.Employee, error) {
	employee, err := s.GetEmployee(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		employee.Name = *update.Name
	}
	if update.Surname != nil {
		employee.Surname = *update.Surname
	}
	if update.Patronymic != nil {
		employee.Patronymic = *update.Patronymic
	}

	oldDepartmentID, oldPositionID := employee.DepartmentID, employee.PositionID
	if update.Department != nil {
		employee.DepartmentID = 0
		if *update.Department != "" {
			department, err := s.DB.GetOrCreateDepartment(ctx, *update.Department)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve department: %w", err)
			}
			employee.DepartmentID = department.ID
		}
	}
	if update.Position != nil {
		employee.PositionID = 0
		if *update.Position != "" {
			position, err := s.DB.GetOrCreatePosition(ctx, *update.Position)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve position: %w", err)
			}
			employee.PositionID = position.ID
		}
	}

	if err := s.DB.UpdateEmployee(ctx, employee); err != nil {
		return nil, fmt.Errorf("failed to update employee %d: %w", id, err)
	}

	if update.Department != nil && employee.DepartmentID != oldDepartmentID {
		if err := s.DB.DeleteDepartmentIfUnused(ctx, oldDepartmentID); err != nil {
			s.Logger.Error("EMPLOYEE", fmt.Sprintf("Failed to clean up department %d: %v", oldDepartmentID, err))
		}
	}
	if update.Position != nil && employee.PositionID != oldPositionID {
		if err := s.DB.DeletePositionIfUnused(ctx, oldPositionID); err != nil {
			s.Logger.Error("EMPLOYEE", fmt.Sprintf("Failed to clean up position %d: %v", oldPositionID, err))
		}
	}

	return s.GetEmployee(ctx, id)
}

// DeleteEmployee removes the employee, their photo files and any department
// or position left without employees.
func (s *Service) DeleteEmployee(ctx context.Context, id int64) error {
	employee, err := s.GetEmployee(ctx, id)
	if err != nil {
		return err
	}

	if err := s.DB.DeleteEmployee(ctx, id); err != nil {
		if db.IsNotFound(err) {
			return ErrEmployeeNotFound
		}
		return fmt.Errorf("failed to delete employee %d: %w", id, err)
	}

	for _, photo := range employee.Photos {
		if err := s.Media.Remove(photo.Photo); err != nil {
			s.Logger.Error("MEDIA", fmt.Sprintf("Failed to remove photo %s: %v", photo.Photo, err))
		}
	}
	if err := s.DB.DeleteDepartmentIfUnused(ctx, employee.DepartmentID); err != nil {
		s.Logger.Error("EMPLOYEE", fmt.Sprintf("Failed to clean up department %d: %v", employee.DepartmentID, err))
	}
	if err := s.DB.DeletePositionIfUnused(ctx, employee.PositionID); err != nil {
		s.Logger.Error("EMPLOYEE", fmt.Sprintf("Failed to clean up position %d: %v", employee.PositionID, err))
	}

	s.Logger.Info("EMPLOYEE", fmt.Sprintf("Deleted employee %d", id))
	return nil
}

// ListDepartments returns every known department.
func (s *Service) ListDepartments(ctx context.Context) ([]models.Department, error) {
	return s.DB.ListDepartments(ctx)
}

// ListPositions returns every known position.
func (s *Service) ListPositions(ctx context.Context) ([]models.Position, error) {
	return s.DB.ListPositions(ctx)
}

// AddPhoto stores a gallery photo for an employee.
func (s *Service) AddPhoto(ctx context.Context, employeeID int64, filename string, r io.Reader) (*models.EmployeePhoto, error) {
	if _, err := s.GetEmployee(ctx, employeeID); err != nil {
		return nil, err
	}

	path, err := s.Media.SaveEmployeePhoto(employeeID, filename, r)
	if err != nil {
		return nil, fmt.Errorf("failed to store photo: %w", err)
	}

	photo := &models.EmployeePhoto{EmployeeID: employeeID, Photo: path}
	if err := s.DB.AddPhoto(ctx, photo); err != nil {
		return nil, fmt.Errorf("failed to record photo: %w", err)
	}
	return photo, nil
}

// DeletePhoto removes a gallery photo row and its file.
func (s *Service) DeletePhoto(ctx context.Context, employeeID, photoID int64) error {
	photo, err := s.DB.GetPhoto(ctx, photoID)
	if err != nil {
		if db.IsNotFound(err) {
			return ErrPhotoNotFound
		}
		return fmt.Errorf("failed to load photo %d: %w", photoID, err)
	}
	if photo.EmployeeID != employeeID {
		return ErrPhotoNotFound
	}

	if err := s.DB.DeletePhoto(ctx, photoID); err != nil {
		if db.IsNotFound(err) {
			return ErrPhotoNotFound
		}
		return fmt.Errorf("failed to delete photo %d: %w", photoID, err)
	}
	if err := s.Media.Remove(photo.Photo); err != nil {
		s.Logger.Error("MEDIA", fmt.Sprintf("Failed to remove photo %s: %v", photo.Photo, err))
	}
	return nil
}

// GetActivity returns the employee's planned events, each marked visited
// when the employee was spotted in at least one of its intervals.
func (s *Service) GetActivity(ctx context.Context, employeeID int64, filter db.ActivityFilter) (*ActivityResult, error) {
	if _, err := s.GetEmployee(ctx, employeeID); err != nil {
		return nil, err
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}

	events, total, err := s.DB.GetPlannedEvents(ctx, employeeID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load planned events: %w", err)
	}
	visitedIDs, err := s.DB.GetVisitedEventIDs(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load visited events: %w", err)
	}

	visited := make(map[int64]bool, len(visitedIDs))
	for _, id := range visitedIDs {
		visited[id] = true
	}

	activity := make([]EventActivity, 0, len(events))
	for _, event := range events {
		activity = append(activity, EventActivity{
			EventID:       event.ID,
			Name:          event.Name,
			StartDatetime: event.StartDatetime,
			EndDatetime:   event.EndDatetime,
			Visited:       visited[event.ID],
		})
	}
	return &ActivityResult{TotalCount: total, Events: activity}, nil
}

// GenerateBadge renders the badge QR PNG for an employee.
func (s *Service) GenerateBadge(ctx context.Context, employeeID int64) ([]byte, error) {
	employee, err := s.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	png, err := s.Badge.GenerateBadgeQR(employee)
	if err != nil {
		return nil, fmt.Errorf("failed to generate badge: %w", err)
	}
	return png, nil
}
