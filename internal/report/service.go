package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/uptrace/bun"

	"ms-backoffice/internal/logger"
	"ms-backoffice/internal/models"
)

var ErrEventNotFound = errors.New("event not found")

// Service builds attendance reports by joining planned participants against
// the visit intervals recorded by the ingestion pipeline.
type Service struct {
	db     *bun.DB
	cache  *Cache
	logger *logger.Logger
}

func NewService(db *bun.DB, cache *Cache, logger *logger.Logger) *Service {
	return &Service{db: db, cache: cache, logger: logger}
}

// EventInfo is the event header of a report.
type EventInfo struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	StartDatetime     time.Time `json:"start_datetime"`
	EndDatetime       time.Time `json:"end_datetime"`
	Video             string    `json:"video,omitempty"`
	ParticipantsCount int       `json:"participants_count"`
}

// EmployeeInfo is the employee projection used in participant lists and
// visit timelines.
type EmployeeInfo struct {
	ID         int64              `json:"id"`
	Name       string             `json:"name"`
	Surname    string             `json:"surname"`
	Patronymic string             `json:"patronymic,omitempty"`
	Department *models.Department `json:"department,omitempty"`
	Position   *models.Position   `json:"position,omitempty"`
	Photos     []PhotoInfo        `json:"photos"`
}

type PhotoInfo struct {
	ID   int64  `json:"id"`
	Path string `json:"path"`
}

// IntervalFullInfo is one interval in an employee's visit timeline.
type IntervalFullInfo struct {
	IntervalID        int64     `json:"interval_id"`
	StartDatetime     time.Time `json:"start_datetime"`
	EndDatetime       time.Time `json:"end_datetime"`
	Photo             string    `json:"photo,omitempty"`
	FirstSpotDatetime string    `json:"first_spot_datetime"`
}

// EmployeeVisits is the visit history of one employee across all intervals
// of the event.
type EmployeeVisits struct {
	EmployeeInfo
	Intervals []IntervalFullInfo `json:"intervals"`
}

// IntervalUnregisteredInfo is the unregistered-sighting summary of one
// interval. It reflects the latest submitted count, not a running maximum.
type IntervalUnregisteredInfo struct {
	IntervalID           int64     `json:"interval_id"`
	StartDatetime        time.Time `json:"start_datetime"`
	EndDatetime          time.Time `json:"end_datetime"`
	MaxUnregistered      int       `json:"max_unregistered"`
	MaxUnregisteredPhoto string    `json:"max_unregistered_photo,omitempty"`
}

// Response is the consolidated attendance report for one event.
type Response struct {
	EventInfo    EventInfo                  `json:"event_info"`
	Participants []EmployeeInfo             `json:"participants"`
	Visits       []EmployeeVisits           `json:"visits"`
	Unregistered []IntervalUnregisteredInfo `json:"unregistered"`
}

// FetchEventStatistics assembles the report for an event, serving from the
// cache when a fresh copy exists.
func (s *Service) FetchEventStatistics(ctx context.Context, eventID int64) (*Response, error) {
	if cached, ok := s.cache.Get(ctx, eventID); ok {
		s.logger.Debug("REPORT", fmt.Sprintf("Serving cached report for event %d", eventID))
		return cached, nil
	}

	response, err := s.buildReport(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, eventID, response); err != nil {
		s.logger.Warn("REPORT", fmt.Sprintf("Failed to cache report for event %d: %v", eventID, err))
	}
	return response, nil
}

func (s *Service) buildReport(ctx context.Context, eventID int64) (*Response, error) {
	var event models.Event
	err := s.db.NewSelect().
		Model(&event).
		Where("id = ?", eventID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, ErrEventNotFound
	}

	var participants []models.Employee
	err = s.db.NewSelect().
		Model(&participants).
		Join("JOIN planned_participants AS pp ON pp.employee_id = employee.id").
		Where("pp.event_id = ?", eventID).
		Relation("Department").
		Relation("Position").
		Relation("Photos").
		Order("employee.id").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load participants: %w", err)
	}

	var intervals []models.VisitInterval
	err = s.db.NewSelect().
		Model(&intervals).
		Where("visit_interval.event_id = ?", eventID).
		Relation("Employees").
		Relation("Employees.Employee").
		Relation("Employees.Employee.Department").
		Relation("Employees.Employee.Position").
		Relation("Employees.Employee.Photos").
		Order("visit_interval.\"order\"").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load intervals: %w", err)
	}

	participantsInfo := make([]EmployeeInfo, 0, len(participants))
	for i := range participants {
		participantsInfo = append(participantsInfo, employeeInfo(&participants[i]))
	}

	// Group interval-employee rows into one timeline per employee.
	type timeline struct {
		employee  *models.Employee
		intervals []IntervalFullInfo
	}
	timelines := make(map[int64]*timeline)
	for _, interval := range intervals {
		for _, ie := range interval.Employees {
			if ie.Employee == nil {
				continue
			}
			entry, ok := timelines[ie.EmployeeID]
			if !ok {
				entry = &timeline{employee: ie.Employee}
				timelines[ie.EmployeeID] = entry
			}
			entry.intervals = append(entry.intervals, IntervalFullInfo{
				IntervalID:        interval.ID,
				StartDatetime:     interval.StartDatetime,
				EndDatetime:       interval.EndDatetime,
				Photo:             ie.Photo,
				FirstSpotDatetime: ie.FirstSpotDatetime.Format("2006-01-02 15:04:05"),
			})
		}
	}

	visits := make([]EmployeeVisits, 0, len(timelines))
	for _, entry := range timelines {
		visits = append(visits, EmployeeVisits{
			EmployeeInfo: employeeInfo(entry.employee),
			Intervals:    entry.intervals,
		})
	}
	sort.Slice(visits, func(i, j int) bool { return visits[i].ID < visits[j].ID })

	unregistered := make([]IntervalUnregisteredInfo, 0, len(intervals))
	for _, interval := range intervals {
		unregistered = append(unregistered, IntervalUnregisteredInfo{
			IntervalID:           interval.ID,
			StartDatetime:        interval.StartDatetime,
			EndDatetime:          interval.EndDatetime,
			MaxUnregistered:      interval.MaxUnregistered,
			MaxUnregisteredPhoto: interval.MaxUnregisteredPhoto,
		})
	}

	return &Response{
		EventInfo: EventInfo{
			ID:                event.ID,
			Name:              event.Name,
			StartDatetime:     event.StartDatetime,
			EndDatetime:       event.EndDatetime,
			Video:             event.Video,
			ParticipantsCount: len(participants),
		},
		Participants: participantsInfo,
		Visits:       visits,
		Unregistered: unregistered,
	}, nil
}

func employeeInfo(employee *models.Employee) EmployeeInfo {
	photos := make([]PhotoInfo, 0, len(employee.Photos))
	for _, photo := range employee.Photos {
		photos = append(photos, PhotoInfo{ID: photo.ID, Path: photo.Photo})
	}
	return EmployeeInfo{
		ID:         employee.ID,
		Name:       employee.Name,
		Surname:    employee.Surname,
		Patronymic: employee.Patronymic,
		Department: employee.Department,
		Position:   employee.Position,
		Photos:     photos,
	}
}
