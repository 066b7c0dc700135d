package visits

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"ms-backoffice/internal/kafka"
	"ms-backoffice/internal/logger"
	"ms-backoffice/internal/models"
	"ms-backoffice/internal/visits/db"
)

var (
	ErrEventNotFound    = errors.New("event not found")
	ErrEmployeeNotFound = errors.New("employee not found")
)

// EmployeeVisit is one detection of a known employee reported by the
// analysis pipeline.
type EmployeeVisit struct {
	EventID     int64
	Order       int
	SendingTime time.Time
	EmployeeID  int64
	// VisitTime is the offset of the detection from the interval start.
	VisitTime time.Duration
}

// UnregisteredVisit reports how many unmatched persons were in frame during
// an interval.
type UnregisteredVisit struct {
	EventID     int64
	Order       int
	SendingTime time.Time
	Count       int
}

type DBLayer interface {
	GetEventByID(ctx context.Context, id int64) (*models.Event, error)
	EmployeeExists(ctx context.Context, id int64) (bool, error)
	GetOrCreateInterval(ctx context.Context, interval *models.VisitInterval) (*models.VisitInterval, error)
	InsertIntervalEmployee(ctx context.Context, ie *models.IntervalEmployee) (bool, error)
	UpdateUnregistered(ctx context.Context, intervalID int64, count int, photo string) error
}

type MediaStore interface {
	SaveIntervalEmployeePhoto(eventID int64, order int, employeeID int64, filename string, r io.Reader) (string, error)
	SaveIntervalUnregisteredPhoto(eventID int64, order, count int, filename string, r io.Reader) (string, error)
}

type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload interface{}) error
}

// ReportInvalidator drops cached report projections when new attendance
// data arrives.
type ReportInvalidator interface {
	InvalidateEvent(ctx context.Context, eventID int64) error
}

type Topics struct {
	VisitRecorded    string
	UnregisteredSeen string
}

type Service struct {
	DB     DBLayer
	Media  MediaStore
	Kafka  Publisher
	Cache  ReportInvalidator
	Topics Topics
	Logger *logger.Logger
}

func NewService(db DBLayer, media MediaStore, producer Publisher, cache ReportInvalidator, topics Topics, logger *logger.Logger) *Service {
	return &Service{DB: db, Media: media, Kafka: producer, Cache: cache, Topics: topics, Logger: logger}
}

// RecordEmployeeVisit ingests one employee detection. The interval row is
// created lazily on first ingestion for (event, order); the employee row in
// the interval keeps the first sighting and silently drops later ones.
func (s *Service) RecordEmployeeVisit(ctx context.Context, visit EmployeeVisit, filename string, photo io.Reader) (*models.VisitInterval, error) {
	event, err := s.DB.GetEventByID(ctx, visit.EventID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to load event %d: %w", visit.EventID, err)
	}

	exists, err := s.DB.EmployeeExists(ctx, visit.EmployeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to check employee %d: %w", visit.EmployeeID, err)
	}
	if !exists {
		return nil, ErrEmployeeNotFound
	}

	intervalStart := event.StartDatetime.Add(time.Duration(visit.Order) * models.IntervalLength)
	interval, err := s.DB.GetOrCreateInterval(ctx, &models.VisitInterval{
		EventID:       visit.EventID,
		Order:         visit.Order,
		StartDatetime: intervalStart,
		EndDatetime:   intervalStart.Add(models.IntervalLength),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve interval: %w", err)
	}

	photoPath, err := s.Media.SaveIntervalEmployeePhoto(visit.EventID, visit.Order, visit.EmployeeID, filename, photo)
	if err != nil {
		return nil, fmt.Errorf("failed to store photo: %w", err)
	}

	inserted, err := s.DB.InsertIntervalEmployee(ctx, &models.IntervalEmployee{
		IntervalID:        interval.ID,
		EmployeeID:        visit.EmployeeID,
		Photo:             photoPath,
		FirstSpotDatetime: intervalStart.Add(visit.VisitTime),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record visit: %w", err)
	}
	if !inserted {
		s.Logger.LogVisit("DUPLICATE", visit.EventID, visit.Order,
			fmt.Sprintf("employee %d already recorded, keeping first sighting", visit.EmployeeID))
		return interval, nil
	}

	s.afterIngest(ctx, s.Topics.VisitRecorded, kafka.VisitEvent{
		EventID:    visit.EventID,
		Order:      visit.Order,
		EmployeeID: visit.EmployeeID,
		SentAt:     visit.SendingTime,
	})
	return interval, nil
}

// RecordUnregisteredVisit ingests an unregistered-person sighting. The
// interval's count and photo always reflect the latest submission
// (last write wins).
func (s *Service) RecordUnregisteredVisit(ctx context.Context, visit UnregisteredVisit, filename string, photo io.Reader) (*models.VisitInterval, error) {
	event, err := s.DB.GetEventByID(ctx, visit.EventID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to load event %d: %w", visit.EventID, err)
	}

	// Both ingestion paths share the order*interval offset convention.
	intervalStart := event.StartDatetime.Add(time.Duration(visit.Order) * models.IntervalLength)
	interval, err := s.DB.GetOrCreateInterval(ctx, &models.VisitInterval{
		EventID:       visit.EventID,
		Order:         visit.Order,
		StartDatetime: intervalStart,
		EndDatetime:   intervalStart.Add(models.IntervalLength),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve interval: %w", err)
	}

	photoPath, err := s.Media.SaveIntervalUnregisteredPhoto(visit.EventID, visit.Order, visit.Count, filename, photo)
	if err != nil {
		return nil, fmt.Errorf("failed to store photo: %w", err)
	}

	if err := s.DB.UpdateUnregistered(ctx, interval.ID, visit.Count, photoPath); err != nil {
		return nil, fmt.Errorf("failed to update unregistered count: %w", err)
	}
	interval.MaxUnregistered = visit.Count
	interval.MaxUnregisteredPhoto = photoPath

	s.afterIngest(ctx, s.Topics.UnregisteredSeen, kafka.VisitEvent{
		EventID: visit.EventID,
		Order:   visit.Order,
		Count:   visit.Count,
		SentAt:  visit.SendingTime,
	})
	return interval, nil
}

// afterIngest publishes the stream event and drops the cached report.
// Neither failure affects the already-committed ingestion.
func (s *Service) afterIngest(ctx context.Context, topic string, payload kafka.VisitEvent) {
	key := fmt.Sprintf("%d_%d", payload.EventID, payload.Order)
	if err := s.Kafka.Publish(ctx, topic, key, payload); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish to %s: %v", topic, err))
	}
	if err := s.Cache.InvalidateEvent(ctx, payload.EventID); err != nil {
		s.Logger.Error("CACHE", fmt.Sprintf("Failed to invalidate report for event %d: %v", payload.EventID, err))
	}
}
