package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"ms-backoffice/internal/events/db"
	"ms-backoffice/internal/kafka"
	"ms-backoffice/internal/logger"
	"ms-backoffice/internal/ml"
	"ms-backoffice/internal/models"
)

var (
	ErrEventNotFound       = errors.New("event not found")
	ErrEmployeeNotFound    = errors.New("employee not found")
	ErrParticipantExists   = errors.New("employee is already a participant")
	ErrParticipantNotFound = errors.New("employee is not a participant")
	ErrNoVideo             = errors.New("event has no video")
)

// Upload is a file received from a multipart form.
type Upload struct {
	Filename string
	Reader   io.Reader
}

type EventCreate struct {
	Name          string
	StartDatetime time.Time
	EndDatetime   time.Time
	EmployeeIDs   []int64
}

type EventUpdate struct {
	Name          *string
	StartDatetime *time.Time
	EndDatetime   *time.Time
}

// EventInfo is the listing projection: full rows with all relations are only
// loaded for the detail endpoint.
type EventInfo struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	Video             string    `json:"video,omitempty"`
	StartDatetime     time.Time `json:"start_datetime"`
	EndDatetime       time.Time `json:"end_datetime"`
	ParticipantsCount int       `json:"participants_count"`
}

type ListResult struct {
	TotalCount int         `json:"total_count"`
	Events     []EventInfo `json:"events"`
}

type DBLayer interface {
	CreateEvent(ctx context.Context, event *models.Event) error
	GetEventByID(ctx context.Context, id int64) (*models.Event, error)
	GetEventWithParticipants(ctx context.Context, id int64) (*models.Event, error)
	GetEventWithIntervals(ctx context.Context, id int64) (*models.Event, error)
	UpdateEvent(ctx context.Context, event *models.Event) error
	DeleteEvent(ctx context.Context, id int64) error
	ListEvents(ctx context.Context, filter db.ListFilter) ([]models.Event, int, error)
	ParticipantExists(ctx context.Context, eventID, employeeID int64) (bool, error)
	AddParticipants(ctx context.Context, participants []models.PlannedParticipant) error
	RemoveParticipant(ctx context.Context, eventID, employeeID int64) error
	EmployeeExists(ctx context.Context, id int64) (bool, error)
}

type MediaStore interface {
	SaveEventVideo(eventID int64, filename string, r io.Reader) (string, error)
	Remove(path string) error
}

type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload interface{}) error
}

type ReportInvalidator interface {
	InvalidateEvent(ctx context.Context, eventID int64) error
}

// Analyzer submits the recording to the visit-detection service.
type Analyzer interface {
	UploadVideo(ctx context.Context, eventID int64, videoPath string) ml.UploadResult
}

type Service struct {
	DB           DBLayer
	Media        MediaStore
	Kafka        Publisher
	Cache        ReportInvalidator
	Analyzer     Analyzer
	DeletedTopic string
	Logger       *logger.Logger
}

func NewService(db DBLayer, media MediaStore, producer Publisher, cache ReportInvalidator, analyzer Analyzer, deletedTopic string, logger *logger.Logger) *Service {
	return &Service{
		DB:           db,
		Media:        media,
		Kafka:        producer,
		Cache:        cache,
		Analyzer:     analyzer,
		DeletedTopic: deletedTopic,
		Logger:       logger,
	}
}

// CreateEvent stores the event, its planned participants and, when present,
// the uploaded recording.
func (s *Service) CreateEvent(ctx context.Context, input EventCreate, video *Upload) (*models.Event, error) {
	for _, employeeID := range input.EmployeeIDs {
		exists, err := s.DB.EmployeeExists(ctx, employeeID)
		if err != nil {
			return nil, fmt.Errorf("failed to check employee %d: %w", employeeID, err)
		}
		if !exists {
			return nil, ErrEmployeeNotFound
		}
	}

	event := &models.Event{
		Name:          input.Name,
		StartDatetime: input.StartDatetime,
		EndDatetime:   input.EndDatetime,
	}
	if err := s.DB.CreateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	participants := make([]models.PlannedParticipant, 0, len(input.EmployeeIDs))
	for _, employeeID := range input.EmployeeIDs {
		participants = append(participants, models.PlannedParticipant{
			EventID:    event.ID,
			EmployeeID: employeeID,
		})
	}
	if err := s.DB.AddParticipants(ctx, participants); err != nil {
		return nil, fmt.Errorf("failed to add participants: %w", err)
	}

	if video != nil {
		path, err := s.Media.SaveEventVideo(event.ID, video.Filename, video.Reader)
		if err != nil {
			return nil, fmt.Errorf("failed to store video: %w", err)
		}
		event.Video = path
		if err := s.DB.UpdateEvent(ctx, event); err != nil {
			return nil, fmt.Errorf("failed to save video path: %w", err)
		}

		// Hand the recording to the detection service right away. The
		// outcome does not affect event creation.
		result := s.Analyzer.UploadVideo(ctx, event.ID, event.Video)
		if result.Error != "" {
			s.Logger.Warn("ML", fmt.Sprintf("Upload for event %d failed: %s", event.ID, result.Error))
		} else {
			s.Logger.Info("ML", fmt.Sprintf("Upload for event %d: %s", event.ID, result.Status))
		}
	}

	s.Logger.Info("EVENT", fmt.Sprintf("Created event %d with %d participants", event.ID, len(participants)))
	return s.GetEvent(ctx, event.ID)
}

// GetEvent returns the event with its participants and their details.
func (s *Service) GetEvent(ctx context.Context, id int64) (*models.Event, error) {
	event, err := s.DB.GetEventWithParticipants(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to load event %d: %w", id, err)
	}
	return event, nil
}

// ListEvents returns one page of events matching the filter.
func (s *Service) ListEvents(ctx context.Context, filter db.ListFilter) (*ListResult, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}

	rows, total, err := s.DB.ListEvents(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	events := make([]EventInfo, 0, len(rows))
	for _, row := range rows {
		events = append(events, EventInfo{
			ID:                row.ID,
			Name:              row.Name,
			Video:             row.Video,
			StartDatetime:     row.StartDatetime,
			EndDatetime:       row.EndDatetime,
			ParticipantsCount: len(row.Participants),
		})
	}
	return &ListResult{TotalCount: total, Events: events}, nil
}

// UpdateEvent applies the provided fields and returns the updated event.
func (s *Service) UpdateEvent(ctx context.Context, id int64, update EventUpdate) (*models.Event, error) {
	event, err := s.DB.GetEventByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to load event %d: %w", id, err)
	}

	if update.Name != nil {
		event.Name = *update.Name
	}
	if update.StartDatetime != nil {
		event.StartDatetime = *update.StartDatetime
	}
	if update.EndDatetime != nil {
		event.EndDatetime = *update.EndDatetime
	}

	if err := s.DB.UpdateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to update event %d: %w", id, err)
	}
	return s.GetEvent(ctx, id)
}

// DeleteEvent removes the event, its cascaded rows and every file recorded
// for it, then notifies downstream consumers.
func (s *Service) DeleteEvent(ctx context.Context, id int64) error {
	event, err := s.DB.GetEventWithIntervals(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return ErrEventNotFound
		}
		return fmt.Errorf("failed to load event %d: %w", id, err)
	}

	if err := s.DB.DeleteEvent(ctx, id); err != nil {
		if db.IsNotFound(err) {
			return ErrEventNotFound
		}
		return fmt.Errorf("failed to delete event %d: %w", id, err)
	}

	s.removeFiles(event)

	if err := s.Kafka.Publish(ctx, s.DeletedTopic, fmt.Sprintf("%d", id), kafka.EventDeleted{EventID: id}); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish event deletion %d: %v", id, err))
	}
	if err := s.Cache.InvalidateEvent(ctx, id); err != nil {
		s.Logger.Error("CACHE", fmt.Sprintf("Failed to invalidate report for event %d: %v", id, err))
	}

	s.Logger.Info("EVENT", fmt.Sprintf("Deleted event %d", id))
	return nil
}

// removeFiles best-effort deletes the on-disk artifacts after the DB rows
// are gone. A leftover file is harmless; a dangling DB row would not be.
func (s *Service) removeFiles(event *models.Event) {
	if err := s.Media.Remove(event.Video); err != nil {
		s.Logger.Error("MEDIA", fmt.Sprintf("Failed to remove video %s: %v", event.Video, err))
	}
	for _, interval := range event.Intervals {
		if err := s.Media.Remove(interval.MaxUnregisteredPhoto); err != nil {
			s.Logger.Error("MEDIA", fmt.Sprintf("Failed to remove photo %s: %v", interval.MaxUnregisteredPhoto, err))
		}
		for _, ie := range interval.Employees {
			if err := s.Media.Remove(ie.Photo); err != nil {
				s.Logger.Error("MEDIA", fmt.Sprintf("Failed to remove photo %s: %v", ie.Photo, err))
			}
		}
	}
}

// AddParticipant plans one more employee for the event.
func (s *Service) AddParticipant(ctx context.Context, eventID, employeeID int64) error {
	if _, err := s.DB.GetEventByID(ctx, eventID); err != nil {
		if db.IsNotFound(err) {
			return ErrEventNotFound
		}
		return fmt.Errorf("failed to load event %d: %w", eventID, err)
	}
	exists, err := s.DB.EmployeeExists(ctx, employeeID)
	if err != nil {
		return fmt.Errorf("failed to check employee %d: %w", employeeID, err)
	}
	if !exists {
		return ErrEmployeeNotFound
	}

	already, err := s.DB.ParticipantExists(ctx, eventID, employeeID)
	if err != nil {
		return fmt.Errorf("failed to check participant: %w", err)
	}
	if already {
		return ErrParticipantExists
	}

	err = s.DB.AddParticipants(ctx, []models.PlannedParticipant{{EventID: eventID, EmployeeID: employeeID}})
	if err != nil {
		return fmt.Errorf("failed to add participant: %w", err)
	}
	return nil
}

// RemoveParticipant unplans an employee from the event.
func (s *Service) RemoveParticipant(ctx context.Context, eventID, employeeID int64) error {
	if err := s.DB.RemoveParticipant(ctx, eventID, employeeID); err != nil {
		if db.IsNotFound(err) {
			return ErrParticipantNotFound
		}
		return fmt.Errorf("failed to remove participant: %w", err)
	}
	return nil
}

// ReplaceVideo swaps the event recording. The previous file is removed so a
// rename of the extension never leaves two videos for one event.
func (s *Service) ReplaceVideo(ctx context.Context, eventID int64, video Upload) (*models.Event, error) {
	event, err := s.DB.GetEventByID(ctx, eventID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to load event %d: %w", eventID, err)
	}

	if err := s.Media.Remove(event.Video); err != nil {
		s.Logger.Error("MEDIA", fmt.Sprintf("Failed to remove video %s: %v", event.Video, err))
	}

	path, err := s.Media.SaveEventVideo(eventID, video.Filename, video.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to store video: %w", err)
	}
	event.Video = path
	if err := s.DB.UpdateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to save video path: %w", err)
	}
	return event, nil
}

// StartAnalysis hands the recording to the detection service. The upload
// outcome is reported back to the caller, not treated as a request failure.
func (s *Service) StartAnalysis(ctx context.Context, eventID int64) (ml.UploadResult, error) {
	event, err := s.DB.GetEventByID(ctx, eventID)
	if err != nil {
		if db.IsNotFound(err) {
			return ml.UploadResult{}, ErrEventNotFound
		}
		return ml.UploadResult{}, fmt.Errorf("failed to load event %d: %w", eventID, err)
	}
	if event.Video == "" {
		return ml.UploadResult{}, ErrNoVideo
	}
	return s.Analyzer.UploadVideo(ctx, eventID, event.Video), nil
}
