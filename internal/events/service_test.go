package events_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"ms-backoffice/internal/events"
	"ms-backoffice/internal/events/db"
	"ms-backoffice/internal/logger"
	"ms-backoffice/internal/ml"
	"ms-backoffice/internal/models"
)

// Mock implementations for testing

type MockEventDB struct {
	events       map[int64]*models.Event
	employees    map[int64]bool
	participants map[string]bool
	nextID       int64
	shouldFailOn string
}

func NewMockEventDB() *MockEventDB {
	return &MockEventDB{
		events:       make(map[int64]*models.Event),
		employees:    make(map[int64]bool),
		participants: make(map[string]bool),
		nextID:       1,
	}
}

func participantKey(eventID, employeeID int64) string {
	return fmt.Sprintf("%d_%d", eventID, employeeID)
}

func (m *MockEventDB) CreateEvent(ctx context.Context, event *models.Event) error {
	if m.shouldFailOn == "CreateEvent" {
		return errors.New("db failure")
	}
	event.ID = m.nextID
	m.nextID++
	m.events[event.ID] = event
	return nil
}

func (m *MockEventDB) GetEventByID(ctx context.Context, id int64) (*models.Event, error) {
	event, exists := m.events[id]
	if !exists {
		return nil, sql.ErrNoRows
	}
	return event, nil
}

func (m *MockEventDB) GetEventWithParticipants(ctx context.Context, id int64) (*models.Event, error) {
	return m.GetEventByID(ctx, id)
}

func (m *MockEventDB) GetEventWithIntervals(ctx context.Context, id int64) (*models.Event, error) {
	return m.GetEventByID(ctx, id)
}

func (m *MockEventDB) UpdateEvent(ctx context.Context, event *models.Event) error {
	if _, exists := m.events[event.ID]; !exists {
		return sql.ErrNoRows
	}
	m.events[event.ID] = event
	return nil
}

func (m *MockEventDB) DeleteEvent(ctx context.Context, id int64) error {
	if _, exists := m.events[id]; !exists {
		return sql.ErrNoRows
	}
	delete(m.events, id)
	return nil
}

func (m *MockEventDB) ListEvents(ctx context.Context, filter db.ListFilter) ([]models.Event, int, error) {
	result := make([]models.Event, 0, len(m.events))
	for _, event := range m.events {
		result = append(result, *event)
	}
	return result, len(result), nil
}

func (m *MockEventDB) ParticipantExists(ctx context.Context, eventID, employeeID int64) (bool, error) {
	return m.participants[participantKey(eventID, employeeID)], nil
}

func (m *MockEventDB) AddParticipants(ctx context.Context, participants []models.PlannedParticipant) error {
	for _, p := range participants {
		m.participants[participantKey(p.EventID, p.EmployeeID)] = true
	}
	return nil
}

func (m *MockEventDB) RemoveParticipant(ctx context.Context, eventID, employeeID int64) error {
	key := participantKey(eventID, employeeID)
	if !m.participants[key] {
		return sql.ErrNoRows
	}
	delete(m.participants, key)
	return nil
}

func (m *MockEventDB) EmployeeExists(ctx context.Context, id int64) (bool, error) {
	return m.employees[id], nil
}

type MockMedia struct {
	saved   []string
	removed []string
}

func (m *MockMedia) SaveEventVideo(eventID int64, filename string, r io.Reader) (string, error) {
	path := fmt.Sprintf("media/events/%d/video/%s", eventID, filename)
	m.saved = append(m.saved, path)
	return path, nil
}

func (m *MockMedia) Remove(path string) error {
	if path != "" {
		m.removed = append(m.removed, path)
	}
	return nil
}

type MockPublisher struct {
	published []string
}

func (m *MockPublisher) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	m.published = append(m.published, topic+":"+key)
	return nil
}

type MockInvalidator struct {
	invalidated []int64
}

func (m *MockInvalidator) InvalidateEvent(ctx context.Context, eventID int64) error {
	m.invalidated = append(m.invalidated, eventID)
	return nil
}

type MockAnalyzer struct {
	uploads []string
	result  ml.UploadResult
}

func (m *MockAnalyzer) UploadVideo(ctx context.Context, eventID int64, videoPath string) ml.UploadResult {
	m.uploads = append(m.uploads, videoPath)
	return m.result
}

type testDeps struct {
	db          *MockEventDB
	media       *MockMedia
	publisher   *MockPublisher
	invalidator *MockInvalidator
	analyzer    *MockAnalyzer
}

func newTestService(mockDB *MockEventDB) (*events.Service, *testDeps) {
	deps := &testDeps{
		db:          mockDB,
		media:       &MockMedia{},
		publisher:   &MockPublisher{},
		invalidator: &MockInvalidator{},
		analyzer:    &MockAnalyzer{result: ml.UploadResult{Status: "processing"}},
	}
	service := events.NewService(deps.db, deps.media, deps.publisher, deps.invalidator,
		deps.analyzer, "events.deleted", logger.NewLogger())
	return service, deps
}

func TestCreateEventWithParticipantsAndVideo(t *testing.T) {
	mockDB := NewMockEventDB()
	mockDB.employees[1] = true
	mockDB.employees[2] = true

	service, deps := newTestService(mockDB)

	start := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	event, err := service.CreateEvent(context.Background(), events.EventCreate{
		Name:          "Quarterly review",
		StartDatetime: start,
		EndDatetime:   start.Add(time.Hour),
		EmployeeIDs:   []int64{1, 2},
	}, &events.Upload{Filename: "recording.mp4", Reader: strings.NewReader("mp4")})
	if err != nil {
		t.Fatalf("Failed to create event: %v", err)
	}

	if event.Video == "" {
		t.Error("Expected a stored video path")
	}
	if len(deps.media.saved) != 1 {
		t.Errorf("Expected 1 saved video, got %d", len(deps.media.saved))
	}
	if len(deps.analyzer.uploads) != 1 {
		t.Errorf("Expected the recording to be forwarded for analysis, got %d uploads", len(deps.analyzer.uploads))
	}
	if !mockDB.participants[participantKey(event.ID, 1)] || !mockDB.participants[participantKey(event.ID, 2)] {
		t.Error("Expected both employees to be planned")
	}
}

func TestCreateEventUnknownEmployee(t *testing.T) {
	service, _ := newTestService(NewMockEventDB())

	_, err := service.CreateEvent(context.Background(), events.EventCreate{
		Name:        "Quarterly review",
		EmployeeIDs: []int64{99},
	}, nil)
	if !errors.Is(err, events.ErrEmployeeNotFound) {
		t.Errorf("Expected ErrEmployeeNotFound, got %v", err)
	}
}

func TestAddParticipantDuplicate(t *testing.T) {
	mockDB := NewMockEventDB()
	mockDB.events[1] = &models.Event{ID: 1}
	mockDB.employees[7] = true

	service, _ := newTestService(mockDB)
	ctx := context.Background()

	if err := service.AddParticipant(ctx, 1, 7); err != nil {
		t.Fatalf("Failed to add participant: %v", err)
	}
	if err := service.AddParticipant(ctx, 1, 7); !errors.Is(err, events.ErrParticipantExists) {
		t.Errorf("Expected ErrParticipantExists, got %v", err)
	}
}

func TestRemoveParticipantNotFound(t *testing.T) {
	mockDB := NewMockEventDB()
	mockDB.events[1] = &models.Event{ID: 1}

	service, _ := newTestService(mockDB)

	err := service.RemoveParticipant(context.Background(), 1, 7)
	if !errors.Is(err, events.ErrParticipantNotFound) {
		t.Errorf("Expected ErrParticipantNotFound, got %v", err)
	}
}

func TestDeleteEventCleansUp(t *testing.T) {
	mockDB := NewMockEventDB()
	mockDB.events[1] = &models.Event{
		ID:    1,
		Video: "media/events/1/video/recording.mp4",
		Intervals: []*models.VisitInterval{
			{
				ID:                   3,
				MaxUnregisteredPhoto: "media/intervals/1_0/photo/unregistered/unregistered_2.jpg",
				Employees: []*models.IntervalEmployee{
					{Photo: "media/intervals/1_0/photo/employee/7.jpg"},
				},
			},
		},
	}

	service, deps := newTestService(mockDB)

	if err := service.DeleteEvent(context.Background(), 1); err != nil {
		t.Fatalf("Failed to delete event: %v", err)
	}

	if len(mockDB.events) != 0 {
		t.Error("Expected the event row to be gone")
	}
	if len(deps.media.removed) != 3 {
		t.Errorf("Expected 3 removed files, got %d: %v", len(deps.media.removed), deps.media.removed)
	}
	if len(deps.publisher.published) != 1 {
		t.Errorf("Expected 1 deletion event published, got %d", len(deps.publisher.published))
	}
	if len(deps.invalidator.invalidated) != 1 {
		t.Errorf("Expected report cache invalidation, got %v", deps.invalidator.invalidated)
	}
}

func TestReplaceVideoRemovesOld(t *testing.T) {
	mockDB := NewMockEventDB()
	mockDB.events[1] = &models.Event{ID: 1, Video: "media/events/1/video/old.mp4"}

	service, deps := newTestService(mockDB)

	event, err := service.ReplaceVideo(context.Background(), 1,
		events.Upload{Filename: "new.mp4", Reader: strings.NewReader("mp4")})
	if err != nil {
		t.Fatalf("Failed to replace video: %v", err)
	}

	if len(deps.media.removed) != 1 || deps.media.removed[0] != "media/events/1/video/old.mp4" {
		t.Errorf("Expected old video to be removed, got %v", deps.media.removed)
	}
	if event.Video != "media/events/1/video/new.mp4" {
		t.Errorf("Expected new video path, got %s", event.Video)
	}
}

func TestStartAnalysis(t *testing.T) {
	mockDB := NewMockEventDB()
	mockDB.events[1] = &models.Event{ID: 1, Video: "media/events/1/video/recording.mp4"}
	mockDB.events[2] = &models.Event{ID: 2}

	service, deps := newTestService(mockDB)
	ctx := context.Background()

	result, err := service.StartAnalysis(ctx, 1)
	if err != nil {
		t.Fatalf("Failed to start analysis: %v", err)
	}
	if result.Status != "processing" {
		t.Errorf("Expected processing status, got %s", result.Status)
	}
	if len(deps.analyzer.uploads) != 1 {
		t.Errorf("Expected 1 upload, got %d", len(deps.analyzer.uploads))
	}

	if _, err := service.StartAnalysis(ctx, 2); !errors.Is(err, events.ErrNoVideo) {
		t.Errorf("Expected ErrNoVideo, got %v", err)
	}
	if _, err := service.StartAnalysis(ctx, 404); !errors.Is(err, events.ErrEventNotFound) {
		t.Errorf("Expected ErrEventNotFound, got %v", err)
	}
}
