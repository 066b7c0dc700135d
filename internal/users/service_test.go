package users_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"ms-backoffice/internal/auth"
	"ms-backoffice/internal/logger"
	"ms-backoffice/internal/models"
	"ms-backoffice/internal/users"
	"ms-backoffice/internal/users/db"
)

// Mock implementations for testing

type MockUserDB struct {
	users        map[int64]*models.User
	nextID       int64
	shouldFailOn string
}

func NewMockUserDB() *MockUserDB {
	return &MockUserDB{users: make(map[int64]*models.User), nextID: 1}
}

func (m *MockUserDB) CreateUser(ctx context.Context, user *models.User) error {
	if m.shouldFailOn == "CreateUser" {
		return errors.New("db failure")
	}
	user.ID = m.nextID
	m.nextID++
	m.users[user.ID] = user
	return nil
}

func (m *MockUserDB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	user, exists := m.users[id]
	if !exists {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (m *MockUserDB) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	for _, user := range m.users {
		if user.Login == login {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *MockUserDB) LoginExists(ctx context.Context, login string) (bool, error) {
	_, err := m.GetUserByLogin(ctx, login)
	return err == nil, nil
}

func (m *MockUserDB) ListUsers(ctx context.Context, filter db.ListFilter) ([]models.User, int, error) {
	result := make([]models.User, 0, len(m.users))
	for _, user := range m.users {
		result = append(result, *user)
	}
	return result, len(result), nil
}

func (m *MockUserDB) UpdateUser(ctx context.Context, user *models.User) error {
	if _, exists := m.users[user.ID]; !exists {
		return sql.ErrNoRows
	}
	m.users[user.ID] = user
	return nil
}

func (m *MockUserDB) UpdatePassword(ctx context.Context, id int64, salt, hash string) error {
	user, exists := m.users[id]
	if !exists {
		return sql.ErrNoRows
	}
	user.Salt = salt
	user.HashedPassword = hash
	return nil
}

func (m *MockUserDB) DeleteUser(ctx context.Context, id int64) error {
	if _, exists := m.users[id]; !exists {
		return sql.ErrNoRows
	}
	delete(m.users, id)
	return nil
}

func newTestService(db *MockUserDB) *users.Service {
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	return users.NewService(db, issuer, logger.NewLogger())
}

func TestRegisterAndLogin(t *testing.T) {
	mockDB := NewMockUserDB()
	service := newTestService(mockDB)
	ctx := context.Background()

	user, err := service.Register(ctx, users.UserCreate{Login: "anna", Password: "secret", Role: models.RoleHR})
	if err != nil {
		t.Fatalf("Failed to register: %v", err)
	}
	if user.Role != models.RoleHR {
		t.Errorf("Expected HR role, got %s", user.Role)
	}
	if user.HashedPassword == "secret" || user.HashedPassword == "" {
		t.Error("Expected password to be stored hashed")
	}

	token, loggedIn, err := service.Login(ctx, "anna", "secret")
	if err != nil {
		t.Fatalf("Failed to login: %v", err)
	}
	if token == "" {
		t.Error("Expected a non-empty access token")
	}
	if loggedIn.ID != user.ID {
		t.Errorf("Expected user %d, got %d", user.ID, loggedIn.ID)
	}
}

func TestRegisterDefaultsRole(t *testing.T) {
	service := newTestService(NewMockUserDB())

	user, err := service.Register(context.Background(), users.UserCreate{Login: "anna", Password: "secret"})
	if err != nil {
		t.Fatalf("Failed to register: %v", err)
	}
	if user.Role != models.RoleUser {
		t.Errorf("Expected default USER role, got %s", user.Role)
	}
}

func TestRegisterDuplicateLogin(t *testing.T) {
	service := newTestService(NewMockUserDB())
	ctx := context.Background()

	if _, err := service.Register(ctx, users.UserCreate{Login: "anna", Password: "secret"}); err != nil {
		t.Fatalf("Failed to register: %v", err)
	}

	_, err := service.Register(ctx, users.UserCreate{Login: "anna", Password: "other"})
	if !errors.Is(err, users.ErrLoginTaken) {
		t.Errorf("Expected ErrLoginTaken, got %v", err)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	service := newTestService(NewMockUserDB())
	ctx := context.Background()

	if _, err := service.Register(ctx, users.UserCreate{Login: "anna", Password: "secret"}); err != nil {
		t.Fatalf("Failed to register: %v", err)
	}

	if _, _, err := service.Login(ctx, "anna", "wrong"); !errors.Is(err, users.ErrBadCredentials) {
		t.Errorf("Expected ErrBadCredentials for wrong password, got %v", err)
	}
	if _, _, err := service.Login(ctx, "nobody", "secret"); !errors.Is(err, users.ErrBadCredentials) {
		t.Errorf("Expected ErrBadCredentials for unknown login, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	service := newTestService(NewMockUserDB())
	ctx := context.Background()

	user, err := service.Register(ctx, users.UserCreate{Login: "anna", Password: "secret"})
	if err != nil {
		t.Fatalf("Failed to register: %v", err)
	}

	if err := service.ChangePassword(ctx, user.ID, "wrong", "updated"); !errors.Is(err, users.ErrBadCredentials) {
		t.Errorf("Expected ErrBadCredentials for wrong old password, got %v", err)
	}

	if err := service.ChangePassword(ctx, user.ID, "secret", "updated"); err != nil {
		t.Fatalf("Failed to change password: %v", err)
	}

	if _, _, err := service.Login(ctx, "anna", "updated"); err != nil {
		t.Errorf("Expected login with new password to work, got %v", err)
	}
	if _, _, err := service.Login(ctx, "anna", "secret"); !errors.Is(err, users.ErrBadCredentials) {
		t.Errorf("Expected old password to be rejected, got %v", err)
	}
}

func TestUpdateUserLoginTaken(t *testing.T) {
	service := newTestService(NewMockUserDB())
	ctx := context.Background()

	if _, err := service.Register(ctx, users.UserCreate{Login: "anna", Password: "secret"}); err != nil {
		t.Fatalf("Failed to register: %v", err)
	}
	second, err := service.Register(ctx, users.UserCreate{Login: "boris", Password: "secret"})
	if err != nil {
		t.Fatalf("Failed to register: %v", err)
	}

	newLogin := "anna"
	_, err = service.UpdateUser(ctx, second.ID, users.UserUpdate{Login: &newLogin})
	if !errors.Is(err, users.ErrLoginTaken) {
		t.Errorf("Expected ErrLoginTaken, got %v", err)
	}
}

func TestDeleteUserNotFound(t *testing.T) {
	service := newTestService(NewMockUserDB())

	if err := service.DeleteUser(context.Background(), 404); !errors.Is(err, users.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}
