package users

import (
	"context"
	"errors"
	"fmt"

	"ms-backoffice/internal/auth"
	"ms-backoffice/internal/logger"
	"ms-backoffice/internal/models"
	"ms-backoffice/internal/users/db"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrLoginTaken     = errors.New("login is already taken")
	ErrBadCredentials = errors.New("wrong login or password")
)

type UserCreate struct {
	Login    string
	Password string
	Role     models.Role
}

type UserUpdate struct {
	Login *string
	Role  *models.Role
}

type ListResult struct {
	TotalCount int           `json:"total_count"`
	Users      []models.User `json:"users"`
}

type DBLayer interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	LoginExists(ctx context.Context, login string) (bool, error)
	ListUsers(ctx context.Context, filter db.ListFilter) ([]models.User, int, error)
	UpdateUser(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id int64, salt, hash string) error
	DeleteUser(ctx context.Context, id int64) error
}

type Service struct {
	DB     DBLayer
	Issuer *auth.TokenIssuer
	Logger *logger.Logger
}

func NewService(db DBLayer, issuer *auth.TokenIssuer, logger *logger.Logger) *Service {
	return &Service{DB: db, Issuer: issuer, Logger: logger}
}

// Register creates a user with a fresh salt and a bcrypt hash.
func (s *Service) Register(ctx context.Context, input UserCreate) (*models.User, error) {
	taken, err := s.DB.LoginExists(ctx, input.Login)
	if err != nil {
		return nil, fmt.Errorf("failed to check login: %w", err)
	}
	if taken {
		return nil, ErrLoginTaken
	}

	salt, err := auth.GenerateSalt()
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	hash, err := auth.HashPassword(salt, input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	role := input.Role
	if role == "" {
		role = models.RoleUser
	}

	user := &models.User{
		Login:          input.Login,
		Role:           role,
		Salt:           salt,
		HashedPassword: hash,
	}
	if err := s.DB.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.Logger.Info("USER", fmt.Sprintf("Registered user %s (id %d)", user.Login, user.ID))
	return user, nil
}

// Login verifies credentials and returns a signed access token.
func (s *Service) Login(ctx context.Context, login, password string) (string, *models.User, error) {
	user, err := s.DB.GetUserByLogin(ctx, login)
	if err != nil {
		if db.IsNotFound(err) {
			return "", nil, ErrBadCredentials
		}
		return "", nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !auth.VerifyPassword(user.Salt, password, user.HashedPassword) {
		return "", nil, ErrBadCredentials
	}

	token, err := s.Issuer.IssueToken(user)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return token, user, nil
}

// GetUser returns one user by id.
func (s *Service) GetUser(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.DB.GetUserByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user %d: %w", id, err)
	}
	return user, nil
}

// ListUsers returns one page of users matching the filter.
func (s *Service) ListUsers(ctx context.Context, filter db.ListFilter) (*ListResult, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}

	rows, total, err := s.DB.ListUsers(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return &ListResult{TotalCount: total, Users: rows}, nil
}

// UpdateUser changes login or role for one user.
func (s *Service) UpdateUser(ctx context.Context, id int64, update UserUpdate) (*models.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Login != nil && *update.Login != user.Login {
		taken, err := s.DB.LoginExists(ctx, *update.Login)
		if err != nil {
			return nil, fmt.Errorf("failed to check login: %w", err)
		}
		if taken {
			return nil, ErrLoginTaken
		}
		user.Login = *update.Login
	}
	if update.Role != nil {
		user.Role = *update.Role
	}

	if err := s.DB.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user %d: %w", id, err)
	}
	return user, nil
}

// ChangePassword verifies the old password before storing the new hash.
func (s *Service) ChangePassword(ctx context.Context, id int64, oldPassword, newPassword string) error {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if !auth.VerifyPassword(user.Salt, oldPassword, user.HashedPassword) {
		return ErrBadCredentials
	}

	salt, err := auth.GenerateSalt()
	if err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}
	hash, err := auth.HashPassword(salt, newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.DB.UpdatePassword(ctx, id, salt, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// DeleteUser removes one user.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	if err := s.DB.DeleteUser(ctx, id); err != nil {
		if db.IsNotFound(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to delete user %d: %w", id, err)
	}
	s.Logger.Info("USER", fmt.Sprintf("Deleted user %d", id))
	return nil
}
