package catalog

import (
	"context"
	"errors"
	"fmt"

	"ms-backoffice/internal/catalog/db"
	"ms-backoffice/internal/logger"
	"ms-backoffice/internal/models"
)

var ErrIngredientNotFound = errors.New("ingredient not found")

// Page wraps one page of catalog rows with pagination metadata.
type Page[T any] struct {
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
	Items      []T `json:"items"`
}

type DBLayer interface {
	ListIngredients(ctx context.Context, filter db.SearchFilter) ([]models.Ingredient, int, error)
	GetIngredientByID(ctx context.Context, id int64) (*models.Ingredient, error)
	ListTags(ctx context.Context, filter db.SearchFilter) ([]models.Tag, int, error)
	GetOrCreateTag(ctx context.Context, name string) (*models.Tag, bool, error)
	ListUnits(ctx context.Context) ([]models.UnitOfMeasurement, error)
}

type Service struct {
	DB     DBLayer
	Logger *logger.Logger
}

func NewService(db DBLayer, logger *logger.Logger) *Service {
	return &Service{DB: db, Logger: logger}
}

// ListIngredients returns one page of ingredients matching the query.
func (s *Service) ListIngredients(ctx context.Context, filter db.SearchFilter) (*Page[models.Ingredient], error) {
	filter = normalize(filter)
	rows, total, err := s.DB.ListIngredients(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingredients: %w", err)
	}
	return page(rows, total, filter.PageSize), nil
}

// GetIngredient returns one ingredient by id.
func (s *Service) GetIngredient(ctx context.Context, id int64) (*models.Ingredient, error) {
	ingredient, err := s.DB.GetIngredientByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrIngredientNotFound
		}
		return nil, fmt.Errorf("failed to load ingredient %d: %w", id, err)
	}
	return ingredient, nil
}

// ListTags returns one page of tags matching the query.
func (s *Service) ListTags(ctx context.Context, filter db.SearchFilter) (*Page[models.Tag], error) {
	filter = normalize(filter)
	rows, total, err := s.DB.ListTags(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return page(rows, total, filter.PageSize), nil
}

// GetOrCreateTag resolves a tag by name and reports whether it was created.
func (s *Service) GetOrCreateTag(ctx context.Context, name string) (*models.Tag, bool, error) {
	tag, created, err := s.DB.GetOrCreateTag(ctx, name)
	if err != nil {
		return nil, false, fmt.Errorf("failed to resolve tag: %w", err)
	}
	if created {
		s.Logger.Info("CATALOG", fmt.Sprintf("Created tag %q (id %d)", tag.Name, tag.ID))
	}
	return tag, created, nil
}

// ListUnits returns every unit of measurement.
func (s *Service) ListUnits(ctx context.Context) ([]models.UnitOfMeasurement, error) {
	return s.DB.ListUnits(ctx)
}

func normalize(filter db.SearchFilter) db.SearchFilter {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	return filter
}

func page[T any](items []T, total, pageSize int) *Page[T] {
	totalPages := total / pageSize
	if total%pageSize > 0 {
		totalPages++
	}
	return &Page[T]{TotalCount: total, TotalPages: totalPages, Items: items}
}
