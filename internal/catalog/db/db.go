package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"ms-backoffice/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// SearchFilter pages a name-searchable catalog listing.
type SearchFilter struct {
	Query    string
	Page     int
	PageSize int
}

// ListIngredients → one page of ingredients matching the query plus the
// total count
func (d *DB) ListIngredients(ctx context.Context, filter SearchFilter) ([]models.Ingredient, int, error) {
	query := d.Bun.NewSelect().Model((*models.Ingredient)(nil))
	if filter.Query != "" {
		query = query.Where("name ILIKE ?", "%"+filter.Query+"%")
	}

	total, err := query.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	var ingredients []models.Ingredient
	offset := (filter.Page - 1) * filter.PageSize
	err = query.
		Order("name ASC").
		Offset(offset).
		Limit(filter.PageSize).
		Scan(ctx, &ingredients)
	if err != nil {
		return nil, 0, err
	}
	return ingredients, total, nil
}

// GetIngredientByID → fetch one ingredient
func (d *DB) GetIngredientByID(ctx context.Context, id int64) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	err := d.Bun.NewSelect().
		Model(&ingredient).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &ingredient, nil
}

// ListTags → one page of tags matching the query plus the total count
func (d *DB) ListTags(ctx context.Context, filter SearchFilter) ([]models.Tag, int, error) {
	query := d.Bun.NewSelect().Model((*models.Tag)(nil))
	if filter.Query != "" {
		query = query.Where("name ILIKE ?", "%"+filter.Query+"%")
	}

	total, err := query.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	var tags []models.Tag
	offset := (filter.Page - 1) * filter.PageSize
	err = query.
		Order("name ASC").
		Offset(offset).
		Limit(filter.PageSize).
		Scan(ctx, &tags)
	if err != nil {
		return nil, 0, err
	}
	return tags, total, nil
}

// GetOrCreateTag resolves a tag by name, inserting it when new. The second
// return value reports whether the row was created by this call.
func (d *DB) GetOrCreateTag(ctx context.Context, name string) (*models.Tag, bool, error) {
	tag := &models.Tag{Name: name}
	res, err := d.Bun.NewInsert().
		Model(tag).
		On("CONFLICT (name) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, false, err
	}
	created := false
	if affected, err := res.RowsAffected(); err == nil && affected > 0 {
		created = true
	}

	var existing models.Tag
	err = d.Bun.NewSelect().
		Model(&existing).
		Where("name = ?", name).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, false, err
	}
	return &existing, created, nil
}

// ListUnits → all units of measurement ordered by name
func (d *DB) ListUnits(ctx context.Context) ([]models.UnitOfMeasurement, error) {
	var units []models.UnitOfMeasurement
	err := d.Bun.NewSelect().
		Model(&units).
		Order("name ASC").
		Scan(ctx)
	return units, err
}

// IsNotFound reports whether err is the driver's empty-result error.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
