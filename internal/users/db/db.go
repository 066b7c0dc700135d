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

// ListFilter narrows and pages the user listing.
type ListFilter struct {
	Login    string
	Role     models.Role
	Page     int
	PageSize int
}

// CreateUser → insert new user; the unique index on login rejects duplicates.
func (d *DB) CreateUser(ctx context.Context, user *models.User) error {
	_, err := d.Bun.NewInsert().Model(user).Exec(ctx)
	return err
}

// GetUserByID → fetch one user
func (d *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().
		Model(&user).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByLogin → fetch one user by login
func (d *DB) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().
		Model(&user).
		Where("login = ?", login).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// LoginExists reports whether a login is already taken.
func (d *DB) LoginExists(ctx context.Context, login string) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.User)(nil)).
		Where("login = ?", login).
		Exists(ctx)
}

// ListUsers applies the filter and returns one page plus the total count.
func (d *DB) ListUsers(ctx context.Context, filter ListFilter) ([]models.User, int, error) {
	query := d.Bun.NewSelect().Model((*models.User)(nil))
	if filter.Login != "" {
		query = query.Where("login ILIKE ?", "%"+filter.Login+"%")
	}
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}

	total, err := query.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	var users []models.User
	offset := (filter.Page - 1) * filter.PageSize
	err = query.
		Order("id ASC").
		Offset(offset).
		Limit(filter.PageSize).
		Scan(ctx, &users)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// UpdateUser → update login and role
func (d *DB) UpdateUser(ctx context.Context, user *models.User) error {
	_, err := d.Bun.NewUpdate().
		Model(user).
		Column("login", "role").
		Where("id = ?", user.ID).
		Exec(ctx)
	return err
}

// UpdatePassword → store new salt and hash
func (d *DB) UpdatePassword(ctx context.Context, id int64, salt, hash string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.User)(nil)).
		Set("salt = ?", salt).
		Set("hashed_password = ?", hash).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// DeleteUser → delete one user
func (d *DB) DeleteUser(ctx context.Context, id int64) error {
	res, err := d.Bun.NewDelete().
		Model((*models.User)(nil)).
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

// IsNotFound reports whether err is the driver's empty-result error.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
