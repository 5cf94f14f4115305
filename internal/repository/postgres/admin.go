package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/physiokit/portal-api/internal/model"
	"github.com/physiokit/portal-api/internal/repository"
	apperrors "github.com/physiokit/portal-api/pkg/errors"
)

type adminUserRepository struct {
	db *sqlx.DB
}

func NewAdminUserRepository(db *sqlx.DB) repository.AdminUserRepository {
	return &adminUserRepository{db: db}
}

func (r *adminUserRepository) Get(ctx context.Context, id uuid.UUID) (*model.AdminUser, error) {
	query := `SELECT * FROM admin_users WHERE id = $1 AND deleted_at IS NULL`
	var user model.AdminUser
	err := r.db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("admin user", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin user: %w", err)
	}
	return &user, nil
}

func (r *adminUserRepository) GetByEmail(ctx context.Context, email string) (*model.AdminUser, error) {
	query := `SELECT * FROM admin_users WHERE email = $1 AND deleted_at IS NULL`
	var user model.AdminUser
	err := r.db.GetContext(ctx, &user, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("admin user", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin user by email: %w", err)
	}
	return &user, nil
}
