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

type planRepository struct {
	db *sqlx.DB
}

func NewPlanRepository(db *sqlx.DB) repository.PlanRepository {
	return &planRepository{db: db}
}

func (r *planRepository) Get(ctx context.Context, id uuid.UUID) (*model.Plan, error) {
	query := `SELECT * FROM plans WHERE id = $1 AND deleted_at IS NULL`
	var plan model.Plan
	err := r.db.GetContext(ctx, &plan, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("plan", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return &plan, nil
}

func (r *planRepository) List(ctx context.Context) ([]*model.Plan, error) {
	query := `SELECT * FROM plans WHERE deleted_at IS NULL ORDER BY price_cents`
	var plans []*model.Plan
	if err := r.db.SelectContext(ctx, &plans, query); err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return plans, nil
}
