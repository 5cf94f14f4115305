package clinic

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/physiokit/portal-api/internal/model"
	"github.com/physiokit/portal-api/internal/repository"
)

type ClinicService interface {
	CreateClinic(ctx context.Context, clinic *model.Clinic) error
	GetClinic(ctx context.Context, id uuid.UUID) (*model.Clinic, error)
	UpdateClinic(ctx context.Context, clinic *model.Clinic) error
	DeleteClinic(ctx context.Context, id uuid.UUID) error
	ListClinics(ctx context.Context) ([]*model.Clinic, error)
	GetPlan(ctx context.Context, id uuid.UUID) (*model.Plan, error)
	ListPlans(ctx context.Context) ([]*model.Plan, error)
}

type Service struct {
	repo  repository.ClinicRepository
	plans repository.PlanRepository
}

func NewService(repo repository.ClinicRepository, plans repository.PlanRepository) *Service {
	return &Service{repo: repo, plans: plans}
}

func (s *Service) CreateClinic(ctx context.Context, clinic *model.Clinic) error {
	if clinic.Name == "" {
		return fmt.Errorf("clinic name is required")
	}
	if clinic.Slug == "" {
		return fmt.Errorf("clinic slug is required")
	}

	clinic.ID = uuid.New()
	clinic.CreatedAt = time.Now()
	clinic.UpdatedAt = time.Now()
	clinic.Status = string(model.ClinicStatusActive)

	if err := s.repo.Create(ctx, clinic); err != nil {
		return fmt.Errorf("failed to create clinic: %w", err)
	}
	return nil
}

func (s *Service) GetClinic(ctx context.Context, id uuid.UUID) (*model.Clinic, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) UpdateClinic(ctx context.Context, clinic *model.Clinic) error {
	clinic.UpdatedAt = time.Now()
	return s.repo.Update(ctx, clinic)
}

func (s *Service) DeleteClinic(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListClinics(ctx context.Context) ([]*model.Clinic, error) {
	return s.repo.List(ctx)
}

func (s *Service) GetPlan(ctx context.Context, id uuid.UUID) (*model.Plan, error) {
	return s.plans.Get(ctx, id)
}

// ListPlans returns the plan catalogue, cheapest first.
func (s *Service) ListPlans(ctx context.Context) ([]*model.Plan, error) {
	return s.plans.List(ctx)
}
