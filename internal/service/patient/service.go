package patient

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/physiokit/portal-api/internal/model"
	"github.com/physiokit/portal-api/internal/repository"
	"github.com/physiokit/portal-api/internal/service/audit"
)

type PatientService interface {
	CreatePatient(ctx context.Context, patient *model.Patient) error
	GetPatient(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	UpdatePatient(ctx context.Context, patient *model.Patient) error
	DeletePatient(ctx context.Context, id uuid.UUID) error
	ListPatients(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error)
}

type Service struct {
	repo    repository.PatientRepository
	auditor *audit.Service
}

func NewService(repo repository.PatientRepository, auditor *audit.Service) *Service {
	return &Service{repo: repo, auditor: auditor}
}

func (s *Service) CreatePatient(ctx context.Context, patient *model.Patient) error {
	if err := s.validatePatient(patient); err != nil {
		return fmt.Errorf("invalid patient data: %w", err)
	}

	patient.ID = uuid.New()
	patient.CreatedAt = time.Now()
	patient.UpdatedAt = time.Now()
	patient.Status = string(model.PatientStatusActive)
	if patient.ModuleOverrides == nil {
		patient.ModuleOverrides = model.OverrideMap{}
	}

	if err := s.repo.Create(ctx, patient); err != nil {
		return fmt.Errorf("failed to create patient: %w", err)
	}

	s.auditor.Log(ctx, actorFromContext(ctx), patient.ClinicID, "create", "patient", patient.ID, &audit.LogOptions{
		Changes: patient,
	})
	return nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	patient, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return patient, nil
}

func (s *Service) UpdatePatient(ctx context.Context, patient *model.Patient) error {
	patient.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, patient); err != nil {
		return err
	}

	s.auditor.Log(ctx, actorFromContext(ctx), patient.ClinicID, "update", "patient", patient.ID, &audit.LogOptions{
		Changes: patient,
	})
	return nil
}

func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	patient, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.auditor.Log(ctx, actorFromContext(ctx), patient.ClinicID, "delete", "patient", id, nil)
	return nil
}

func (s *Service) ListPatients(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) validatePatient(patient *model.Patient) error {
	if patient.ClinicID == uuid.Nil {
		return fmt.Errorf("clinic ID is required")
	}
	if patient.Name == "" {
		return fmt.Errorf("name is required")
	}
	if patient.Email == "" {
		return fmt.Errorf("email is required")
	}
	return nil
}

func actorFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if userID, ok := ctx.Value("user_id").(uuid.UUID); ok {
		return userID
	}
	return uuid.Nil
}
