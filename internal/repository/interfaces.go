package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/physiokit/portal-api/internal/model"
)

// All repository interfaces in one file
type (
	// PatientRepository handles patient rows plus their access-relevant
	// relations (subscriptions, treatment packages, overrides).
	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		// GetWithEntitlements loads the patient together with subscriptions
		// (plans included) and treatment packages.
		GetWithEntitlements(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		Update(ctx context.Context, patient *model.Patient) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error)
		ListIDs(ctx context.Context, clinicID *uuid.UUID) ([]uuid.UUID, error)
		UpdateOverrides(ctx context.Context, id uuid.UUID, overrides model.OverrideMap) error
		UpdateFullAccess(ctx context.Context, id uuid.UUID, value bool, clearOverrides bool) error
	}

	ClinicRepository interface {
		Create(ctx context.Context, clinic *model.Clinic) error
		Get(ctx context.Context, id uuid.UUID) (*model.Clinic, error)
		Update(ctx context.Context, clinic *model.Clinic) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context) ([]*model.Clinic, error)
	}

	PlanRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Plan, error)
		List(ctx context.Context) ([]*model.Plan, error)
	}

	AdminUserRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.AdminUser, error)
		GetByEmail(ctx context.Context, email string) (*model.AdminUser, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	}

	AuditRepository interface {
		Create(ctx context.Context, log *model.AuditLog) error
		List(ctx context.Context, filters map[string]interface{}) ([]*model.AuditLog, error)
		DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
	}
)
