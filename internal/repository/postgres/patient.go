package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/physiokit/portal-api/internal/model"
	"github.com/physiokit/portal-api/internal/repository"
	apperrors "github.com/physiokit/portal-api/pkg/errors"
)

type patientRepository struct {
	db *sqlx.DB
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{db: db}
}

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	query := `
		INSERT INTO patients (id, clinic_id, name, email, phone, status,
			consent_accepted_at, screening_completed, module_overrides,
			full_access_override, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	patient.CreatedAt = time.Now()
	patient.UpdatedAt = time.Now()
	if patient.ModuleOverrides == nil {
		patient.ModuleOverrides = model.OverrideMap{}
	}

	_, err := r.db.ExecContext(ctx, query,
		patient.ID,
		patient.ClinicID,
		patient.Name,
		patient.Email,
		patient.Phone,
		patient.Status,
		patient.ConsentAcceptedAt,
		patient.ScreeningCompleted,
		patient.ModuleOverrides,
		patient.FullAccessOverride,
		patient.CreatedAt,
		patient.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create patient: %w", err)
	}
	return nil
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	query := `SELECT * FROM patients WHERE id = $1 AND deleted_at IS NULL`
	var patient model.Patient
	err := r.db.GetContext(ctx, &patient, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("patient", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return &patient, nil
}

func (r *patientRepository) GetWithEntitlements(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	patient, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	subsQuery := `
		SELECT s.*,
			p.id AS "plan.id", p.name AS "plan.name", p.name_ar AS "plan.name_ar",
			p.features AS "plan.features", p.is_free AS "plan.is_free",
			p.price_cents AS "plan.price_cents", p.interval AS "plan.interval"
		FROM subscriptions s
		JOIN plans p ON p.id = s.plan_id
		WHERE s.patient_id = $1
	`
	rows, err := r.db.QueryxContext(ctx, subsQuery, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscriptions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row struct {
			model.Subscription
			Plan model.Plan `db:"plan"`
		}
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		sub := row.Subscription
		plan := row.Plan
		sub.Plan = &plan
		patient.Subscriptions = append(patient.Subscriptions, &sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subscriptions: %w", err)
	}

	pkgQuery := `SELECT * FROM treatment_packages WHERE patient_id = $1 AND deleted_at IS NULL`
	if err := r.db.SelectContext(ctx, &patient.TreatmentPackages, pkgQuery, id); err != nil {
		return nil, fmt.Errorf("failed to load treatment packages: %w", err)
	}

	return patient, nil
}

func (r *patientRepository) Update(ctx context.Context, patient *model.Patient) error {
	query := `
		UPDATE patients
		SET name = $1, email = $2, phone = $3, status = $4,
			screening_completed = $5, updated_at = $6
		WHERE id = $7 AND deleted_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, query,
		patient.Name,
		patient.Email,
		patient.Phone,
		patient.Status,
		patient.ScreeningCompleted,
		time.Now(),
		patient.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update patient: %w", err)
	}
	return requireRow(res, "patient")
}

func (r *patientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE patients SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}
	return requireRow(res, "patient")
}

func (r *patientRepository) List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error) {
	query := `SELECT * FROM patients WHERE deleted_at IS NULL`
	args := []interface{}{}
	i := 1

	if filters != nil {
		if filters.ClinicID != uuid.Nil {
			query += fmt.Sprintf(" AND clinic_id = $%d", i)
			args = append(args, filters.ClinicID)
			i++
		}
		if filters.Status != "" {
			query += fmt.Sprintf(" AND status = $%d", i)
			args = append(args, filters.Status)
			i++
		}
		if filters.SearchTerm != "" {
			query += fmt.Sprintf(" AND (name ILIKE $%d OR email ILIKE $%d)", i, i)
			args = append(args, "%"+filters.SearchTerm+"%")
			i++
		}
	}
	query += " ORDER BY created_at DESC"

	var patients []*model.Patient
	if err := r.db.SelectContext(ctx, &patients, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

func (r *patientRepository) ListIDs(ctx context.Context, clinicID *uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT id FROM patients WHERE deleted_at IS NULL`
	args := []interface{}{}
	if clinicID != nil {
		query += ` AND clinic_id = $1`
		args = append(args, *clinicID)
	}

	var ids []uuid.UUID
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list patient ids: %w", err)
	}
	return ids, nil
}

func (r *patientRepository) UpdateOverrides(ctx context.Context, id uuid.UUID, overrides model.OverrideMap) error {
	if overrides == nil {
		overrides = model.OverrideMap{}
	}
	query := `UPDATE patients SET module_overrides = $1, updated_at = $2 WHERE id = $3 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, overrides, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update overrides: %w", err)
	}
	return requireRow(res, "patient")
}

func (r *patientRepository) UpdateFullAccess(ctx context.Context, id uuid.UUID, value bool, clearOverrides bool) error {
	query := `UPDATE patients SET full_access_override = $1, updated_at = $2 WHERE id = $3 AND deleted_at IS NULL`
	args := []interface{}{value, time.Now(), id}
	if clearOverrides {
		query = `UPDATE patients SET full_access_override = $1, module_overrides = '{}'::jsonb, updated_at = $2 WHERE id = $3 AND deleted_at IS NULL`
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update full access override: %w", err)
	}
	return requireRow(res, "patient")
}

func requireRow(res sql.Result, resource string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return apperrors.NotFound(resource, sql.ErrNoRows)
	}
	return nil
}
