package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type PatientStatus string

const (
	PatientStatusActive   PatientStatus = "active"
	PatientStatusInactive PatientStatus = "inactive"
)

// OverrideMap is the per-patient admin override set, stored as a jsonb
// column. A key absent from the map means "defer to the plan-derived value".
type OverrideMap map[string]bool

func (m OverrideMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *OverrideMap) Scan(src interface{}) error {
	if src == nil {
		*m = OverrideMap{}
		return nil
	}
	data, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unsupported override map source type %T", src)
	}
	if len(data) == 0 {
		*m = OverrideMap{}
		return nil
	}
	return json.Unmarshal(data, m)
}

type Patient struct {
	Base
	ClinicID           uuid.UUID   `db:"clinic_id" json:"clinic_id"`
	Name               string      `db:"name" json:"name"`
	Email              string      `db:"email" json:"email"`
	Phone              string      `db:"phone" json:"phone"`
	Status             string      `db:"status" json:"status"`
	ConsentAcceptedAt  *time.Time  `db:"consent_accepted_at" json:"consent_accepted_at,omitempty"`
	ScreeningCompleted bool        `db:"screening_completed" json:"screening_completed"`
	ModuleOverrides    OverrideMap `db:"module_overrides" json:"module_overrides"`
	FullAccessOverride bool        `db:"full_access_override" json:"full_access_override"`

	// Loaded relations, not columns.
	Subscriptions     []*Subscription     `db:"-" json:"subscriptions,omitempty"`
	TreatmentPackages []*TreatmentPackage `db:"-" json:"treatment_packages,omitempty"`
}

type CreatePatientRequest struct {
	ClinicID string `json:"clinic_id" binding:"required,uuid"`
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
}

type UpdatePatientRequest struct {
	Name               *string `json:"name"`
	Email              *string `json:"email" binding:"omitempty,email"`
	Phone              *string `json:"phone"`
	Status             *string `json:"status"`
	ScreeningCompleted *bool   `json:"screening_completed"`
}

type PatientFilters struct {
	ClinicID   uuid.UUID
	Status     string
	SearchTerm string
}
