package model

import (
	"github.com/google/uuid"
)

type TreatmentPackageStatus string

const (
	TreatmentPackageStatusPaid      TreatmentPackageStatus = "PAID"
	TreatmentPackageStatusActive    TreatmentPackageStatus = "ACTIVE"
	TreatmentPackageStatusPending   TreatmentPackageStatus = "PENDING"
	TreatmentPackageStatusCompleted TreatmentPackageStatus = "COMPLETED"
)

// TreatmentPackage is a prepaid block of sessions. A paid package in PAID or
// ACTIVE status grants the fixed treatment bundle of modules and permissions.
type TreatmentPackage struct {
	Base
	PatientID     uuid.UUID `db:"patient_id" json:"patient_id"`
	Name          string    `db:"name" json:"name"`
	SessionsTotal int       `db:"sessions_total" json:"sessions_total"`
	SessionsUsed  int       `db:"sessions_used" json:"sessions_used"`
	IsPaid        bool      `db:"is_paid" json:"is_paid"`
	Status        string    `db:"status" json:"status"`
}

// GrantsBundle reports whether this package counts toward the treatment bundle.
func (p *TreatmentPackage) GrantsBundle() bool {
	if p == nil || !p.IsPaid {
		return false
	}
	return p.Status == string(TreatmentPackageStatusPaid) ||
		p.Status == string(TreatmentPackageStatusActive)
}
