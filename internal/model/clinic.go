package model

type ClinicStatus string

const (
	ClinicStatusActive    ClinicStatus = "active"
	ClinicStatusSuspended ClinicStatus = "suspended"
)

// Clinic is the tenant boundary: every patient and admin user belongs to one.
type Clinic struct {
	Base
	Name   string `db:"name" json:"name"`
	Slug   string `db:"slug" json:"slug"`
	Email  string `db:"email" json:"email"`
	Phone  string `db:"phone" json:"phone"`
	Status string `db:"status" json:"status"`
}

type CreateClinicRequest struct {
	Name  string `json:"name" binding:"required"`
	Slug  string `json:"slug" binding:"required,slug"`
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"phone"`
}

type UpdateClinicRequest struct {
	Name   *string `json:"name"`
	Email  *string `json:"email" binding:"omitempty,email"`
	Phone  *string `json:"phone"`
	Status *string `json:"status"`
}
