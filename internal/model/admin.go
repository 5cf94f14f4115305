package model

import (
	"github.com/google/uuid"
)

type AdminRole string

const (
	AdminRoleOwner AdminRole = "owner"
	AdminRoleStaff AdminRole = "staff"
)

// AdminUser is a back-office user allowed to manage patient access.
type AdminUser struct {
	Base
	ClinicID     uuid.UUID `db:"clinic_id" json:"clinic_id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string     `json:"token"`
	User  *AdminUser `json:"user"`
}
