package model

import (
	"github.com/google/uuid"
)

// ModuleAccess is the resolved status of one registry module for a patient.
// AdminOverride is nil when no override is stored for the key.
type ModuleAccess struct {
	Key             string `json:"key"`
	Name            string `json:"name"`
	NameAr          string `json:"name_ar"`
	Category        string `json:"category"`
	Route           string `json:"route"`
	AlwaysVisible   bool   `json:"always_visible"`
	GrantedByPlan   bool   `json:"granted_by_plan"`
	AdminOverride   *bool  `json:"admin_override"`
	EffectiveAccess bool   `json:"effective_access"`
}

// PermissionAccess is the resolved status of one registry permission.
type PermissionAccess struct {
	Key             string `json:"key"`
	Name            string `json:"name"`
	NameAr          string `json:"name_ar"`
	Category        string `json:"category"`
	RelatedModule   string `json:"related_module,omitempty"`
	GrantedByPlan   bool   `json:"granted_by_plan"`
	AdminOverride   *bool  `json:"admin_override"`
	EffectiveAccess bool   `json:"effective_access"`
}

// AccessReport is the full UI-ready access status for one patient. Modules
// and permissions follow registry order.
type AccessReport struct {
	PatientID          uuid.UUID          `json:"patient_id"`
	FullAccessOverride bool               `json:"full_access_override"`
	Modules            []ModuleAccess     `json:"modules"`
	Permissions        []PermissionAccess `json:"permissions"`
}

// UpdateOverridesRequest carries the proposed override map. Values are kept
// loosely typed on purpose: non-boolean values mean "remove this override"
// and are dropped during sanitization rather than rejected.
type UpdateOverridesRequest struct {
	Overrides map[string]interface{} `json:"overrides" binding:"required"`
}

type UpdateOverridesResponse struct {
	Overrides OverrideMap `json:"overrides"`
}

// FullAccessRequest optionally carries an explicit target value. A missing
// body or nil value means "flip the current flag".
type FullAccessRequest struct {
	Value *bool `json:"value"`
}

type FullAccessResponse struct {
	FullAccessOverride bool `json:"full_access_override"`
	OverridesCleared   bool `json:"overrides_cleared"`
}

type ApplyOverridesResponse struct {
	Updated   int         `json:"updated"`
	Overrides OverrideMap `json:"overrides"`
}
