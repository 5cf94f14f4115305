// Package entitlement derives the raw plan-granted module and permission sets
// for a patient from active subscriptions and paid treatment packages. It is
// pure computation over already-loaded records; it never fails.
package entitlement

import (
	"github.com/physiokit/portal-api/internal/model"
	"github.com/physiokit/portal-api/internal/registry"
)

// The treatment bundle granted by any paid package in PAID or ACTIVE status.
// Hard-coded rather than registry-driven: packages are a clinic product, not
// a configurable plan.
var (
	treatmentBundleModules = []string{
		"treatment",
		"appointments",
		"records",
		"clinical_notes",
		"documents",
		"screening",
		"exercises",
	}
	treatmentBundlePermissions = []string{
		"book_in_person",
		"book_online",
		"view_exercise_videos",
		"request_cancellation",
		"progress_tracking",
		"download_reports",
	}
)

// Grants holds plan-derived grant sets keyed by unprefixed registry keys.
type Grants struct {
	Modules     map[string]struct{}
	Permissions map[string]struct{}
}

func (g Grants) HasModule(key string) bool {
	_, ok := g.Modules[key]
	return ok
}

func (g Grants) HasPermission(key string) bool {
	_, ok := g.Permissions[key]
	return ok
}

// Derive computes the plan-derived grant sets for a patient. The module set
// starts from the always-visible baseline; permissions start empty. Plan
// feature keys with unknown prefixes are ignored for forward compatibility.
func Derive(patient *model.Patient) Grants {
	grants := Grants{
		Modules:     registry.AlwaysVisibleModuleKeys(),
		Permissions: make(map[string]struct{}),
	}
	if patient == nil {
		return grants
	}

	for _, sub := range patient.Subscriptions {
		if !sub.IsActive() || sub.Plan == nil {
			continue
		}
		for _, feature := range sub.Plan.Features {
			if key, ok := registry.TrimModuleKey(feature); ok {
				grants.Modules[key] = struct{}{}
			} else if key, ok := registry.TrimPermissionKey(feature); ok {
				grants.Permissions[key] = struct{}{}
			}
		}
	}

	for _, pkg := range patient.TreatmentPackages {
		if !pkg.GrantsBundle() {
			continue
		}
		for _, key := range treatmentBundleModules {
			grants.Modules[key] = struct{}{}
		}
		for _, key := range treatmentBundlePermissions {
			grants.Permissions[key] = struct{}{}
		}
		break
	}

	return grants
}
