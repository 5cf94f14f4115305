package entitlement

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/physiokit/portal-api/internal/model"
)

func planWith(features ...string) *model.Plan {
	return &model.Plan{Name: "Test Plan", Features: model.FeatureList(features)}
}

func subscription(status string, plan *model.Plan) *model.Subscription {
	return &model.Subscription{Status: status, Plan: plan}
}

func TestDeriveBaseline(t *testing.T) {
	grants := Derive(&model.Patient{})

	assert.True(t, grants.HasModule("dashboard"))
	assert.True(t, grants.HasModule("profile"))
	assert.True(t, grants.HasModule("support"))
	assert.False(t, grants.HasModule("exercises"))
	assert.Empty(t, grants.Permissions)
}

func TestDeriveNilPatient(t *testing.T) {
	grants := Derive(nil)

	assert.True(t, grants.HasModule("dashboard"))
	assert.Empty(t, grants.Permissions)
}

func TestDerivePlanFeatures(t *testing.T) {
	patient := &model.Patient{
		Subscriptions: []*model.Subscription{
			subscription(string(model.SubscriptionStatusActive), planWith("mod_exercises", "perm_chat")),
		},
	}

	grants := Derive(patient)

	assert.True(t, grants.HasModule("exercises"))
	assert.True(t, grants.HasPermission("chat"))
	assert.False(t, grants.HasModule("journey"))
}

func TestDeriveIgnoresInactiveSubscriptions(t *testing.T) {
	tests := []struct {
		name string
		sub  *model.Subscription
	}{
		{"past due", subscription(string(model.SubscriptionStatusPastDue), planWith("mod_exercises"))},
		{"canceled", subscription(string(model.SubscriptionStatusCanceled), planWith("mod_exercises"))},
		{"missing plan", subscription(string(model.SubscriptionStatusActive), nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grants := Derive(&model.Patient{Subscriptions: []*model.Subscription{tt.sub}})
			assert.False(t, grants.HasModule("exercises"))
		})
	}
}

func TestDeriveIgnoresUnknownFeaturePrefixes(t *testing.T) {
	patient := &model.Patient{
		Subscriptions: []*model.Subscription{
			subscription(string(model.SubscriptionStatusActive), planWith("exercises", "feature_x", "")),
		},
	}

	grants := Derive(patient)

	assert.False(t, grants.HasModule("exercises"))
	assert.Len(t, grants.Modules, 3)
	assert.Empty(t, grants.Permissions)
}

func TestDeriveMergesMultipleSubscriptions(t *testing.T) {
	patient := &model.Patient{
		Subscriptions: []*model.Subscription{
			subscription(string(model.SubscriptionStatusActive), planWith("mod_exercises")),
			subscription(string(model.SubscriptionStatusActive), planWith("mod_journey", "perm_chat")),
		},
	}

	grants := Derive(patient)

	assert.True(t, grants.HasModule("exercises"))
	assert.True(t, grants.HasModule("journey"))
	assert.True(t, grants.HasPermission("chat"))
}

func TestDeriveTreatmentBundle(t *testing.T) {
	patient := &model.Patient{
		TreatmentPackages: []*model.TreatmentPackage{
			{IsPaid: true, Status: string(model.TreatmentPackageStatusPaid)},
		},
	}

	grants := Derive(patient)

	for _, key := range treatmentBundleModules {
		assert.True(t, grants.HasModule(key), key)
	}
	for _, key := range treatmentBundlePermissions {
		assert.True(t, grants.HasPermission(key), key)
	}
}

func TestDerivePackageMustBePaidAndCurrent(t *testing.T) {
	tests := []struct {
		name  string
		pkg   *model.TreatmentPackage
		wants bool
	}{
		{"paid active", &model.TreatmentPackage{IsPaid: true, Status: string(model.TreatmentPackageStatusActive)}, true},
		{"paid paid", &model.TreatmentPackage{IsPaid: true, Status: string(model.TreatmentPackageStatusPaid)}, true},
		{"unpaid active", &model.TreatmentPackage{IsPaid: false, Status: string(model.TreatmentPackageStatusActive)}, false},
		{"paid pending", &model.TreatmentPackage{IsPaid: true, Status: string(model.TreatmentPackageStatusPending)}, false},
		{"paid completed", &model.TreatmentPackage{IsPaid: true, Status: string(model.TreatmentPackageStatusCompleted)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grants := Derive(&model.Patient{TreatmentPackages: []*model.TreatmentPackage{tt.pkg}})
			assert.Equal(t, tt.wants, grants.HasModule("treatment"))
		})
	}
}
