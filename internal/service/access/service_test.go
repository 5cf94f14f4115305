package access

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/physiokit/portal-api/internal/model"
	"github.com/physiokit/portal-api/internal/repository"
	"github.com/physiokit/portal-api/internal/service/audit"
	apperrors "github.com/physiokit/portal-api/pkg/errors"
	"github.com/physiokit/portal-api/pkg/logger"
	"github.com/physiokit/portal-api/pkg/metrics"
)

// Registered once; promauto panics on duplicate registration.
var testMetrics = metrics.NewMetrics("test", "access")

func testLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{Output: io.Discard})
}

type fakePatientRepo struct {
	patients map[uuid.UUID]*model.Patient
	getCalls int
	failIDs  map[uuid.UUID]error
}

func newFakePatientRepo(patients ...*model.Patient) *fakePatientRepo {
	r := &fakePatientRepo{
		patients: make(map[uuid.UUID]*model.Patient),
		failIDs:  make(map[uuid.UUID]error),
	}
	for _, p := range patients {
		r.patients[p.ID] = p
	}
	return r
}

func (r *fakePatientRepo) Create(_ context.Context, p *model.Patient) error {
	r.patients[p.ID] = p
	return nil
}

func (r *fakePatientRepo) Get(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	p, ok := r.patients[id]
	if !ok {
		return nil, apperrors.NotFound("patient", nil)
	}
	return p, nil
}

func (r *fakePatientRepo) GetWithEntitlements(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	r.getCalls++
	return r.Get(ctx, id)
}

func (r *fakePatientRepo) Update(_ context.Context, p *model.Patient) error {
	r.patients[p.ID] = p
	return nil
}

func (r *fakePatientRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.patients, id)
	return nil
}

func (r *fakePatientRepo) List(context.Context, *model.PatientFilters) ([]*model.Patient, error) {
	return nil, nil
}

func (r *fakePatientRepo) ListIDs(_ context.Context, clinicID *uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id, p := range r.patients {
		if clinicID != nil && p.ClinicID != *clinicID {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *fakePatientRepo) UpdateOverrides(_ context.Context, id uuid.UUID, overrides model.OverrideMap) error {
	if err, ok := r.failIDs[id]; ok {
		return err
	}
	p, ok := r.patients[id]
	if !ok {
		return apperrors.NotFound("patient", nil)
	}
	p.ModuleOverrides = overrides
	return nil
}

func (r *fakePatientRepo) UpdateFullAccess(_ context.Context, id uuid.UUID, value bool, clearOverrides bool) error {
	p, ok := r.patients[id]
	if !ok {
		return apperrors.NotFound("patient", nil)
	}
	p.FullAccessOverride = value
	if clearOverrides {
		p.ModuleOverrides = model.OverrideMap{}
	}
	return nil
}

type fakeOutboxRepo struct {
	events []*model.OutboxEvent
}

func (r *fakeOutboxRepo) Create(_ context.Context, event *model.OutboxEvent) error {
	r.events = append(r.events, event)
	return nil
}

func (r *fakeOutboxRepo) GetPendingEventsWithLock(context.Context, int) ([]*model.OutboxEvent, error) {
	return nil, nil
}

func (r *fakeOutboxRepo) MarkProcessed(context.Context, uuid.UUID) error { return nil }

func (r *fakeOutboxRepo) MarkFailed(context.Context, uuid.UUID, string) error { return nil }

type fakeAuditRepo struct {
	entries []*model.AuditLog
}

func (r *fakeAuditRepo) Create(_ context.Context, entry *model.AuditLog) error {
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeAuditRepo) List(context.Context, map[string]interface{}) ([]*model.AuditLog, error) {
	return nil, nil
}

func (r *fakeAuditRepo) DeleteBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

var (
	_ repository.PatientRepository = (*fakePatientRepo)(nil)
	_ repository.OutboxRepository  = (*fakeOutboxRepo)(nil)
	_ repository.AuditRepository   = (*fakeAuditRepo)(nil)
)

type notifyCall struct {
	patientID uuid.UUID
	granted   bool
}

type fakeNotifier struct {
	calls []notifyCall
}

func (n *fakeNotifier) NotifyFullAccessChanged(_ context.Context, patient *model.Patient, granted bool) error {
	n.calls = append(n.calls, notifyCall{patientID: patient.ID, granted: granted})
	return nil
}

type testEnv struct {
	svc      *Service
	patients *fakePatientRepo
	outbox   *fakeOutboxRepo
	audits   *fakeAuditRepo
	notifier *fakeNotifier
}

func newTestEnv(patients ...*model.Patient) *testEnv {
	repo := newFakePatientRepo(patients...)
	outbox := &fakeOutboxRepo{}
	audits := &fakeAuditRepo{}
	notifier := &fakeNotifier{}
	log := testLogger()
	svc := NewService(repo, outbox, audit.NewService(audits, log), notifier, testMetrics, log, Config{})
	return &testEnv{svc: svc, patients: repo, outbox: outbox, audits: audits, notifier: notifier}
}

func newPatient(overrides model.OverrideMap, fullAccess bool) *model.Patient {
	p := &model.Patient{
		ClinicID:           uuid.New(),
		Name:               "Test Patient",
		Status:             string(model.PatientStatusActive),
		ModuleOverrides:    overrides,
		FullAccessOverride: fullAccess,
	}
	p.ID = uuid.New()
	return p
}

func planWith(features ...string) *model.Plan {
	plan := &model.Plan{Name: "Test Plan", Features: model.FeatureList(features)}
	plan.ID = uuid.New()
	return plan
}

func activeSubscription(plan *model.Plan) *model.Subscription {
	return &model.Subscription{
		PlanID: plan.ID,
		Status: string(model.SubscriptionStatusActive),
		Plan:   plan,
	}
}

func moduleByKey(t *testing.T, report *model.AccessReport, key string) model.ModuleAccess {
	t.Helper()
	for _, m := range report.Modules {
		if m.Key == key {
			return m
		}
	}
	t.Fatalf("module %q not in report", key)
	return model.ModuleAccess{}
}

func permissionByKey(t *testing.T, report *model.AccessReport, key string) model.PermissionAccess {
	t.Helper()
	for _, p := range report.Permissions {
		if p.Key == key {
			return p
		}
	}
	t.Fatalf("permission %q not in report", key)
	return model.PermissionAccess{}
}

func TestBuildReportAlwaysVisibleWinsOverEverything(t *testing.T) {
	patient := newPatient(model.OverrideMap{
		"mod_dashboard": false,
		"mod_profile":   false,
		"mod_support":   false,
	}, false)

	report := BuildReport(patient)

	for _, key := range []string{"dashboard", "profile", "support"} {
		m := moduleByKey(t, report, key)
		assert.True(t, m.AlwaysVisible, key)
		assert.True(t, m.EffectiveAccess, "always-visible module %s must stay on", key)
		require.NotNil(t, m.AdminOverride, key)
		assert.False(t, *m.AdminOverride, key)
	}
}

func TestBuildReportFullAccessShortCircuit(t *testing.T) {
	patient := newPatient(model.OverrideMap{
		"mod_exercises":    false,
		"perm_book_online": false,
	}, true)

	report := BuildReport(patient)

	for _, m := range report.Modules {
		assert.True(t, m.EffectiveAccess, "module %s", m.Key)
	}
	for _, p := range report.Permissions {
		assert.True(t, p.EffectiveAccess, "permission %s", p.Key)
	}
	assert.True(t, report.FullAccessOverride)
}

func TestBuildReportOverridePrecedence(t *testing.T) {
	plan := planWith("mod_journey", "perm_chat_with_clinician")

	tests := []struct {
		name      string
		overrides model.OverrideMap
		key       string
		granted   bool
		effective bool
	}{
		{
			name:      "override false beats plan grant",
			overrides: model.OverrideMap{"mod_journey": false},
			key:       "journey",
			granted:   true,
			effective: false,
		},
		{
			name:      "override true beats missing grant",
			overrides: model.OverrideMap{"mod_messages": true},
			key:       "messages",
			granted:   false,
			effective: true,
		},
		{
			name:      "no override falls back to grant",
			overrides: model.OverrideMap{},
			key:       "journey",
			granted:   true,
			effective: true,
		},
		{
			name:      "no override no grant denies",
			overrides: model.OverrideMap{},
			key:       "billing",
			granted:   false,
			effective: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patient := newPatient(tt.overrides, false)
			patient.Subscriptions = []*model.Subscription{activeSubscription(plan)}

			m := moduleByKey(t, BuildReport(patient), tt.key)
			assert.Equal(t, tt.granted, m.GrantedByPlan)
			assert.Equal(t, tt.effective, m.EffectiveAccess)
		})
	}
}

func TestBuildReportPermissionOverride(t *testing.T) {
	plan := planWith("perm_chat_with_clinician", "perm_view_invoices")
	patient := newPatient(model.OverrideMap{"perm_chat_with_clinician": false, "perm_upload_documents": true}, false)
	patient.Subscriptions = []*model.Subscription{activeSubscription(plan)}

	report := BuildReport(patient)

	// Override false beats the plan grant.
	p := permissionByKey(t, report, "chat_with_clinician")
	assert.True(t, p.GrantedByPlan)
	require.NotNil(t, p.AdminOverride)
	assert.False(t, *p.AdminOverride)
	assert.False(t, p.EffectiveAccess)

	// Override true beats a missing grant.
	p = permissionByKey(t, report, "upload_documents")
	assert.False(t, p.GrantedByPlan)
	require.NotNil(t, p.AdminOverride)
	assert.True(t, *p.AdminOverride)
	assert.True(t, p.EffectiveAccess)

	// No override falls back to the grant.
	p = permissionByKey(t, report, "view_invoices")
	assert.True(t, p.GrantedByPlan)
	assert.Nil(t, p.AdminOverride)
	assert.True(t, p.EffectiveAccess)
}

func TestBuildReportTreatmentBundle(t *testing.T) {
	patient := newPatient(nil, false)
	patient.TreatmentPackages = []*model.TreatmentPackage{
		{IsPaid: true, Status: string(model.TreatmentPackageStatusActive)},
	}

	report := BuildReport(patient)

	bundleModules := []string{"treatment", "appointments", "records", "clinical_notes", "documents", "screening", "exercises"}
	for _, key := range bundleModules {
		m := moduleByKey(t, report, key)
		assert.True(t, m.GrantedByPlan, "bundle module %s", key)
		assert.True(t, m.EffectiveAccess, "bundle module %s", key)
	}

	bundlePermissions := []string{"book_in_person", "book_online", "view_exercise_videos", "request_cancellation", "progress_tracking", "download_reports"}
	for _, key := range bundlePermissions {
		p := permissionByKey(t, report, key)
		assert.True(t, p.GrantedByPlan, "bundle permission %s", key)
		assert.True(t, p.EffectiveAccess, "bundle permission %s", key)
	}
}

func TestBuildReportUnpaidPackageGrantsNothing(t *testing.T) {
	patient := newPatient(nil, false)
	patient.TreatmentPackages = []*model.TreatmentPackage{
		{IsPaid: false, Status: string(model.TreatmentPackageStatusActive)},
		{IsPaid: true, Status: string(model.TreatmentPackageStatusPending)},
	}

	report := BuildReport(patient)

	m := moduleByKey(t, report, "treatment")
	assert.False(t, m.GrantedByPlan)
	assert.False(t, m.EffectiveAccess)
}

func TestBuildReportIgnoresUnknownOverrideKeys(t *testing.T) {
	patient := newPatient(model.OverrideMap{
		"notaprefix":   true,
		"mod_unknown":  true,
		"perm_unknown": true,
	}, false)

	report := BuildReport(patient)

	for _, m := range report.Modules {
		if m.AlwaysVisible {
			continue
		}
		assert.False(t, m.EffectiveAccess, "module %s", m.Key)
	}
	for _, p := range report.Permissions {
		assert.False(t, p.EffectiveAccess, "permission %s", p.Key)
	}
}

func TestSanitizeOverrides(t *testing.T) {
	sanitized := SanitizeOverrides(map[string]interface{}{
		"mod_appointments": true,
		"perm_chat":        false,
		"notaprefix":       true,
		"mod_x":            "yes",
		"perm_y":           1,
		"mod_z":            nil,
	})

	assert.Equal(t, model.OverrideMap{
		"mod_appointments": true,
		"perm_chat":        false,
		"notaprefix":       true,
	}, sanitized)
}

func TestUpdateOverridesReplacesWholeMap(t *testing.T) {
	patient := newPatient(nil, false)
	env := newTestEnv(patient)
	actor := Actor{ID: uuid.New(), ClinicID: patient.ClinicID}
	ctx := context.Background()

	_, err := env.svc.UpdateOverrides(ctx, actor, patient.ID, map[string]interface{}{"mod_y": false})
	require.NoError(t, err)

	stored, err := env.svc.UpdateOverrides(ctx, actor, patient.ID, map[string]interface{}{"mod_x": true})
	require.NoError(t, err)

	assert.Equal(t, model.OverrideMap{"mod_x": true}, stored)
	assert.Equal(t, model.OverrideMap{"mod_x": true}, env.patients.patients[patient.ID].ModuleOverrides)
}

func TestUpdateOverridesUnknownPatient(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.UpdateOverrides(context.Background(), Actor{ID: uuid.New()}, uuid.New(), map[string]interface{}{"mod_x": true})

	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestUpdateOverridesEmitsAuditAndEvent(t *testing.T) {
	patient := newPatient(nil, false)
	env := newTestEnv(patient)
	actor := Actor{ID: uuid.New(), ClinicID: patient.ClinicID}

	_, err := env.svc.UpdateOverrides(context.Background(), actor, patient.ID, map[string]interface{}{"mod_x": true})
	require.NoError(t, err)

	require.Len(t, env.audits.entries, 1)
	assert.Equal(t, actor.ID, env.audits.entries[0].ActorID)
	assert.Equal(t, "access_overrides", env.audits.entries[0].EntityType)

	require.Len(t, env.outbox.events, 1)
	assert.Equal(t, model.EventAccessOverrideUpdate, env.outbox.events[0].EventType)
}

func TestSetFullAccessOffClearsOverrides(t *testing.T) {
	patient := newPatient(model.OverrideMap{"mod_exercises": true}, true)
	env := newTestEnv(patient)

	resp, err := env.svc.SetFullAccessOverride(context.Background(), Actor{ID: uuid.New()}, patient.ID, false)
	require.NoError(t, err)

	assert.False(t, resp.FullAccessOverride)
	assert.True(t, resp.OverridesCleared)
	assert.Empty(t, env.patients.patients[patient.ID].ModuleOverrides)
}

func TestSetFullAccessOnKeepsOverrides(t *testing.T) {
	patient := newPatient(model.OverrideMap{"mod_exercises": true}, false)
	env := newTestEnv(patient)

	resp, err := env.svc.SetFullAccessOverride(context.Background(), Actor{ID: uuid.New()}, patient.ID, true)
	require.NoError(t, err)

	assert.True(t, resp.FullAccessOverride)
	assert.False(t, resp.OverridesCleared)
	assert.Equal(t, model.OverrideMap{"mod_exercises": true}, env.patients.patients[patient.ID].ModuleOverrides)
}

func TestSetFullAccessNotifiesPatient(t *testing.T) {
	patient := newPatient(nil, false)
	env := newTestEnv(patient)

	_, err := env.svc.SetFullAccessOverride(context.Background(), Actor{ID: uuid.New()}, patient.ID, true)
	require.NoError(t, err)

	require.Len(t, env.notifier.calls, 1)
	assert.Equal(t, patient.ID, env.notifier.calls[0].patientID)
	assert.True(t, env.notifier.calls[0].granted)
}

func TestToggleFullAccessFlips(t *testing.T) {
	patient := newPatient(nil, false)
	env := newTestEnv(patient)
	actor := Actor{ID: uuid.New()}
	ctx := context.Background()

	resp, err := env.svc.ToggleFullAccess(ctx, actor, patient.ID)
	require.NoError(t, err)
	assert.True(t, resp.FullAccessOverride)

	resp, err = env.svc.ToggleFullAccess(ctx, actor, patient.ID)
	require.NoError(t, err)
	assert.False(t, resp.FullAccessOverride)
	assert.True(t, resp.OverridesCleared)
}

func TestApplyOverridesToAll(t *testing.T) {
	clinicID := uuid.New()
	inClinic1 := newPatient(model.OverrideMap{"mod_old": true}, false)
	inClinic1.ClinicID = clinicID
	inClinic2 := newPatient(nil, false)
	inClinic2.ClinicID = clinicID
	elsewhere := newPatient(nil, false)

	env := newTestEnv(inClinic1, inClinic2, elsewhere)

	resp, err := env.svc.ApplyOverridesToAll(context.Background(), Actor{ID: uuid.New()}, &clinicID, map[string]interface{}{"mod_exercises": true})
	require.NoError(t, err)

	assert.Equal(t, 2, resp.Updated)
	assert.Equal(t, model.OverrideMap{"mod_exercises": true}, resp.Overrides)
	assert.Equal(t, model.OverrideMap{"mod_exercises": true}, env.patients.patients[inClinic1.ID].ModuleOverrides)
	assert.Equal(t, model.OverrideMap{"mod_exercises": true}, env.patients.patients[inClinic2.ID].ModuleOverrides)
	assert.Nil(t, env.patients.patients[elsewhere.ID].ModuleOverrides)
}

func TestApplyOverridesToAllCountsOnlySuccessfulWrites(t *testing.T) {
	p1 := newPatient(nil, false)
	p2 := newPatient(nil, false)
	env := newTestEnv(p1, p2)
	env.patients.failIDs[p2.ID] = assert.AnError

	resp, err := env.svc.ApplyOverridesToAll(context.Background(), Actor{ID: uuid.New()}, nil, map[string]interface{}{"mod_exercises": true})
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Updated)
}

func TestResolveAccessEndToEnd(t *testing.T) {
	patient := newPatient(nil, false)
	env := newTestEnv(patient)
	ctx := context.Background()

	_, err := env.svc.UpdateOverrides(ctx, Actor{ID: uuid.New()}, patient.ID, map[string]interface{}{"mod_exercises": true})
	require.NoError(t, err)

	report, err := env.svc.ResolveAccess(ctx, patient.ID)
	require.NoError(t, err)

	m := moduleByKey(t, report, "exercises")
	assert.True(t, m.EffectiveAccess)
	assert.False(t, m.GrantedByPlan)
	require.NotNil(t, m.AdminOverride)
	assert.True(t, *m.AdminOverride)
}

func TestResolveAccessCachesReports(t *testing.T) {
	patient := newPatient(nil, false)
	env := newTestEnv(patient)
	ctx := context.Background()

	_, err := env.svc.ResolveAccess(ctx, patient.ID)
	require.NoError(t, err)
	_, err = env.svc.ResolveAccess(ctx, patient.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, env.patients.getCalls)
}

func TestResolveAccessCacheInvalidatedByMutation(t *testing.T) {
	patient := newPatient(nil, false)
	env := newTestEnv(patient)
	ctx := context.Background()
	actor := Actor{ID: uuid.New()}

	report, err := env.svc.ResolveAccess(ctx, patient.ID)
	require.NoError(t, err)
	assert.False(t, moduleByKey(t, report, "exercises").EffectiveAccess)

	_, err = env.svc.UpdateOverrides(ctx, actor, patient.ID, map[string]interface{}{"mod_exercises": true})
	require.NoError(t, err)

	report, err = env.svc.ResolveAccess(ctx, patient.ID)
	require.NoError(t, err)
	assert.True(t, moduleByKey(t, report, "exercises").EffectiveAccess)
}

func TestResolveAccessUnknownPatient(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.ResolveAccess(context.Background(), uuid.New())

	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}
