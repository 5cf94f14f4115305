// Package access implements the effective access-control resolver: it layers
// plan-derived grants, per-patient admin overrides and the full-access
// escape hatch into a UI-ready access report, and owns the two override
// mutation paths.
package access

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/physiokit/portal-api/internal/model"
	"github.com/physiokit/portal-api/internal/registry"
	"github.com/physiokit/portal-api/internal/repository"
	"github.com/physiokit/portal-api/internal/service/audit"
	"github.com/physiokit/portal-api/internal/service/entitlement"
	"github.com/physiokit/portal-api/pkg/logger"
	"github.com/physiokit/portal-api/pkg/metrics"
)

// Actor identifies the admin performing a mutation, for audit purposes.
type Actor struct {
	ID       uuid.UUID
	ClinicID uuid.UUID
}

// Notifier is told about full-access changes so the patient can be informed.
type Notifier interface {
	NotifyFullAccessChanged(ctx context.Context, patient *model.Patient, granted bool) error
}

type AccessService interface {
	ResolveAccess(ctx context.Context, patientID uuid.UUID) (*model.AccessReport, error)
	UpdateOverrides(ctx context.Context, actor Actor, patientID uuid.UUID, proposed map[string]interface{}) (model.OverrideMap, error)
	SetFullAccessOverride(ctx context.Context, actor Actor, patientID uuid.UUID, value bool) (*model.FullAccessResponse, error)
	ToggleFullAccess(ctx context.Context, actor Actor, patientID uuid.UUID) (*model.FullAccessResponse, error)
	ApplyOverridesToAll(ctx context.Context, actor Actor, clinicID *uuid.UUID, proposed map[string]interface{}) (*model.ApplyOverridesResponse, error)
}

type Service struct {
	patients repository.PatientRepository
	outbox   repository.OutboxRepository
	auditor  *audit.Service
	notifier Notifier
	cache    *gocache.Cache
	metrics  *metrics.Metrics
	logger   *logger.Logger
}

type Config struct {
	ReportCacheTTL time.Duration
}

func NewService(
	patients repository.PatientRepository,
	outbox repository.OutboxRepository,
	auditor *audit.Service,
	notifier Notifier,
	m *metrics.Metrics,
	log *logger.Logger,
	cfg Config,
) *Service {
	ttl := cfg.ReportCacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Service{
		patients: patients,
		outbox:   outbox,
		auditor:  auditor,
		notifier: notifier,
		cache:    gocache.New(ttl, 2*ttl),
		metrics:  m,
		logger:   log,
	}
}

// ResolveAccess produces the effective access report for one patient.
func (s *Service) ResolveAccess(ctx context.Context, patientID uuid.UUID) (*model.AccessReport, error) {
	key := reportCacheKey(patientID)
	if cached, ok := s.cache.Get(key); ok {
		s.metrics.AccessCacheHits.Inc()
		return cached.(*model.AccessReport), nil
	}
	s.metrics.AccessCacheMisses.Inc()

	timer := prometheus.NewTimer(s.metrics.AccessResolveLatency)
	defer timer.ObserveDuration()

	patient, err := s.patients.GetWithEntitlements(ctx, patientID)
	if err != nil {
		s.metrics.AccessResolutions.WithLabelValues("error").Inc()
		return nil, err
	}

	report := BuildReport(patient)
	s.cache.SetDefault(key, report)
	s.metrics.AccessResolutions.WithLabelValues("ok").Inc()
	return report, nil
}

// BuildReport is the pure resolver core: a deterministic function of the
// patient's subscriptions, packages, override map, full-access flag and the
// static registry.
//
// Precedence per key: full access > stored override > plan grant >
// always-visible > deny. Full access is a reporting short-circuit only; the
// stored override map is left untouched.
func BuildReport(patient *model.Patient) *model.AccessReport {
	grants := entitlement.Derive(patient)
	overrides := patient.ModuleOverrides
	fullAccess := patient.FullAccessOverride

	report := &model.AccessReport{
		PatientID:          patient.ID,
		FullAccessOverride: fullAccess,
	}

	for _, m := range registry.Modules() {
		granted := grants.HasModule(m.Key)
		override := overrideFor(overrides, registry.ModulePrefix+m.Key)

		effective := granted
		if override != nil {
			effective = *override
		}
		if m.AlwaysVisible {
			effective = true
		}
		if fullAccess {
			effective = true
		}

		report.Modules = append(report.Modules, model.ModuleAccess{
			Key:             m.Key,
			Name:            m.Name,
			NameAr:          m.NameAr,
			Category:        m.Category,
			Route:           m.Route,
			AlwaysVisible:   m.AlwaysVisible,
			GrantedByPlan:   granted,
			AdminOverride:   override,
			EffectiveAccess: effective,
		})
	}

	for _, p := range registry.Permissions() {
		granted := grants.HasPermission(p.Key)
		override := overrideFor(overrides, registry.PermissionPrefix+p.Key)

		effective := granted
		if override != nil {
			effective = *override
		}
		if fullAccess {
			effective = true
		}

		report.Permissions = append(report.Permissions, model.PermissionAccess{
			Key:             p.Key,
			Name:            p.Name,
			NameAr:          p.NameAr,
			Category:        p.Category,
			RelatedModule:   p.RelatedModule,
			GrantedByPlan:   granted,
			AdminOverride:   override,
			EffectiveAccess: effective,
		})
	}

	return report
}

// SanitizeOverrides filters a proposed override payload down to entries with
// strictly boolean values. Non-boolean values mean "remove this override" and
// are dropped, never rejected. Key prefixes are NOT checked here: unknown
// keys are stored for forward compatibility and ignored at report time.
func SanitizeOverrides(proposed map[string]interface{}) model.OverrideMap {
	sanitized := model.OverrideMap{}
	for key, value := range proposed {
		if b, ok := value.(bool); ok {
			sanitized[key] = b
		}
	}
	return sanitized
}

// UpdateOverrides replaces the patient's stored override map wholesale with
// the sanitized proposal. This is a full replacement, never a merge.
func (s *Service) UpdateOverrides(ctx context.Context, actor Actor, patientID uuid.UUID, proposed map[string]interface{}) (model.OverrideMap, error) {
	patient, err := s.patients.Get(ctx, patientID)
	if err != nil {
		s.metrics.OverrideMutations.WithLabelValues("update", "error").Inc()
		return nil, err
	}

	sanitized := SanitizeOverrides(proposed)
	if err := s.patients.UpdateOverrides(ctx, patientID, sanitized); err != nil {
		s.metrics.OverrideMutations.WithLabelValues("update", "error").Inc()
		return nil, fmt.Errorf("failed to update overrides: %w", err)
	}

	s.cache.Delete(reportCacheKey(patientID))
	s.metrics.OverrideMutations.WithLabelValues("update", "ok").Inc()

	s.auditor.Log(ctx, actor.ID, patient.ClinicID, "update", "access_overrides", patientID, &audit.LogOptions{
		Changes: sanitized,
	})
	s.emitEvent(ctx, model.EventAccessOverrideUpdate, map[string]interface{}{
		"patient_id": patientID,
		"overrides":  sanitized,
	})

	return sanitized, nil
}

// SetFullAccessOverride sets the flag to an explicit value. Turning it off
// also clears the stored override map (cascading reset); turning it on
// leaves the map untouched.
func (s *Service) SetFullAccessOverride(ctx context.Context, actor Actor, patientID uuid.UUID, value bool) (*model.FullAccessResponse, error) {
	patient, err := s.patients.Get(ctx, patientID)
	if err != nil {
		return nil, err
	}

	clearOverrides := !value
	if err := s.patients.UpdateFullAccess(ctx, patientID, value, clearOverrides); err != nil {
		return nil, fmt.Errorf("failed to set full access override: %w", err)
	}

	s.cache.Delete(reportCacheKey(patientID))
	s.metrics.FullAccessToggles.WithLabelValues(fmt.Sprintf("%t", value)).Inc()

	s.auditor.Log(ctx, actor.ID, patient.ClinicID, "update", "full_access_override", patientID, &audit.LogOptions{
		Changes: map[string]interface{}{
			"full_access_override": value,
			"overrides_cleared":    clearOverrides,
		},
	})
	s.emitEvent(ctx, model.EventAccessFullAccessToggle, map[string]interface{}{
		"patient_id":           patientID,
		"full_access_override": value,
	})

	if s.notifier != nil {
		if err := s.notifier.NotifyFullAccessChanged(ctx, patient, value); err != nil {
			s.logger.Error(err, "failed to notify patient of access change",
				"patient_id", patientID.String())
		}
	}

	return &model.FullAccessResponse{
		FullAccessOverride: value,
		OverridesCleared:   clearOverrides,
	}, nil
}

// ToggleFullAccess flips the patient's current full-access flag.
func (s *Service) ToggleFullAccess(ctx context.Context, actor Actor, patientID uuid.UUID) (*model.FullAccessResponse, error) {
	patient, err := s.patients.Get(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return s.SetFullAccessOverride(ctx, actor, patientID, !patient.FullAccessOverride)
}

// ApplyOverridesToAll broadcasts one sanitized override map to every patient,
// optionally scoped to a clinic. Each patient's map is replaced individually;
// the broadcast is best-effort row by row, not a transaction, so a failure
// partway leaves earlier patients updated. The returned count covers the
// patients actually written.
func (s *Service) ApplyOverridesToAll(ctx context.Context, actor Actor, clinicID *uuid.UUID, proposed map[string]interface{}) (*model.ApplyOverridesResponse, error) {
	sanitized := SanitizeOverrides(proposed)

	ids, err := s.patients.ListIDs(ctx, clinicID)
	if err != nil {
		s.metrics.OverrideMutations.WithLabelValues("apply_to_all", "error").Inc()
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}

	updated := 0
	for _, id := range ids {
		if err := s.patients.UpdateOverrides(ctx, id, sanitized); err != nil {
			s.logger.Error(err, "failed to apply overrides to patient",
				"patient_id", id.String())
			continue
		}
		s.cache.Delete(reportCacheKey(id))
		updated++
	}

	s.metrics.OverrideMutations.WithLabelValues("apply_to_all", "ok").Inc()
	s.metrics.BulkOverridePatients.Observe(float64(updated))

	auditClinic := uuid.Nil
	if clinicID != nil {
		auditClinic = *clinicID
	}
	s.auditor.Log(ctx, actor.ID, auditClinic, "bulk_update", "access_overrides", uuid.Nil, &audit.LogOptions{
		Changes: map[string]interface{}{
			"overrides": sanitized,
			"updated":   updated,
		},
	})
	s.emitEvent(ctx, model.EventAccessBulkOverride, map[string]interface{}{
		"clinic_id": clinicID,
		"overrides": sanitized,
		"updated":   updated,
	})

	return &model.ApplyOverridesResponse{
		Updated:   updated,
		Overrides: sanitized,
	}, nil
}

func (s *Service) emitEvent(ctx context.Context, eventType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error(err, "failed to marshal access event", "event_type", eventType)
		return
	}
	if err := s.outbox.Create(ctx, &model.OutboxEvent{
		EventType: eventType,
		Payload:   data,
	}); err != nil {
		s.logger.Error(err, "failed to create outbox event", "event_type", eventType)
	}
}

func overrideFor(overrides model.OverrideMap, prefixedKey string) *bool {
	if overrides == nil {
		return nil
	}
	if v, ok := overrides[prefixedKey]; ok {
		value := v
		return &value
	}
	return nil
}

func reportCacheKey(patientID uuid.UUID) string {
	return "access_report:" + patientID.String()
}
