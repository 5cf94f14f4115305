package email

import (
	"context"

	"github.com/physiokit/portal-api/internal/model"
)

// Service sends patient-facing notification emails.
type Service interface {
	NotifyFullAccessChanged(ctx context.Context, patient *model.Patient, granted bool) error
}

// Noop discards all notifications. Used when SMTP is not configured.
type Noop struct{}

func (Noop) NotifyFullAccessChanged(context.Context, *model.Patient, bool) error {
	return nil
}
