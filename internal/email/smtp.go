package email

import (
	"context"
	"fmt"

	gomail "gopkg.in/gomail.v2"

	"github.com/physiokit/portal-api/config"
	"github.com/physiokit/portal-api/internal/model"
	"github.com/physiokit/portal-api/pkg/logger"
)

type smtpService struct {
	dialer *gomail.Dialer
	from   string
	logger *logger.Logger
}

func NewSMTPService(cfg config.SMTPConfig, log *logger.Logger) Service {
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		logger: log,
	}
}

func (s *smtpService) NotifyFullAccessChanged(ctx context.Context, patient *model.Patient, granted bool) error {
	subject := "Your portal access has been updated"
	body := fmt.Sprintf(
		"Hi %s,\n\nYour clinic has updated your patient portal access. "+
			"Log in to see what is available to you.\n",
		patient.Name,
	)
	if granted {
		subject = "Full portal access enabled"
		body = fmt.Sprintf(
			"Hi %s,\n\nYour clinic has enabled full access to the patient portal. "+
				"All sections are now available to you.\n",
			patient.Name,
		)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", patient.Email)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send access notification: %w", err)
	}

	s.logger.Debug("sent access notification", "patient_id", patient.ID.String(), "granted", granted)
	return nil
}
