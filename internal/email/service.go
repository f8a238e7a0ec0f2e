package email

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/medbook/booking-api/internal/config"
)

type Service interface {
	SendBookingConfirmation(ctx context.Context, to, doctorName string, start time.Time, fee float64) error
	SendCancellationNotice(ctx context.Context, to, doctorName string, start time.Time) error
	SendReminder(ctx context.Context, to, doctorName string, start time.Time) error
}

type smtpService struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPService(cfg config.SMTPConfig) Service {
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *smtpService) SendBookingConfirmation(ctx context.Context, to, doctorName string, start time.Time, fee float64) error {
	body := fmt.Sprintf(
		"Your appointment with %s is scheduled for %s.\nConsultation fee: %.2f.",
		doctorName, start.Format(time.RFC1123), fee,
	)
	return s.send(to, "Appointment confirmed", body)
}

func (s *smtpService) SendCancellationNotice(ctx context.Context, to, doctorName string, start time.Time) error {
	body := fmt.Sprintf(
		"Your appointment with %s on %s has been cancelled.",
		doctorName, start.Format(time.RFC1123),
	)
	return s.send(to, "Appointment cancelled", body)
}

func (s *smtpService) SendReminder(ctx context.Context, to, doctorName string, start time.Time) error {
	body := fmt.Sprintf(
		"Reminder: you have an appointment with %s on %s.",
		doctorName, start.Format(time.RFC1123),
	)
	return s.send(to, "Appointment reminder", body)
}

func (s *smtpService) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// NoopService discards all mail, used when SMTP is not configured.
type NoopService struct{}

func (NoopService) SendBookingConfirmation(context.Context, string, string, time.Time, float64) error {
	return nil
}

func (NoopService) SendCancellationNotice(context.Context, string, string, time.Time) error {
	return nil
}

func (NoopService) SendReminder(context.Context, string, string, time.Time) error {
	return nil
}
