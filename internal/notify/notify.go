// Package notify carries post-commit side effects: confirmation email to the
// registrant and an entry in the admin activity feed. Everything here is
// best-effort; a delivery failure is logged and retried by the broker, never
// surfaced to the registration path.
package notify

import (
	"context"
	"fmt"

	"github.com/boa-platform/registration-ledger/internal/adapters/mongo"
	"github.com/boa-platform/registration-ledger/internal/mailer"
	"github.com/boa-platform/registration-ledger/internal/observability"
)

// Routing keys on the ledger.events exchange.
const (
	EventRegistrationConfirmed = "registration.confirmed"
	EventMembershipConfirmed   = "membership.confirmed"
	EventPaymentReceived       = "payment.received"
)

// RegistrationConfirmed is the payload behind registration.confirmed and
// payment.received events.
type RegistrationConfirmed struct {
	RegistrationNo string `json:"registration_no"`
	UserName       string `json:"user_name"`
	UserEmail      string `json:"user_email"`
	SeminarName    string `json:"seminar_name"`
	Amount         string `json:"amount"`
}

type MembershipConfirmed struct {
	MembershipNo   string `json:"membership_no"`
	MembershipType string `json:"membership_type"`
	UserName       string `json:"user_name"`
	UserEmail      string `json:"user_email"`
	Amount         string `json:"amount"`
}

type Dispatcher interface {
	SendRegistrationConfirmation(ctx context.Context, ev RegistrationConfirmed) error
	SendMembershipConfirmation(ctx context.Context, ev MembershipConfirmed) error
	LogAdminActivity(ctx context.Context, eventType string, payload map[string]interface{}) error
}

// Service delivers via SMTP and records admin activity in Mongo.
type Service struct {
	mailer   *mailer.Mailer
	activity *mongo.ActivityLogger
	logger   observability.Logger
}

func NewService(m *mailer.Mailer, activity *mongo.ActivityLogger, logger observability.Logger) *Service {
	return &Service{mailer: m, activity: activity, logger: logger}
}

func (s *Service) SendRegistrationConfirmation(ctx context.Context, ev RegistrationConfirmed) error {
	subject := "Registration confirmed: " + ev.SeminarName
	body := fmt.Sprintf(
		"Dear %s,\n\nYour registration %s for %s is confirmed.\nAmount received: %s.\n\nBOA Secretariat",
		ev.UserName, ev.RegistrationNo, ev.SeminarName, ev.Amount)
	if err := s.mailer.Send(ev.UserEmail, subject, body); err != nil {
		s.logger.WithField("registration_no", ev.RegistrationNo).Error("send registration confirmation: ", err)
		return err
	}
	return nil
}

func (s *Service) SendMembershipConfirmation(ctx context.Context, ev MembershipConfirmed) error {
	subject := "Welcome to the association"
	body := fmt.Sprintf(
		"Dear %s,\n\nYour %s membership is confirmed.\nMembership number: %s.\nAmount received: %s.\n\nBOA Secretariat",
		ev.UserName, ev.MembershipType, ev.MembershipNo, ev.Amount)
	if err := s.mailer.Send(ev.UserEmail, subject, body); err != nil {
		s.logger.WithField("membership_no", ev.MembershipNo).Error("send membership confirmation: ", err)
		return err
	}
	return nil
}

func (s *Service) LogAdminActivity(ctx context.Context, eventType string, payload map[string]interface{}) error {
	if err := s.activity.Log(ctx, eventType, payload); err != nil {
		s.logger.WithField("event_type", eventType).Error("log admin activity: ", err)
		return err
	}
	return nil
}
