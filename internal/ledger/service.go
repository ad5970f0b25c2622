// Package ledger turns a registration or membership intent into a durable,
// uniquely-numbered, payment-backed record. Every write path runs inside one
// transaction: either the registration, its additional persons, the
// membership-number backfill and the notification intent all commit, or none
// of them do.
package ledger

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/boa-platform/registration-ledger/internal/adapters/postgres"
	"github.com/boa-platform/registration-ledger/internal/domain"
	"github.com/boa-platform/registration-ledger/internal/notify"
	"github.com/boa-platform/registration-ledger/internal/observability"
	"github.com/boa-platform/registration-ledger/internal/pending"
	"github.com/boa-platform/registration-ledger/internal/sequence"
)

type Service struct {
	repo    *postgres.Repository
	pending pending.Store
	logger  observability.Logger
}

func NewService(repo *postgres.Repository, pendingStore pending.Store, logger observability.Logger) *Service {
	return &Service{repo: repo, pending: pendingStore, logger: logger}
}

type PersonInput struct {
	Name       string
	CategoryID uuid.UUID
	SlabID     uuid.UUID
	Amount     string
}

type CreateRegistrationInput struct {
	UserID           uuid.UUID
	SeminarID        uuid.UUID
	CategoryID       uuid.UUID
	SlabID           uuid.UUID
	DelegateType     string
	BaseAmount       string
	Persons          []PersonInput
	GatewayOrderID   string
	GatewayPaymentID string
	PaymentMethod    string
}

type RegistrationResult struct {
	ID                uuid.UUID
	RegistrationNo    string
	MembershipNo      string
	Amount            decimal.Decimal
	Status            domain.PaymentStatus
	AlreadyRegistered bool
}

// CreateRegistration registers a user for a seminar. A duplicate (user,
// seminar) pair is not an error: the existing record comes back with
// AlreadyRegistered set, whether the duplicate was caught by the read before
// insert or by the unique index under a concurrent submission.
func (s *Service) CreateRegistration(ctx context.Context, in CreateRegistrationInput) (*RegistrationResult, error) {
	delegateType, err := domain.ParseDelegateType(in.DelegateType)
	if err != nil {
		return nil, err
	}

	personAmounts := make([]string, len(in.Persons))
	for i, p := range in.Persons {
		personAmounts[i] = p.Amount
	}
	total, err := domain.TotalAmount(in.BaseAmount, personAmounts)
	if err != nil {
		return nil, err
	}

	var result RegistrationResult
	start := time.Now()
	err = s.repo.WithTx(ctx, func(tx pgx.Tx) error {
		existing, err := s.repo.FindRegistration(ctx, tx, in.UserID, in.SeminarID)
		if err == nil {
			result = RegistrationResult{
				ID:                existing.ID,
				RegistrationNo:    existing.RegistrationNo,
				Amount:            existing.Amount,
				Status:            existing.Status,
				AlreadyRegistered: true,
			}
			return domain.ErrAlreadyRegistered
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		user, err := s.repo.GetUserForUpdate(ctx, tx, in.UserID)
		if err != nil {
			return err
		}

		membershipNo := user.MembershipNo
		if membershipNo == "" {
			membershipNo, err = sequence.NextMembershipNo(ctx, tx, user.MembershipType)
			if err != nil {
				return err
			}
			if err := s.repo.SetUserMembership(ctx, tx, user.ID, membershipNo); err != nil {
				return err
			}
		}

		now := time.Now()
		reg := domain.Registration{
			ID:             uuid.New(),
			RegistrationNo: sequence.RegistrationNumber(now),
			UserID:         in.UserID,
			SeminarID:      in.SeminarID,
			CategoryID:     in.CategoryID,
			SlabID:         in.SlabID,
			DelegateType:   delegateType,
			Amount:         total,
			Status:         domain.PaymentPending,
			GatewayOrderID: in.GatewayOrderID,
			CreatedAt:      now,
		}
		if in.GatewayPaymentID != "" {
			reg.Status = domain.PaymentConfirmed
			reg.GatewayPaymentID = in.GatewayPaymentID
			reg.PaymentMethod = in.PaymentMethod
			reg.PaymentDate = &now
		}

		if err := s.repo.InsertRegistration(ctx, tx, reg); err != nil {
			return err
		}

		persons := make([]domain.AdditionalPerson, len(in.Persons))
		for i, p := range in.Persons {
			amount, err := decimal.NewFromString(p.Amount)
			if err != nil {
				return domain.ErrInvalidInput
			}
			persons[i] = domain.AdditionalPerson{
				ID:             uuid.New(),
				RegistrationID: reg.ID,
				Name:           p.Name,
				CategoryID:     p.CategoryID,
				SlabID:         p.SlabID,
				Amount:         amount,
			}
		}
		if err := s.repo.InsertAdditionalPersons(ctx, tx, persons); err != nil {
			return err
		}

		if reg.Status == domain.PaymentConfirmed {
			if err := s.enqueueRegistrationEvent(ctx, tx, reg.ID, notify.EventRegistrationConfirmed); err != nil {
				return err
			}
		}

		result = RegistrationResult{
			ID:             reg.ID,
			RegistrationNo: reg.RegistrationNo,
			MembershipNo:   membershipNo,
			Amount:         reg.Amount,
			Status:         reg.Status,
		}
		return nil
	})
	observability.DBTxDuration.Observe(time.Since(start).Seconds())

	if errors.Is(err, domain.ErrAlreadyRegistered) {
		return &result, nil
	}
	if errors.Is(err, domain.ErrConflict) {
		// Lost the race against a concurrent submission of the same pair.
		existing, ferr := s.repo.FindRegistration(ctx, s.repo.Pool(), in.UserID, in.SeminarID)
		if ferr != nil {
			return nil, err
		}
		return &RegistrationResult{
			ID:                existing.ID,
			RegistrationNo:    existing.RegistrationNo,
			Amount:            existing.Amount,
			Status:            existing.Status,
			AlreadyRegistered: true,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdatePaymentStatus records a gateway outcome for an existing
// registration. The status update and the notification intent share one
// transaction, so a confirmation is never observed without its event.
func (s *Service) UpdatePaymentStatus(ctx context.Context, registrationID uuid.UUID, status domain.PaymentStatus, gatewayPaymentID, method string) error {
	if status != domain.PaymentPending && status != domain.PaymentConfirmed {
		return domain.ErrInvalidInput
	}
	return s.repo.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.repo.UpdatePaymentStatus(ctx, tx, registrationID, status, gatewayPaymentID, method, time.Now()); err != nil {
			return err
		}
		if status == domain.PaymentConfirmed {
			return s.enqueueRegistrationEvent(ctx, tx, registrationID, notify.EventPaymentReceived)
		}
		return nil
	})
}

func (s *Service) ListRegistrations(ctx context.Context, userID uuid.UUID) ([]postgres.RegistrationView, error) {
	return s.repo.ListRegistrationsByUser(ctx, userID)
}

func (s *Service) enqueueRegistrationEvent(ctx context.Context, tx pgx.Tx, registrationID uuid.UUID, eventType string) error {
	contact, err := s.repo.GetRegistrationContact(ctx, tx, registrationID)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(notify.RegistrationConfirmed{
		RegistrationNo: contact.RegistrationNo,
		UserName:       contact.UserName,
		UserEmail:      contact.UserEmail,
		SeminarName:    contact.SeminarName,
		Amount:         contact.Amount,
	})
	if err != nil {
		return err
	}
	return s.repo.InsertOutbox(ctx, tx, postgres.OutboxRecord{
		ID:            uuid.New(),
		AggregateType: "registration",
		AggregateID:   registrationID,
		EventType:     eventType,
		Payload:       payload,
		DedupeKey:     uuid.New().String(),
	})
}
