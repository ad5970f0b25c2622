package ledger

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/boa-platform/registration-ledger/internal/adapters/postgres"
	"github.com/boa-platform/registration-ledger/internal/domain"
	"github.com/boa-platform/registration-ledger/internal/notify"
	"github.com/boa-platform/registration-ledger/internal/observability"
	"github.com/boa-platform/registration-ledger/internal/sequence"
)

// CreatePendingPayment opens the out-of-band membership payment flow: the
// application is parked in the reconciliation store until the gateway (or an
// admin) confirms the money arrived.
func (s *Service) CreatePendingPayment(ctx context.Context, transactionID, amount string, app domain.MembershipApplication) error {
	if strings.TrimSpace(transactionID) == "" {
		return domain.ErrInvalidInput
	}
	if _, err := uuid.Parse(app.UserID); err != nil {
		return domain.ErrInvalidInput
	}
	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return domain.ErrInvalidInput
	}
	return s.pending.Create(ctx, domain.PendingPayment{
		TransactionID: transactionID,
		Amount:        amt,
		Payload:       app,
	})
}

// ConfirmPendingPayment flips the entry to verified. An unknown transaction
// id is acknowledged as success: webhooks are retried by the gateway and may
// refer to payments this instance never saw.
func (s *Service) ConfirmPendingPayment(ctx context.Context, transactionID, gatewayRef string) error {
	return s.pending.Confirm(ctx, transactionID, gatewayRef)
}

type PaymentCheckResult struct {
	Verified       bool
	RegistrationID uuid.UUID
	MembershipNo   string
}

// CheckPendingPayment is the poll side of the reconciliation flow. The first
// poll that observes a verified entry persists the membership registration
// and consumes the entry; later polls see ErrNotFound. A still-pending entry
// is reported as such and left untouched. If the durable insert fails the
// entry stays verified, so the next poll retries the insert.
func (s *Service) CheckPendingPayment(ctx context.Context, transactionID string) (*PaymentCheckResult, error) {
	p, err := s.pending.Get(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if p.Status != domain.PendingStatusVerified {
		return &PaymentCheckResult{Verified: false}, nil
	}

	userID, err := uuid.Parse(p.Payload.UserID)
	if err != nil {
		return nil, errors.Wrap(domain.ErrInvalidInput, "pending payload user id")
	}

	membership := domain.MembershipRegistration{
		ID:             uuid.New(),
		UserID:         userID,
		MembershipType: p.Payload.MembershipType,
		Amount:         p.Amount,
		GatewayRef:     p.GatewayRef,
		Status:         domain.PaymentConfirmed,
	}
	start := time.Now()
	err = s.repo.WithTx(ctx, func(tx pgx.Tx) error {
		user, err := s.repo.GetUserForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		membership.MembershipNo = user.MembershipNo
		if membership.MembershipNo == "" {
			membership.MembershipNo, err = sequence.NextMembershipNo(ctx, tx, p.Payload.MembershipType)
			if err != nil {
				return err
			}
			if err := s.repo.SetUserMembership(ctx, tx, userID, membership.MembershipNo); err != nil {
				return err
			}
		}
		if err := s.repo.InsertMembershipRegistration(ctx, tx, membership); err != nil {
			return err
		}

		payload, err := json.Marshal(notify.MembershipConfirmed{
			MembershipNo:   membership.MembershipNo,
			MembershipType: membership.MembershipType,
			UserName:       user.Name,
			UserEmail:      user.Email,
			Amount:         membership.Amount.StringFixed(2),
		})
		if err != nil {
			return err
		}
		return s.repo.InsertOutbox(ctx, tx, postgres.OutboxRecord{
			ID:            uuid.New(),
			AggregateType: "membership",
			AggregateID:   membership.ID,
			EventType:     notify.EventMembershipConfirmed,
			Payload:       payload,
			DedupeKey:     uuid.New().String(),
		})
	})
	observability.DBTxDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	if err := s.pending.Delete(ctx, transactionID); err != nil {
		// The registration committed; a stale entry only risks a duplicate
		// membership row on the next poll, which operators can reconcile.
		s.logger.WithField("transaction_id", transactionID).Error("delete consumed pending payment: ", err)
	}
	return &PaymentCheckResult{
		Verified:       true,
		RegistrationID: membership.ID,
		MembershipNo:   membership.MembershipNo,
	}, nil
}
