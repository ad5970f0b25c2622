package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/boa-platform/registration-ledger/internal/domain"
	"github.com/boa-platform/registration-ledger/internal/pending"
)

var _ pending.Store = (*PendingStore)(nil)

// PendingStore is the durable pending.Store. The transaction id is the
// primary key, so a resubmitted id overwrites in place and two instances of
// the service see the same ledger.
type PendingStore struct {
	pool *pgxpool.Pool
}

func NewPendingStore(pool *pgxpool.Pool) *PendingStore {
	return &PendingStore{pool: pool}
}

func (s *PendingStore) Create(ctx context.Context, p domain.PendingPayment) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pending_payments (transaction_id, user_id, membership_type,
			amount, status, created_at)
		VALUES ($1, $2, $3, $4, 'pending', now())
		ON CONFLICT (transaction_id) DO UPDATE SET
			user_id = excluded.user_id,
			membership_type = excluded.membership_type,
			amount = excluded.amount,
			status = 'pending',
			gateway_ref = NULL,
			created_at = now(),
			verified_at = NULL
	`, p.TransactionID, p.Payload.UserID, p.Payload.MembershipType, p.Amount)
	return err
}

func (s *PendingStore) Confirm(ctx context.Context, transactionID, gatewayRef string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE pending_payments
		SET status = 'verified', gateway_ref = $2, verified_at = now()
		WHERE transaction_id = $1
	`, transactionID, gatewayRef)
	return err
}

func (s *PendingStore) Get(ctx context.Context, transactionID string) (*domain.PendingPayment, error) {
	var p domain.PendingPayment
	err := s.pool.QueryRow(ctx, `
		SELECT transaction_id, user_id::text, membership_type, amount, status,
		       coalesce(gateway_ref, ''), created_at, verified_at
		FROM pending_payments WHERE transaction_id = $1
	`, transactionID).Scan(&p.TransactionID, &p.Payload.UserID,
		&p.Payload.MembershipType, &p.Amount, &p.Status, &p.GatewayRef,
		&p.CreatedAt, &p.VerifiedAt)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PendingStore) Delete(ctx context.Context, transactionID string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM pending_payments WHERE transaction_id = $1
	`, transactionID)
	return err
}
