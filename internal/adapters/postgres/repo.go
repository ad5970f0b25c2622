package postgres

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/boa-platform/registration-ledger/internal/domain"
)

const (
	SerializationFailureCode = "40001"
	UniqueViolationCode      = "23505"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

// WithTx runs fn inside a transaction. Any error rolls the whole
// transaction back; serialization failures and unique violations are mapped
// to domain sentinels so callers can branch without inspecting pg codes.
func (r *Repository) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case SerializationFailureCode:
				return domain.ErrSerializationFailure
			case UniqueViolationCode:
				return errors.Mark(err, domain.ErrConflict)
			}
		}
		return err
	}

	return tx.Commit(ctx)
}

// FindRegistration returns the registration for (userID, seminarID), or
// ErrNotFound. Runs on the caller's transaction when one is held so the
// duplicate check shares the insert's snapshot.
func (r *Repository) FindRegistration(ctx context.Context, q Querier, userID, seminarID uuid.UUID) (*domain.Registration, error) {
	var reg domain.Registration
	err := q.QueryRow(ctx, `
		SELECT id, registration_no, user_id, seminar_id, category_id, slab_id,
		       delegate_type, amount, status, coalesce(payment_method, ''),
		       payment_date, coalesce(gateway_order_id, ''),
		       coalesce(gateway_payment_id, ''), created_at
		FROM registrations WHERE user_id = $1 AND seminar_id = $2
	`, userID, seminarID).Scan(
		&reg.ID, &reg.RegistrationNo, &reg.UserID, &reg.SeminarID,
		&reg.CategoryID, &reg.SlabID, &reg.DelegateType, &reg.Amount,
		&reg.Status, &reg.PaymentMethod, &reg.PaymentDate,
		&reg.GatewayOrderID, &reg.GatewayPaymentID, &reg.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *Repository) InsertRegistration(ctx context.Context, tx pgx.Tx, reg domain.Registration) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO registrations (id, registration_no, user_id, seminar_id,
			category_id, slab_id, delegate_type, amount, status,
			payment_method, payment_date, gateway_order_id, gateway_payment_id,
			created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, reg.ID, reg.RegistrationNo, reg.UserID, reg.SeminarID, reg.CategoryID,
		reg.SlabID, reg.DelegateType, reg.Amount, reg.Status,
		nullStr(reg.PaymentMethod), reg.PaymentDate,
		nullStr(reg.GatewayOrderID), nullStr(reg.GatewayPaymentID),
		reg.CreatedAt)
	return err
}

// InsertAdditionalPersons writes all dependent rows in one batch on the
// parent registration's transaction.
func (r *Repository) InsertAdditionalPersons(ctx context.Context, tx pgx.Tx, persons []domain.AdditionalPerson) error {
	if len(persons) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range persons {
		batch.Queue(`
			INSERT INTO additional_persons (id, registration_id, name,
				category_id, slab_id, amount)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, p.ID, p.RegistrationID, p.Name, p.CategoryID, p.SlabID, p.Amount)
	}
	results := tx.SendBatch(ctx, batch)
	defer results.Close()
	for range persons {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return results.Close()
}

// GetUserForUpdate locks the user row for the rest of the transaction so a
// membership-number backfill cannot race another allocation for the same
// user.
func (r *Repository) GetUserForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.User, error) {
	var u domain.User
	err := tx.QueryRow(ctx, `
		SELECT id, name, email, coalesce(membership_type, ''),
		       coalesce(membership_no, ''), is_boa_member
		FROM users WHERE id = $1
		FOR UPDATE
	`, userID).Scan(&u.ID, &u.Name, &u.Email, &u.MembershipType, &u.MembershipNo, &u.IsBOAMember)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repository) SetUserMembership(ctx context.Context, tx pgx.Tx, userID uuid.UUID, membershipNo string) error {
	result, err := tx.Exec(ctx, `
		UPDATE users SET membership_no = $2, is_boa_member = TRUE WHERE id = $1
	`, userID, membershipNo)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// RegistrationView is a registration joined with the labels the client
// renders alongside it.
type RegistrationView struct {
	domain.Registration
	SeminarName  string
	CategoryName string
	SlabName     string
}

func (r *Repository) ListRegistrationsByUser(ctx context.Context, userID uuid.UUID) ([]RegistrationView, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT reg.id, reg.registration_no, reg.user_id, reg.seminar_id,
		       reg.category_id, reg.slab_id, reg.delegate_type, reg.amount,
		       reg.status, coalesce(reg.payment_method, ''), reg.payment_date,
		       coalesce(reg.gateway_order_id, ''),
		       coalesce(reg.gateway_payment_id, ''), reg.created_at,
		       s.name, c.name, sl.name
		FROM registrations reg
		JOIN seminars s ON s.id = reg.seminar_id
		JOIN fee_categories c ON c.id = reg.category_id
		JOIN fee_slabs sl ON sl.id = reg.slab_id
		WHERE reg.user_id = $1
		ORDER BY reg.created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var views []RegistrationView
	for rows.Next() {
		var v RegistrationView
		if err := rows.Scan(
			&v.ID, &v.RegistrationNo, &v.UserID, &v.SeminarID, &v.CategoryID,
			&v.SlabID, &v.DelegateType, &v.Amount, &v.Status, &v.PaymentMethod,
			&v.PaymentDate, &v.GatewayOrderID, &v.GatewayPaymentID,
			&v.CreatedAt, &v.SeminarName, &v.CategoryName, &v.SlabName,
		); err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range views {
		i := i
		g.Go(func() error {
			persons, err := r.listAdditionalPersons(gctx, views[i].ID)
			if err != nil {
				return err
			}
			views[i].Persons = persons
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return views, nil
}

func (r *Repository) listAdditionalPersons(ctx context.Context, registrationID uuid.UUID) ([]domain.AdditionalPerson, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, registration_id, name, category_id, slab_id, amount
		FROM additional_persons WHERE registration_id = $1
	`, registrationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var persons []domain.AdditionalPerson
	for rows.Next() {
		var p domain.AdditionalPerson
		if err := rows.Scan(&p.ID, &p.RegistrationID, &p.Name, &p.CategoryID, &p.SlabID, &p.Amount); err != nil {
			return nil, err
		}
		persons = append(persons, p)
	}
	return persons, rows.Err()
}

func (r *Repository) UpdatePaymentStatus(ctx context.Context, tx pgx.Tx, registrationID uuid.UUID, status domain.PaymentStatus, gatewayPaymentID, method string, paidAt time.Time) error {
	result, err := tx.Exec(ctx, `
		UPDATE registrations
		SET status = $2, gateway_payment_id = $3, payment_method = $4, payment_date = $5
		WHERE id = $1
	`, registrationID, status, nullStr(gatewayPaymentID), nullStr(method), paidAt)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// RegistrationContact is the joined user/seminar data a confirmation
// notification needs.
type RegistrationContact struct {
	RegistrationNo string
	Amount         string
	UserName       string
	UserEmail      string
	SeminarName    string
}

func (r *Repository) GetRegistrationContact(ctx context.Context, q Querier, registrationID uuid.UUID) (*RegistrationContact, error) {
	var c RegistrationContact
	err := q.QueryRow(ctx, `
		SELECT reg.registration_no, reg.amount::text, u.name, u.email, s.name
		FROM registrations reg
		JOIN users u ON u.id = reg.user_id
		JOIN seminars s ON s.id = reg.seminar_id
		WHERE reg.id = $1
	`, registrationID).Scan(&c.RegistrationNo, &c.Amount, &c.UserName, &c.UserEmail, &c.SeminarName)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) InsertMembershipRegistration(ctx context.Context, tx pgx.Tx, m domain.MembershipRegistration) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO membership_registrations (id, user_id, membership_type,
			membership_no, amount, gateway_ref, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
	`, m.ID, m.UserID, m.MembershipType, m.MembershipNo, m.Amount, m.GatewayRef, m.Status)
	return err
}

// Querier is the read surface shared by pgx.Tx and *pgxpool.Pool.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func nullStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
