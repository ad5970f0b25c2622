package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/boa-platform/registration-ledger/internal/adapters/postgres"
	"github.com/boa-platform/registration-ledger/internal/domain"
)

func startPostgres(t *testing.T, ctx context.Context) *pgxpool.Pool {
	t.Helper()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			Env:          map[string]string{"POSTGRES_PASSWORD": "postgres", "POSTGRES_DB": "ledger"},
			ExposedPorts: []string{"5432/tcp"},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { container.Terminate(ctx) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatal(err)
	}

	pool, err := pgxpool.New(ctx, "postgres://postgres:postgres@"+host+":"+port.Port()+"/ledger?sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, postgres.Schema); err != nil {
		t.Fatal(err)
	}
	return pool
}

type fixture struct {
	userID     uuid.UUID
	seminarID  uuid.UUID
	categoryID uuid.UUID
	slabID     uuid.UUID
}

func seed(t *testing.T, ctx context.Context, pool *pgxpool.Pool, membershipType string) fixture {
	t.Helper()
	f := fixture{
		userID:     uuid.New(),
		seminarID:  uuid.New(),
		categoryID: uuid.New(),
		slabID:     uuid.New(),
	}
	_, err := pool.Exec(ctx, `
		INSERT INTO users (id, name, email, membership_type) VALUES ($1, 'Dr. A Kumar', 'akumar@example.org', $2);
	`, f.userID, membershipType)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := pool.Exec(ctx, `INSERT INTO seminars (id, name) VALUES ($1, 'Annual Orthopaedic Conclave')`, f.seminarID); err != nil {
		t.Fatal(err)
	}
	if _, err := pool.Exec(ctx, `INSERT INTO fee_categories (id, name) VALUES ($1, 'Delegate')`, f.categoryID); err != nil {
		t.Fatal(err)
	}
	if _, err := pool.Exec(ctx, `INSERT INTO fee_slabs (id, name) VALUES ($1, 'Early Bird')`, f.slabID); err != nil {
		t.Fatal(err)
	}
	return f
}

func newRegistration(f fixture) domain.Registration {
	return domain.Registration{
		ID:             uuid.New(),
		RegistrationNo: "REG-2026-0001",
		UserID:         f.userID,
		SeminarID:      f.seminarID,
		CategoryID:     f.categoryID,
		SlabID:         f.slabID,
		DelegateType:   domain.DelegateBOAMember,
		Amount:         decimal.NewFromInt(2000),
		Status:         domain.PaymentPending,
		CreatedAt:      time.Now(),
	}
}

func TestRepository_RollbackIsTotal(t *testing.T) {
	ctx := context.Background()
	pool := startPostgres(t, ctx)
	f := seed(t, ctx, pool, "Lifetime")
	repo := postgres.NewRepository(pool)

	reg := newRegistration(f)
	err := repo.WithTx(ctx, func(tx pgx.Tx) error {
		if err := repo.SetUserMembership(ctx, tx, f.userID, "LM001"); err != nil {
			return err
		}
		if err := repo.InsertRegistration(ctx, tx, reg); err != nil {
			return err
		}
		// Unknown category violates the FK and must abort everything
		// written above.
		return repo.InsertAdditionalPersons(ctx, tx, []domain.AdditionalPerson{{
			ID:             uuid.New(),
			RegistrationID: reg.ID,
			Name:           "Guest",
			CategoryID:     uuid.New(),
			SlabID:         f.slabID,
			Amount:         decimal.NewFromInt(1000),
		}})
	})
	if err == nil {
		t.Fatal("expected FK violation")
	}

	if _, err := repo.FindRegistration(ctx, pool, f.userID, f.seminarID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("registration survived rollback: %v", err)
	}
	var membershipNo *string
	if err := pool.QueryRow(ctx, `SELECT membership_no FROM users WHERE id = $1`, f.userID).Scan(&membershipNo); err != nil {
		t.Fatal(err)
	}
	if membershipNo != nil {
		t.Errorf("membership backfill survived rollback: %v", *membershipNo)
	}
}

func TestRepository_DuplicatePairIsConflict(t *testing.T) {
	ctx := context.Background()
	pool := startPostgres(t, ctx)
	f := seed(t, ctx, pool, "Lifetime")
	repo := postgres.NewRepository(pool)

	err := repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.InsertRegistration(ctx, tx, newRegistration(f))
	})
	if err != nil {
		t.Fatal(err)
	}

	dup := newRegistration(f)
	dup.RegistrationNo = "REG-2026-0002"
	err = repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.InsertRegistration(ctx, tx, dup)
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
}

// Two first-time allocations for the same prefix see no row to lock, so
// both can mint the same number; the unique index turns the second commit
// into a conflict instead of a silent duplicate.
func TestRepository_DuplicateMembershipNoIsConflict(t *testing.T) {
	ctx := context.Background()
	pool := startPostgres(t, ctx)
	f := seed(t, ctx, pool, "Lifetime")
	other := seed(t, ctx, pool, "Lifetime")
	repo := postgres.NewRepository(pool)

	err := repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.SetUserMembership(ctx, tx, f.userID, "LM001")
	})
	if err != nil {
		t.Fatal(err)
	}

	err = repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.SetUserMembership(ctx, tx, other.userID, "LM001")
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestPendingStore_Postgres(t *testing.T) {
	ctx := context.Background()
	pool := startPostgres(t, ctx)
	store := postgres.NewPendingStore(pool)

	p := domain.PendingPayment{
		TransactionID: "TXN123",
		Amount:        decimal.NewFromInt(500),
		Payload: domain.MembershipApplication{
			UserID:         uuid.New().String(),
			MembershipType: "Lifetime",
		},
	}
	if err := store.Create(ctx, p); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(ctx, "TXN123")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.PendingStatusPending {
		t.Errorf("expected pending, got %s", got.Status)
	}

	if err := store.Confirm(ctx, "TXN123", "pay_ref"); err != nil {
		t.Fatal(err)
	}
	got, err = store.Get(ctx, "TXN123")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.PendingStatusVerified || got.GatewayRef != "pay_ref" {
		t.Errorf("expected verified with gateway ref, got %+v", got)
	}

	// Confirm for an id never created must succeed and write nothing.
	if err := store.Confirm(ctx, "TXN999", "ref"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, "TXN999"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}

	if err := store.Delete(ctx, "TXN123"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, "TXN123"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found after delete, got %v", err)
	}
}
