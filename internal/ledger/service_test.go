package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/boa-platform/registration-ledger/internal/adapters/postgres"
	"github.com/boa-platform/registration-ledger/internal/domain"
	"github.com/boa-platform/registration-ledger/internal/ledger"
	"github.com/boa-platform/registration-ledger/internal/observability"
	"github.com/boa-platform/registration-ledger/internal/pending"
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
	require.NoError(t, err)
	t.Cleanup(func() { container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, "postgres://postgres:postgres@"+host+":"+port.Port()+"/ledger?sslmode=disable")
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, postgres.Schema)
	require.NoError(t, err)
	return pool
}

type fixture struct {
	seminarID  uuid.UUID
	categoryID uuid.UUID
	slabID     uuid.UUID
}

func seedRefs(t *testing.T, ctx context.Context, pool *pgxpool.Pool) fixture {
	t.Helper()
	f := fixture{seminarID: uuid.New(), categoryID: uuid.New(), slabID: uuid.New()}
	_, err := pool.Exec(ctx, `INSERT INTO seminars (id, name) VALUES ($1, 'BOACON 2026')`, f.seminarID)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO fee_categories (id, name) VALUES ($1, 'Delegate')`, f.categoryID)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO fee_slabs (id, name) VALUES ($1, 'Early Bird')`, f.slabID)
	require.NoError(t, err)
	return f
}

func seedUser(t *testing.T, ctx context.Context, pool *pgxpool.Pool, membershipType string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := pool.Exec(ctx, `
		INSERT INTO users (id, name, email, membership_type)
		VALUES ($1, 'Dr. A Kumar', 'akumar@example.org', $2)
	`, id, membershipType)
	require.NoError(t, err)
	return id
}

func newService(pool *pgxpool.Pool) *ledger.Service {
	repo := postgres.NewRepository(pool)
	return ledger.NewService(repo, pending.NewMemoryStore(), observability.NewLogger())
}

func TestCreateRegistration_ConfirmedWithAdditionalPerson(t *testing.T) {
	ctx := context.Background()
	pool := startPostgres(t, ctx)
	f := seedRefs(t, ctx, pool)
	userID := seedUser(t, ctx, pool, "Lifetime")
	svc := newService(pool)

	result, err := svc.CreateRegistration(ctx, ledger.CreateRegistrationInput{
		UserID:       userID,
		SeminarID:    f.seminarID,
		CategoryID:   f.categoryID,
		SlabID:       f.slabID,
		DelegateType: "BOA Member",
		BaseAmount:   "2000",
		Persons: []ledger.PersonInput{
			{Name: "Mrs. Kumar", CategoryID: f.categoryID, SlabID: f.slabID, Amount: "1000"},
		},
		GatewayOrderID:   "order_1",
		GatewayPaymentID: "pay_1",
		PaymentMethod:    "razorpay",
	})
	require.NoError(t, err)
	assert.False(t, result.AlreadyRegistered)
	assert.Equal(t, "3000.00", result.Amount.StringFixed(2))
	assert.Equal(t, domain.PaymentConfirmed, result.Status)
	assert.Regexp(t, `^REG-\d{4}-\d{4}$`, result.RegistrationNo)
	assert.Equal(t, "LM001", result.MembershipNo)

	var isMember bool
	var membershipNo string
	require.NoError(t, pool.QueryRow(ctx, `
		SELECT is_boa_member, membership_no FROM users WHERE id = $1
	`, userID).Scan(&isMember, &membershipNo))
	assert.True(t, isMember)
	assert.Equal(t, "LM001", membershipNo)

	var personCount int
	require.NoError(t, pool.QueryRow(ctx, `
		SELECT count(*) FROM additional_persons WHERE registration_id = $1
	`, result.ID).Scan(&personCount))
	assert.Equal(t, 1, personCount)

	// Exactly one notification intent committed with the registration.
	var outboxCount int
	require.NoError(t, pool.QueryRow(ctx, `
		SELECT count(*) FROM outbox WHERE event_type = 'registration.confirmed' AND status = 'NEW'
	`).Scan(&outboxCount))
	assert.Equal(t, 1, outboxCount)
}

func TestCreateRegistration_PendingWithoutGatewayPayment(t *testing.T) {
	ctx := context.Background()
	pool := startPostgres(t, ctx)
	f := seedRefs(t, ctx, pool)
	userID := seedUser(t, ctx, pool, "Annual")
	svc := newService(pool)

	result, err := svc.CreateRegistration(ctx, ledger.CreateRegistrationInput{
		UserID:       userID,
		SeminarID:    f.seminarID,
		CategoryID:   f.categoryID,
		SlabID:       f.slabID,
		DelegateType: "non boa member",
		BaseAmount:   "2500.50",
		// No gateway payment id: registration stays pending, method not
		// recorded, no notification enqueued.
		PaymentMethod: "cash",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPending, result.Status)
	assert.Equal(t, "YL001", result.MembershipNo)

	var method *string
	require.NoError(t, pool.QueryRow(ctx, `SELECT payment_method FROM registrations WHERE id = $1`, result.ID).Scan(&method))
	assert.Nil(t, method)

	var outboxCount int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM outbox`).Scan(&outboxCount))
	assert.Zero(t, outboxCount)
}

func TestCreateRegistration_DuplicateReturnsExisting(t *testing.T) {
	ctx := context.Background()
	pool := startPostgres(t, ctx)
	f := seedRefs(t, ctx, pool)
	userID := seedUser(t, ctx, pool, "Student")
	svc := newService(pool)

	in := ledger.CreateRegistrationInput{
		UserID:       userID,
		SeminarID:    f.seminarID,
		CategoryID:   f.categoryID,
		SlabID:       f.slabID,
		DelegateType: "boa-member",
		BaseAmount:   "2000",
	}
	first, err := svc.CreateRegistration(ctx, in)
	require.NoError(t, err)

	second, err := svc.CreateRegistration(ctx, in)
	require.NoError(t, err)
	assert.True(t, second.AlreadyRegistered)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.RegistrationNo, second.RegistrationNo)
	assert.Equal(t, first.Status, second.Status)

	var count int
	require.NoError(t, pool.QueryRow(ctx, `
		SELECT count(*) FROM registrations WHERE user_id = $1 AND seminar_id = $2
	`, userID, f.seminarID).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestMembershipSerialsAreMonotonic(t *testing.T) {
	ctx := context.Background()
	pool := startPostgres(t, ctx)
	f := seedRefs(t, ctx, pool)
	svc := newService(pool)

	for i := 1; i <= 5; i++ {
		userID := seedUser(t, ctx, pool, "Lifetime Member")
		result, err := svc.CreateRegistration(ctx, ledger.CreateRegistrationInput{
			UserID:       userID,
			SeminarID:    f.seminarID,
			CategoryID:   f.categoryID,
			SlabID:       f.slabID,
			DelegateType: "boa-member",
			BaseAmount:   "2000",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.FormatMembershipNo("LM", i), result.MembershipNo)

		// One registration per (user, seminar): each member gets their own
		// seminar row for the next loop iteration.
		f.seminarID = uuid.New()
		_, err = pool.Exec(ctx, `INSERT INTO seminars (id, name) VALUES ($1, 'BOACON 2026')`, f.seminarID)
		require.NoError(t, err)
	}
}

func TestCheckPendingPayment_FullFlow(t *testing.T) {
	ctx := context.Background()
	pool := startPostgres(t, ctx)
	seedRefs(t, ctx, pool)
	userID := seedUser(t, ctx, pool, "Lifetime")
	svc := newService(pool)

	app := domain.MembershipApplication{UserID: userID.String(), MembershipType: "Lifetime"}
	require.NoError(t, svc.CreatePendingPayment(ctx, "TXN123", "500", app))

	// Not verified yet: poll reports pending and leaves the entry alone.
	check, err := svc.CheckPendingPayment(ctx, "TXN123")
	require.NoError(t, err)
	assert.False(t, check.Verified)

	require.NoError(t, svc.ConfirmPendingPayment(ctx, "TXN123", "pay_xyz"))

	check, err = svc.CheckPendingPayment(ctx, "TXN123")
	require.NoError(t, err)
	assert.True(t, check.Verified)
	assert.Equal(t, "LM001", check.MembershipNo)

	var amount string
	require.NoError(t, pool.QueryRow(ctx, `
		SELECT amount::text FROM membership_registrations WHERE id = $1
	`, check.RegistrationID).Scan(&amount))
	assert.Equal(t, "500.00", amount)

	// The first successful poll consumed the entry.
	_, err = svc.CheckPendingPayment(ctx, "TXN123")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdatePaymentStatus_EnqueuesNotification(t *testing.T) {
	ctx := context.Background()
	pool := startPostgres(t, ctx)
	f := seedRefs(t, ctx, pool)
	userID := seedUser(t, ctx, pool, "Annual")
	svc := newService(pool)

	result, err := svc.CreateRegistration(ctx, ledger.CreateRegistrationInput{
		UserID:       userID,
		SeminarID:    f.seminarID,
		CategoryID:   f.categoryID,
		SlabID:       f.slabID,
		DelegateType: "boa-member",
		BaseAmount:   "2000",
	})
	require.NoError(t, err)

	require.NoError(t, svc.UpdatePaymentStatus(ctx, result.ID, domain.PaymentConfirmed, "pay_99", "razorpay"))

	var status string
	require.NoError(t, pool.QueryRow(ctx, `SELECT status FROM registrations WHERE id = $1`, result.ID).Scan(&status))
	assert.Equal(t, "confirmed", status)

	var outboxCount int
	require.NoError(t, pool.QueryRow(ctx, `
		SELECT count(*) FROM outbox WHERE event_type = 'payment.received'
	`).Scan(&outboxCount))
	assert.Equal(t, 1, outboxCount)

	assert.ErrorIs(t, svc.UpdatePaymentStatus(ctx, uuid.New(), domain.PaymentConfirmed, "x", "y"), domain.ErrNotFound)
	assert.ErrorIs(t, svc.UpdatePaymentStatus(ctx, result.ID, "refunded", "x", "y"), domain.ErrInvalidInput)
}
