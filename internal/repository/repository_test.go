package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Discard,
	})
	require.NoError(t, err)
	return db, mock
}

func TestHasOverlap_PerRoom(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewBookingRepository(db)

	room := "101"
	in := time.Date(2025, 10, 24, 0, 0, 0, 0, time.UTC)
	out := time.Date(2025, 10, 26, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "bookings" WHERE .*room_number = `).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), room).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	overlap, err := repo.HasOverlap(context.Background(), 7, &room, in, out, 0)
	require.NoError(t, err)
	assert.True(t, overlap)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHasOverlap_WholePropertyExcludingSelf(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewBookingRepository(db)

	in := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	out := time.Date(2025, 2, 20, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "bookings" WHERE .*id <> `).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	overlap, err := repo.HasOverlap(context.Background(), 3, nil, in, out, 42)
	require.NoError(t, err)
	assert.False(t, overlap)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSumForInvoice(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPaymentRepository(db)

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount\), 0\) FROM "payments"`).
		WithArgs(sqlmock.AnyArg(), models.PaymentStatusPending, models.PaymentTypeRefund, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("300.00"))

	sum, err := repo.SumForInvoice(context.Background(), 9, models.PaymentStatusPending, 4)
	require.NoError(t, err)
	assert.True(t, sum.Equal(decimal.NewFromInt(300)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceFindByIDForUpdate_LocksRow(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewInvoiceRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "rent_invoices" WHERE .* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "lease_id", "total_amount", "amount_paid", "status"}).
			AddRow(1, 5, "1000.00", "800.00", models.InvoiceStatusSent))
	mock.ExpectQuery(`SELECT \* FROM "leases"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "property_id", "tenant_id"}).AddRow(5, 2, 3))

	invoice, err := repo.FindByIDForUpdate(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, uint(5), invoice.Lease.ID)
	assert.True(t, invoice.BalanceDue().Equal(decimal.NewFromInt(200)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxManager_CommitsAndJoins(t *testing.T) {
	db, mock := setupMockDB(t)
	tx := NewTxManager(db)
	audits := NewAuditRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "audit_logs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	err := tx.WithinTransaction(context.Background(), func(ctx context.Context) error {
		assert.True(t, InTransaction(ctx))
		return tx.WithinTransaction(ctx, func(inner context.Context) error {
			return audits.Create(inner, &models.AuditLog{Action: models.AuditCreate, Entity: "Booking", EntityID: 1})
		})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxManager_RollsBackOnError(t *testing.T) {
	db, mock := setupMockDB(t)
	tx := NewTxManager(db)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := tx.WithinTransaction(context.Background(), func(ctx context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVisibilityScopes(t *testing.T) {
	db, _ := setupMockDB(t)
	dry := db.Session(&gorm.Session{DryRun: true})

	sql := func(scope Scope) string {
		var bookings []models.Booking
		return dry.Model(&models.Booking{}).Scopes(scope).Find(&bookings).Statement.SQL.String()
	}

	staff := sql(BookingVisibility(models.Viewer{UserID: 1, Role: models.RoleStaff}))
	assert.NotContains(t, staff, "WHERE")

	owner := sql(BookingVisibility(models.Viewer{UserID: 2, Role: models.RoleOwner}))
	assert.Contains(t, owner, "owner_id")

	tenant := sql(BookingVisibility(models.Viewer{UserID: 3, Email: "t@example.com", Role: models.RoleTenant}))
	assert.Contains(t, tenant, "created_by_id")

	unknown := sql(BookingVisibility(models.Viewer{UserID: 4, Role: "guest"}))
	assert.Contains(t, unknown, "1 = 0")
}

func TestIsDuplicateKeyError(t *testing.T) {
	err := &pgconn.PgError{Code: "23505", ConstraintName: "idx_invoice_lease_period"}
	assert.True(t, isDuplicateKeyError(err, "idx_invoice_lease_period"))
	assert.False(t, isDuplicateKeyError(err, "idx_users_email"))
	assert.True(t, IsDuplicateKey(err))
	assert.True(t, IsDuplicateKey(gorm.ErrDuplicatedKey))
	assert.False(t, IsDuplicateKey(errors.New("other")))
}

func TestListQuery_SetOrdering(t *testing.T) {
	q := NewListQuery()
	q.SetOrdering("-check_in_date")
	assert.Equal(t, "check_in_date", q.SortBy)
	assert.Equal(t, "desc", q.SortDir)

	q.SetOrdering("total_amount")
	assert.Equal(t, "asc", q.SortDir)
	assert.Equal(t, "", q.Filter("missing"))
}

func TestReminderExistsForDay_UsesLocalDay(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReminderRepository(db)

	eat := time.FixedZone("EAT", 3*60*60)
	day := time.Date(2025, 6, 1, 0, 30, 0, 0, eat)
	start := time.Date(2025, 5, 31, 21, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 1, 21, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "reminders" WHERE .*scheduled_date >= .* AND scheduled_date < `).
		WithArgs(uint(4), models.ReminderTypeEmail, models.ReminderStatusCancelled, start, end).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	exists, err := repo.ExistsForDay(context.Background(), 4, models.ReminderTypeEmail, day)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReminderHasEscalation_IgnoresFailed(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReminderRepository(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "reminders" WHERE .*is_escalation AND reminder_status <> `).
		WithArgs(uint(4), models.ReminderStatusFailed).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	done, err := repo.HasEscalation(context.Background(), 4)
	require.NoError(t, err)
	assert.False(t, done)
	assert.NoError(t, mock.ExpectationsWereMet())
}
