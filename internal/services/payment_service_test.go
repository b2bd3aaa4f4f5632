package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Intruder289/maishaap-backend-sub002/internal/events"
	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"github.com/Intruder289/maishaap-backend-sub002/internal/statemachine"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var staffViewer = models.Viewer{UserID: 1, Role: models.RoleStaff}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// newLedger wires a payment service over store with the projections
// registered, as NewServices does.
func newLedger(store *memStore) (*PaymentService, *events.Bus) {
	bus := events.NewBus()
	NewProjector(store.repos(), store.now).Register(bus)
	svc := NewPaymentService(store.repos(), nil, NewAuditService(store.audit), nil, bus, nil)
	svc.now = store.now
	return svc, bus
}

// seedInvoice stores a lease with one invoice of total, paid in cash up
// to paid.
func seedInvoice(t *testing.T, store *memStore, total, paid string) *models.RentInvoice {
	t.Helper()
	store.leases.items[1] = models.Lease{
		ID:         1,
		PropertyID: 1,
		TenantID:   9,
		RentAmount: amount(total),
		Status:     models.LeaseStatusActive,
		Property:   models.Property{ID: 1, OwnerID: 5, Title: "Sea View"},
	}
	start, end := models.MonthRange(store.clock.Year(), store.clock.Month())
	invoice := models.RentInvoice{
		ID:            1,
		LeaseID:       1,
		TenantID:      9,
		InvoiceNumber: "INV-202503-0001",
		DueDate:       store.clock.AddDate(0, 0, 10),
		PeriodStart:   start,
		PeriodEnd:     end,
		TotalAmount:   amount(total),
		AmountPaid:    amount(paid),
		Status:        models.InvoiceStatusSent,
	}
	store.invoices.items[1] = invoice
	if amount(paid).IsPositive() {
		invoiceID, leaseID := uint(1), uint(1)
		require.NoError(t, store.payments.Create(context.Background(), &models.Payment{
			PaymentType:   models.PaymentTypeRent,
			RentInvoiceID: &invoiceID,
			LeaseID:       &leaseID,
			Amount:        amount(paid),
			PaymentMethod: models.PaymentMethodCash,
			Status:        models.PaymentStatusCompleted,
		}))
	}
	return &invoice
}

func TestCheckHeadroom(t *testing.T) {
	cases := []struct {
		name                             string
		total, completed, pending, input string
		allowed                          string
		message                          string
	}{
		{"fits the balance", "1000", "800", "0", "200", "", ""},
		{"already fully paid", "1000", "1000", "0", "1", "0", "already fully paid"},
		{"exceeds the remainder", "1000", "800", "0", "300", "200", "maximum allowed is 200.00"},
		{"pending holds the remainder", "1000", "800", "150", "100", "50", "maximum allowed is 50.00"},
		{"pending covers everything", "1000", "800", "200", "10", "0", "pending payments of 200.00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := checkHeadroom(amount(tc.total), amount(tc.completed), amount(tc.pending), amount(tc.input))
			if tc.allowed == "" {
				assert.NoError(t, err)
				return
			}
			var over *OverpaymentError
			require.ErrorAs(t, err, &over)
			assert.ErrorIs(t, err, ErrOverpayment)
			assert.True(t, amount(tc.allowed).Equal(over.Allowed), "allowed %s", over.Allowed)
			assert.Contains(t, err.Error(), tc.message)
		})
	}
}

func TestRecordRentPayment_Validation(t *testing.T) {
	store := newMemStore(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	svc, _ := newLedger(store)
	invoiceID, leaseID := uint(1), uint(1)

	_, err := svc.RecordRentPayment(context.Background(), RentPaymentInput{
		RentInvoiceID: &invoiceID, LeaseID: &leaseID, Amount: amount("10"), PaymentMethod: models.PaymentMethodCash,
	}, staffViewer)
	assert.ErrorIs(t, err, ErrValidation, "two targets")

	_, err = svc.RecordRentPayment(context.Background(), RentPaymentInput{
		RentInvoiceID: &invoiceID, Amount: decimal.Zero, PaymentMethod: models.PaymentMethodCash,
	}, staffViewer)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "amount", verr.Field)

	_, err = svc.RecordRentPayment(context.Background(), RentPaymentInput{
		RentInvoiceID: &invoiceID, Amount: amount("10"), PaymentMethod: "cheque",
	}, staffViewer)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "payment_method", verr.Field)
}

func TestRecordRentPayment_ConcurrentOverpayment(t *testing.T) {
	store := newMemStore(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	svc, _ := newLedger(store)
	seedInvoice(t, store, "1000", "800")
	invoiceID := uint(1)

	race := func(value string) []error {
		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = svc.RecordRentPayment(context.Background(), RentPaymentInput{
					RentInvoiceID: &invoiceID,
					Amount:        amount(value),
					PaymentMethod: models.PaymentMethodCash,
				}, staffViewer)
			}(i)
		}
		wg.Wait()
		return errs
	}

	t.Run("payments larger than the balance are rejected with the allowed amount", func(t *testing.T) {
		for _, err := range race("300") {
			var over *OverpaymentError
			require.ErrorAs(t, err, &over)
			assert.True(t, amount("200").Equal(over.Allowed))
			assert.Contains(t, err.Error(), "maximum allowed is 200.00")
		}
		assert.Equal(t, 1, store.payments.count())
	})

	t.Run("only one of two exact payments lands", func(t *testing.T) {
		var succeeded, rejected int
		for _, err := range race("200") {
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrOverpayment):
				rejected++
				assert.EqualError(t, err, "already fully paid")
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 1, succeeded)
		assert.Equal(t, 1, rejected)

		invoice, err := store.invoices.FindByID(context.Background(), invoiceID)
		require.NoError(t, err)
		assert.True(t, amount("1000").Equal(invoice.AmountPaid))
		assert.Equal(t, models.InvoiceStatusPaid, invoice.Status)
	})
}

func seedBooking(store *memStore, status, paymentStatus string, created time.Time) *models.Booking {
	store.properties.items[1] = models.Property{
		ID:                     1,
		OwnerID:                5,
		Title:                  "Kilimanjaro Lodge",
		PropertyType:           models.PropertyTypeLodge,
		RentAmount:             amount("50"),
		RentPeriod:             models.RentPeriodDay,
		BookingExpirationHours: 12,
		IsActive:               true,
		IsApproved:             true,
		Status:                 models.PropertyStatusAvailable,
	}
	store.customers.items[3] = models.Customer{ID: 3, FirstName: "Asha", Email: "asha@example.com", Phone: "0712345678"}
	b := &models.Booking{
		BookingReference: "LDG-TEST",
		PropertyID:       1,
		CustomerID:       3,
		CheckInDate:      models.Day(store.clock),
		CheckOutDate:     models.Day(store.clock).AddDate(0, 0, 2),
		NumberOfGuests:   1,
		TotalAmount:      amount("100"),
		BookingStatus:    status,
		PaymentStatus:    paymentStatus,
		CreatedAt:        created,
	}
	_ = store.bookings.Create(context.Background(), b)
	return b
}

func TestRecordBookingPayment_PendingHoldsHeadroom(t *testing.T) {
	store := newMemStore(time.Date(2025, 10, 24, 8, 0, 0, 0, time.UTC))
	svc, _ := newLedger(store)
	booking := seedBooking(store, models.BookingStatusConfirmed, models.BookingPaymentPending, store.clock)

	_, pending, err := svc.RecordBookingPayment(context.Background(), booking.ID, BookingPaymentInput{
		Amount: amount("60"), PaymentMethod: models.PaymentMethodMobileMoney, MobileMoneyProvider: "mpesa",
	}, staffViewer)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, pending.Status)
	assert.Equal(t, "MPESA", pending.MobileMoneyProvider)

	_, _, err = svc.RecordBookingPayment(context.Background(), booking.ID, BookingPaymentInput{
		Amount: amount("50"), PaymentMethod: models.PaymentMethodCash,
	}, staffViewer)
	var over *OverpaymentError
	require.ErrorAs(t, err, &over)
	assert.True(t, amount("40").Equal(over.Allowed))
	assert.True(t, amount("60").Equal(over.Pending))

	updated, cash, err := svc.RecordBookingPayment(context.Background(), booking.ID, BookingPaymentInput{
		Amount: amount("40"), PaymentMethod: models.PaymentMethodCash,
	}, staffViewer)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, cash.Status)
	require.NotNil(t, cash.PaidDate)
	assert.True(t, amount("40").Equal(updated.PaidAmount))
	assert.Equal(t, models.BookingPaymentPartial, updated.PaymentStatus)
}

func TestRecordBookingPayment_CancelledBooking(t *testing.T) {
	store := newMemStore(time.Date(2025, 10, 24, 8, 0, 0, 0, time.UTC))
	svc, _ := newLedger(store)
	booking := seedBooking(store, models.BookingStatusCancelled, models.BookingPaymentPending, store.clock)

	_, _, err := svc.RecordBookingPayment(context.Background(), booking.ID, BookingPaymentInput{
		Amount: amount("10"), PaymentMethod: models.PaymentMethodCash,
	}, staffViewer)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRefund(t *testing.T) {
	store := newMemStore(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	svc, _ := newLedger(store)
	seedInvoice(t, store, "1000", "800")

	_, err := svc.Refund(context.Background(), 1, "duplicate", models.Viewer{UserID: 5, Role: models.RoleOwner})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	refund, err := svc.Refund(context.Background(), 1, "duplicate", staffViewer)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentTypeRefund, refund.PaymentType)
	require.NotNil(t, refund.RefundOfID)
	assert.Equal(t, uint(1), *refund.RefundOfID)
	assert.True(t, amount("800").Equal(refund.Amount))

	original, err := store.payments.FindByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, original.Status)

	invoice, err := store.invoices.FindByID(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, invoice.AmountPaid.IsZero(), "refunded money no longer counts")

	_, err = svc.Refund(context.Background(), refund.ID, "again", staffViewer)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMarkInvoicePaid(t *testing.T) {
	store := newMemStore(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	svc, _ := newLedger(store)
	seedInvoice(t, store, "1000", "800")

	_, _, err := svc.MarkInvoicePaid(context.Background(), 1, MarkPaidInput{}, models.Viewer{UserID: 6, Role: models.RoleOwner})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	invoice, payment, err := svc.MarkInvoicePaid(context.Background(), 1, MarkPaidInput{}, staffViewer)
	require.NoError(t, err)
	assert.True(t, amount("200").Equal(payment.Amount), "defaults to the balance due")
	assert.Equal(t, models.PaymentMethodCash, payment.PaymentMethod)
	assert.Equal(t, models.PaymentStatusCompleted, payment.Status)
	assert.True(t, amount("1000").Equal(invoice.AmountPaid))
	assert.Equal(t, models.InvoiceStatusPaid, invoice.Status)

	extra := amount("50")
	_, _, err = svc.MarkInvoicePaid(context.Background(), 1, MarkPaidInput{Amount: &extra}, staffViewer)
	assert.ErrorIs(t, err, ErrOverpayment)
}

func TestRecordRentPayment_LeaseLinking(t *testing.T) {
	march := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	april := time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)
	leaseID := uint(1)
	cash := func(value string) RentPaymentInput {
		return RentPaymentInput{LeaseID: &leaseID, Amount: amount(value), PaymentMethod: models.PaymentMethodCash}
	}

	tests := []struct {
		name      string
		paid      string
		clock     time.Time
		amount    string
		allowed   string
		invoiceID uint
		invoiced  string
	}{
		{name: "links to the covering invoice", paid: "0", clock: march, amount: "400", invoiceID: 1, invoiced: "400"},
		{name: "issues the month's invoice when none covers", paid: "0", clock: april, amount: "1000", invoiceID: 2, invoiced: "1000"},
		{name: "rejects more than the invoice balance", paid: "800", clock: march, amount: "300", allowed: "200"},
		{name: "rejects more than the rent before an invoice exists", paid: "0", clock: april, amount: "5000", allowed: "1000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore(march)
			svc, _ := newLedger(store)
			seedInvoice(t, store, "1000", tt.paid)
			store.clock = tt.clock
			before := store.payments.count()

			payment, err := svc.RecordRentPayment(context.Background(), cash(tt.amount), staffViewer)
			if tt.allowed != "" {
				var over *OverpaymentError
				require.ErrorAs(t, err, &over)
				assert.True(t, amount(tt.allowed).Equal(over.Allowed), over.Allowed.String())
				assert.Equal(t, before, store.payments.count())
				return
			}
			require.NoError(t, err)

			stored, err := store.payments.FindByID(context.Background(), payment.ID)
			require.NoError(t, err)
			require.NotNil(t, stored.RentInvoiceID)
			assert.Equal(t, tt.invoiceID, *stored.RentInvoiceID)

			invoice, err := store.invoices.FindByID(context.Background(), tt.invoiceID)
			require.NoError(t, err)
			assert.True(t, amount(tt.invoiced).Equal(invoice.AmountPaid))
			assert.True(t, invoice.AmountPaid.LessThanOrEqual(invoice.TotalAmount))
		})
	}
}

func TestLeasePayment_SettledOverflowStaysOnLease(t *testing.T) {
	store := newMemStore(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	svc, _ := newLedger(store)
	seedInvoice(t, store, "1000", "0")
	store.clock = time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()
	leaseID := uint(1)

	pending, err := svc.RecordRentPayment(ctx, RentPaymentInput{
		LeaseID: &leaseID, Amount: amount("1000"), PaymentMethod: models.PaymentMethodMobileMoney, MobileMoneyProvider: "airtel",
	}, staffViewer)
	require.NoError(t, err)
	require.Equal(t, models.PaymentStatusPending, pending.Status)

	settled, err := svc.RecordRentPayment(ctx, RentPaymentInput{
		LeaseID: &leaseID, Amount: amount("1000"), PaymentMethod: models.PaymentMethodCash,
	}, staffViewer)
	require.NoError(t, err)
	require.NotNil(t, settled.RentInvoiceID)

	late, err := store.payments.FindByID(ctx, pending.ID)
	require.NoError(t, err)
	require.NoError(t, svc.ChangeStatus(ctx, late, (*statemachine.PaymentFSM).Complete, staffViewer, "settled"))

	late, err = store.payments.FindByID(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, late.Status)
	assert.Nil(t, late.RentInvoiceID, "the invoice is already covered")

	invoice, err := store.invoices.FindByID(ctx, *settled.RentInvoiceID)
	require.NoError(t, err)
	assert.True(t, amount("1000").Equal(invoice.AmountPaid))
	assert.Equal(t, models.InvoiceStatusPaid, invoice.Status)
}

func TestVisitPayment_UnlockAndRefund(t *testing.T) {
	store := newMemStore(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	svc, _ := newLedger(store)
	ctx := context.Background()
	cost := amount("5000")
	store.properties.items[2] = models.Property{
		ID: 2, OwnerID: 5, Title: "Mbezi House", PropertyType: models.PropertyTypeHouse,
		VisitCost: &cost, Address: "Plot 12, Mbezi Beach", IsActive: true, IsApproved: true,
		Owner: models.User{ID: 5, FirstName: "Neema", Phone: "0712000111", Email: "owner@example.com"},
	}
	store.properties.items[3] = models.Property{ID: 3, OwnerID: 5, PropertyType: models.PropertyTypeHotel, IsActive: true, IsApproved: true}
	renter := models.Viewer{UserID: 30, Role: models.RoleTenant}

	access, err := svc.VisitStatus(ctx, 2, renter)
	require.NoError(t, err)
	assert.Equal(t, "none", access.Status)
	assert.False(t, access.Unlocked)
	assert.Empty(t, access.OwnerPhone)

	owner, err := svc.VisitStatus(ctx, 2, models.Viewer{UserID: 5, Role: models.RoleOwner})
	require.NoError(t, err)
	assert.True(t, owner.Unlocked, "owners always see their own details")

	_, _, err = svc.CreateVisitPayment(ctx, 3, renter)
	assert.ErrorIs(t, err, ErrValidation, "hotels take no visit payments")

	visit, payment, err := svc.CreateVisitPayment(ctx, 2, renter)
	require.NoError(t, err)
	assert.Equal(t, models.VisitStatusPending, visit.Status)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	assert.True(t, cost.Equal(payment.Amount))

	_, again, err := svc.CreateVisitPayment(ctx, 2, renter)
	require.NoError(t, err)
	assert.Equal(t, payment.ID, again.ID, "an open attempt is reused")
	assert.Len(t, store.visits.items, 1)

	pending, err := store.payments.FindByID(ctx, payment.ID)
	require.NoError(t, err)
	require.NoError(t, svc.ChangeStatus(ctx, pending, (*statemachine.PaymentFSM).Complete, staffViewer, "settled"))

	access, err = svc.VisitStatus(ctx, 2, renter)
	require.NoError(t, err)
	assert.True(t, access.Unlocked)
	assert.Equal(t, "0712000111", access.OwnerPhone)
	assert.Equal(t, "Plot 12, Mbezi Beach", access.Address)

	_, _, err = svc.CreateVisitPayment(ctx, 2, renter)
	assert.ErrorIs(t, err, ErrValidation, "already paid")

	_, err = svc.Refund(ctx, payment.ID, "owner unreachable", staffViewer)
	require.NoError(t, err)
	access, err = svc.VisitStatus(ctx, 2, renter)
	require.NoError(t, err)
	assert.False(t, access.Unlocked, "a refund locks the details again")
	assert.Equal(t, models.VisitStatusPending, access.Status)
	assert.Empty(t, access.OwnerPhone)
}
