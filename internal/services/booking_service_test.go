package services

import (
	"context"
	"testing"
	"time"

	"github.com/Intruder289/maishaap-backend-sub002/internal/events"
	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"github.com/Intruder289/maishaap-backend-sub002/internal/statemachine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newBookingFixture wires the booking service and the ledger on one bus
// over a hotel with room 101.
func newBookingFixture(clock time.Time) (*memStore, *BookingService, *PaymentService) {
	store := newMemStore(clock)
	store.properties.items[1] = models.Property{
		ID:                     1,
		OwnerID:                5,
		Title:                  "Harbour Hotel",
		PropertyType:           models.PropertyTypeHotel,
		RentAmount:             amount("50"),
		RentPeriod:             models.RentPeriodDay,
		BookingExpirationHours: 12,
		IsActive:               true,
		IsApproved:             true,
		Status:                 models.PropertyStatusAvailable,
	}
	store.rooms.items = []models.Room{{ID: 1, PropertyID: 1, RoomNumber: "101", Capacity: 2, Status: models.RoomStatusAvailable, IsActive: true}}
	store.customers.items[3] = models.Customer{ID: 3, FirstName: "Juma", LastName: "Bakari", Email: "juma@example.com"}

	bus := events.NewBus()
	NewProjector(store.repos(), store.now).Register(bus)
	auditSvc := NewAuditService(store.audit)

	bookings := NewBookingService(store.repos(), NewCustomerService(store.customers, auditSvc), nil, nil, auditSvc, bus, nil)
	bookings.now = store.now
	ledger := NewPaymentService(store.repos(), nil, auditSvc, nil, bus, nil)
	ledger.now = store.now
	return store, bookings, ledger
}

func room101(t *testing.T, store *memStore) *models.Room {
	t.Helper()
	room, err := store.rooms.FindByNumber(context.Background(), 1, "101")
	require.NoError(t, err)
	return room
}

func TestBookingService_DailyHotelStay(t *testing.T) {
	store, svc, ledger := newBookingFixture(time.Date(2025, 10, 24, 8, 0, 0, 0, time.UTC))
	ctx := context.Background()
	number := "101"

	booking, err := svc.Create(ctx, BookingInput{
		PropertyID:     1,
		CustomerID:     3,
		CheckInDate:    "2025-10-24",
		CheckOutDate:   "2025-10-26",
		NumberOfGuests: 2,
		RoomNumber:     &number,
	}, staffViewer)
	require.NoError(t, err)

	units, unit := models.BookingDuration(booking.Property.RentPeriod, booking.CheckInDate, booking.CheckOutDate)
	assert.Equal(t, 2, units)
	assert.Equal(t, "days", unit)
	assert.True(t, amount("100").Equal(booking.TotalAmount))
	assert.Equal(t, models.BookingPaymentPending, booking.PaymentStatus)
	assert.Equal(t, models.RoomStatusAvailable, room101(t, store).Status, "pending bookings do not hold the room")

	_, err = svc.Transition(ctx, booking.ID, statemachine.ActionConfirm, "", staffViewer)
	require.NoError(t, err)
	room := room101(t, store)
	assert.Equal(t, models.RoomStatusOccupied, room.Status)
	require.NotNil(t, room.CurrentBookingID)
	assert.Equal(t, booking.ID, *room.CurrentBookingID)

	_, err = svc.Transition(ctx, booking.ID, statemachine.ActionConfirm, "", staffViewer)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, _, err = ledger.RecordBookingPayment(ctx, booking.ID, BookingPaymentInput{
		Amount: amount("100"), PaymentMethod: models.PaymentMethodCash,
	}, staffViewer)
	require.NoError(t, err)

	_, err = svc.Transition(ctx, booking.ID, statemachine.ActionCheckIn, "", staffViewer)
	require.NoError(t, err)
	finished, err := svc.Transition(ctx, booking.ID, statemachine.ActionCheckOut, "", staffViewer)
	require.NoError(t, err)

	assert.Equal(t, models.BookingStatusCheckedOut, finished.BookingStatus)
	assert.True(t, finished.PaidAmount.Equal(finished.TotalAmount))
	assert.Equal(t, models.BookingPaymentPaid, finished.PaymentStatus)
	room = room101(t, store)
	assert.Equal(t, models.RoomStatusAvailable, room.Status)
	assert.Nil(t, room.CurrentBookingID)
}

func TestBookingService_CreateRejectsOverlap(t *testing.T) {
	_, svc, _ := newBookingFixture(time.Date(2025, 10, 20, 8, 0, 0, 0, time.UTC))
	ctx := context.Background()
	number := "101"
	input := BookingInput{PropertyID: 1, CustomerID: 3, CheckInDate: "2025-10-24", CheckOutDate: "2025-10-26", NumberOfGuests: 1, RoomNumber: &number}

	_, err := svc.Create(ctx, input, staffViewer)
	require.NoError(t, err)

	input.CheckInDate, input.CheckOutDate = "2025-10-25", "2025-10-27"
	_, err = svc.Create(ctx, input, staffViewer)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.ErrorIs(t, err, ErrBookingConflict)

	input.CheckInDate, input.CheckOutDate = "2025-10-26", "2025-10-28"
	_, err = svc.Create(ctx, input, staffViewer)
	assert.NoError(t, err, "check-out day is free for the next guest")
}

func TestBookingService_CreateValidation(t *testing.T) {
	_, svc, _ := newBookingFixture(time.Date(2025, 10, 20, 8, 0, 0, 0, time.UTC))
	ctx := context.Background()
	number, missing := "101", "999"

	cases := []struct {
		name  string
		input BookingInput
		field string
	}{
		{"reversed dates", BookingInput{PropertyID: 1, CustomerID: 3, CheckInDate: "2025-10-26", CheckOutDate: "2025-10-24", NumberOfGuests: 1, RoomNumber: &number}, "check_out_date"},
		{"bad date", BookingInput{PropertyID: 1, CustomerID: 3, CheckInDate: "24/10/2025", CheckOutDate: "2025-10-26", NumberOfGuests: 1, RoomNumber: &number}, "check_in_date"},
		{"hotel without room", BookingInput{PropertyID: 1, CustomerID: 3, CheckInDate: "2025-10-24", CheckOutDate: "2025-10-26", NumberOfGuests: 1}, "room_number"},
		{"unknown room", BookingInput{PropertyID: 1, CustomerID: 3, CheckInDate: "2025-10-24", CheckOutDate: "2025-10-26", NumberOfGuests: 1, RoomNumber: &missing}, "room_number"},
		{"too many guests", BookingInput{PropertyID: 1, CustomerID: 3, CheckInDate: "2025-10-24", CheckOutDate: "2025-10-26", NumberOfGuests: 3, RoomNumber: &number}, "number_of_guests"},
		{"missing customer", BookingInput{PropertyID: 1, CustomerID: 44, CheckInDate: "2025-10-24", CheckOutDate: "2025-10-26", NumberOfGuests: 1, RoomNumber: &number}, "customer_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.input, staffViewer)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestBookingService_ExpireSweep(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	store, svc, _ := newBookingFixture(t0)
	store.properties.items[1] = func() models.Property {
		p := store.properties.items[1]
		p.PropertyType = models.PropertyTypeHouse
		p.RentPeriod = models.RentPeriodMonth
		return p
	}()

	unpaid := seedStay(store, t0, models.BookingPaymentPending)
	partial := seedStay(store, t0, models.BookingPaymentPartial)
	fresh := seedStay(store, t0.Add(5*time.Hour), models.BookingPaymentPending)

	store.clock = t0.Add(13 * time.Hour)

	dry, err := svc.ExpireSweep(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, []uint{unpaid.ID}, dry.IDs)
	still, _ := store.bookings.FindByID(context.Background(), unpaid.ID)
	assert.Equal(t, models.BookingStatusPending, still.BookingStatus, "dry run changes nothing")

	result, err := svc.ExpireSweep(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Checked)
	assert.Equal(t, 1, result.Expired)
	assert.Equal(t, []uint{unpaid.ID}, result.IDs)

	cancelled, _ := store.bookings.FindByID(context.Background(), unpaid.ID)
	assert.Equal(t, models.BookingStatusCancelled, cancelled.BookingStatus)
	assert.Contains(t, cancelled.CancellationReason, "12 hours")
	require.NotNil(t, cancelled.CancelledAt)

	for _, id := range []uint{partial.ID, fresh.ID} {
		b, _ := store.bookings.FindByID(context.Background(), id)
		assert.Equal(t, models.BookingStatusPending, b.BookingStatus)
	}
	assert.Contains(t, store.audit.actions(), models.AuditExpire)
}

func seedStay(store *memStore, created time.Time, paymentStatus string) *models.Booking {
	b := &models.Booking{
		BookingReference: "HSE-" + created.Format("150405") + paymentStatus,
		PropertyID:       1,
		CustomerID:       3,
		CheckInDate:      models.Day(created).AddDate(0, 0, 3),
		CheckOutDate:     models.Day(created).AddDate(0, 1, 3),
		NumberOfGuests:   1,
		BookingStatus:    models.BookingStatusPending,
		PaymentStatus:    paymentStatus,
		CreatedAt:        created,
	}
	_ = store.bookings.Create(context.Background(), b)
	return b
}

func TestBookingService_CancelAndNoShow(t *testing.T) {
	store, svc, _ := newBookingFixture(time.Date(2025, 10, 24, 8, 0, 0, 0, time.UTC))
	ctx := context.Background()
	number := "101"
	guest := models.Viewer{UserID: 40, Role: models.RoleTenant, Email: "JUMA@example.com"}
	stranger := models.Viewer{UserID: 41, Role: models.RoleTenant, Email: "other@example.com"}

	booking, err := svc.Create(ctx, BookingInput{
		PropertyID: 1, CustomerID: 3, CheckInDate: "2025-10-24", CheckOutDate: "2025-10-26", NumberOfGuests: 1, RoomNumber: &number,
	}, staffViewer)
	require.NoError(t, err)

	_, err = svc.Transition(ctx, booking.ID, statemachine.ActionConfirm, "", guest)
	assert.ErrorIs(t, err, ErrPermissionDenied, "guests may only cancel")
	_, err = svc.Transition(ctx, booking.ID, statemachine.ActionCancel, "", stranger)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Transition(ctx, booking.ID, "teleport", "", staffViewer)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	cancelled, err := svc.Transition(ctx, booking.ID, statemachine.ActionCancel, "plans changed", guest)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, cancelled.BookingStatus)
	assert.Equal(t, "plans changed", cancelled.CancellationReason)
	require.NotNil(t, cancelled.CancelledAt)
	assert.Contains(t, store.audit.actions(), models.AuditCancel)

	_, err = svc.Transition(ctx, booking.ID, statemachine.ActionCheckIn, "", staffViewer)
	assert.ErrorIs(t, err, ErrInvalidTransition, "cancelled is terminal")

	second, err := svc.Create(ctx, BookingInput{
		PropertyID: 1, CustomerID: 3, CheckInDate: "2025-10-24", CheckOutDate: "2025-10-26", NumberOfGuests: 1, RoomNumber: &number,
	}, staffViewer)
	require.NoError(t, err, "a cancelled booking frees the dates")
	_, err = svc.Transition(ctx, second.ID, statemachine.ActionConfirm, "", staffViewer)
	require.NoError(t, err)
	require.Equal(t, models.RoomStatusOccupied, room101(t, store).Status)

	noShow, err := svc.Transition(ctx, second.ID, statemachine.ActionNoShow, "", staffViewer)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusNoShow, noShow.BookingStatus)
	assert.Equal(t, models.RoomStatusAvailable, room101(t, store).Status)
}

func TestBookingService_UpdateAndRecompute(t *testing.T) {
	store, svc, _ := newBookingFixture(time.Date(2025, 10, 20, 8, 0, 0, 0, time.UTC))
	ctx := context.Background()
	number := "101"
	booking, err := svc.Create(ctx, BookingInput{
		PropertyID: 1, CustomerID: 3, CheckInDate: "2025-10-24", CheckOutDate: "2025-10-26", NumberOfGuests: 1, RoomNumber: &number,
	}, staffViewer)
	require.NoError(t, err)

	checkOut := "2025-10-28"
	updated, err := svc.Update(ctx, booking.ID, BookingUpdateInput{CheckOutDate: &checkOut}, staffViewer)
	require.NoError(t, err)
	assert.True(t, updated.TotalAmount.Equal(amount("200")), "four nights at 50")

	guests := 3
	_, err = svc.Update(ctx, booking.ID, BookingUpdateInput{NumberOfGuests: &guests}, staffViewer)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "number_of_guests", verr.Field)

	p := store.properties.items[1]
	p.RentAmount = amount("60")
	store.properties.items[1] = p

	_, err = svc.RecomputeTotal(ctx, booking.ID, models.Viewer{UserID: 5, Role: models.RoleOwner})
	assert.ErrorIs(t, err, ErrPermissionDenied)
	repriced, err := svc.RecomputeTotal(ctx, booking.ID, staffViewer)
	require.NoError(t, err)
	assert.True(t, repriced.TotalAmount.Equal(amount("240")))

	_, err = svc.Transition(ctx, booking.ID, statemachine.ActionConfirm, "", staffViewer)
	require.NoError(t, err)
	_, err = svc.Update(ctx, booking.ID, BookingUpdateInput{CheckOutDate: &checkOut}, staffViewer)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "booking_status", verr.Field)
}

func TestBookingService_Delete(t *testing.T) {
	store, svc, ledger := newBookingFixture(time.Date(2025, 10, 20, 8, 0, 0, 0, time.UTC))
	ctx := context.Background()
	number := "101"

	unpaid, err := svc.Create(ctx, BookingInput{PropertyID: 1, CustomerID: 3, CheckInDate: "2025-10-24", CheckOutDate: "2025-10-26", NumberOfGuests: 1, RoomNumber: &number}, staffViewer)
	require.NoError(t, err)
	paid, err := svc.Create(ctx, BookingInput{PropertyID: 1, CustomerID: 3, CheckInDate: "2025-11-02", CheckOutDate: "2025-11-04", NumberOfGuests: 1, RoomNumber: &number}, staffViewer)
	require.NoError(t, err)
	_, _, err = ledger.RecordBookingPayment(ctx, paid.ID, BookingPaymentInput{Amount: amount("50"), PaymentMethod: models.PaymentMethodCash}, staffViewer)
	require.NoError(t, err)

	err = svc.Delete(ctx, unpaid.ID, models.Viewer{UserID: 5, Role: models.RoleOwner})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	err = svc.Delete(ctx, paid.ID, staffViewer)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr, "bookings with payments are cancelled, not deleted")
	assert.Contains(t, store.bookings.items, paid.ID)

	require.NoError(t, svc.Delete(ctx, unpaid.ID, staffViewer))
	assert.NotContains(t, store.bookings.items, unpaid.ID)
	assert.Equal(t, 1, countActions(store.audit.actions(), models.AuditDelete))

	assert.ErrorIs(t, svc.Delete(ctx, unpaid.ID, staffViewer), ErrNotFound)
}
