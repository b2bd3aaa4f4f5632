package statemachine

import (
	"context"
	"testing"
	"time"

	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time { return time.Date(2025, 10, 24, 10, 0, 0, 0, time.UTC) }

func TestBookingFSM_HappyPath(t *testing.T) {
	ctx := context.Background()
	b := &models.Booking{BookingStatus: models.BookingStatusPending}
	f := NewBookingFSMAt(b, fixedNow)

	require.NoError(t, f.Confirm(ctx))
	assert.Equal(t, models.BookingStatusConfirmed, b.BookingStatus)
	require.NotNil(t, b.ConfirmedAt)
	assert.Equal(t, fixedNow(), *b.ConfirmedAt)

	require.NoError(t, f.CheckIn(ctx))
	require.NotNil(t, b.CheckedInAt)

	require.NoError(t, f.CheckOut(ctx))
	assert.Equal(t, models.BookingStatusCheckedOut, b.BookingStatus)
	require.NotNil(t, b.CheckedOutAt)
}

func TestBookingFSM_IllegalTransitions(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		from   string
		action string
	}{
		{models.BookingStatusPending, ActionCheckIn},
		{models.BookingStatusPending, ActionCheckOut},
		{models.BookingStatusConfirmed, ActionConfirm},
		{models.BookingStatusCheckedIn, ActionCancel},
		{models.BookingStatusCheckedIn, ActionNoShow},
		{models.BookingStatusCancelled, ActionConfirm},
		{models.BookingStatusCheckedOut, ActionCancel},
		{models.BookingStatusNoShow, ActionCheckIn},
	}

	for _, tt := range tests {
		t.Run(tt.from+"_"+tt.action, func(t *testing.T) {
			b := &models.Booking{BookingStatus: tt.from}
			err := NewBookingFSM(b).Fire(ctx, tt.action)
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, tt.from, b.BookingStatus)
		})
	}
}

func TestBookingFSM_CancelKeepsReason(t *testing.T) {
	b := &models.Booking{BookingStatus: models.BookingStatusConfirmed}
	require.NoError(t, NewBookingFSMAt(b, fixedNow).Cancel(context.Background(), "expired"))
	assert.Equal(t, models.BookingStatusCancelled, b.BookingStatus)
	assert.Equal(t, "expired", b.CancellationReason)
	assert.NotNil(t, b.CancelledAt)
}

func TestBookingFSM_UnknownAction(t *testing.T) {
	b := &models.Booking{BookingStatus: models.BookingStatusPending}
	assert.ErrorIs(t, NewBookingFSM(b).Fire(context.Background(), "teleport"), ErrInvalidTransition)
}

func TestTransitionError_Message(t *testing.T) {
	err := &TransitionError{Entity: "booking", From: "checked_in", Action: ActionCancel}
	assert.Equal(t, "booking cannot be cancelled in current state: checked_in", err.Error())
}

func TestPaymentFSM(t *testing.T) {
	ctx := context.Background()

	p := &models.Payment{Status: models.PaymentStatusPending, PaymentType: models.PaymentTypeRent}
	f := NewPaymentFSM(p)
	require.NoError(t, f.Complete(ctx))
	assert.Equal(t, models.PaymentStatusCompleted, p.Status)
	assert.ErrorIs(t, f.Complete(ctx), ErrInvalidTransition)
	require.NoError(t, f.Refund(ctx))
	assert.Equal(t, models.PaymentStatusRefunded, p.Status)

	failed := &models.Payment{Status: models.PaymentStatusPending}
	ff := NewPaymentFSM(failed)
	require.NoError(t, ff.Fail(ctx))
	require.NoError(t, ff.Retry(ctx))
	assert.Equal(t, models.PaymentStatusPending, failed.Status)
}

func TestReminderFSM(t *testing.T) {
	ctx := context.Background()
	now := fixedNow()

	r := &models.Reminder{ReminderStatus: models.ReminderStatusScheduled}
	f := NewReminderFSM(r)
	require.NoError(t, f.MarkFailed(ctx, "no_template"))
	assert.Equal(t, models.ReminderStatusFailed, r.ReminderStatus)
	assert.Equal(t, "no_template", r.ErrorMessage)

	require.NoError(t, f.MarkFailed(ctx, "smtp down"))
	assert.Equal(t, "smtp down", r.ErrorMessage)

	require.NoError(t, f.MarkSent(ctx, now, "msg-1"))
	assert.Equal(t, models.ReminderStatusSent, r.ReminderStatus)
	assert.Equal(t, "msg-1", r.DeliveryReference)
	assert.Empty(t, r.ErrorMessage)

	assert.ErrorIs(t, f.Cancel(ctx), ErrInvalidTransition)
	assert.ErrorIs(t, f.MarkFailed(ctx, "late"), ErrInvalidTransition)
}

func TestTransactionFSM_Monotone(t *testing.T) {
	ctx := context.Background()
	now := fixedNow()

	txn := &models.PaymentTransaction{Status: models.TransactionStatusInitiated}
	f := NewTransactionFSM(txn)

	changed, err := f.Apply(ctx, models.TransactionStatusSuccessful, now)
	require.NoError(t, err)
	assert.True(t, changed)
	require.NotNil(t, txn.CompletedAt)

	changed, err = f.Apply(ctx, models.TransactionStatusSuccessful, now)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = f.Apply(ctx, models.TransactionStatusFailed, now)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, models.TransactionStatusSuccessful, txn.Status)
}
