package events

import (
	"context"
	"errors"
	"testing"

	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublish_RunsHandlersInOrder(t *testing.T) {
	bus := NewBus()
	var calls []string

	On(bus, "ledger", func(ctx context.Context, e PaymentSaved) error {
		calls = append(calls, "ledger:"+e.Payment.Status)
		return nil
	})
	On(bus, "audit", func(ctx context.Context, e PaymentSaved) error {
		calls = append(calls, "audit")
		return nil
	})
	On(bus, "rooms", func(ctx context.Context, e BookingSaved) error {
		calls = append(calls, "rooms")
		return nil
	})

	err := bus.Publish(context.Background(), PaymentSaved{Payment: &models.Payment{Status: models.PaymentStatusCompleted}})
	require.NoError(t, err)
	assert.Equal(t, []string{"ledger:completed", "audit"}, calls)
	assert.Equal(t, []string{"ledger", "audit"}, bus.Subscribers(PaymentSavedEvent))
}

func TestPublish_StopsAtFirstError(t *testing.T) {
	bus := NewBus()
	boom := errors.New("boom")
	called := false

	On(bus, "rooms", func(ctx context.Context, e BookingSaved) error { return boom })
	On(bus, "property", func(ctx context.Context, e BookingSaved) error {
		called = true
		return nil
	})

	err := bus.Publish(context.Background(), BookingSaved{Booking: &models.Booking{}})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "booking.saved: rooms")
	assert.False(t, called)
}

func TestPublish_NoSubscribers(t *testing.T) {
	bus := NewBus()
	assert.NoError(t, bus.Publish(context.Background(), LeaseSaved{Lease: &models.Lease{}}))
}

func TestPublish_CancelledContext(t *testing.T) {
	bus := NewBus()
	On(bus, "noop", func(ctx context.Context, e BookingDeleted) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, bus.Publish(ctx, BookingDeleted{BookingID: 1}), context.Canceled)
}
