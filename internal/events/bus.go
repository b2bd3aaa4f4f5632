// Package events is a synchronous in-process event bus. Handlers run in the
// publisher's goroutine with the publisher's context, so they join whatever
// database transaction the context carries and a handler error aborts it.
package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
)

// Event is anything published on the bus.
type Event interface {
	EventName() string
}

// Event names
const (
	PaymentSavedEvent   = "payment.saved"
	BookingSavedEvent   = "booking.saved"
	BookingDeletedEvent = "booking.deleted"
	LeaseSavedEvent     = "lease.saved"
)

// PaymentSaved is published after a ledger row is inserted or its status
// changes.
type PaymentSaved struct {
	Payment        *models.Payment
	PreviousStatus string
}

func (PaymentSaved) EventName() string { return PaymentSavedEvent }

// BookingSaved is published after a booking is inserted or updated.
// PreviousRoom is set when the booking moved away from a room.
type BookingSaved struct {
	Booking      *models.Booking
	PreviousRoom *string
}

func (BookingSaved) EventName() string { return BookingSavedEvent }

// BookingDeleted carries the identifying fields of a removed booking.
type BookingDeleted struct {
	BookingID  uint
	PropertyID uint
	RoomNumber *string
}

func (BookingDeleted) EventName() string { return BookingDeletedEvent }

// LeaseSaved is published after a lease is inserted or its status changes.
type LeaseSaved struct {
	Lease *models.Lease
}

func (LeaseSaved) EventName() string { return LeaseSavedEvent }

// Handler reacts to an event.
type Handler func(ctx context.Context, e Event) error

// Bus dispatches events to subscribers in subscription order.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]namedHandler
}

type namedHandler struct {
	name string
	fn   Handler
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]namedHandler)}
}

// Subscribe registers fn for events named event. name identifies the
// subscriber in errors.
func (b *Bus) Subscribe(event, name string, fn Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], namedHandler{name: name, fn: fn})
}

// On registers a typed handler for events of type T.
func On[T Event](b *Bus, name string, fn func(ctx context.Context, e T) error) {
	var zero T
	b.Subscribe(zero.EventName(), name, func(ctx context.Context, e Event) error {
		typed, ok := e.(T)
		if !ok {
			return fmt.Errorf("subscriber %s: unexpected event %T", name, e)
		}
		return fn(ctx, typed)
	})
}

// Publish runs every handler for e and stops at the first error.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	b.mu.RLock()
	handlers := append([]namedHandler(nil), b.handlers[e.EventName()]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := h.fn(ctx, e); err != nil {
			return fmt.Errorf("%s: %s: %w", e.EventName(), h.name, err)
		}
	}
	return nil
}

// Subscribers returns the subscriber names for an event.
func (b *Bus) Subscribers(event string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.handlers[event]))
	for _, h := range b.handlers[event] {
		names = append(names, h.name)
	}
	return names
}
