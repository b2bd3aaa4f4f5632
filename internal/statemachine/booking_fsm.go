package statemachine

import (
	"context"
	"fmt"
	"time"

	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"github.com/looplab/fsm"
)

// Booking actions
const (
	ActionConfirm  = "confirm"
	ActionCheckIn  = "check_in"
	ActionCheckOut = "check_out"
	ActionCancel   = "cancel"
	ActionNoShow   = "no_show"
)

// BookingFSM wraps a booking with its state machine
type BookingFSM struct {
	booking *models.Booking
	fsm     *fsm.FSM
	now     func() time.Time
}

// NewBookingFSM creates a new booking state machine
func NewBookingFSM(booking *models.Booking) *BookingFSM {
	return NewBookingFSMAt(booking, time.Now)
}

// NewBookingFSMAt creates a booking state machine stamping times from now.
func NewBookingFSMAt(booking *models.Booking, now func() time.Time) *BookingFSM {
	bfsm := &BookingFSM{
		booking: booking,
		now:     now,
	}

	bfsm.fsm = fsm.NewFSM(
		booking.BookingStatus,
		fsm.Events{
			// pending → confirmed
			{Name: ActionConfirm, Src: []string{models.BookingStatusPending}, Dst: models.BookingStatusConfirmed},

			// confirmed → checked_in
			{Name: ActionCheckIn, Src: []string{models.BookingStatusConfirmed}, Dst: models.BookingStatusCheckedIn},

			// checked_in → checked_out
			{Name: ActionCheckOut, Src: []string{models.BookingStatusCheckedIn}, Dst: models.BookingStatusCheckedOut},

			// pending/confirmed → cancelled
			{Name: ActionCancel, Src: []string{models.BookingStatusPending, models.BookingStatusConfirmed}, Dst: models.BookingStatusCancelled},

			// pending/confirmed → no_show
			{Name: ActionNoShow, Src: []string{models.BookingStatusPending, models.BookingStatusConfirmed}, Dst: models.BookingStatusNoShow},
		},
		fsm.Callbacks{
			"enter_" + models.BookingStatusConfirmed: func(_ context.Context, _ *fsm.Event) {
				t := bfsm.now()
				bfsm.booking.ConfirmedAt = &t
			},
			"enter_" + models.BookingStatusCheckedIn: func(_ context.Context, _ *fsm.Event) {
				t := bfsm.now()
				bfsm.booking.CheckedInAt = &t
			},
			"enter_" + models.BookingStatusCheckedOut: func(_ context.Context, _ *fsm.Event) {
				t := bfsm.now()
				bfsm.booking.CheckedOutAt = &t
			},
			"enter_" + models.BookingStatusCancelled: func(_ context.Context, _ *fsm.Event) {
				t := bfsm.now()
				bfsm.booking.CancelledAt = &t
			},
		},
	)

	return bfsm
}

// Fire applies a named action.
func (b *BookingFSM) Fire(ctx context.Context, action string) error {
	var allowed bool
	switch action {
	case ActionConfirm:
		allowed = b.booking.MayConfirm()
	case ActionCheckIn:
		allowed = b.booking.MayCheckIn()
	case ActionCheckOut:
		allowed = b.booking.MayCheckOut()
	case ActionCancel:
		allowed = b.booking.MayCancel()
	case ActionNoShow:
		allowed = b.booking.MayMarkNoShow()
	default:
		return fmt.Errorf("unknown booking action %q: %w", action, ErrInvalidTransition)
	}
	if !allowed {
		return &TransitionError{Entity: "booking", From: b.booking.BookingStatus, Action: action}
	}

	if err := b.fsm.Event(ctx, action); err != nil {
		return fmt.Errorf("failed to %s booking: %w", action, err)
	}

	b.booking.BookingStatus = b.fsm.Current()
	return nil
}

// Confirm transitions booking to confirmed state
func (b *BookingFSM) Confirm(ctx context.Context) error {
	return b.Fire(ctx, ActionConfirm)
}

// CheckIn transitions booking to checked_in state
func (b *BookingFSM) CheckIn(ctx context.Context) error {
	return b.Fire(ctx, ActionCheckIn)
}

// CheckOut transitions booking to checked_out state
func (b *BookingFSM) CheckOut(ctx context.Context) error {
	return b.Fire(ctx, ActionCheckOut)
}

// Cancel transitions booking to cancelled state, keeping the reason
func (b *BookingFSM) Cancel(ctx context.Context, reason string) error {
	if err := b.Fire(ctx, ActionCancel); err != nil {
		return err
	}
	b.booking.CancellationReason = reason
	return nil
}

// NoShow transitions booking to no_show state
func (b *BookingFSM) NoShow(ctx context.Context) error {
	return b.Fire(ctx, ActionNoShow)
}

// Current returns the current state
func (b *BookingFSM) Current() string {
	return b.fsm.Current()
}

// Can checks if an event can be triggered
func (b *BookingFSM) Can(event string) bool {
	return b.fsm.Can(event)
}
