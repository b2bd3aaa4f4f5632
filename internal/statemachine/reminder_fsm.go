package statemachine

import (
	"context"
	"fmt"
	"time"

	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"github.com/looplab/fsm"
)

// ReminderFSM wraps a reminder with its delivery state machine.
// sent and cancelled are terminal.
type ReminderFSM struct {
	reminder *models.Reminder
	fsm      *fsm.FSM
}

// NewReminderFSM creates a new reminder state machine
func NewReminderFSM(reminder *models.Reminder) *ReminderFSM {
	rfsm := &ReminderFSM{reminder: reminder}

	rfsm.fsm = fsm.NewFSM(
		reminder.ReminderStatus,
		fsm.Events{
			{Name: "send", Src: []string{models.ReminderStatusScheduled, models.ReminderStatusFailed}, Dst: models.ReminderStatusSent},
			{Name: "fail", Src: []string{models.ReminderStatusScheduled}, Dst: models.ReminderStatusFailed},
			{Name: "cancel", Src: []string{models.ReminderStatusScheduled, models.ReminderStatusFailed}, Dst: models.ReminderStatusCancelled},
		},
		fsm.Callbacks{},
	)

	return rfsm
}

// MarkSent records a successful delivery.
func (r *ReminderFSM) MarkSent(ctx context.Context, at time.Time, deliveryReference string) error {
	if !r.reminder.MaySend() {
		return &TransitionError{Entity: "reminder", From: r.reminder.ReminderStatus, Action: "send"}
	}
	if err := r.fsm.Event(ctx, "send"); err != nil {
		return fmt.Errorf("failed to mark reminder sent: %w", err)
	}
	r.reminder.ReminderStatus = r.fsm.Current()
	r.reminder.SentAt = &at
	r.reminder.DeliveryStatus = "delivered"
	r.reminder.DeliveryReference = deliveryReference
	r.reminder.ErrorMessage = ""
	return nil
}

// MarkFailed records a failed delivery. A reminder that already failed
// keeps its state and takes the new error.
func (r *ReminderFSM) MarkFailed(ctx context.Context, reason string) error {
	switch r.reminder.ReminderStatus {
	case models.ReminderStatusFailed:
	case models.ReminderStatusScheduled:
		if err := r.fsm.Event(ctx, "fail"); err != nil {
			return fmt.Errorf("failed to mark reminder failed: %w", err)
		}
		r.reminder.ReminderStatus = r.fsm.Current()
	default:
		return &TransitionError{Entity: "reminder", From: r.reminder.ReminderStatus, Action: "fail"}
	}
	r.reminder.DeliveryStatus = "failed"
	r.reminder.ErrorMessage = reason
	return nil
}

// Cancel stops a reminder from being delivered.
func (r *ReminderFSM) Cancel(ctx context.Context) error {
	if !r.reminder.MayCancel() {
		return &TransitionError{Entity: "reminder", From: r.reminder.ReminderStatus, Action: "cancel"}
	}
	if err := r.fsm.Event(ctx, "cancel"); err != nil {
		return fmt.Errorf("failed to cancel reminder: %w", err)
	}
	r.reminder.ReminderStatus = r.fsm.Current()
	return nil
}

// Current returns the current state
func (r *ReminderFSM) Current() string {
	return r.fsm.Current()
}
