package statemachine

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is wrapped by every rejected state change.
var ErrInvalidTransition = errors.New("invalid state transition")

// TransitionError describes an illegal move.
type TransitionError struct {
	Entity string
	From   string
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s cannot be %s in current state: %s", e.Entity, pastTense(e.Action), e.From)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

func pastTense(action string) string {
	switch action {
	case "confirm":
		return "confirmed"
	case "check_in":
		return "checked in"
	case "check_out":
		return "checked out"
	case "cancel":
		return "cancelled"
	case "no_show":
		return "marked as no-show"
	case "complete":
		return "completed"
	case "fail":
		return "failed"
	case "refund":
		return "refunded"
	case "send":
		return "sent"
	case "process":
		return "processed"
	case "succeed":
		return "marked successful"
	case "retry":
		return "retried"
	}
	return action
}
