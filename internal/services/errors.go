package services

import (
	"errors"
	"fmt"

	"github.com/Intruder289/maishaap-backend-sub002/internal/repository"
	"github.com/Intruder289/maishaap-backend-sub002/internal/statemachine"
	"github.com/Intruder289/maishaap-backend-sub002/pkg/money"
	"github.com/shopspring/decimal"
)

// Common service errors
var (
	ErrNotFound           = errors.New("record not found")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrBookingConflict    = errors.New("the selected dates overlap an existing booking")
	ErrInvalidTransition  = statemachine.ErrInvalidTransition
	ErrOverpayment        = errors.New("payment exceeds the outstanding balance")
	ErrValidation         = errors.New("validation failed")
	ErrGateway            = errors.New("payment gateway error")
	ErrTemplateMissing    = errors.New("no active default template")
	ErrMissingContact     = errors.New("no phone number available for this payment")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInactiveAccount    = errors.New("account is inactive or suspended")
	ErrInvalidToken       = errors.New("invalid or expired refresh token")
	ErrDuplicate          = errors.New("record already exists")
)

// TransitionError is an illegal state-machine move.
type TransitionError = statemachine.TransitionError

// ValidationError reports a bad input field or a broken domain rule.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// OverpaymentError carries the largest amount that would have been accepted.
// Pending is the sum of unsettled payments already holding the balance.
type OverpaymentError struct {
	Allowed   decimal.Decimal
	Requested decimal.Decimal
	Pending   decimal.Decimal
}

func (e *OverpaymentError) Error() string {
	if !e.Allowed.IsPositive() {
		if e.Pending.IsPositive() {
			return fmt.Sprintf("pending payments of %s already cover the remaining balance", money.Format(e.Pending))
		}
		return "already fully paid"
	}
	return fmt.Sprintf("payment of %s exceeds the remaining balance, maximum allowed is %s",
		money.Format(e.Requested), money.Format(e.Allowed))
}

func (e *OverpaymentError) Unwrap() error { return ErrOverpayment }

// GatewayError wraps a provider failure.
type GatewayError struct {
	Provider string
	Op       string
	Err      error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

func (e *GatewayError) Is(target error) bool { return target == ErrGateway }

// ConflictError names the booking a new stay collides with.
type ConflictError struct {
	PropertyID uint
	RoomNumber *string
}

func (e *ConflictError) Error() string {
	if e.RoomNumber != nil {
		return fmt.Sprintf("room %s is already booked for the selected dates", *e.RoomNumber)
	}
	return "property is already booked for the selected dates"
}

func (e *ConflictError) Unwrap() error { return ErrBookingConflict }

// notFound translates gorm's missing-row error.
func notFound(err error) error {
	if repository.IsNotFound(err) {
		return ErrNotFound
	}
	return err
}
