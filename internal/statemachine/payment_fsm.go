package statemachine

import (
	"context"
	"fmt"

	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"github.com/looplab/fsm"
)

// PaymentFSM wraps a ledger payment with its state machine
type PaymentFSM struct {
	payment *models.Payment
	fsm     *fsm.FSM
}

// NewPaymentFSM creates a new payment state machine
func NewPaymentFSM(payment *models.Payment) *PaymentFSM {
	pfsm := &PaymentFSM{
		payment: payment,
	}

	pfsm.fsm = fsm.NewFSM(
		payment.Status,
		fsm.Events{
			// pending → completed (cash on create, gateway on verification)
			{Name: "complete", Src: []string{models.PaymentStatusPending}, Dst: models.PaymentStatusCompleted},

			// pending → failed
			{Name: "fail", Src: []string{models.PaymentStatusPending}, Dst: models.PaymentStatusFailed},

			// pending → cancelled
			{Name: "cancel", Src: []string{models.PaymentStatusPending}, Dst: models.PaymentStatusCancelled},

			// completed → refunded
			{Name: "refund", Src: []string{models.PaymentStatusCompleted}, Dst: models.PaymentStatusRefunded},

			// failed → pending (new gateway attempt)
			{Name: "retry", Src: []string{models.PaymentStatusFailed}, Dst: models.PaymentStatusPending},
		},
		fsm.Callbacks{},
	)

	return pfsm
}

// Complete transitions payment to completed state
func (p *PaymentFSM) Complete(ctx context.Context) error {
	if !p.payment.MayComplete() {
		return &TransitionError{Entity: "payment", From: p.payment.Status, Action: "complete"}
	}

	if err := p.fsm.Event(ctx, "complete"); err != nil {
		return fmt.Errorf("failed to complete payment: %w", err)
	}

	p.payment.Status = p.fsm.Current()
	return nil
}

// Fail transitions payment to failed state
func (p *PaymentFSM) Fail(ctx context.Context) error {
	if !p.payment.MayFail() {
		return &TransitionError{Entity: "payment", From: p.payment.Status, Action: "fail"}
	}

	if err := p.fsm.Event(ctx, "fail"); err != nil {
		return fmt.Errorf("failed to fail payment: %w", err)
	}

	p.payment.Status = p.fsm.Current()
	return nil
}

// Cancel transitions payment to cancelled state
func (p *PaymentFSM) Cancel(ctx context.Context) error {
	if p.payment.Status != models.PaymentStatusPending {
		return &TransitionError{Entity: "payment", From: p.payment.Status, Action: "cancel"}
	}

	if err := p.fsm.Event(ctx, "cancel"); err != nil {
		return fmt.Errorf("failed to cancel payment: %w", err)
	}

	p.payment.Status = p.fsm.Current()
	return nil
}

// Refund transitions payment to refunded state
func (p *PaymentFSM) Refund(ctx context.Context) error {
	if !p.payment.MayRefund() {
		return &TransitionError{Entity: "payment", From: p.payment.Status, Action: "refund"}
	}

	if err := p.fsm.Event(ctx, "refund"); err != nil {
		return fmt.Errorf("failed to refund payment: %w", err)
	}

	p.payment.Status = p.fsm.Current()
	return nil
}

// Retry moves a failed payment back to pending
func (p *PaymentFSM) Retry(ctx context.Context) error {
	if p.payment.Status != models.PaymentStatusFailed {
		return &TransitionError{Entity: "payment", From: p.payment.Status, Action: "retry"}
	}

	if err := p.fsm.Event(ctx, "retry"); err != nil {
		return fmt.Errorf("failed to retry payment: %w", err)
	}

	p.payment.Status = p.fsm.Current()
	return nil
}

// Current returns the current state
func (p *PaymentFSM) Current() string {
	return p.fsm.Current()
}

// Can checks if an event can be triggered
func (p *PaymentFSM) Can(event string) bool {
	return p.fsm.Can(event)
}
