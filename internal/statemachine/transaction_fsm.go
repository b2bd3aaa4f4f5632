package statemachine

import (
	"context"
	"fmt"
	"time"

	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"github.com/looplab/fsm"
)

// TransactionFSM drives a gateway attempt. Transitions only move forward,
// so replayed callbacks cannot undo a settled attempt.
type TransactionFSM struct {
	txn *models.PaymentTransaction
	fsm *fsm.FSM
}

// NewTransactionFSM creates a new gateway transaction state machine
func NewTransactionFSM(txn *models.PaymentTransaction) *TransactionFSM {
	tfsm := &TransactionFSM{txn: txn}

	tfsm.fsm = fsm.NewFSM(
		txn.Status,
		fsm.Events{
			{Name: "process", Src: []string{models.TransactionStatusInitiated}, Dst: models.TransactionStatusProcessing},
			{Name: "succeed", Src: []string{models.TransactionStatusInitiated, models.TransactionStatusProcessing}, Dst: models.TransactionStatusSuccessful},
			{Name: "fail", Src: []string{models.TransactionStatusInitiated, models.TransactionStatusProcessing}, Dst: models.TransactionStatusFailed},
		},
		fsm.Callbacks{},
	)

	return tfsm
}

// Apply moves the transaction towards status. It reports whether anything
// changed; a move that would go backwards or sideways is ignored.
func (t *TransactionFSM) Apply(ctx context.Context, status string, at time.Time) (bool, error) {
	var event string
	switch status {
	case models.TransactionStatusProcessing:
		event = "process"
	case models.TransactionStatusSuccessful:
		event = "succeed"
	case models.TransactionStatusFailed:
		event = "fail"
	default:
		return false, nil
	}
	if !t.fsm.Can(event) {
		return false, nil
	}
	if err := t.fsm.Event(ctx, event); err != nil {
		return false, fmt.Errorf("failed to update transaction: %w", err)
	}
	t.txn.Status = t.fsm.Current()
	if t.txn.IsFinal() {
		t.txn.CompletedAt = &at
	}
	return true, nil
}

// Current returns the current state
func (t *TransactionFSM) Current() string {
	return t.fsm.Current()
}
