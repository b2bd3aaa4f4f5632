package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PaymentTransaction logs one gateway attempt for a payment
type PaymentTransaction struct {
	ID                   uint           `gorm:"primaryKey" json:"id"`
	PaymentID            uint           `gorm:"not null;index" json:"payment_id"`
	Provider             string         `gorm:"size:30;not null" json:"provider"`
	Reference            string         `gorm:"size:100;uniqueIndex;not null" json:"reference"`
	GatewayTransactionID string         `gorm:"size:100;index" json:"gateway_transaction_id"`
	Status               string         `gorm:"size:20;default:initiated;index" json:"status"`
	RequestPayload       datatypes.JSON `json:"request_payload,omitempty"`
	ResponsePayload      datatypes.JSON `json:"response_payload,omitempty"`
	CallbackPayload      datatypes.JSON `json:"callback_payload,omitempty"`
	ErrorMessage         string         `gorm:"type:text" json:"error_message,omitempty"`
	CompletedAt          *time.Time     `json:"completed_at"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`

	Payment Payment `gorm:"foreignKey:PaymentID" json:"-"`
}

// TableName specifies the table name for PaymentTransaction
func (PaymentTransaction) TableName() string {
	return "payment_transactions"
}

// Transaction status constants
const (
	TransactionStatusInitiated  = "initiated"
	TransactionStatusProcessing = "processing"
	TransactionStatusSuccessful = "successful"
	TransactionStatusFailed     = "failed"
)

func (t *PaymentTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.Status == "" {
		t.Status = TransactionStatusInitiated
	}
	return nil
}

// IsFinal reports whether the transaction has settled either way.
func (t *PaymentTransaction) IsFinal() bool {
	return t.Status == TransactionStatusSuccessful || t.Status == TransactionStatusFailed
}

// PropertyVisitPayment grants a user one-time access to a house listing's
// owner contact and exact location.
type PropertyVisitPayment struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	PropertyID uint            `gorm:"not null;uniqueIndex:idx_visit_property_user" json:"property_id"`
	UserID     uint            `gorm:"not null;uniqueIndex:idx_visit_property_user" json:"user_id"`
	Amount     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Status     string          `gorm:"size:20;default:pending" json:"status"`
	PaymentID  *uint           `json:"payment_id"`
	PaidAt     *time.Time      `json:"paid_at"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`

	Property Property `gorm:"foreignKey:PropertyID" json:"-"`
}

// TableName specifies the table name for PropertyVisitPayment
func (PropertyVisitPayment) TableName() string {
	return "property_visit_payments"
}

// Visit payment status constants
const (
	VisitStatusPending   = "pending"
	VisitStatusCompleted = "completed"
	VisitStatusFailed    = "failed"
)

// Unlocked reports whether the visitor may see the owner's details.
func (v *PropertyVisitPayment) Unlocked() bool {
	return v.Status == VisitStatusCompleted
}
