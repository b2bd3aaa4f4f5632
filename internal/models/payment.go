package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Payment is one row of the unified inbound-payment ledger. It is linked to
// exactly one target: a booking, a rent invoice, a lease or a visit.
type Payment struct {
	ID                  uint            `gorm:"primaryKey" json:"id"`
	PaymentType         string          `gorm:"size:20;not null;index" json:"payment_type"`
	BookingID           *uint           `gorm:"index" json:"booking_id"`
	RentInvoiceID       *uint           `gorm:"index" json:"rent_invoice_id"`
	LeaseID             *uint           `gorm:"index" json:"lease_id"`
	PropertyVisitID     *uint           `gorm:"index" json:"property_visit_id"`
	TenantID            *uint           `gorm:"index" json:"tenant_id"`
	Amount              decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	PaymentMethod       string          `gorm:"size:20;not null" json:"payment_method"`
	MobileMoneyProvider string          `gorm:"size:20" json:"mobile_money_provider,omitempty"`
	Status              string          `gorm:"size:20;default:pending;index" json:"status"`
	Provider            string          `gorm:"size:30" json:"provider,omitempty"`
	TransactionID       *string         `gorm:"size:100;index" json:"transaction_id"`
	ReferenceNumber     *string         `gorm:"size:100;index" json:"reference_number"`
	PaidDate            *time.Time      `gorm:"type:date" json:"paid_date"`
	RecordedByID        *uint           `json:"recorded_by_id"`
	RefundOfID          *uint           `gorm:"index" json:"refund_of_id,omitempty"`
	ReceiptPath         *string         `json:"-"`
	ProcessorResponse   datatypes.JSON  `json:"-"`
	Notes               string          `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt           time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`

	Booking     *Booking     `gorm:"foreignKey:BookingID" json:"-"`
	RentInvoice *RentInvoice `gorm:"foreignKey:RentInvoiceID" json:"-"`
	Lease       *Lease       `gorm:"foreignKey:LeaseID" json:"-"`
}

// TableName specifies the table name for Payment
func (Payment) TableName() string {
	return "payments"
}

// Payment status constants
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusCancelled = "cancelled"
	PaymentStatusRefunded  = "refunded"
)

// Payment type constants
const (
	PaymentTypeBooking = "booking"
	PaymentTypeRent    = "rent"
	PaymentTypeVisit   = "visit"
	PaymentTypeDeposit = "deposit"
	PaymentTypeRefund  = "refund"
)

// Payment method constants
const (
	PaymentMethodCash         = "cash"
	PaymentMethodMobileMoney  = "mobile_money"
	PaymentMethodOnline       = "online"
	PaymentMethodBankTransfer = "bank_transfer"
)

// Mobile money providers
var MobileMoneyProviders = []string{"AIRTEL", "TIGO", "MPESA", "HALOPESA"}

// ValidPaymentMethod reports whether m is accepted.
func ValidPaymentMethod(m string) bool {
	switch m {
	case PaymentMethodCash, PaymentMethodMobileMoney, PaymentMethodOnline, PaymentMethodBankTransfer:
		return true
	}
	return false
}

// ValidMobileMoneyProvider reports whether p is a supported network.
func ValidMobileMoneyProvider(p string) bool {
	for _, v := range MobileMoneyProviders {
		if v == p {
			return true
		}
	}
	return false
}

// IsGatewayMethod reports whether the method settles through the gateway.
func IsGatewayMethod(m string) bool {
	return m == PaymentMethodMobileMoney || m == PaymentMethodOnline
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.Status == "" {
		p.Status = PaymentStatusPending
	}
	return nil
}

// CountsTowardsBalance is true for completed, non-refund rows.
func (p *Payment) CountsTowardsBalance() bool {
	return p.Status == PaymentStatusCompleted && p.PaymentType != PaymentTypeRefund
}

// MayComplete returns true if payment can be completed
func (p *Payment) MayComplete() bool {
	return p.Status == PaymentStatusPending
}

// MayFail returns true if payment can be marked failed
func (p *Payment) MayFail() bool {
	return p.Status == PaymentStatusPending
}

// MayRefund returns true if payment can be refunded
func (p *Payment) MayRefund() bool {
	return p.Status == PaymentStatusCompleted && p.PaymentType != PaymentTypeRefund
}

// TargetKind tags a PaymentTarget.
type TargetKind string

const (
	TargetBooking     TargetKind = "booking"
	TargetRentInvoice TargetKind = "rent_invoice"
	TargetLease       TargetKind = "lease"
	TargetVisit       TargetKind = "visit"
)

// PaymentTarget is what a payment settles.
type PaymentTarget struct {
	Kind TargetKind
	ID   uint
}

func BookingTarget(id uint) PaymentTarget    { return PaymentTarget{Kind: TargetBooking, ID: id} }
func InvoiceTarget(id uint) PaymentTarget    { return PaymentTarget{Kind: TargetRentInvoice, ID: id} }
func LeaseTarget(id uint) PaymentTarget      { return PaymentTarget{Kind: TargetLease, ID: id} }
func VisitTarget(visitID uint) PaymentTarget { return PaymentTarget{Kind: TargetVisit, ID: visitID} }
func (t PaymentTarget) String() string       { return fmt.Sprintf("%s:%d", t.Kind, t.ID) }

// ErrAmbiguousTarget is returned when a payment row is linked to zero or
// several targets.
var ErrAmbiguousTarget = errors.New("payment must be linked to exactly one target")

// Target reads the tagged target from the link columns. A rent payment
// against an invoice also carries the invoice's lease, so the invoice wins.
func (p *Payment) Target() (PaymentTarget, error) {
	var targets []PaymentTarget
	if p.BookingID != nil {
		targets = append(targets, BookingTarget(*p.BookingID))
	}
	if p.RentInvoiceID != nil {
		targets = append(targets, InvoiceTarget(*p.RentInvoiceID))
	} else if p.LeaseID != nil {
		targets = append(targets, LeaseTarget(*p.LeaseID))
	}
	if p.PropertyVisitID != nil {
		targets = append(targets, VisitTarget(*p.PropertyVisitID))
	}
	if len(targets) != 1 {
		return PaymentTarget{}, ErrAmbiguousTarget
	}
	return targets[0], nil
}

// SetTarget writes the link columns for t, clearing the others. Lease links
// that accompany an invoice are set by the caller.
func (p *Payment) SetTarget(t PaymentTarget) {
	p.BookingID, p.RentInvoiceID, p.LeaseID, p.PropertyVisitID = nil, nil, nil, nil
	id := t.ID
	switch t.Kind {
	case TargetBooking:
		p.BookingID = &id
	case TargetRentInvoice:
		p.RentInvoiceID = &id
	case TargetLease:
		p.LeaseID = &id
	case TargetVisit:
		p.PropertyVisitID = &id
	}
}

// PaymentResponse is the JSON response format for payments
type PaymentResponse struct {
	ID                  uint            `json:"id"`
	PaymentType         string          `json:"payment_type"`
	BookingID           *uint           `json:"booking_id"`
	RentInvoiceID       *uint           `json:"rent_invoice_id"`
	LeaseID             *uint           `json:"lease_id"`
	PropertyVisitID     *uint           `json:"property_visit_id"`
	TenantID            *uint           `json:"tenant_id"`
	Amount              decimal.Decimal `json:"amount"`
	PaymentMethod       string          `json:"payment_method"`
	MobileMoneyProvider string          `json:"mobile_money_provider,omitempty"`
	Status              string          `json:"status"`
	Provider            string          `json:"provider,omitempty"`
	TransactionID       *string         `json:"transaction_id"`
	ReferenceNumber     *string         `json:"reference_number"`
	PaidDate            *string         `json:"paid_date"`
	RecordedByID        *uint           `json:"recorded_by_id"`
	RefundOfID          *uint           `json:"refund_of_id,omitempty"`
	HasReceipt          bool            `json:"has_receipt"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// ToResponse converts Payment to PaymentResponse
func (p *Payment) ToResponse() PaymentResponse {
	var paid *string
	if p.PaidDate != nil {
		s := p.PaidDate.Format(DateLayout)
		paid = &s
	}
	return PaymentResponse{
		ID:                  p.ID,
		PaymentType:         p.PaymentType,
		BookingID:           p.BookingID,
		RentInvoiceID:       p.RentInvoiceID,
		LeaseID:             p.LeaseID,
		PropertyVisitID:     p.PropertyVisitID,
		TenantID:            p.TenantID,
		Amount:              p.Amount,
		PaymentMethod:       p.PaymentMethod,
		MobileMoneyProvider: p.MobileMoneyProvider,
		Status:              p.Status,
		Provider:            p.Provider,
		TransactionID:       p.TransactionID,
		ReferenceNumber:     p.ReferenceNumber,
		PaidDate:            paid,
		RecordedByID:        p.RecordedByID,
		RefundOfID:          p.RefundOfID,
		HasReceipt:          p.ReceiptPath != nil,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

// PaymentAudit records every status change of a payment
type PaymentAudit struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PaymentID uint      `gorm:"not null;index" json:"payment_id"`
	OldStatus string    `gorm:"size:20" json:"old_status"`
	NewStatus string    `gorm:"size:20;not null" json:"new_status"`
	ActorID   *uint     `json:"actor_id"`
	Reason    string    `gorm:"size:255" json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for PaymentAudit
func (PaymentAudit) TableName() string {
	return "payment_audits"
}
