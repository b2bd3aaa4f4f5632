package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/Intruder289/maishaap-backend-sub002/pkg/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RentInvoice bills one lease for one calendar month
type RentInvoice struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	LeaseID       uint            `gorm:"not null;uniqueIndex:idx_invoice_lease_period" json:"lease_id"`
	TenantID      uint            `gorm:"not null;index" json:"tenant_id"`
	InvoiceNumber string          `gorm:"size:30;uniqueIndex;not null" json:"invoice_number"`
	InvoiceDate   time.Time       `gorm:"type:date;not null" json:"invoice_date"`
	DueDate       time.Time       `gorm:"type:date;not null;index" json:"due_date"`
	PeriodStart   time.Time       `gorm:"type:date;not null;uniqueIndex:idx_invoice_lease_period" json:"period_start"`
	PeriodEnd     time.Time       `gorm:"type:date;not null;uniqueIndex:idx_invoice_lease_period" json:"period_end"`
	BaseRent      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"base_rent"`
	LateFee       decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"late_fee"`
	OtherCharges  decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"other_charges"`
	Discount      decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"discount"`
	TotalAmount   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	AmountPaid    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"amount_paid"`
	Status        string          `gorm:"size:20;default:draft;index" json:"status"`
	Notes         string          `gorm:"type:text" json:"notes"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	Lease  Lease `gorm:"foreignKey:LeaseID" json:"lease,omitempty"`
	Tenant User  `gorm:"foreignKey:TenantID" json:"-"`
}

// TableName specifies the table name for RentInvoice
func (RentInvoice) TableName() string {
	return "rent_invoices"
}

// Invoice status constants
const (
	InvoiceStatusDraft     = "draft"
	InvoiceStatusSent      = "sent"
	InvoiceStatusPaid      = "paid"
	InvoiceStatusOverdue   = "overdue"
	InvoiceStatusCancelled = "cancelled"
)

// InvoiceDueDay is the day of the period month rent falls due.
const InvoiceDueDay = 5

// NewInvoiceNumber returns INV-YYYYMM-XXXXXXXX for the given issue time.
func NewInvoiceNumber(at time.Time) string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	return fmt.Sprintf("INV-%s-%s", at.Format("200601"), strings.ToUpper(id[:8]))
}

// BeforeCreate hook for setting defaults
func (i *RentInvoice) BeforeCreate(tx *gorm.DB) error {
	if i.Status == "" {
		i.Status = InvoiceStatusDraft
	}
	if i.InvoiceNumber == "" {
		i.InvoiceNumber = NewInvoiceNumber(time.Now())
	}
	return nil
}

// Recalculate restores total = base + late fee + other charges - discount.
func (i *RentInvoice) Recalculate() {
	i.TotalAmount = money.Round(i.BaseRent.Add(i.LateFee).Add(i.OtherCharges).Sub(i.Discount))
}

// BalanceDue is total minus paid.
func (i *RentInvoice) BalanceDue() decimal.Decimal {
	return money.Round(i.TotalAmount.Sub(i.AmountPaid))
}

// IsOverdue reports whether the invoice is past due and unpaid on day.
func (i *RentInvoice) IsOverdue(day time.Time) bool {
	return Day(day).After(Day(i.DueDate)) && i.Status != InvoiceStatusPaid && i.Status != InvoiceStatusCancelled
}

// DaysOverdue counts days past the due date, zero when not overdue.
func (i *RentInvoice) DaysOverdue(day time.Time) int {
	if !i.IsOverdue(day) {
		return 0
	}
	return DaysBetween(i.DueDate, day)
}

// ApplyStatus performs the save-time transitions: paid once fully paid,
// overdue once past due.
func (i *RentInvoice) ApplyStatus(day time.Time) {
	if i.Status == InvoiceStatusCancelled {
		return
	}
	if i.TotalAmount.IsPositive() && i.AmountPaid.GreaterThanOrEqual(i.TotalAmount) {
		i.Status = InvoiceStatusPaid
		return
	}
	if i.Status == InvoiceStatusPaid {
		i.Status = InvoiceStatusSent
	}
	if i.IsOverdue(day) {
		i.Status = InvoiceStatusOverdue
	}
}

// InvoiceResponse is the JSON response format for rent invoices
type InvoiceResponse struct {
	ID            uint            `json:"id"`
	LeaseID       uint            `json:"lease_id"`
	TenantID      uint            `json:"tenant_id"`
	PropertyID    uint            `json:"property_id,omitempty"`
	InvoiceNumber string          `json:"invoice_number"`
	InvoiceDate   string          `json:"invoice_date"`
	DueDate       string          `json:"due_date"`
	PeriodStart   string          `json:"period_start"`
	PeriodEnd     string          `json:"period_end"`
	BaseRent      decimal.Decimal `json:"base_rent"`
	LateFee       decimal.Decimal `json:"late_fee"`
	OtherCharges  decimal.Decimal `json:"other_charges"`
	Discount      decimal.Decimal `json:"discount"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	BalanceDue    decimal.Decimal `json:"balance_due"`
	Status        string          `json:"status"`
	IsOverdue     bool            `json:"is_overdue"`
	DaysOverdue   int             `json:"days_overdue"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ToResponse converts RentInvoice to InvoiceResponse as of day.
func (i *RentInvoice) ToResponse(day time.Time) InvoiceResponse {
	return InvoiceResponse{
		ID:            i.ID,
		LeaseID:       i.LeaseID,
		TenantID:      i.TenantID,
		PropertyID:    i.Lease.PropertyID,
		InvoiceNumber: i.InvoiceNumber,
		InvoiceDate:   i.InvoiceDate.Format(DateLayout),
		DueDate:       i.DueDate.Format(DateLayout),
		PeriodStart:   i.PeriodStart.Format(DateLayout),
		PeriodEnd:     i.PeriodEnd.Format(DateLayout),
		BaseRent:      i.BaseRent,
		LateFee:       i.LateFee,
		OtherCharges:  i.OtherCharges,
		Discount:      i.Discount,
		TotalAmount:   i.TotalAmount,
		AmountPaid:    i.AmountPaid,
		BalanceDue:    i.BalanceDue(),
		Status:        i.Status,
		IsOverdue:     i.IsOverdue(day),
		DaysOverdue:   i.DaysOverdue(day),
		CreatedAt:     i.CreatedAt,
	}
}
