package models

import (
	"strings"
	"time"

	"github.com/Intruder289/maishaap-backend-sub002/pkg/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Booking reserves a property, or one room of it, for a date range.
// CheckOutDate is exclusive.
type Booking struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	BookingReference   string          `gorm:"size:20;uniqueIndex;not null" json:"booking_reference"`
	PropertyID         uint            `gorm:"not null;index" json:"property_id"`
	CustomerID         uint            `gorm:"not null;index" json:"customer_id"`
	CreatedByID        *uint           `gorm:"index" json:"created_by_id"`
	CheckInDate        time.Time       `gorm:"type:date;not null;index" json:"check_in_date"`
	CheckOutDate       time.Time       `gorm:"type:date;not null;index" json:"check_out_date"`
	NumberOfGuests     int             `gorm:"not null;default:1" json:"number_of_guests"`
	RoomNumber         *string         `gorm:"size:20;index" json:"room_number"`
	TotalAmount        decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"total_amount"`
	PaidAmount         decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"paid_amount"`
	DepositAmount      decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"deposit_amount"`
	BookingStatus      string          `gorm:"size:20;default:pending;index" json:"booking_status"`
	PaymentStatus      string          `gorm:"size:20;default:pending;index" json:"payment_status"`
	SpecialRequests    string          `gorm:"type:text" json:"special_requests"`
	CancellationReason string          `gorm:"size:255" json:"cancellation_reason,omitempty"`
	ConfirmedAt        *time.Time      `json:"confirmed_at"`
	CheckedInAt        *time.Time      `json:"checked_in_at"`
	CheckedOutAt       *time.Time      `json:"checked_out_at"`
	CancelledAt        *time.Time      `json:"cancelled_at"`
	CreatedAt          time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`

	// Associations
	Property  Property `gorm:"foreignKey:PropertyID" json:"property,omitempty"`
	Customer  Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	CreatedBy *User    `gorm:"foreignKey:CreatedByID" json:"-"`
}

// TableName specifies the table name for Booking
func (Booking) TableName() string {
	return "bookings"
}

// Booking status constants
const (
	BookingStatusPending    = "pending"
	BookingStatusConfirmed  = "confirmed"
	BookingStatusCheckedIn  = "checked_in"
	BookingStatusCheckedOut = "checked_out"
	BookingStatusCancelled  = "cancelled"
	BookingStatusNoShow     = "no_show"
)

// Booking payment status constants
const (
	BookingPaymentPending  = "pending"
	BookingPaymentPartial  = "partial"
	BookingPaymentPaid     = "paid"
	BookingPaymentRefunded = "refunded"
)

// ActiveBookingStatuses hold inventory and take part in overlap checks.
var ActiveBookingStatuses = []string{BookingStatusPending, BookingStatusConfirmed, BookingStatusCheckedIn}

// BeforeCreate hook for setting defaults
func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.BookingStatus == "" {
		b.BookingStatus = BookingStatusPending
	}
	if b.PaymentStatus == "" {
		b.PaymentStatus = BookingPaymentPending
	}
	return nil
}

// IsActive reports whether the booking still holds inventory.
func (b *Booking) IsActive() bool {
	for _, s := range ActiveBookingStatuses {
		if b.BookingStatus == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (b *Booking) IsTerminal() bool {
	return !b.IsActive()
}

// MayConfirm returns true if booking can be confirmed
func (b *Booking) MayConfirm() bool {
	return b.BookingStatus == BookingStatusPending
}

// MayCheckIn returns true if booking can be checked in
func (b *Booking) MayCheckIn() bool {
	return b.BookingStatus == BookingStatusConfirmed
}

// MayCheckOut returns true if booking can be checked out
func (b *Booking) MayCheckOut() bool {
	return b.BookingStatus == BookingStatusCheckedIn
}

// MayCancel returns true if booking can be cancelled
func (b *Booking) MayCancel() bool {
	return b.BookingStatus == BookingStatusPending || b.BookingStatus == BookingStatusConfirmed
}

// MayMarkNoShow returns true if booking can be marked as no-show
func (b *Booking) MayMarkNoShow() bool {
	return b.BookingStatus == BookingStatusPending || b.BookingStatus == BookingStatusConfirmed
}

// HasRoom reports whether the booking targets a specific room.
func (b *Booking) HasRoom() bool {
	return b.RoomNumber != nil && *b.RoomNumber != ""
}

// Overlaps reports whether [in, out) intersects the booking's stay.
func (b *Booking) Overlaps(in, out time.Time) bool {
	return Day(b.CheckInDate).Before(Day(out)) && Day(in).Before(Day(b.CheckOutDate))
}

// DurationDays is the number of nights.
func (b *Booking) DurationDays() int {
	return DaysBetween(b.CheckInDate, b.CheckOutDate)
}

// CalculatedTotal prices the stay from the property's rent period.
func (b *Booking) CalculatedTotal() decimal.Decimal {
	return CalculateBookingTotal(b.Property.RentPeriod, b.CheckInDate, b.CheckOutDate, b.Property.RentAmount)
}

// RemainingAmount is what is still owed.
func (b *Booking) RemainingAmount() decimal.Decimal {
	return money.Round(b.TotalAmount.Sub(b.PaidAmount))
}

// ApplyPaymentStatus recomputes PaymentStatus from PaidAmount and total.
// Refunded bookings stay refunded.
func (b *Booking) ApplyPaymentStatus(total decimal.Decimal) {
	if b.PaymentStatus == BookingPaymentRefunded {
		return
	}
	b.PaymentStatus = PaymentStatusFor(b.PaidAmount, total)
}

// PaymentStatusFor is the pure projection of a paid amount against a total.
func PaymentStatusFor(paid, total decimal.Decimal) string {
	switch {
	case total.IsPositive() && paid.Add(money.Epsilon).GreaterThanOrEqual(total):
		return BookingPaymentPaid
	case paid.IsPositive():
		return BookingPaymentPartial
	default:
		return BookingPaymentPending
	}
}

// IsExpired reports whether an unpaid booking has outlived the property's
// expiration window. A zero window disables expiry.
func (b *Booking) IsExpired(now time.Time, expirationHours int) bool {
	if b.BookingStatus == BookingStatusCancelled || b.BookingStatus == BookingStatusCheckedOut {
		return false
	}
	if b.PaymentStatus == BookingPaymentPaid || b.PaymentStatus == BookingPaymentPartial {
		return false
	}
	if expirationHours <= 0 {
		return false
	}
	return now.After(b.CreatedAt.Add(time.Duration(expirationHours) * time.Hour))
}

// NewBookingReference builds a unique, human-readable reference such as
// HTL-9F3A1C2B.
func NewBookingReference(propertyType string) string {
	prefix := "BKG"
	switch propertyType {
	case PropertyTypeHouse:
		prefix = "HSE"
	case PropertyTypeHotel:
		prefix = "HTL"
	case PropertyTypeLodge:
		prefix = "LDG"
	case PropertyTypeVenue:
		prefix = "VEN"
	}
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	return prefix + "-" + strings.ToUpper(id[:8])
}

// BookingResponse is the JSON response format for bookings
type BookingResponse struct {
	ID               uint            `json:"id"`
	BookingReference string          `json:"booking_reference"`
	PropertyID       uint            `json:"property_id"`
	PropertyTitle    string          `json:"property_title,omitempty"`
	PropertyType     string          `json:"property_type,omitempty"`
	CustomerID       uint            `json:"customer_id"`
	CustomerName     string          `json:"customer_name,omitempty"`
	CustomerEmail    string          `json:"customer_email,omitempty"`
	CreatedByID      *uint           `json:"created_by_id"`
	CheckInDate      string          `json:"check_in_date"`
	CheckOutDate     string          `json:"check_out_date"`
	Duration         int             `json:"duration"`
	DurationUnit     string          `json:"duration_unit"`
	NumberOfGuests   int             `json:"number_of_guests"`
	RoomNumber       *string         `json:"room_number"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	PaidAmount       decimal.Decimal `json:"paid_amount"`
	RemainingAmount  decimal.Decimal `json:"remaining_amount"`
	DepositAmount    decimal.Decimal `json:"deposit_amount"`
	BookingStatus    string          `json:"booking_status"`
	PaymentStatus    string          `json:"payment_status"`
	SpecialRequests  string          `json:"special_requests"`
	ConfirmedAt      *time.Time      `json:"confirmed_at"`
	CheckedInAt      *time.Time      `json:"checked_in_at"`
	CheckedOutAt     *time.Time      `json:"checked_out_at"`
	CancelledAt      *time.Time      `json:"cancelled_at"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// ToResponse converts Booking to BookingResponse
func (b *Booking) ToResponse() BookingResponse {
	duration, unit := BookingDuration(b.Property.RentPeriod, b.CheckInDate, b.CheckOutDate)
	return BookingResponse{
		ID:               b.ID,
		BookingReference: b.BookingReference,
		PropertyID:       b.PropertyID,
		PropertyTitle:    b.Property.Title,
		PropertyType:     b.Property.PropertyType,
		CustomerID:       b.CustomerID,
		CustomerName:     b.Customer.FullName(),
		CustomerEmail:    b.Customer.Email,
		CreatedByID:      b.CreatedByID,
		CheckInDate:      b.CheckInDate.Format(DateLayout),
		CheckOutDate:     b.CheckOutDate.Format(DateLayout),
		Duration:         duration,
		DurationUnit:     unit,
		NumberOfGuests:   b.NumberOfGuests,
		RoomNumber:       b.RoomNumber,
		TotalAmount:      b.TotalAmount,
		PaidAmount:       b.PaidAmount,
		RemainingAmount:  b.RemainingAmount(),
		DepositAmount:    b.DepositAmount,
		BookingStatus:    b.BookingStatus,
		PaymentStatus:    b.PaymentStatus,
		SpecialRequests:  b.SpecialRequests,
		ConfirmedAt:      b.ConfirmedAt,
		CheckedInAt:      b.CheckedInAt,
		CheckedOutAt:     b.CheckedOutAt,
		CancelledAt:      b.CancelledAt,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
	}
}
