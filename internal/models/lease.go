package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lease binds a house to a tenant for long-term rent
type Lease struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	PropertyID uint            `gorm:"not null;index" json:"property_id"`
	TenantID   uint            `gorm:"not null;index" json:"tenant_id"`
	StartDate  time.Time       `gorm:"type:date;not null" json:"start_date"`
	EndDate    time.Time       `gorm:"type:date;not null" json:"end_date"`
	RentAmount decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"rent_amount"`
	Status     string          `gorm:"size:20;default:pending;index" json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`

	Property      Property       `gorm:"foreignKey:PropertyID" json:"property,omitempty"`
	Tenant        User           `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
	LateFeeConfig *LateFeeConfig `gorm:"foreignKey:LeaseID" json:"late_fee_config,omitempty"`
}

// TableName specifies the table name for Lease
func (Lease) TableName() string {
	return "leases"
}

// Lease status constants
const (
	LeaseStatusPending    = "pending"
	LeaseStatusActive     = "active"
	LeaseStatusTerminated = "terminated"
	LeaseStatusExpired    = "expired"
	LeaseStatusRejected   = "rejected"
)

// ValidLeaseStatus reports whether s is a known lease status.
func ValidLeaseStatus(s string) bool {
	switch s {
	case LeaseStatusPending, LeaseStatusActive, LeaseStatusTerminated, LeaseStatusExpired, LeaseStatusRejected:
		return true
	}
	return false
}

// CoversDay reports whether an active lease is in force on day.
func (l *Lease) CoversDay(day time.Time) bool {
	d := Day(day)
	return l.Status == LeaseStatusActive && !Day(l.StartDate).After(d) && !Day(l.EndDate).Before(d)
}

// OverlapsPeriod reports whether the lease term touches [start, end].
func (l *Lease) OverlapsPeriod(start, end time.Time) bool {
	return !Day(l.StartDate).After(Day(end)) && !Day(l.EndDate).Before(Day(start))
}
