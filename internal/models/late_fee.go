package models

import (
	"time"

	"github.com/Intruder289/maishaap-backend-sub002/pkg/money"
	"github.com/shopspring/decimal"
)

// LateFeeConfig describes how a lease accrues late fees
type LateFeeConfig struct {
	ID              uint             `gorm:"primaryKey" json:"id"`
	LeaseID         uint             `gorm:"not null;uniqueIndex" json:"lease_id"`
	FeeType         string           `gorm:"size:20;not null" json:"fee_type"`
	Amount          decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"amount"`
	GracePeriodDays int              `gorm:"not null;default:5" json:"grace_period_days"`
	MaxLateFee      *decimal.Decimal `gorm:"type:numeric(12,2)" json:"max_late_fee"`
	IsActive        bool             `gorm:"default:true" json:"is_active"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// TableName specifies the table name for LateFeeConfig
func (LateFeeConfig) TableName() string {
	return "late_fee_configs"
}

// Late fee types
const (
	LateFeeFixed      = "fixed"
	LateFeePercentage = "percentage"
	LateFeeDaily      = "daily"
)

// ValidLateFeeType reports whether t is a known fee type.
func ValidLateFeeType(t string) bool {
	return t == LateFeeFixed || t == LateFeePercentage || t == LateFeeDaily
}

// Calculate returns the fee owed on baseRent after daysOverdue days, using
// grace as the grace period. The configured cap bounds percentage and daily
// fees only.
func (c *LateFeeConfig) Calculate(baseRent decimal.Decimal, daysOverdue, grace int) decimal.Decimal {
	if daysOverdue <= grace {
		return decimal.Zero
	}
	var fee decimal.Decimal
	switch c.FeeType {
	case LateFeeFixed:
		return money.Round(c.Amount)
	case LateFeePercentage:
		fee = baseRent.Mul(c.Amount).Div(decimal.NewFromInt(100))
	case LateFeeDaily:
		fee = c.Amount.Mul(decimal.NewFromInt(int64(daysOverdue - grace)))
	default:
		return decimal.Zero
	}
	if c.MaxLateFee != nil && fee.GreaterThan(*c.MaxLateFee) {
		fee = *c.MaxLateFee
	}
	return money.Round(fee)
}
