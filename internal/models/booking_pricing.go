package models

import (
	"time"

	"github.com/Intruder289/maishaap-backend-sub002/pkg/money"
	"github.com/shopspring/decimal"
)

// MonthsBetween walks from in towards out one calendar month at a time.
// A residual partial month counts as a full month; the minimum is 1.
func MonthsBetween(in, out time.Time) int {
	in, out = Day(in), Day(out)
	months := 0
	for !AddMonths(in, months+1).After(out) {
		months++
	}
	if AddMonths(in, months).Before(out) {
		months++
	}
	if months < 1 {
		months = 1
	}
	return months
}

// BillableUnits returns how many rent periods a stay is charged for.
// It returns 0 when the range is empty or inverted.
func BillableUnits(period string, in, out time.Time) int {
	days := DaysBetween(in, out)
	if days <= 0 {
		return 0
	}
	switch period {
	case RentPeriodWeek:
		return ceilDiv(days, 7)
	case RentPeriodMonth:
		return MonthsBetween(in, out)
	case RentPeriodYear:
		return ceilDiv(MonthsBetween(in, out), 12)
	default:
		return days
	}
}

// CalculateBookingTotal prices a stay. An invalid range yields the base rate.
func CalculateBookingTotal(period string, in, out time.Time, baseRate decimal.Decimal) decimal.Decimal {
	units := BillableUnits(period, in, out)
	if units == 0 {
		return money.Round(baseRate)
	}
	return money.Round(baseRate.Mul(decimal.NewFromInt(int64(units))))
}

// BookingDuration reports the billable duration with its unit label.
func BookingDuration(period string, in, out time.Time) (int, string) {
	units := BillableUnits(period, in, out)
	switch period {
	case RentPeriodWeek:
		return units, "weeks"
	case RentPeriodMonth:
		return units, "months"
	case RentPeriodYear:
		return units, "years"
	default:
		return units, "days"
	}
}

func ceilDiv(a, b int) int {
	n := a / b
	if a%b != 0 {
		n++
	}
	if n < 1 {
		n = 1
	}
	return n
}
