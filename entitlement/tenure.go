package entitlement

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SERVICE TENURE - Hire date to fractional years of service
// =============================================================================

// daysPerYear uses the Julian year so February 29 hires do not drift
// the band boundaries.
var daysPerYear = decimal.NewFromFloat(365.25)

// YearsOfService converts a hire date into fractional years of service
// as of the reference date: calendar days between the two, divided by
// 365.25, rounded to 2 decimal places.
//
// A hire date after the reference date yields a negative tenure. That
// is not defended against: a negative value simply fails to match any
// rule band.
func YearsOfService(hireDate, asOf time.Time) decimal.Decimal {
	days := daysBetween(hireDate, asOf)
	return decimal.NewFromInt(int64(days)).Div(daysPerYear).Round(2)
}

// daysBetween counts whole calendar days from a to b, ignoring the
// time-of-day component of both.
func daysBetween(a, b time.Time) int {
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
