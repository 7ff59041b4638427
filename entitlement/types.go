/*
Package entitlement provides the core leave entitlement engine.

PURPOSE:
  This package contains the domain types and pure algorithms for leave
  entitlement management: how many days an employee is owed, which
  policy rule governs them, and how allocations are prorated and reset
  across calendar years.

KEY CONCEPTS IN THIS FILE (types.go):
  - Employee: directory record (grade, gender, hire date, last change)
  - LeaveType: catalog entry (active flag, female-only restriction)
  - EntitlementRule: policy rule matched by grade and service band
  - Balance: per-employee, per-type allocation state

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal for every day-count to avoid
     floating-point drift in proration and carryover math
  2. Type Safety: Strong typing for IDs prevents mixing employee,
     leave-type, rule, and grade identifiers
  3. Determinism: No function in this package reads the wall clock;
     callers thread an explicit reference time through

SEE ALSO:
  - rules.go:     Rule resolution over service bands
  - tenure.go:    Years-of-service calculation
  - proration.go: Mid-year hire and promotion blending math
  - reset.go:     Year-end carryover/forfeiture math
  - store.go:     Persistence interfaces
*/
package entitlement

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type LeaveTypeID string
type RuleID string
type GradeID string

// =============================================================================
// EMPLOYEE - Directory record consumed by the engine
// =============================================================================

type Gender string

const (
	GenderFemale Gender = "female"
	GenderMale   Gender = "male"
)

// Employee is the slice of the employee directory the engine needs.
// LastChangedAt is the anchor date for promotion recalculation: it is
// the date the employee record last changed, not the date an admin
// submitted the change.
type Employee struct {
	ID            EmployeeID
	FullName      string
	Email         string
	Gender        Gender
	GradeID       GradeID
	HireDate      time.Time
	LastChangedAt *time.Time
}

// =============================================================================
// LEAVE TYPE - Catalog entry
// =============================================================================

// Well-known leave type codes. CodeAnnual identifies the one type that
// participates in proration, promotion blending, and the yearly reset.
const (
	CodeAnnual    = "ANNUAL"
	CodeSick      = "SICK"
	CodeMaternity = "MATERNITY"
	CodeFamily    = "FAMILY"
)

type LeaveType struct {
	ID         LeaveTypeID
	Code       string
	Name       string
	Active     bool
	FemaleOnly bool
}

// EligibleFor reports whether an employee may hold a balance of this type.
func (lt LeaveType) EligibleFor(e Employee) bool {
	if lt.FemaleOnly && e.Gender != GenderFemale {
		return false
	}
	return true
}

// =============================================================================
// ENTITLEMENT RULE - Policy rule matched by grade and service band
// =============================================================================

// EntitlementRule grants DaysAllocated to employees of a job grade whose
// years of service fall inside [MinYearsService, MaxYearsService].
// A nil MaxYearsService means the band is open-ended.
type EntitlementRule struct {
	ID              RuleID
	LeaveTypeID     LeaveTypeID
	GradeID         GradeID
	MinYearsService decimal.Decimal
	MaxYearsService *decimal.Decimal
	DaysAllocated   decimal.Decimal
	Active          bool
	CreatedAt       time.Time
}

// Matches reports whether a tenure value falls inside this rule's band.
// Inactive rules never match.
func (r EntitlementRule) Matches(yearsOfService decimal.Decimal) bool {
	if !r.Active {
		return false
	}
	if yearsOfService.LessThan(r.MinYearsService) {
		return false
	}
	if r.MaxYearsService != nil && yearsOfService.GreaterThan(*r.MaxYearsService) {
		return false
	}
	return true
}

// =============================================================================
// BALANCE - Per-employee, per-type allocation state
// =============================================================================

// Balance is the allocation state for one (employee, leave type) pair.
//
// RecalcAnchor records the employee LastChangedAt value a promotion
// recalculation was last applied against. The blended entitlement is a
// function of the pre-recalculation allocation, so without the anchor a
// repeated invocation would compound. A matching anchor makes the
// repeat call a no-op.
type Balance struct {
	EmployeeID    EmployeeID
	LeaveTypeID   LeaveTypeID
	EntitledDays  decimal.Decimal
	UsedDays      decimal.Decimal
	RemainingDays decimal.Decimal
	CarryoverDays decimal.Decimal
	ForfeitedDays decimal.Decimal
	LastResetYear *int
	RecalcAnchor  *time.Time
}

// Days builds a day-count from a float literal. Test and seed helper.
func Days(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}
