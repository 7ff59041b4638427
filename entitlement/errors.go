/*
errors.go - Centralized error types for the entitlement engine

PURPOSE:
  All error kinds in one place. Callers classify with errors.Is/As;
  the HTTP layer translates them to status codes.

ERROR CATEGORIES:
  1. Not-found errors  - referenced employee, rule, type, or balance missing
  2. Precondition errors - required temporal anchor absent
  3. Invariant errors  - an admin edit would invalidate leave already taken
  4. Store errors      - duplicate balance rows

Policy gaps (no rule covers an employee's grade and tenure) are only an
error for promotion recalculation, where a governing rule must exist.
Balance initialization treats a gap as "skip this leave type".
*/
package entitlement

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEmployeeNotFound is returned when an employee id does not resolve.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrLeaveTypeNotFound is returned when a leave type lookup fails.
	ErrLeaveTypeNotFound = errors.New("leave type not found")

	// ErrAnnualTypeNotConfigured is returned when the annual leave type
	// is missing or inactive. Promotion recalculation and the yearly
	// reset cannot run without it.
	ErrAnnualTypeNotConfigured = errors.New("annual leave type not configured")

	// ErrRuleNotFound is returned when no active rule covers an
	// employee's grade and tenure in a context that requires one.
	ErrRuleNotFound = errors.New("no matching entitlement rule")

	// ErrBalanceNotFound is returned when a (employee, leave type)
	// balance row does not exist.
	ErrBalanceNotFound = errors.New("leave balance not found")

	// ErrLastChangedMissing is returned when promotion recalculation is
	// requested for an employee with no last-changed date. The date is
	// the blending anchor; without it the calculation is undefined.
	ErrLastChangedMissing = errors.New("employee last-changed date not set")

	// ErrAllocationBelowUsed is returned when a rule edit would reduce
	// the allocation below days an employee has already used.
	ErrAllocationBelowUsed = errors.New("cannot reduce allocation below days already used")

	// ErrDuplicateBalance is returned by stores when adding a balance
	// for a pair that already has one.
	ErrDuplicateBalance = errors.New("balance already exists")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// AllocationBelowUsedError identifies which balance blocks a rule edit.
type AllocationBelowUsedError struct {
	RuleID     RuleID
	EmployeeID EmployeeID
	Requested  decimal.Decimal
	Used       decimal.Decimal
}

func (e *AllocationBelowUsedError) Error() string {
	return fmt.Sprintf("cannot reduce allocation of rule %s to %s: employee %s has already used %s days",
		e.RuleID, e.Requested, e.EmployeeID, e.Used)
}

func (e *AllocationBelowUsedError) Unwrap() error {
	return ErrAllocationBelowUsed
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound reports whether the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrLeaveTypeNotFound) ||
		errors.Is(err, ErrRuleNotFound) ||
		errors.Is(err, ErrBalanceNotFound) ||
		errors.Is(err, ErrAnnualTypeNotConfigured)
}
