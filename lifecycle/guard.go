package lifecycle

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/entitlement"
)

// =============================================================================
// RULE ADMINISTRATION GUARD - Protect earned leave from policy edits
// =============================================================================

// UpdateEntitlementRule changes a rule's DaysAllocated after verifying
// that no balance currently governed by the rule has already used more
// days than the new allocation. The check runs before any mutation: a
// rejected edit leaves both the rule and every balance untouched.
//
// A balance is governed by the rule when resolution for its employee's
// current grade and tenure selects that rule as of the reference time.
// Edits that only raise the allocation always pass the check.
func (e *Engine) UpdateEntitlementRule(ctx context.Context, ruleID entitlement.RuleID, newDaysAllocated decimal.Decimal, asOf time.Time) error {
	return e.store.WithTx(ctx, func(s entitlement.Store) error {
		rule, err := s.GetRule(ctx, ruleID)
		if err != nil {
			return err
		}

		balances, err := s.BalancesByLeaveType(ctx, rule.LeaveTypeID)
		if err != nil {
			return err
		}

		for _, bal := range balances {
			emp, err := s.GetEmployee(ctx, bal.EmployeeID)
			if err != nil {
				return err
			}
			if emp.GradeID != rule.GradeID {
				continue
			}

			tenure := entitlement.YearsOfService(emp.HireDate, asOf)
			rules, err := s.RulesFor(ctx, rule.LeaveTypeID, emp.GradeID)
			if err != nil {
				return err
			}
			governing, ok := entitlement.ResolveRule(rules, tenure)
			if !ok || governing.ID != rule.ID {
				continue
			}

			if newDaysAllocated.LessThan(bal.UsedDays) {
				return &entitlement.AllocationBelowUsedError{
					RuleID:     rule.ID,
					EmployeeID: bal.EmployeeID,
					Requested:  newDaysAllocated,
					Used:       bal.UsedDays,
				}
			}
		}

		return s.UpdateRuleAllocation(ctx, ruleID, newDaysAllocated)
	})
}
