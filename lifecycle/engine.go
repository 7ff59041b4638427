/*
Package lifecycle implements the leave entitlement operations on top of
the entitlement domain package:

  - InitializeBalances:            allocate balances at hire
  - RecalculateAnnualEntitlement:  blend old/new allocation on promotion
  - ProcessAnnualReset:            yearly carryover/forfeiture/reset
  - ProcessCarryoverNotifications: warn ahead of forfeiture
  - UpdateEntitlementRule:         guarded admin edits

Every operation takes an explicit reference time so the engine is
deterministic under test; only the scheduler and HTTP layer supply
time.Now(). Operations that notify employees return pending
notify.Messages rather than sending inline - the caller dispatches
them after the transaction commits.
*/
package lifecycle

import (
	"context"
	"time"

	"github.com/warp/leave-engine/entitlement"
	"github.com/warp/leave-engine/metrics"
)

// Engine executes the lifecycle operations against a transactional store.
type Engine struct {
	store entitlement.TxStore
}

func NewEngine(store entitlement.TxStore) *Engine {
	return &Engine{store: store}
}

// =============================================================================
// BALANCE INITIALIZATION - One balance per eligible active leave type
// =============================================================================

// InitResult reports what initialization created.
type InitResult struct {
	Created []entitlement.Balance
}

// InitializeBalances creates one balance per active leave type the
// employee is eligible for, as of the reference time. It is duplicate
// safe per leave type: types that already have a balance are skipped,
// so calling it twice is a no-op the second time. Leave types with no
// rule covering the employee's grade and tenure are skipped silently;
// a policy gap at hire is not an error.
//
// Only the annual leave type is prorated for mid-year hires. All other
// types are granted at full allocation regardless of hire month.
//
// No notification is sent on initialization.
func (e *Engine) InitializeBalances(ctx context.Context, employeeID entitlement.EmployeeID, asOf time.Time) (*InitResult, error) {
	result := &InitResult{}

	err := e.store.WithTx(ctx, func(s entitlement.Store) error {
		emp, err := s.GetEmployee(ctx, employeeID)
		if err != nil {
			return err
		}

		types, err := s.ActiveLeaveTypes(ctx)
		if err != nil {
			return err
		}

		tenure := entitlement.YearsOfService(emp.HireDate, asOf)

		for _, lt := range types {
			if !lt.EligibleFor(*emp) {
				continue
			}

			exists, err := s.HasBalance(ctx, emp.ID, lt.ID)
			if err != nil {
				return err
			}
			if exists {
				continue
			}

			rules, err := s.RulesFor(ctx, lt.ID, emp.GradeID)
			if err != nil {
				return err
			}
			rule, ok := entitlement.ResolveRule(rules, tenure)
			if !ok {
				// No policy covers this employee/grade combination.
				continue
			}

			entitled := rule.DaysAllocated
			if lt.Code == entitlement.CodeAnnual {
				entitled = entitlement.ProrateHireAllocation(entitled, emp.HireDate.Month())
			}

			b := entitlement.Balance{
				EmployeeID:    emp.ID,
				LeaveTypeID:   lt.ID,
				EntitledDays:  entitled,
				RemainingDays: entitled,
			}
			if err := s.AddBalance(ctx, b); err != nil {
				return err
			}
			result.Created = append(result.Created, b)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.BalancesInitialized.Add(float64(len(result.Created)))
	return result, nil
}
