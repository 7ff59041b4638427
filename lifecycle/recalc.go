package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/entitlement"
	"github.com/warp/leave-engine/metrics"
	"github.com/warp/leave-engine/notify"
)

// =============================================================================
// PROMOTION RECALCULATION - Blend old and new annual allocation
// =============================================================================

// RecalcResult reports the outcome of a promotion recalculation.
type RecalcResult struct {
	// EntitledDays is the annual entitlement after the operation,
	// whether or not this call applied a change.
	EntitledDays decimal.Decimal

	// Applied is false when the balance was already recalculated for
	// the employee's current last-changed date and nothing was done.
	Applied bool

	// Notifications are pending messages to dispatch after commit.
	// Empty when Applied is false.
	Notifications []notify.Message
}

// RecalculateAnnualEntitlement recomputes the annual leave entitlement
// after a job grade change, blending the old and new allocation by
// calendar month of the employee's last-changed date:
//
//	monthsBefore = changeMonth - 1
//	entitled = round(old/12*monthsBefore + new/12*(12-monthsBefore), 2)
//
// Used days are preserved; remaining days become entitled minus used.
// A promotion never erases leave already taken.
//
// The blend consumes the pre-recalculation allocation, so the balance
// records the last-changed date it was recalculated against. A repeat
// call with no intervening change finds a matching anchor, changes
// nothing, and sends no mail: the entitlement is identical both times
// and the notification fires exactly once per promotion.
func (e *Engine) RecalculateAnnualEntitlement(ctx context.Context, employeeID entitlement.EmployeeID, asOf time.Time) (*RecalcResult, error) {
	result := &RecalcResult{}

	err := e.store.WithTx(ctx, func(s entitlement.Store) error {
		emp, err := s.GetEmployee(ctx, employeeID)
		if err != nil {
			return err
		}
		if emp.LastChangedAt == nil {
			return entitlement.ErrLastChangedMissing
		}

		annual, err := s.LeaveTypeByCode(ctx, entitlement.CodeAnnual)
		if err != nil || !annual.Active {
			return entitlement.ErrAnnualTypeNotConfigured
		}

		bal, err := s.GetBalance(ctx, emp.ID, annual.ID)
		if err != nil {
			return err
		}

		if bal.RecalcAnchor != nil && bal.RecalcAnchor.Equal(*emp.LastChangedAt) {
			// Already recalculated for this change.
			result.EntitledDays = bal.EntitledDays
			return nil
		}

		tenure := entitlement.YearsOfService(emp.HireDate, asOf)
		rules, err := s.RulesFor(ctx, annual.ID, emp.GradeID)
		if err != nil {
			return err
		}
		rule, ok := entitlement.ResolveRule(rules, tenure)
		if !ok {
			// A balance exists, so a governing rule must too.
			return entitlement.ErrRuleNotFound
		}

		oldAllocation := bal.EntitledDays
		entitled := entitlement.BlendPromotionAllocation(oldAllocation, rule.DaysAllocated, emp.LastChangedAt.Month())

		anchor := *emp.LastChangedAt
		bal.EntitledDays = entitled
		bal.RemainingDays = entitled.Sub(bal.UsedDays)
		bal.RecalcAnchor = &anchor
		if err := s.UpdateBalance(ctx, *bal); err != nil {
			return err
		}

		result.EntitledDays = entitled
		result.Applied = true
		result.Notifications = append(result.Notifications, notify.NewMessage(
			emp.Email,
			"Annual Leave Entitlement Recalculated",
			fmt.Sprintf("Dear %s,\n\nFollowing your recent grade change, your annual leave entitlement has been recalculated to %s days for the current year. Days you have already taken are unaffected.",
				emp.FullName, entitled.StringFixed(2)),
		))
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Applied {
		metrics.Recalculations.Inc()
	}
	return result, nil
}
