package entitlement

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PRORATION - Mid-year hire and promotion blending math
// =============================================================================

var twelve = decimal.NewFromInt(12)

// ProrateHireAllocation reduces an annual allocation to the months
// remaining in the calendar year from the hire month, inclusive:
//
//	round(daysAllocated * monthsRemaining / 12, 2)
//
// A March hire with a 12-day allocation receives 10 days (March through
// December). Only the annual leave type is prorated; callers grant
// other types at full allocation regardless of hire month.
func ProrateHireAllocation(daysAllocated decimal.Decimal, hireMonth time.Month) decimal.Decimal {
	monthsRemaining := int64(12 - int(hireMonth) + 1)
	return daysAllocated.
		Mul(decimal.NewFromInt(monthsRemaining)).
		Div(twelve).
		Round(2)
}

// BlendPromotionAllocation blends the old and new annual allocations
// across the calendar year of a grade change:
//
//	monthsBefore = changeMonth - 1
//	round(old/12*monthsBefore + new/12*(12-monthsBefore), 2)
//
// A January change degenerates to the new allocation in full; the
// general formula already produces that, so there is no special case.
func BlendPromotionAllocation(oldAllocation, newAllocation decimal.Decimal, changeMonth time.Month) decimal.Decimal {
	monthsBefore := decimal.NewFromInt(int64(int(changeMonth) - 1))
	monthsAfter := twelve.Sub(monthsBefore)

	before := oldAllocation.Div(twelve).Mul(monthsBefore)
	after := newAllocation.Div(twelve).Mul(monthsAfter)
	return before.Add(after).Round(2)
}
