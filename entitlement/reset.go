package entitlement

import "github.com/shopspring/decimal"

// =============================================================================
// YEAR-END RESET - Carryover / forfeiture / new-cycle entitlement
// =============================================================================

// CarryoverCapDays is the maximum number of unused annual leave days
// that survive the year-end reset. Everything above the cap is
// forfeited.
var CarryoverCapDays = decimal.NewFromInt(5)

// ResetOutcome is the result of the year-end math for one balance.
type ResetOutcome struct {
	Carryover      decimal.Decimal
	Forfeited      decimal.Decimal
	NewEntitlement decimal.Decimal
}

// ComputeReset derives the year-end outcome from the days remaining in
// the ending cycle and the new cycle's base allocation:
//
//	carryover = min(remaining, cap)   when remaining > 0
//	forfeited = max(remaining-cap, 0) when remaining > 0
//	entitled  = base + carryover
//
// A non-positive remaining balance carries over and forfeits nothing.
// Negative balances are corrupted input; the guard keeps the engine
// from ever recording a negative carryover or forfeiture.
func ComputeReset(remaining, baseAllocation decimal.Decimal) ResetOutcome {
	carryover := decimal.Zero
	forfeited := decimal.Zero

	if remaining.IsPositive() {
		carryover = decimal.Min(remaining, CarryoverCapDays)
		forfeited = decimal.Max(remaining.Sub(CarryoverCapDays), decimal.Zero)
	}

	return ResetOutcome{
		Carryover:      carryover,
		Forfeited:      forfeited,
		NewEntitlement: baseAllocation.Add(carryover),
	}
}

// ForfeitableDays returns the days a balance stands to lose at the
// next reset: remaining minus the carryover cap, floored at zero. The
// carryover warning pass notifies employees when this is positive.
func ForfeitableDays(remaining decimal.Decimal) decimal.Decimal {
	at := remaining.Sub(CarryoverCapDays)
	if at.IsNegative() {
		return decimal.Zero
	}
	return at
}
