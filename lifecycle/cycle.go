package lifecycle

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/warp/leave-engine/entitlement"
	"github.com/warp/leave-engine/metrics"
	"github.com/warp/leave-engine/notify"
)

// =============================================================================
// ANNUAL RESET - Carryover, forfeiture, new-cycle entitlement
// =============================================================================

// ResetReport summarizes one annual reset pass.
type ResetReport struct {
	Year      int
	Processed int
	Skipped   int
	Failed    int
}

// ProcessAnnualReset runs the year-end pass over every annual leave
// balance as of the reference time: carry over up to the cap, forfeit
// the rest, and reset the entitlement to the re-resolved base rule
// allocation plus carryover. Other leave types are never touched.
//
// The pass is idempotent per calendar year: balances whose
// LastResetYear already equals the reference year are skipped, so a
// redundant daily invocation changes nothing.
//
// Each employee is processed in its own transaction. A failure is
// logged and counted but never aborts the rest of the pass, and never
// leaves that employee's balance partially mutated.
func (e *Engine) ProcessAnnualReset(ctx context.Context, asOf time.Time) (*ResetReport, error) {
	year := asOf.Year()
	report := &ResetReport{Year: year}

	annual, err := e.store.LeaveTypeByCode(ctx, entitlement.CodeAnnual)
	if err != nil {
		return nil, entitlement.ErrAnnualTypeNotConfigured
	}

	balances, err := e.store.BalancesByLeaveType(ctx, annual.ID)
	if err != nil {
		return nil, err
	}

	for _, bal := range balances {
		employeeID := bal.EmployeeID

		err := e.store.WithTx(ctx, func(s entitlement.Store) error {
			// Re-read inside the transaction; the listing above may be stale.
			b, err := s.GetBalance(ctx, employeeID, annual.ID)
			if err != nil {
				return err
			}
			if b.LastResetYear != nil && *b.LastResetYear == year {
				report.Skipped++
				metrics.ResetsSkipped.Inc()
				return nil
			}

			emp, err := s.GetEmployee(ctx, employeeID)
			if err != nil {
				return err
			}

			tenure := entitlement.YearsOfService(emp.HireDate, asOf)
			rules, err := s.RulesFor(ctx, annual.ID, emp.GradeID)
			if err != nil {
				return err
			}
			rule, ok := entitlement.ResolveRule(rules, tenure)
			if !ok {
				return fmt.Errorf("employee %s: %w", employeeID, entitlement.ErrRuleNotFound)
			}

			outcome := entitlement.ComputeReset(b.RemainingDays, rule.DaysAllocated)

			b.CarryoverDays = outcome.Carryover
			b.ForfeitedDays = outcome.Forfeited
			b.EntitledDays = outcome.NewEntitlement
			b.UsedDays = entitlement.Days(0)
			b.RemainingDays = outcome.NewEntitlement
			b.LastResetYear = &year
			if err := s.UpdateBalance(ctx, *b); err != nil {
				return err
			}

			report.Processed++
			metrics.ResetsProcessed.Inc()
			return nil
		})
		if err != nil {
			report.Failed++
			metrics.ResetsFailed.Inc()
			log.Printf("[AnnualReset] employee %s failed: %v", employeeID, err)
		}
	}

	return report, nil
}

// =============================================================================
// CARRYOVER NOTIFICATIONS - Warn ahead of forfeiture
// =============================================================================

// CarryoverReport lists pending forfeiture warnings.
type CarryoverReport struct {
	Notifications []notify.Message
}

// ProcessCarryoverNotifications builds one warning per annual leave
// balance whose remaining days exceed the carryover cap, stating the
// number of days that will be forfeited at the next reset. Balances at
// or below the cap produce nothing. The pass reads balances and never
// mutates them.
func (e *Engine) ProcessCarryoverNotifications(ctx context.Context, asOf time.Time) (*CarryoverReport, error) {
	report := &CarryoverReport{}

	annual, err := e.store.LeaveTypeByCode(ctx, entitlement.CodeAnnual)
	if err != nil {
		return nil, entitlement.ErrAnnualTypeNotConfigured
	}

	balances, err := e.store.BalancesByLeaveType(ctx, annual.ID)
	if err != nil {
		return nil, err
	}

	for _, bal := range balances {
		forfeitable := entitlement.ForfeitableDays(bal.RemainingDays)
		if !forfeitable.IsPositive() {
			continue
		}

		emp, err := e.store.GetEmployee(ctx, bal.EmployeeID)
		if err != nil {
			log.Printf("[Carryover] employee %s lookup failed: %v", bal.EmployeeID, err)
			continue
		}

		report.Notifications = append(report.Notifications, notify.NewMessage(
			emp.Email,
			"Unused Annual Leave Expiring",
			fmt.Sprintf("Dear %s,\n\nYou have %s unused annual leave days. A maximum of %s days carries over into the new year; %s days will be forfeited at the annual reset. Please plan your remaining leave accordingly.",
				emp.FullName,
				bal.RemainingDays.StringFixed(2),
				entitlement.CarryoverCapDays.StringFixed(0),
				forfeitable.StringFixed(2)),
		))
	}

	return report, nil
}
