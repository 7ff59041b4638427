package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/entitlement"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func days(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func TestEmployeeRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	changed := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)
	in := entitlement.Employee{
		ID:            "emp-1",
		FullName:      "Efua Mensah",
		Email:         "efua@example.com",
		Gender:        entitlement.GenderFemale,
		GradeID:       "G2",
		HireDate:      time.Date(2020, time.January, 6, 0, 0, 0, 0, time.UTC),
		LastChangedAt: &changed,
	}
	require.NoError(t, s.PutEmployee(ctx, in))

	out, err := s.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, in.FullName, out.FullName)
	assert.Equal(t, in.GradeID, out.GradeID)
	assert.True(t, out.HireDate.Equal(in.HireDate))
	require.NotNil(t, out.LastChangedAt)
	assert.True(t, out.LastChangedAt.Equal(changed))
}

func TestEmployeeUpsertAndNilLastChanged(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := entitlement.Employee{
		ID: "emp-1", FullName: "Efua Mensah", Email: "efua@example.com",
		Gender: entitlement.GenderFemale, GradeID: "G1",
		HireDate: time.Date(2020, time.January, 6, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.PutEmployee(ctx, in))

	in.GradeID = "G2"
	require.NoError(t, s.PutEmployee(ctx, in))

	out, err := s.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, entitlement.GradeID("G2"), out.GradeID)
	assert.Nil(t, out.LastChangedAt)

	list, err := s.ListEmployees(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestGetEmployee_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetEmployee(context.Background(), "ghost")
	assert.ErrorIs(t, err, entitlement.ErrEmployeeNotFound)
}

// =============================================================================
// LEAVE TYPES
// =============================================================================

func TestLeaveTypeCatalog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutLeaveType(ctx, entitlement.LeaveType{
		ID: "lt-annual", Code: entitlement.CodeAnnual, Name: "Annual Leave", Active: true,
	}))
	require.NoError(t, s.PutLeaveType(ctx, entitlement.LeaveType{
		ID: "lt-old", Code: "OLD", Name: "Retired Type", Active: false,
	}))
	require.NoError(t, s.PutLeaveType(ctx, entitlement.LeaveType{
		ID: "lt-maternity", Code: entitlement.CodeMaternity, Name: "Maternity Leave",
		Active: true, FemaleOnly: true,
	}))

	active, err := s.ActiveLeaveTypes(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2, "inactive types must be filtered out")

	annual, err := s.LeaveTypeByCode(ctx, entitlement.CodeAnnual)
	require.NoError(t, err)
	assert.Equal(t, entitlement.LeaveTypeID("lt-annual"), annual.ID)

	maternity, err := s.LeaveTypeByCode(ctx, entitlement.CodeMaternity)
	require.NoError(t, err)
	assert.True(t, maternity.FemaleOnly)

	_, err = s.LeaveTypeByCode(ctx, "NOPE")
	assert.ErrorIs(t, err, entitlement.ErrLeaveTypeNotFound)
}

// =============================================================================
// RULES
// =============================================================================

func TestRulesFor_PreservesCreationOrder(t *testing.T) {
	// Rule resolution takes the first match, so the listing order is
	// part of the storage contract.

	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	three := days("3")
	require.NoError(t, s.PutRule(ctx, entitlement.EntitlementRule{
		ID: "junior", LeaveTypeID: "lt-annual", GradeID: "G1",
		MinYearsService: days("0"), MaxYearsService: &three,
		DaysAllocated: days("12"), Active: true, CreatedAt: base,
	}))
	require.NoError(t, s.PutRule(ctx, entitlement.EntitlementRule{
		ID: "senior", LeaveTypeID: "lt-annual", GradeID: "G1",
		MinYearsService: days("3"),
		DaysAllocated:   days("15"), Active: true, CreatedAt: base.Add(time.Hour),
	}))
	require.NoError(t, s.PutRule(ctx, entitlement.EntitlementRule{
		ID: "other-grade", LeaveTypeID: "lt-annual", GradeID: "G2",
		MinYearsService: days("0"),
		DaysAllocated:   days("18"), Active: true, CreatedAt: base,
	}))

	rules, err := s.RulesFor(ctx, "lt-annual", "G1")
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, entitlement.RuleID("junior"), rules[0].ID)
	assert.Equal(t, entitlement.RuleID("senior"), rules[1].ID)

	require.NotNil(t, rules[0].MaxYearsService)
	assert.True(t, rules[0].MaxYearsService.Equal(three))
	assert.Nil(t, rules[1].MaxYearsService, "open-ended band must round-trip as nil")
}

func TestUpdateRuleAllocation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutRule(ctx, entitlement.EntitlementRule{
		ID: "junior", LeaveTypeID: "lt-annual", GradeID: "G1",
		MinYearsService: days("0"), DaysAllocated: days("12"), Active: true,
	}))

	require.NoError(t, s.UpdateRuleAllocation(ctx, "junior", days("14")))

	rule, err := s.GetRule(ctx, "junior")
	require.NoError(t, err)
	assert.True(t, rule.DaysAllocated.Equal(days("14")))

	err = s.UpdateRuleAllocation(ctx, "ghost", days("14"))
	assert.ErrorIs(t, err, entitlement.ErrRuleNotFound)
}

// =============================================================================
// BALANCES
// =============================================================================

func TestBalanceRoundTrip_DecimalsAreExact(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	year := 2025
	anchor := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)
	in := entitlement.Balance{
		EmployeeID:    "emp-1",
		LeaveTypeID:   "lt-annual",
		EntitledDays:  days("16.67"),
		UsedDays:      days("4.5"),
		RemainingDays: days("12.17"),
		CarryoverDays: days("5"),
		ForfeitedDays: days("0.33"),
		LastResetYear: &year,
		RecalcAnchor:  &anchor,
	}
	require.NoError(t, s.AddBalance(ctx, in))

	out, err := s.GetBalance(ctx, "emp-1", "lt-annual")
	require.NoError(t, err)
	assert.Equal(t, "16.67", out.EntitledDays.String())
	assert.Equal(t, "4.5", out.UsedDays.String())
	assert.Equal(t, "12.17", out.RemainingDays.String())
	assert.Equal(t, "0.33", out.ForfeitedDays.String())
	require.NotNil(t, out.LastResetYear)
	assert.Equal(t, 2025, *out.LastResetYear)
	require.NotNil(t, out.RecalcAnchor)
	assert.True(t, out.RecalcAnchor.Equal(anchor))

	ok, err := s.HasBalance(ctx, "emp-1", "lt-annual")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAddBalance_DuplicatePair(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b := entitlement.Balance{
		EmployeeID: "emp-1", LeaveTypeID: "lt-annual",
		EntitledDays: days("12"), UsedDays: days("0"),
		RemainingDays: days("12"), CarryoverDays: days("0"), ForfeitedDays: days("0"),
	}
	require.NoError(t, s.AddBalance(ctx, b))

	err := s.AddBalance(ctx, b)
	assert.ErrorIs(t, err, entitlement.ErrDuplicateBalance)
}

func TestUpdateBalance(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b := entitlement.Balance{
		EmployeeID: "emp-1", LeaveTypeID: "lt-annual",
		EntitledDays: days("12"), UsedDays: days("0"),
		RemainingDays: days("12"), CarryoverDays: days("0"), ForfeitedDays: days("0"),
	}
	require.NoError(t, s.AddBalance(ctx, b))

	b.UsedDays = days("3")
	b.RemainingDays = days("9")
	require.NoError(t, s.UpdateBalance(ctx, b))

	out, err := s.GetBalance(ctx, "emp-1", "lt-annual")
	require.NoError(t, err)
	assert.Equal(t, "9", out.RemainingDays.String())

	missing := b
	missing.EmployeeID = "ghost"
	err = s.UpdateBalance(ctx, missing)
	assert.ErrorIs(t, err, entitlement.ErrBalanceNotFound)
}

func TestBalancesByLeaveType_FiltersAndOrders(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, b := range []entitlement.Balance{
		{EmployeeID: "emp-b", LeaveTypeID: "lt-annual", EntitledDays: days("12"), UsedDays: days("0"), RemainingDays: days("12"), CarryoverDays: days("0"), ForfeitedDays: days("0")},
		{EmployeeID: "emp-a", LeaveTypeID: "lt-annual", EntitledDays: days("15"), UsedDays: days("0"), RemainingDays: days("15"), CarryoverDays: days("0"), ForfeitedDays: days("0")},
		{EmployeeID: "emp-a", LeaveTypeID: "lt-sick", EntitledDays: days("10"), UsedDays: days("0"), RemainingDays: days("10"), CarryoverDays: days("0"), ForfeitedDays: days("0")},
	} {
		require.NoError(t, s.AddBalance(ctx, b))
	}

	out, err := s.BalancesByLeaveType(ctx, "lt-annual")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, entitlement.EmployeeID("emp-a"), out[0].EmployeeID)
	assert.Equal(t, entitlement.EmployeeID("emp-b"), out[1].EmployeeID)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestWithTx_RollsBackOnError(t *testing.T) {
	// GIVEN: A transaction that inserts a balance and then fails
	// WHEN: WithTx returns the error
	// THEN: The insert is rolled back

	s := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx entitlement.Store) error {
		if err := tx.AddBalance(ctx, entitlement.Balance{
			EmployeeID: "emp-1", LeaveTypeID: "lt-annual",
			EntitledDays: days("12"), UsedDays: days("0"),
			RemainingDays: days("12"), CarryoverDays: days("0"), ForfeitedDays: days("0"),
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	ok, err := s.HasBalance(ctx, "emp-1", "lt-annual")
	require.NoError(t, err)
	assert.False(t, ok, "rolled-back insert must not be visible")
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx entitlement.Store) error {
		return tx.AddBalance(ctx, entitlement.Balance{
			EmployeeID: "emp-1", LeaveTypeID: "lt-annual",
			EntitledDays: days("12"), UsedDays: days("0"),
			RemainingDays: days("12"), CarryoverDays: days("0"), ForfeitedDays: days("0"),
		})
	})
	require.NoError(t, err)

	ok, err := s.HasBalance(ctx, "emp-1", "lt-annual")
	require.NoError(t, err)
	assert.True(t, ok)
}

// =============================================================================
// CYCLE RUNS
// =============================================================================

func TestCycleRuns_SaveUpdateAndFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	started := time.Date(2026, time.January, 1, 2, 0, 0, 0, time.UTC)
	run := entitlement.CycleRun{
		ID: "run-1", Year: 2026, Status: "running", StartedAt: started,
	}
	require.NoError(t, s.SaveCycleRun(ctx, run))

	completed := started.Add(time.Minute)
	run.Status = "completed"
	run.Processed = 42
	run.CompletedAt = &completed
	require.NoError(t, s.SaveCycleRun(ctx, run))

	require.NoError(t, s.SaveCycleRun(ctx, entitlement.CycleRun{
		ID: "run-0", Year: 2025, Status: "completed",
		StartedAt: started.AddDate(-1, 0, 0),
	}))

	all, err := s.ListCycleRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "run-1", all[0].ID, "newest run first")

	y2026, err := s.ListCycleRuns(ctx, 2026)
	require.NoError(t, err)
	require.Len(t, y2026, 1)
	assert.Equal(t, "completed", y2026[0].Status)
	assert.Equal(t, 42, y2026[0].Processed)
	require.NotNil(t, y2026[0].CompletedAt)
}
