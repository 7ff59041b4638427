package entitlement_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/entitlement"
)

func days(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func band(id string, min float64, max *float64, allocated float64, active bool) entitlement.EntitlementRule {
	r := entitlement.EntitlementRule{
		ID:              entitlement.RuleID(id),
		LeaveTypeID:     "lt-annual",
		GradeID:         "G1",
		MinYearsService: days(min),
		DaysAllocated:   days(allocated),
		Active:          active,
	}
	if max != nil {
		m := days(*max)
		r.MaxYearsService = &m
	}
	return r
}

func maxYears(v float64) *float64 { return &v }

func TestResolveRule_SelectsBandByTenure(t *testing.T) {
	// GIVEN: Bands [0,3] and [3+,unbounded) for one leave type and grade
	// WHEN: Resolving a 4-year tenure
	// THEN: The open-ended senior band wins, not the junior band

	rules := []entitlement.EntitlementRule{
		band("junior", 0, maxYears(3), 15, true),
		band("senior", 3, nil, 20, true),
	}

	got, ok := entitlement.ResolveRule(rules, days(4))
	if !ok {
		t.Fatal("expected a match")
	}
	if got.ID != "senior" {
		t.Errorf("resolved %s, want senior", got.ID)
	}
}

func TestResolveRule_BoundariesAreInclusive(t *testing.T) {
	rules := []entitlement.EntitlementRule{
		band("junior", 0, maxYears(3), 15, true),
	}

	for _, tenure := range []float64{0, 3} {
		if _, ok := entitlement.ResolveRule(rules, days(tenure)); !ok {
			t.Errorf("tenure %v should fall inside [0,3]", tenure)
		}
	}
	if _, ok := entitlement.ResolveRule(rules, days(3.01)); ok {
		t.Error("tenure 3.01 should fall outside [0,3]")
	}
}

func TestResolveRule_InactiveRuleNeverSelected(t *testing.T) {
	// GIVEN: An inactive rule whose band matches and an active one behind it
	// WHEN: Resolving
	// THEN: The inactive rule is skipped even though it comes first

	rules := []entitlement.EntitlementRule{
		band("retired", 0, nil, 30, false),
		band("current", 0, nil, 18, true),
	}

	got, ok := entitlement.ResolveRule(rules, days(1))
	if !ok {
		t.Fatal("expected a match")
	}
	if got.ID != "current" {
		t.Errorf("resolved %s, want current", got.ID)
	}
}

func TestResolveRule_OverlappingBandsTakeFirstInOrder(t *testing.T) {
	// Overlapping active bands are a configuration anomaly. The
	// contract is deterministic: first match in slice order wins.

	rules := []entitlement.EntitlementRule{
		band("first", 0, maxYears(5), 10, true),
		band("second", 0, maxYears(5), 99, true),
	}

	got, ok := entitlement.ResolveRule(rules, days(2))
	if !ok {
		t.Fatal("expected a match")
	}
	if got.ID != "first" {
		t.Errorf("resolved %s, want first", got.ID)
	}
}

func TestResolveRule_NoMatch(t *testing.T) {
	rules := []entitlement.EntitlementRule{
		band("senior", 5, nil, 20, true),
	}

	if _, ok := entitlement.ResolveRule(rules, days(2)); ok {
		t.Error("expected no match below the band minimum")
	}
	if _, ok := entitlement.ResolveRule(nil, days(2)); ok {
		t.Error("expected no match against an empty rule set")
	}
}

func TestResolveRule_NegativeTenureMatchesNothing(t *testing.T) {
	rules := []entitlement.EntitlementRule{
		band("junior", 0, maxYears(3), 15, true),
	}

	if _, ok := entitlement.ResolveRule(rules, days(-0.5)); ok {
		t.Error("negative tenure must not match any band")
	}
}
