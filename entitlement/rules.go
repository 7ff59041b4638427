package entitlement

import "github.com/shopspring/decimal"

// =============================================================================
// RULE RESOLUTION - Pure selection over a pre-scoped rule slice
// =============================================================================

// ResolveRule selects the entitlement rule governing a tenure value
// from a slice of rules already scoped to one (leave type, job grade)
// pair. The slice order is the tie-break: active service bands are not
// supposed to overlap, but if configuration violates that, the first
// match in the given order wins. Stores return rules in creation
// order, so the tie-break is stable across invocations.
//
// The boolean result is false when no active rule's band contains the
// tenure value.
func ResolveRule(rules []EntitlementRule, yearsOfService decimal.Decimal) (EntitlementRule, bool) {
	for _, r := range rules {
		if r.Matches(yearsOfService) {
			return r, true
		}
	}
	return EntitlementRule{}, false
}
