/*
Package factory converts JSON catalog definitions into domain objects.

PURPOSE:
  Leave types, entitlement rules, and demo employees can be defined in
  a JSON file and loaded at startup without code changes. HR
  administrators edit the catalog; the factory validates it and seeds
  the store.

JSON SCHEMA:
  {
    "leave_types": [
      {"id": "lt-annual", "code": "ANNUAL", "name": "Annual Leave",
       "active": true, "female_only": false}
    ],
    "rules": [
      {"id": "rule-annual-g1-junior", "leave_type": "lt-annual",
       "grade": "G1", "min_years": 0, "max_years": 3, "days": 15,
       "active": true}
    ],
    "employees": [
      {"id": "emp-1", "name": "Thandi Dlamini", "email": "thandi@example.com",
       "gender": "female", "grade": "G1", "hire_date": "2022-03-14"}
    ]
  }

  Omit "max_years" for an open-ended service band.
*/
package factory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/entitlement"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

type CatalogJSON struct {
	LeaveTypes []LeaveTypeJSON `json:"leave_types"`
	Rules      []RuleJSON      `json:"rules"`
	Employees  []EmployeeJSON  `json:"employees,omitempty"`
}

type LeaveTypeJSON struct {
	ID         string `json:"id"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	Active     bool   `json:"active"`
	FemaleOnly bool   `json:"female_only"`
}

type RuleJSON struct {
	ID        string   `json:"id"`
	LeaveType string   `json:"leave_type"`
	Grade     string   `json:"grade"`
	MinYears  float64  `json:"min_years"`
	MaxYears  *float64 `json:"max_years,omitempty"`
	Days      float64  `json:"days"`
	Active    bool     `json:"active"`
}

type EmployeeJSON struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Gender      string `json:"gender"`
	Grade       string `json:"grade"`
	HireDate    string `json:"hire_date"`
	LastChanged string `json:"last_changed,omitempty"`
}

// =============================================================================
// CATALOG - Validated domain objects ready for seeding
// =============================================================================

type Catalog struct {
	LeaveTypes []entitlement.LeaveType
	Rules      []entitlement.EntitlementRule
	Employees  []entitlement.Employee
}

// ParseCatalog validates a JSON catalog and converts it into domain
// objects. Rules keep their file order; seeding preserves it, so the
// file order is the resolution tie-break for overlapping bands.
func ParseCatalog(data []byte) (*Catalog, error) {
	var raw CatalogJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid catalog JSON: %w", err)
	}

	cat := &Catalog{}

	typeIDs := make(map[string]bool)
	for i, lt := range raw.LeaveTypes {
		if lt.ID == "" || lt.Code == "" {
			return nil, fmt.Errorf("leave type %d: id and code are required", i)
		}
		typeIDs[lt.ID] = true
		cat.LeaveTypes = append(cat.LeaveTypes, entitlement.LeaveType{
			ID:         entitlement.LeaveTypeID(lt.ID),
			Code:       lt.Code,
			Name:       lt.Name,
			Active:     lt.Active,
			FemaleOnly: lt.FemaleOnly,
		})
	}

	for i, r := range raw.Rules {
		if r.ID == "" {
			return nil, fmt.Errorf("rule %d: id is required", i)
		}
		if !typeIDs[r.LeaveType] {
			return nil, fmt.Errorf("rule %s: unknown leave type %q", r.ID, r.LeaveType)
		}
		if r.Days < 0 {
			return nil, fmt.Errorf("rule %s: days must not be negative", r.ID)
		}
		if r.MaxYears != nil && *r.MaxYears < r.MinYears {
			return nil, fmt.Errorf("rule %s: max_years below min_years", r.ID)
		}

		rule := entitlement.EntitlementRule{
			ID:              entitlement.RuleID(r.ID),
			LeaveTypeID:     entitlement.LeaveTypeID(r.LeaveType),
			GradeID:         entitlement.GradeID(r.Grade),
			MinYearsService: decimal.NewFromFloat(r.MinYears),
			DaysAllocated:   decimal.NewFromFloat(r.Days),
			Active:          r.Active,
			// Spread creation times so stores that order by creation
			// reproduce the file order.
			CreatedAt: time.Unix(int64(i), 0).UTC(),
		}
		if r.MaxYears != nil {
			max := decimal.NewFromFloat(*r.MaxYears)
			rule.MaxYearsService = &max
		}
		cat.Rules = append(cat.Rules, rule)
	}

	for i, e := range raw.Employees {
		if e.ID == "" {
			return nil, fmt.Errorf("employee %d: id is required", i)
		}
		hire, err := time.Parse("2006-01-02", e.HireDate)
		if err != nil {
			return nil, fmt.Errorf("employee %s: bad hire_date: %w", e.ID, err)
		}
		emp := entitlement.Employee{
			ID:       entitlement.EmployeeID(e.ID),
			FullName: e.Name,
			Email:    e.Email,
			Gender:   entitlement.Gender(e.Gender),
			GradeID:  entitlement.GradeID(e.Grade),
			HireDate: hire,
		}
		if e.LastChanged != "" {
			lc, err := time.Parse("2006-01-02", e.LastChanged)
			if err != nil {
				return nil, fmt.Errorf("employee %s: bad last_changed: %w", e.ID, err)
			}
			emp.LastChangedAt = &lc
		}
		cat.Employees = append(cat.Employees, emp)
	}

	return cat, nil
}

// Seed writes the catalog into the store. Existing rows with the same
// ids are replaced; the store's Put semantics make re-seeding safe.
func (c *Catalog) Seed(ctx context.Context, s entitlement.Store) error {
	for _, lt := range c.LeaveTypes {
		if err := s.PutLeaveType(ctx, lt); err != nil {
			return fmt.Errorf("seed leave type %s: %w", lt.ID, err)
		}
	}
	for _, r := range c.Rules {
		if err := s.PutRule(ctx, r); err != nil {
			return fmt.Errorf("seed rule %s: %w", r.ID, err)
		}
	}
	for _, e := range c.Employees {
		if err := s.PutEmployee(ctx, e); err != nil {
			return fmt.Errorf("seed employee %s: %w", e.ID, err)
		}
	}
	return nil
}
