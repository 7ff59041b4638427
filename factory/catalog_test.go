package factory_test

import (
	"context"
	"strings"
	"testing"

	"github.com/warp/leave-engine/entitlement/store"
	"github.com/warp/leave-engine/factory"
)

const sampleCatalog = `{
	"leave_types": [
		{"id": "lt-annual", "code": "ANNUAL", "name": "Annual Leave", "active": true},
		{"id": "lt-maternity", "code": "MATERNITY", "name": "Maternity Leave", "active": true, "female_only": true}
	],
	"rules": [
		{"id": "annual-g1-junior", "leave_type": "lt-annual", "grade": "G1", "min_years": 0, "max_years": 3, "days": 12, "active": true},
		{"id": "annual-g1-senior", "leave_type": "lt-annual", "grade": "G1", "min_years": 3, "days": 15, "active": true}
	],
	"employees": [
		{"id": "emp-1", "name": "Thandi Dlamini", "email": "thandi@example.com", "gender": "female", "grade": "G1", "hire_date": "2022-03-14", "last_changed": "2025-07-01"}
	]
}`

func TestParseCatalog(t *testing.T) {
	cat, err := factory.ParseCatalog([]byte(sampleCatalog))
	if err != nil {
		t.Fatalf("ParseCatalog: %v", err)
	}

	if len(cat.LeaveTypes) != 2 || len(cat.Rules) != 2 || len(cat.Employees) != 1 {
		t.Fatalf("parsed %d types, %d rules, %d employees",
			len(cat.LeaveTypes), len(cat.Rules), len(cat.Employees))
	}

	if !cat.LeaveTypes[1].FemaleOnly {
		t.Error("maternity type must carry the female-only flag")
	}

	junior := cat.Rules[0]
	if junior.MaxYearsService == nil || junior.MaxYearsService.String() != "3" {
		t.Errorf("junior max years = %v, want 3", junior.MaxYearsService)
	}
	senior := cat.Rules[1]
	if senior.MaxYearsService != nil {
		t.Error("omitted max_years must parse as an open-ended band")
	}
	if !junior.CreatedAt.Before(senior.CreatedAt) {
		t.Error("rule creation times must preserve file order")
	}

	emp := cat.Employees[0]
	if emp.HireDate.Format("2006-01-02") != "2022-03-14" {
		t.Errorf("hire date = %s", emp.HireDate)
	}
	if emp.LastChangedAt == nil {
		t.Fatal("last_changed must populate LastChangedAt")
	}
}

func TestParseCatalog_Validation(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		wantErr string
	}{
		{
			"not json",
			`{`,
			"invalid catalog JSON",
		},
		{
			"missing type id",
			`{"leave_types": [{"code": "ANNUAL"}]}`,
			"id and code are required",
		},
		{
			"rule references unknown type",
			`{"leave_types": [{"id": "lt-a", "code": "ANNUAL"}],
			  "rules": [{"id": "r1", "leave_type": "nope", "grade": "G1", "days": 10}]}`,
			"unknown leave type",
		},
		{
			"negative days",
			`{"leave_types": [{"id": "lt-a", "code": "ANNUAL"}],
			  "rules": [{"id": "r1", "leave_type": "lt-a", "grade": "G1", "days": -1}]}`,
			"days must not be negative",
		},
		{
			"inverted band",
			`{"leave_types": [{"id": "lt-a", "code": "ANNUAL"}],
			  "rules": [{"id": "r1", "leave_type": "lt-a", "grade": "G1", "min_years": 5, "max_years": 2, "days": 10}]}`,
			"max_years below min_years",
		},
		{
			"bad hire date",
			`{"employees": [{"id": "emp-1", "hire_date": "14/03/2022"}]}`,
			"bad hire_date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := factory.ParseCatalog([]byte(tt.json))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestSeed_IsRepeatable(t *testing.T) {
	// Re-seeding the same catalog must replace rows, not duplicate them.

	cat, err := factory.ParseCatalog([]byte(sampleCatalog))
	if err != nil {
		t.Fatalf("ParseCatalog: %v", err)
	}

	ctx := context.Background()
	m := store.NewMemory()

	if err := cat.Seed(ctx, m); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	if err := cat.Seed(ctx, m); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	rules, err := m.RulesFor(ctx, "lt-annual", "G1")
	if err != nil {
		t.Fatalf("RulesFor: %v", err)
	}
	if len(rules) != 2 {
		t.Errorf("store holds %d rules after re-seed, want 2", len(rules))
	}
	if rules[0].ID != "annual-g1-junior" {
		t.Errorf("first rule = %s, seeding must preserve file order", rules[0].ID)
	}

	if _, err := m.GetEmployee(ctx, "emp-1"); err != nil {
		t.Errorf("seeded employee missing: %v", err)
	}

	types, err := m.ActiveLeaveTypes(ctx)
	if err != nil {
		t.Fatalf("ActiveLeaveTypes: %v", err)
	}
	if len(types) != 2 {
		t.Errorf("store holds %d active types after re-seed, want 2", len(types))
	}
}
