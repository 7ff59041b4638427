// Package store provides an in-memory Store implementation for tests
// and development.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/entitlement"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type balanceKey struct {
	EmployeeID  entitlement.EmployeeID
	LeaveTypeID entitlement.LeaveTypeID
}

type Memory struct {
	mu        sync.RWMutex
	employees map[entitlement.EmployeeID]entitlement.Employee
	types     []entitlement.LeaveType
	rules     []entitlement.EntitlementRule
	balances  map[balanceKey]entitlement.Balance
	runs      []entitlement.CycleRun
}

func NewMemory() *Memory {
	return &Memory{
		employees: make(map[entitlement.EmployeeID]entitlement.Employee),
		balances:  make(map[balanceKey]entitlement.Balance),
	}
}

// WithTx runs fn against the store itself. The memory store has no
// rollback; engine operations validate before mutating, which is
// enough for tests. The sqlite store provides real transactions.
func (m *Memory) WithTx(ctx context.Context, fn func(entitlement.Store) error) error {
	return fn(m)
}

// =============================================================================
// EMPLOYEE DIRECTORY
// =============================================================================

func (m *Memory) GetEmployee(_ context.Context, id entitlement.EmployeeID) (*entitlement.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.employees[id]
	if !ok {
		return nil, entitlement.ErrEmployeeNotFound
	}
	return &e, nil
}

func (m *Memory) ListEmployees(_ context.Context) ([]entitlement.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]entitlement.Employee, 0, len(m.employees))
	for _, e := range m.employees {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) PutEmployee(_ context.Context, e entitlement.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.employees[e.ID] = e
	return nil
}

// =============================================================================
// LEAVE TYPE CATALOG
// =============================================================================

func (m *Memory) ActiveLeaveTypes(_ context.Context) ([]entitlement.LeaveType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []entitlement.LeaveType
	for _, lt := range m.types {
		if lt.Active {
			out = append(out, lt)
		}
	}
	return out, nil
}

func (m *Memory) LeaveTypeByCode(_ context.Context, code string) (*entitlement.LeaveType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, lt := range m.types {
		if lt.Code == code {
			cp := lt
			return &cp, nil
		}
	}
	return nil, entitlement.ErrLeaveTypeNotFound
}

func (m *Memory) PutLeaveType(_ context.Context, lt entitlement.LeaveType) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.types {
		if existing.ID == lt.ID {
			m.types[i] = lt
			return nil
		}
	}
	m.types = append(m.types, lt)
	return nil
}

// =============================================================================
// RULE STORE
// =============================================================================

func (m *Memory) GetRule(_ context.Context, id entitlement.RuleID) (*entitlement.EntitlementRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.rules {
		if r.ID == id {
			cp := r
			return &cp, nil
		}
	}
	return nil, entitlement.ErrRuleNotFound
}

// RulesFor preserves insertion order, which is the resolution tie-break.
func (m *Memory) RulesFor(_ context.Context, leaveTypeID entitlement.LeaveTypeID, gradeID entitlement.GradeID) ([]entitlement.EntitlementRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []entitlement.EntitlementRule
	for _, r := range m.rules {
		if r.LeaveTypeID == leaveTypeID && r.GradeID == gradeID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) PutRule(_ context.Context, r entitlement.EntitlementRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.rules {
		if existing.ID == r.ID {
			m.rules[i] = r
			return nil
		}
	}
	m.rules = append(m.rules, r)
	return nil
}

func (m *Memory) UpdateRuleAllocation(_ context.Context, id entitlement.RuleID, days decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, r := range m.rules {
		if r.ID == id {
			m.rules[i].DaysAllocated = days
			return nil
		}
	}
	return entitlement.ErrRuleNotFound
}

// =============================================================================
// BALANCE STORE
// =============================================================================

func (m *Memory) GetBalance(_ context.Context, employeeID entitlement.EmployeeID, leaveTypeID entitlement.LeaveTypeID) (*entitlement.Balance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.balances[balanceKey{employeeID, leaveTypeID}]
	if !ok {
		return nil, entitlement.ErrBalanceNotFound
	}
	return &b, nil
}

func (m *Memory) HasBalance(_ context.Context, employeeID entitlement.EmployeeID, leaveTypeID entitlement.LeaveTypeID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.balances[balanceKey{employeeID, leaveTypeID}]
	return ok, nil
}

func (m *Memory) AddBalance(_ context.Context, b entitlement.Balance) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := balanceKey{b.EmployeeID, b.LeaveTypeID}
	if _, ok := m.balances[k]; ok {
		return entitlement.ErrDuplicateBalance
	}
	m.balances[k] = b
	return nil
}

func (m *Memory) UpdateBalance(_ context.Context, b entitlement.Balance) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := balanceKey{b.EmployeeID, b.LeaveTypeID}
	if _, ok := m.balances[k]; !ok {
		return entitlement.ErrBalanceNotFound
	}
	m.balances[k] = b
	return nil
}

func (m *Memory) BalancesByLeaveType(_ context.Context, leaveTypeID entitlement.LeaveTypeID) ([]entitlement.Balance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []entitlement.Balance
	for _, b := range m.balances {
		if b.LeaveTypeID == leaveTypeID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

// =============================================================================
// CYCLE RUNS
// =============================================================================

func (m *Memory) SaveCycleRun(_ context.Context, run entitlement.CycleRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.runs {
		if existing.ID == run.ID {
			m.runs[i] = run
			return nil
		}
	}
	m.runs = append(m.runs, run)
	return nil
}

func (m *Memory) ListCycleRuns(_ context.Context, year int) ([]entitlement.CycleRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []entitlement.CycleRun
	for i := len(m.runs) - 1; i >= 0; i-- {
		if year == 0 || m.runs[i].Year == year {
			out = append(out, m.runs[i])
		}
	}
	return out, nil
}
