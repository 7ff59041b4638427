/*
store.go - Persistence interfaces for the entitlement engine

PURPOSE:
  Defines the boundary between the engine and storage. The surrounding
  application owns the employee directory, leave type catalog, and rule
  store; the engine reads them and mutates balances. Implementations:

  - store/sqlite:           production store on SQLite
  - entitlement/store:      in-memory store for tests and development

TRANSACTIONS:
  TxStore.WithTx scopes one employee-level operation to a single
  transaction: either the whole recalculation commits or none of it
  does. Notification dispatch happens after commit and is never part
  of the transaction.

ORDERING CONTRACT:
  RulesFor returns rules in creation order. Rule resolution takes the
  first match, so this order is the documented tie-break for
  overlapping bands.
*/
package entitlement

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

// EmployeeDirectory supplies employee identity, grade, gender, hire
// date, and the last-changed anchor date.
type EmployeeDirectory interface {
	// GetEmployee returns ErrEmployeeNotFound when the id does not resolve.
	GetEmployee(ctx context.Context, id EmployeeID) (*Employee, error)

	ListEmployees(ctx context.Context) ([]Employee, error)

	// PutEmployee inserts or replaces a directory record.
	PutEmployee(ctx context.Context, e Employee) error
}

// LeaveTypeCatalog supplies the leave type configuration.
type LeaveTypeCatalog interface {
	// ActiveLeaveTypes returns all active types in creation order.
	ActiveLeaveTypes(ctx context.Context) ([]LeaveType, error)

	// LeaveTypeByCode returns ErrLeaveTypeNotFound when the code is unknown.
	LeaveTypeByCode(ctx context.Context, code string) (*LeaveType, error)

	PutLeaveType(ctx context.Context, lt LeaveType) error
}

// RuleStore supplies and administers entitlement rules.
type RuleStore interface {
	// GetRule returns ErrRuleNotFound when the id does not resolve.
	GetRule(ctx context.Context, id RuleID) (*EntitlementRule, error)

	// RulesFor returns all rules for a (leave type, grade) pair in
	// creation order, active or not. Resolution filters on Active.
	RulesFor(ctx context.Context, leaveTypeID LeaveTypeID, gradeID GradeID) ([]EntitlementRule, error)

	PutRule(ctx context.Context, r EntitlementRule) error

	// UpdateRuleAllocation changes DaysAllocated for an existing rule.
	UpdateRuleAllocation(ctx context.Context, id RuleID, days decimal.Decimal) error
}

// BalanceStore persists per-employee allocation state.
type BalanceStore interface {
	// GetBalance returns ErrBalanceNotFound when the pair has no row.
	GetBalance(ctx context.Context, employeeID EmployeeID, leaveTypeID LeaveTypeID) (*Balance, error)

	HasBalance(ctx context.Context, employeeID EmployeeID, leaveTypeID LeaveTypeID) (bool, error)

	// AddBalance returns ErrDuplicateBalance when the pair already has a row.
	AddBalance(ctx context.Context, b Balance) error

	// UpdateBalance replaces the state of an existing row.
	UpdateBalance(ctx context.Context, b Balance) error

	// BalancesByLeaveType returns every balance for one leave type,
	// ordered by employee id for deterministic batch passes.
	BalancesByLeaveType(ctx context.Context, leaveTypeID LeaveTypeID) ([]Balance, error)
}

// Store bundles everything the lifecycle operations need.
type Store interface {
	EmployeeDirectory
	LeaveTypeCatalog
	RuleStore
	BalanceStore
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction. If fn returns an error,
	// the transaction is rolled back; otherwise it is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// =============================================================================
// CYCLE RUNS - Audit records for scheduler passes
// =============================================================================

// CycleRun records one execution of the yearly reset pass.
type CycleRun struct {
	ID          string
	Year        int
	Status      string // "running", "completed", "failed"
	Processed   int
	Skipped     int
	Failed      int
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
}

// RunStore persists cycle run records. Separate from Store because
// only the scheduler and the admin surface touch it.
type RunStore interface {
	SaveCycleRun(ctx context.Context, run CycleRun) error

	// ListCycleRuns returns runs for a year, newest first. Year 0
	// means all years.
	ListCycleRuns(ctx context.Context, year int) ([]CycleRun, error)
}
