/*
Package sqlite provides the SQLite-backed implementation of the
entitlement storage interfaces.

INTERFACES IMPLEMENTED:
  entitlement.Store:    directory, catalog, rules, balances
  entitlement.TxStore:  transactional scope per operation
  entitlement.RunStore: cycle run records

KEY TABLES:
  employees:         directory slice the engine consumes
  leave_types:       catalog with active and female-only flags
  entitlement_rules: policy rules with service bands
  leave_balances:    one row per (employee, leave type)
  cycle_runs:        audit records for scheduler passes

DECIMALS:
  Day counts are stored as TEXT and parsed with shopspring/decimal, so
  proration results round-trip exactly. REAL columns would reintroduce
  the floating-point drift the engine exists to avoid.

ORDERING:
  entitlement_rules are returned ordered by (created_at, id). Rule
  resolution takes the first match, so this is the documented
  tie-break for overlapping service bands.

WAL MODE:
  The database is opened with WAL (Write-Ahead Logging) for better
  concurrency: readers don't block and crash recovery is cleaner.
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/entitlement"
)

// dbtx is the subset of database/sql shared by *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries implements entitlement.Store against either a DB or a Tx.
type queries struct {
	q dbtx
}

// Store implements the storage interfaces using SQLite.
type Store struct {
	queries
	db *sql.DB
}

// New opens (or creates) the database at path and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{queries: queries{q: db}, db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		full_name TEXT NOT NULL,
		email TEXT NOT NULL,
		gender TEXT NOT NULL,
		grade_id TEXT NOT NULL,
		hire_date TEXT NOT NULL,
		last_changed_at TEXT
	);

	CREATE TABLE IF NOT EXISTS leave_types (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		female_only INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS entitlement_rules (
		id TEXT PRIMARY KEY,
		leave_type_id TEXT NOT NULL,
		grade_id TEXT NOT NULL,
		min_years TEXT NOT NULL,
		max_years TEXT,
		days_allocated TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_rules_type_grade
		ON entitlement_rules(leave_type_id, grade_id, created_at);

	CREATE TABLE IF NOT EXISTS leave_balances (
		employee_id TEXT NOT NULL,
		leave_type_id TEXT NOT NULL,
		entitled_days TEXT NOT NULL,
		used_days TEXT NOT NULL,
		remaining_days TEXT NOT NULL,
		carryover_days TEXT NOT NULL,
		forfeited_days TEXT NOT NULL,
		last_reset_year INTEGER,
		recalc_anchor TEXT,
		PRIMARY KEY (employee_id, leave_type_id)
	);
	CREATE INDEX IF NOT EXISTS idx_balances_type
		ON leave_balances(leave_type_id, employee_id);

	CREATE TABLE IF NOT EXISTS cycle_runs (
		id TEXT PRIMARY KEY,
		year INTEGER NOT NULL,
		status TEXT NOT NULL,
		processed INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		started_at TEXT NOT NULL,
		completed_at TEXT
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(entitlement.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&queries{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

// =============================================================================
// ENCODING HELPERS
// =============================================================================

func encodeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func decodeTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

func decodeDecimal(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// =============================================================================
// EMPLOYEE DIRECTORY
// =============================================================================

func (s *queries) GetEmployee(ctx context.Context, id entitlement.EmployeeID) (*entitlement.Employee, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, full_name, email, gender, grade_id, hire_date, last_changed_at
		FROM employees WHERE id = ?`, string(id))

	e, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entitlement.ErrEmployeeNotFound
	}
	return e, err
}

func (s *queries) ListEmployees(ctx context.Context) ([]entitlement.Employee, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, full_name, email, gender, grade_id, hire_date, last_changed_at
		FROM employees ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entitlement.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (s *queries) PutEmployee(ctx context.Context, e entitlement.Employee) error {
	var lastChanged any
	if e.LastChangedAt != nil {
		lastChanged = encodeTime(*e.LastChangedAt)
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO employees (id, full_name, email, gender, grade_id, hire_date, last_changed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			full_name = excluded.full_name,
			email = excluded.email,
			gender = excluded.gender,
			grade_id = excluded.grade_id,
			hire_date = excluded.hire_date,
			last_changed_at = excluded.last_changed_at`,
		string(e.ID), e.FullName, e.Email, string(e.Gender), string(e.GradeID),
		encodeTime(e.HireDate), lastChanged)
	return err
}

func scanEmployee(sc rowScanner) (*entitlement.Employee, error) {
	var e entitlement.Employee
	var hireDate string
	var lastChanged sql.NullString

	err := sc.Scan(&e.ID, &e.FullName, &e.Email, &e.Gender, &e.GradeID, &hireDate, &lastChanged)
	if err != nil {
		return nil, err
	}

	if e.HireDate, err = decodeTime(hireDate); err != nil {
		return nil, fmt.Errorf("bad hire_date: %w", err)
	}
	if lastChanged.Valid {
		t, err := decodeTime(lastChanged.String)
		if err != nil {
			return nil, fmt.Errorf("bad last_changed_at: %w", err)
		}
		e.LastChangedAt = &t
	}
	return &e, nil
}

// =============================================================================
// LEAVE TYPE CATALOG
// =============================================================================

func (s *queries) ActiveLeaveTypes(ctx context.Context) ([]entitlement.LeaveType, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, code, name, active, female_only
		FROM leave_types WHERE active = 1
		ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entitlement.LeaveType
	for rows.Next() {
		var lt entitlement.LeaveType
		if err := rows.Scan(&lt.ID, &lt.Code, &lt.Name, &lt.Active, &lt.FemaleOnly); err != nil {
			return nil, err
		}
		out = append(out, lt)
	}
	return out, rows.Err()
}

func (s *queries) LeaveTypeByCode(ctx context.Context, code string) (*entitlement.LeaveType, error) {
	var lt entitlement.LeaveType
	err := s.q.QueryRowContext(ctx, `
		SELECT id, code, name, active, female_only
		FROM leave_types WHERE code = ?`, code).
		Scan(&lt.ID, &lt.Code, &lt.Name, &lt.Active, &lt.FemaleOnly)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entitlement.ErrLeaveTypeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &lt, nil
}

func (s *queries) PutLeaveType(ctx context.Context, lt entitlement.LeaveType) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO leave_types (id, code, name, active, female_only, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			code = excluded.code,
			name = excluded.name,
			active = excluded.active,
			female_only = excluded.female_only`,
		string(lt.ID), lt.Code, lt.Name, lt.Active, lt.FemaleOnly, encodeTime(time.Now()))
	return err
}

// =============================================================================
// RULE STORE
// =============================================================================

func (s *queries) GetRule(ctx context.Context, id entitlement.RuleID) (*entitlement.EntitlementRule, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, leave_type_id, grade_id, min_years, max_years, days_allocated, active, created_at
		FROM entitlement_rules WHERE id = ?`, string(id))

	r, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entitlement.ErrRuleNotFound
	}
	return r, err
}

func (s *queries) RulesFor(ctx context.Context, leaveTypeID entitlement.LeaveTypeID, gradeID entitlement.GradeID) ([]entitlement.EntitlementRule, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, leave_type_id, grade_id, min_years, max_years, days_allocated, active, created_at
		FROM entitlement_rules
		WHERE leave_type_id = ? AND grade_id = ?
		ORDER BY created_at, id`, string(leaveTypeID), string(gradeID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entitlement.EntitlementRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *queries) PutRule(ctx context.Context, r entitlement.EntitlementRule) error {
	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	var maxYears any
	if r.MaxYearsService != nil {
		maxYears = r.MaxYearsService.String()
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO entitlement_rules (id, leave_type_id, grade_id, min_years, max_years, days_allocated, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			leave_type_id = excluded.leave_type_id,
			grade_id = excluded.grade_id,
			min_years = excluded.min_years,
			max_years = excluded.max_years,
			days_allocated = excluded.days_allocated,
			active = excluded.active`,
		string(r.ID), string(r.LeaveTypeID), string(r.GradeID),
		r.MinYearsService.String(), maxYears, r.DaysAllocated.String(),
		r.Active, encodeTime(createdAt))
	return err
}

func (s *queries) UpdateRuleAllocation(ctx context.Context, id entitlement.RuleID, days decimal.Decimal) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE entitlement_rules SET days_allocated = ? WHERE id = ?`,
		days.String(), string(id))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return entitlement.ErrRuleNotFound
	}
	return nil
}

func scanRule(sc rowScanner) (*entitlement.EntitlementRule, error) {
	var r entitlement.EntitlementRule
	var minYears, days, createdAt string
	var maxYears sql.NullString

	err := sc.Scan(&r.ID, &r.LeaveTypeID, &r.GradeID, &minYears, &maxYears, &days, &r.Active, &createdAt)
	if err != nil {
		return nil, err
	}

	if r.MinYearsService, err = decodeDecimal(minYears); err != nil {
		return nil, fmt.Errorf("bad min_years: %w", err)
	}
	if maxYears.Valid {
		d, err := decodeDecimal(maxYears.String)
		if err != nil {
			return nil, fmt.Errorf("bad max_years: %w", err)
		}
		r.MaxYearsService = &d
	}
	if r.DaysAllocated, err = decodeDecimal(days); err != nil {
		return nil, fmt.Errorf("bad days_allocated: %w", err)
	}
	if r.CreatedAt, err = decodeTime(createdAt); err != nil {
		return nil, fmt.Errorf("bad created_at: %w", err)
	}
	return &r, nil
}

// =============================================================================
// BALANCE STORE
// =============================================================================

func (s *queries) GetBalance(ctx context.Context, employeeID entitlement.EmployeeID, leaveTypeID entitlement.LeaveTypeID) (*entitlement.Balance, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT employee_id, leave_type_id, entitled_days, used_days, remaining_days,
		       carryover_days, forfeited_days, last_reset_year, recalc_anchor
		FROM leave_balances WHERE employee_id = ? AND leave_type_id = ?`,
		string(employeeID), string(leaveTypeID))

	b, err := scanBalance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entitlement.ErrBalanceNotFound
	}
	return b, err
}

func (s *queries) HasBalance(ctx context.Context, employeeID entitlement.EmployeeID, leaveTypeID entitlement.LeaveTypeID) (bool, error) {
	var n int
	err := s.q.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM leave_balances WHERE employee_id = ? AND leave_type_id = ?`,
		string(employeeID), string(leaveTypeID)).Scan(&n)
	return n > 0, err
}

func (s *queries) AddBalance(ctx context.Context, b entitlement.Balance) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO leave_balances (employee_id, leave_type_id, entitled_days, used_days,
			remaining_days, carryover_days, forfeited_days, last_reset_year, recalc_anchor)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		balanceArgs(b)...)
	if err != nil && isUniqueViolation(err) {
		return entitlement.ErrDuplicateBalance
	}
	return err
}

func (s *queries) UpdateBalance(ctx context.Context, b entitlement.Balance) error {
	args := balanceArgs(b)
	// Key columns move to the end for the WHERE clause.
	res, err := s.q.ExecContext(ctx, `
		UPDATE leave_balances SET entitled_days = ?, used_days = ?, remaining_days = ?,
			carryover_days = ?, forfeited_days = ?, last_reset_year = ?, recalc_anchor = ?
		WHERE employee_id = ? AND leave_type_id = ?`,
		append(args[2:], args[0], args[1])...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return entitlement.ErrBalanceNotFound
	}
	return nil
}

func (s *queries) BalancesByLeaveType(ctx context.Context, leaveTypeID entitlement.LeaveTypeID) ([]entitlement.Balance, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT employee_id, leave_type_id, entitled_days, used_days, remaining_days,
		       carryover_days, forfeited_days, last_reset_year, recalc_anchor
		FROM leave_balances WHERE leave_type_id = ?
		ORDER BY employee_id`, string(leaveTypeID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entitlement.Balance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func balanceArgs(b entitlement.Balance) []any {
	var resetYear any
	if b.LastResetYear != nil {
		resetYear = *b.LastResetYear
	}
	var anchor any
	if b.RecalcAnchor != nil {
		anchor = encodeTime(*b.RecalcAnchor)
	}
	return []any{
		string(b.EmployeeID), string(b.LeaveTypeID),
		b.EntitledDays.String(), b.UsedDays.String(), b.RemainingDays.String(),
		b.CarryoverDays.String(), b.ForfeitedDays.String(),
		resetYear, anchor,
	}
}

func scanBalance(sc rowScanner) (*entitlement.Balance, error) {
	var b entitlement.Balance
	var entitled, used, remaining, carryover, forfeited string
	var resetYear sql.NullInt64
	var anchor sql.NullString

	err := sc.Scan(&b.EmployeeID, &b.LeaveTypeID, &entitled, &used, &remaining,
		&carryover, &forfeited, &resetYear, &anchor)
	if err != nil {
		return nil, err
	}

	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&b.EntitledDays, entitled},
		{&b.UsedDays, used},
		{&b.RemainingDays, remaining},
		{&b.CarryoverDays, carryover},
		{&b.ForfeitedDays, forfeited},
	} {
		if *f.dst, err = decodeDecimal(f.src); err != nil {
			return nil, fmt.Errorf("bad balance decimal: %w", err)
		}
	}

	if resetYear.Valid {
		y := int(resetYear.Int64)
		b.LastResetYear = &y
	}
	if anchor.Valid {
		t, err := decodeTime(anchor.String)
		if err != nil {
			return nil, fmt.Errorf("bad recalc_anchor: %w", err)
		}
		b.RecalcAnchor = &t
	}
	return &b, nil
}

// =============================================================================
// CYCLE RUNS
// =============================================================================

func (s *queries) SaveCycleRun(ctx context.Context, run entitlement.CycleRun) error {
	var completed any
	if run.CompletedAt != nil {
		completed = encodeTime(*run.CompletedAt)
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO cycle_runs (id, year, status, processed, skipped, failed, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			processed = excluded.processed,
			skipped = excluded.skipped,
			failed = excluded.failed,
			error = excluded.error,
			completed_at = excluded.completed_at`,
		run.ID, run.Year, run.Status, run.Processed, run.Skipped, run.Failed,
		run.Error, encodeTime(run.StartedAt), completed)
	return err
}

func (s *queries) ListCycleRuns(ctx context.Context, year int) ([]entitlement.CycleRun, error) {
	query := `
		SELECT id, year, status, processed, skipped, failed, error, started_at, completed_at
		FROM cycle_runs`
	var args []any
	if year != 0 {
		query += ` WHERE year = ?`
		args = append(args, year)
	}
	query += ` ORDER BY started_at DESC, id`

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entitlement.CycleRun
	for rows.Next() {
		var run entitlement.CycleRun
		var startedAt string
		var completedAt sql.NullString
		if err := rows.Scan(&run.ID, &run.Year, &run.Status, &run.Processed,
			&run.Skipped, &run.Failed, &run.Error, &startedAt, &completedAt); err != nil {
			return nil, err
		}
		if run.StartedAt, err = decodeTime(startedAt); err != nil {
			return nil, fmt.Errorf("bad started_at: %w", err)
		}
		if completedAt.Valid {
			t, err := decodeTime(completedAt.String)
			if err != nil {
				return nil, fmt.Errorf("bad completed_at: %w", err)
			}
			run.CompletedAt = &t
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
