/*
handlers.go - HTTP handlers for the entitlement operations

ERROR MAPPING:
  not-found errors            -> 404
  last-changed date missing   -> 422
  allocation below used days  -> 409
  malformed request body      -> 400
  everything else             -> 500

Notifications returned by an operation are dispatched after the
operation's transaction has committed, so a mail failure can never
surface as an operation failure.
*/
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/entitlement"
	"github.com/warp/leave-engine/lifecycle"
	"github.com/warp/leave-engine/notify"
)

// Store is what the HTTP layer needs from storage.
type Store interface {
	entitlement.TxStore
	entitlement.RunStore
}

// Handler holds the dependencies for all routes.
type Handler struct {
	Engine     *lifecycle.Engine
	Store      Store
	Dispatcher *notify.Dispatcher

	// Now supplies the reference time for operations. Defaults to
	// time.Now; tests pin it.
	Now func() time.Time
}

func NewHandler(engine *lifecycle.Engine, store Store, dispatcher *notify.Dispatcher) *Handler {
	return &Handler{
		Engine:     engine,
		Store:      store,
		Dispatcher: dispatcher,
		Now:        time.Now,
	}
}

// =============================================================================
// EMPLOYEE ROUTES
// =============================================================================

// InitializeBalances creates balances for a newly hired employee.
// POST /api/employees/{id}/balances/initialize
func (h *Handler) InitializeBalances(w http.ResponseWriter, r *http.Request) {
	employeeID := entitlement.EmployeeID(chi.URLParam(r, "id"))

	result, err := h.Engine.InitializeBalances(r.Context(), employeeID, h.Now())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"created": balanceDTOs(result.Created),
	})
}

// GetBalances returns every balance an employee holds.
// GET /api/employees/{id}/balances
func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	employeeID := entitlement.EmployeeID(chi.URLParam(r, "id"))

	if _, err := h.Store.GetEmployee(ctx, employeeID); err != nil {
		writeError(w, err)
		return
	}

	types, err := h.Store.ActiveLeaveTypes(ctx)
	if err != nil {
		writeError(w, err)
		return
	}

	var out []balanceDTO
	for _, lt := range types {
		b, err := h.Store.GetBalance(ctx, employeeID, lt.ID)
		if errors.Is(err, entitlement.ErrBalanceNotFound) {
			continue
		}
		if err != nil {
			writeError(w, err)
			return
		}
		out = append(out, toBalanceDTO(*b))
	}

	writeJSON(w, http.StatusOK, map[string]any{"balances": out})
}

// RecalculateAnnualEntitlement re-derives the annual leave entitlement
// after a grade change.
// POST /api/employees/{id}/recalculate
func (h *Handler) RecalculateAnnualEntitlement(w http.ResponseWriter, r *http.Request) {
	employeeID := entitlement.EmployeeID(chi.URLParam(r, "id"))

	result, err := h.Engine.RecalculateAnnualEntitlement(r.Context(), employeeID, h.Now())
	if err != nil {
		writeError(w, err)
		return
	}

	h.Dispatcher.Dispatch(r.Context(), result.Notifications)

	writeJSON(w, http.StatusOK, map[string]any{
		"entitled_days": result.EntitledDays.StringFixed(2),
		"applied":       result.Applied,
	})
}

// =============================================================================
// ADMIN ROUTES
// =============================================================================

// TriggerAnnualReset runs the year-end pass immediately.
// POST /api/admin/annual-reset
func (h *Handler) TriggerAnnualReset(w http.ResponseWriter, r *http.Request) {
	report, err := h.Engine.ProcessAnnualReset(r.Context(), h.Now())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"year":      report.Year,
		"processed": report.Processed,
		"skipped":   report.Skipped,
		"failed":    report.Failed,
	})
}

// TriggerCarryoverNotices runs the forfeiture warning pass immediately.
// POST /api/admin/carryover-notices
func (h *Handler) TriggerCarryoverNotices(w http.ResponseWriter, r *http.Request) {
	report, err := h.Engine.ProcessCarryoverNotifications(r.Context(), h.Now())
	if err != nil {
		writeError(w, err)
		return
	}

	h.Dispatcher.Dispatch(r.Context(), report.Notifications)

	writeJSON(w, http.StatusOK, map[string]any{
		"notified": len(report.Notifications),
	})
}

type updateAllocationRequest struct {
	Days json.Number `json:"days"`
}

// UpdateRuleAllocation edits a rule's allocation, guarded against
// invalidating leave already taken.
// PUT /api/admin/rules/{id}/allocation
func (h *Handler) UpdateRuleAllocation(w http.ResponseWriter, r *http.Request) {
	ruleID := entitlement.RuleID(chi.URLParam(r, "id"))

	var req updateAllocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}
	days, err := decimal.NewFromString(req.Days.String())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "days must be a number"})
		return
	}

	if err := h.Engine.UpdateEntitlementRule(r.Context(), ruleID, days, h.Now()); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"updated": true})
}

// ListCycleRuns returns the reset run history, newest first.
// GET /api/runs?year=2026
func (h *Handler) ListCycleRuns(w http.ResponseWriter, r *http.Request) {
	year := 0
	if y := r.URL.Query().Get("year"); y != "" {
		parsed, err := strconv.Atoi(y)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "year must be an integer"})
			return
		}
		year = parsed
	}

	runs, err := h.Store.ListCycleRuns(r.Context(), year)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[API] failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case entitlement.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, map[string]any{"error": err.Error()})
	case errors.Is(err, entitlement.ErrLastChangedMissing):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": err.Error()})
	case errors.Is(err, entitlement.ErrAllocationBelowUsed):
		writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error()})
	default:
		log.Printf("[API] internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
	}
}
