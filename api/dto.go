package api

import "github.com/warp/leave-engine/entitlement"

// balanceDTO renders day counts as fixed two-decimal strings so the
// frontend never touches floating point.
type balanceDTO struct {
	EmployeeID    string `json:"employee_id"`
	LeaveTypeID   string `json:"leave_type_id"`
	EntitledDays  string `json:"entitled_days"`
	UsedDays      string `json:"used_days"`
	RemainingDays string `json:"remaining_days"`
	CarryoverDays string `json:"carryover_days"`
	ForfeitedDays string `json:"forfeited_days"`
	LastResetYear *int   `json:"last_reset_year,omitempty"`
}

func toBalanceDTO(b entitlement.Balance) balanceDTO {
	return balanceDTO{
		EmployeeID:    string(b.EmployeeID),
		LeaveTypeID:   string(b.LeaveTypeID),
		EntitledDays:  b.EntitledDays.StringFixed(2),
		UsedDays:      b.UsedDays.StringFixed(2),
		RemainingDays: b.RemainingDays.StringFixed(2),
		CarryoverDays: b.CarryoverDays.StringFixed(2),
		ForfeitedDays: b.ForfeitedDays.StringFixed(2),
		LastResetYear: b.LastResetYear,
	}
}

func balanceDTOs(bs []entitlement.Balance) []balanceDTO {
	out := make([]balanceDTO, 0, len(bs))
	for _, b := range bs {
		out = append(out, toBalanceDTO(b))
	}
	return out
}
