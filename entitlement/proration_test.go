package entitlement_test

import (
	"testing"
	"time"

	"github.com/warp/leave-engine/entitlement"
)

func TestProrateHireAllocation(t *testing.T) {
	tests := []struct {
		name      string
		allocated float64
		hireMonth time.Month
		want      string
	}{
		{"january hire gets full year", 12, time.January, "12"},
		{"march hire gets ten months", 12, time.March, "10"},
		{"july hire gets half", 12, time.July, "6"},
		{"december hire gets one month", 12, time.December, "1"},
		{"fractional result rounds to cents", 20, time.March, "16.67"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := entitlement.ProrateHireAllocation(days(tt.allocated), tt.hireMonth)
			if got.String() != tt.want {
				t.Errorf("ProrateHireAllocation(%v, %v) = %s, want %s",
					tt.allocated, tt.hireMonth, got, tt.want)
			}
		})
	}
}

func TestBlendPromotionAllocation(t *testing.T) {
	tests := []struct {
		name        string
		old, new    float64
		changeMonth time.Month
		want        string
	}{
		// 15/12*6 + 18/12*6 = 7.5 + 9
		{"july promotion blends halves", 15, 18, time.July, "16.5"},
		// monthsBefore = 0: the general formula degenerates to the new rule
		{"january promotion takes new allocation in full", 15, 18, time.January, "18"},
		// monthsBefore = 11: almost all old
		{"december promotion keeps most of old", 12, 24, time.December, "13"},
		{"demotion blends downward", 24, 12, time.July, "18"},
		{"uneven months round to cents", 15, 17, time.April, "16.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := entitlement.BlendPromotionAllocation(days(tt.old), days(tt.new), tt.changeMonth)
			if got.String() != tt.want {
				t.Errorf("BlendPromotionAllocation(%v, %v, %v) = %s, want %s",
					tt.old, tt.new, tt.changeMonth, got, tt.want)
			}
		})
	}
}
