package model

import "testing"

func TestCalculateBonus_DayShift(t *testing.T) {
	rules := DefaultBonusRules()

	tests := []struct {
		name       string
		level      int
		pct        float64
		orderTotal float64
		want       float64
	}{
		{name: "level 2 above threshold keeps full bonus", level: 2, pct: 10, orderTotal: 350, want: 2},
		{name: "level 2 below threshold withholds", level: 2, pct: 10, orderTotal: 100, want: 1.8},
		{name: "level 1 never withholds", level: 1, pct: 10, orderTotal: 50, want: 1},
		{name: "level 3 always withholds", level: 3, pct: 10, orderTotal: 500, want: 2.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Employee{Code: 1, Name: "day", Shift: ShiftDay, Level: tt.level, ShiftPct: tt.pct}

			got := e.CalculateBonus(tt.orderTotal, rules)
			if got != tt.want {
				t.Fatalf("CalculateBonus(%v) = %v, want %v", tt.orderTotal, got, tt.want)
			}
		})
	}
}

func TestCalculateBonus_NightShift(t *testing.T) {
	rules := DefaultBonusRules()

	tests := []struct {
		name       string
		level      int
		pct        float64
		orderTotal float64
		want       float64
	}{
		{name: "level 1 above threshold doubles base", level: 1, pct: 5, orderTotal: 250, want: 14.5},
		{name: "level 1 below threshold", level: 1, pct: 5, orderTotal: 100, want: 6},
		{name: "level 2 never doubles", level: 2, pct: 5, orderTotal: 250, want: 14.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Employee{Code: 2, Name: "night", Shift: ShiftNight, Level: tt.level, ShiftPct: tt.pct}

			got := e.CalculateBonus(tt.orderTotal, rules)
			if got != tt.want {
				t.Fatalf("CalculateBonus(%v) = %v, want %v", tt.orderTotal, got, tt.want)
			}
		})
	}
}

func TestCalculateBonus_AccumulatesProductivity(t *testing.T) {
	e := &Employee{Code: 1, Name: "day", Shift: ShiftDay, Level: 1, ShiftPct: 10}

	first := e.CalculateBonus(50, DefaultBonusRules())
	second := e.CalculateBonus(50, DefaultBonusRules())

	if e.Productivity != first+second {
		t.Fatalf("productivity = %v, want %v", e.Productivity, first+second)
	}
}

func TestCalculateBonus_ConfigurableThresholds(t *testing.T) {
	rules := BonusRules{DayThreshold: 100, NightThreshold: 100}

	day := &Employee{Code: 1, Shift: ShiftDay, Level: 2, ShiftPct: 10}
	if got := day.CalculateBonus(150, rules); got != 2 {
		t.Fatalf("day bonus with lowered threshold = %v, want 2", got)
	}

	night := &Employee{Code: 2, Shift: ShiftNight, Level: 1, ShiftPct: 0}
	if got := night.CalculateBonus(150, rules); got != 2 {
		t.Fatalf("night bonus with lowered threshold = %v, want 2", got)
	}
}
