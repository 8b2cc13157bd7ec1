package config

import (
	"testing"
	"time"
)

func TestRiskParamsValidate(t *testing.T) {
	good := DefaultRiskParams()
	if err := good.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*RiskParams)
	}{
		{"positive stop loss", func(p *RiskParams) { p.StopLossPct = 5 }},
		{"zero stop loss", func(p *RiskParams) { p.StopLossPct = 0 }},
		{"negative trailing start", func(p *RiskParams) { p.TrailingStartPct = -1 }},
		{"positive trailing stop", func(p *RiskParams) { p.TrailingStopPct = 3 }},
		{"negative holding limit", func(p *RiskParams) { p.MaxIndividual = -1 }},
		{"cash ratio out of range", func(p *RiskParams) { p.MinCashRatio = 1 }},
		{"split ratio out of range", func(p *RiskParams) { p.OpenRatio = 1.2 }},
		{"split ratios exceed one", func(p *RiskParams) { p.OpenRatio = 0.7; p.CloseRatio = 0.7 }},
	}
	for _, tc := range cases {
		p := DefaultRiskParams()
		tc.mutate(&p)
		if err := p.Validate(); err == nil {
			t.Errorf("%s: expected a validation error", tc.name)
		}
	}
}

func TestSymbolConfigValidate(t *testing.T) {
	good := SymbolConfig{Symbol: "005930", MAPeriod: 5, AllocationRatio: 0.1}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	bad := []SymbolConfig{
		{MAPeriod: 5, AllocationRatio: 0.1},                                                 // no symbol
		{Symbol: "005930", MAPeriod: 0, AllocationRatio: 0.1},                               // zero period
		{Symbol: "005930", MAPeriod: 5, AllocationRatio: 0},                                 // zero allocation
		{Symbol: "005930", MAPeriod: 5, AllocationRatio: 1.5},                               // allocation > 1
		{Symbol: "005930", MAPeriod: 5, AllocationRatio: 0.1, WindowStart: "04-01"},         // half a window
		{Symbol: "005930", MAPeriod: 5, AllocationRatio: 0.1, WindowStart: "4-1", WindowEnd: "05-31"},
		{Symbol: "005930", MAPeriod: 5, AllocationRatio: 0.1, WindowStart: "04-01", WindowEnd: "13-01"},
	}
	for i, cfg := range bad {
		if err := cfg.Validate(); err == nil {
			t.Errorf("case %d: expected a validation error for %+v", i, cfg)
		}
	}
}

func TestInWindow(t *testing.T) {
	at := func(month time.Month, day int) time.Time {
		return time.Date(2025, month, day, 12, 0, 0, 0, time.UTC)
	}

	plain := SymbolConfig{WindowStart: "04-01", WindowEnd: "05-31"}
	if !plain.InWindow(at(time.April, 1)) || !plain.InWindow(at(time.May, 31)) {
		t.Fatal("window bounds are inclusive")
	}
	if plain.InWindow(at(time.March, 31)) || plain.InWindow(at(time.June, 1)) {
		t.Fatal("dates outside the window must be rejected")
	}

	wrapped := SymbolConfig{WindowStart: "11-01", WindowEnd: "02-28"}
	if !wrapped.InWindow(at(time.December, 25)) || !wrapped.InWindow(at(time.January, 15)) {
		t.Fatal("a year-end wrap covers both sides of the boundary")
	}
	if wrapped.InWindow(at(time.June, 15)) {
		t.Fatal("mid-year date is outside a wrapped window")
	}

	open := SymbolConfig{}
	if !open.InWindow(at(time.June, 15)) {
		t.Fatal("a symbol without a window is always tradable")
	}
}

func TestFallbackParsers(t *testing.T) {
	if got := FloatOrDefault("0.25", 1); got != 0.25 {
		t.Fatalf("FloatOrDefault = %v", got)
	}
	if got := FloatOrDefault("", 1); got != 1 {
		t.Fatalf("empty string must fall back, got %v", got)
	}
	if got := FloatOrDefault("abc", 1); got != 1 {
		t.Fatalf("garbage must fall back, got %v", got)
	}
	if got := IntOrDefault("7", 3); got != 7 {
		t.Fatalf("IntOrDefault = %v", got)
	}
	if got := IntOrDefault("7.5", 3); got != 3 {
		t.Fatalf("non-integer must fall back, got %v", got)
	}
}
