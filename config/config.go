package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/minsukim/autotrader/types"
)

// RiskParams holds the per-market risk and sizing knobs. Values normally come
// from the settings provider; missing or unparsable entries fall back to the
// defaults below instead of failing the pass.
type RiskParams struct {
	// StopLossPct is a negative percentage, e.g. -5 means sell when the
	// position is down 5% from entry.
	StopLossPct float64
	// TrailingStartPct is the peak-profit percentage that must be reached
	// before the trailing stop is armed.
	TrailingStartPct float64
	// TrailingStopPct is a negative percentage drop from the high-water
	// price that triggers a trailing-stop sell once armed.
	TrailingStopPct float64

	MaxIndividual int
	MaxPool       int

	// MinCashRatio is the fraction of total assets that must remain as cash
	// after any prospective buy.
	MinCashRatio float64

	// OpenRatio and CloseRatio split a sized buy between the open window and
	// the close window. Together they must not exceed 1.0; any remainder is
	// simply not deployed.
	OpenRatio  float64
	CloseRatio float64

	// RebalanceDate is an optional MM-DD marker passed through from the
	// settings provider.
	RebalanceDate string
}

// DefaultRiskParams are the documented fallbacks used when the settings
// provider omits or mangles a value.
func DefaultRiskParams() RiskParams {
	return RiskParams{
		StopLossPct:      -5.0,
		TrailingStartPct: 5.0,
		TrailingStopPct:  -3.0,
		MaxIndividual:    5,
		MaxPool:          5,
		MinCashRatio:     0.1,
		OpenRatio:        0.5,
		CloseRatio:       0.5,
	}
}

func (r *RiskParams) Validate() error {
	if r.StopLossPct >= 0 {
		return fmt.Errorf("StopLossPct (%v) must be negative", r.StopLossPct)
	}
	if r.TrailingStartPct < 0 {
		return fmt.Errorf("TrailingStartPct (%v) cannot be negative", r.TrailingStartPct)
	}
	if r.TrailingStopPct >= 0 {
		return fmt.Errorf("TrailingStopPct (%v) must be negative", r.TrailingStopPct)
	}
	if r.MaxIndividual < 0 || r.MaxPool < 0 {
		return fmt.Errorf("holding limits cannot be negative")
	}
	if r.MinCashRatio < 0 || r.MinCashRatio >= 1 {
		return fmt.Errorf("MinCashRatio (%v) must be in [0,1)", r.MinCashRatio)
	}
	if r.OpenRatio < 0 || r.OpenRatio > 1 || r.CloseRatio < 0 || r.CloseRatio > 1 {
		return fmt.Errorf("split ratios must be within [0,1]")
	}
	if r.OpenRatio+r.CloseRatio > 1 {
		return fmt.Errorf("OpenRatio+CloseRatio (%v) exceeds 1.0", r.OpenRatio+r.CloseRatio)
	}
	return nil
}

// SymbolConfig identifies one tradable instrument and its strategy
// parameters. Immutable for a trading day; reloaded at session open.
type SymbolConfig struct {
	Market          types.Market
	Symbol          string
	Name            string
	Class           types.SymbolClass
	MAPeriod        int
	AllocationRatio float64 // fraction of total assets

	// Optional trading window, MM-DD inclusive on both ends. The window may
	// wrap across year-end (e.g. 11-01 .. 02-28). Empty strings disable the
	// window check.
	WindowStart string
	WindowEnd   string
}

func (s *SymbolConfig) Validate() error {
	if s.Symbol == "" {
		return fmt.Errorf("symbol code is required")
	}
	if s.MAPeriod <= 0 {
		return fmt.Errorf("%s: MAPeriod must be positive", s.Symbol)
	}
	if s.AllocationRatio <= 0 || s.AllocationRatio > 1 {
		return fmt.Errorf("%s: AllocationRatio (%v) must be in (0,1]", s.Symbol, s.AllocationRatio)
	}
	if (s.WindowStart == "") != (s.WindowEnd == "") {
		return fmt.Errorf("%s: trading window requires both start and end", s.Symbol)
	}
	if s.WindowStart != "" {
		if _, _, err := parseMonthDay(s.WindowStart); err != nil {
			return fmt.Errorf("%s: bad WindowStart: %w", s.Symbol, err)
		}
		if _, _, err := parseMonthDay(s.WindowEnd); err != nil {
			return fmt.Errorf("%s: bad WindowEnd: %w", s.Symbol, err)
		}
	}
	return nil
}

// InWindow reports whether t falls inside the symbol's trading window.
// Symbols without a window are always tradable.
func (s *SymbolConfig) InWindow(t time.Time) bool {
	if s.WindowStart == "" || s.WindowEnd == "" {
		return true
	}
	sm, sd, err := parseMonthDay(s.WindowStart)
	if err != nil {
		return true
	}
	em, ed, err := parseMonthDay(s.WindowEnd)
	if err != nil {
		return true
	}
	cur := int(t.Month())*100 + t.Day()
	start := sm*100 + sd
	end := em*100 + ed
	if start <= end {
		return cur >= start && cur <= end
	}
	// Window wraps across year-end.
	return cur >= start || cur <= end
}

func parseMonthDay(s string) (month, day int, err error) {
	if len(s) != 5 || s[2] != '-' {
		return 0, 0, fmt.Errorf("expected MM-DD, got %q", s)
	}
	month, err = strconv.Atoi(s[:2])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("bad month in %q", s)
	}
	day, err = strconv.Atoi(s[3:])
	if err != nil || day < 1 || day > 31 {
		return 0, 0, fmt.Errorf("bad day in %q", s)
	}
	return month, day, nil
}

// FloatOrDefault parses s as a float, returning def when s is empty or
// unparsable. Settings cells are free-form text, so a mangled ratio must not
// take down the whole pass.
func FloatOrDefault(s string, def float64) float64 {
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}

// IntOrDefault mirrors FloatOrDefault for integer settings.
func IntOrDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
