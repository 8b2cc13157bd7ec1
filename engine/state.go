package engine

import (
	"github.com/minsukim/autotrader/risk"
	"github.com/minsukim/autotrader/types"
)

// DailyState is the one-per-market execution state for the current trading
// day. The observed wall-clock date changing is the sole reset trigger, so a
// missed close window can never wedge the state.
type DailyState struct {
	Date           string                    `json:"date"` // YYYY-MM-DD in the market's timezone
	OpenExecuted   bool                      `json:"open_executed"`
	CloseExecuted  bool                      `json:"close_executed"`
	FirstExecution bool                      `json:"first_execution"`
	Pending        []types.PendingCloseOrder `json:"pending"`
	SoldToday      map[string]bool           `json:"sold_today"`
}

func newDailyState(date string) DailyState {
	return DailyState{Date: date, SoldToday: make(map[string]bool)}
}

// snapshot is what gets persisted after every state mutation so a restart
// resumes without re-issuing or losing orders.
type snapshot struct {
	State     DailyState      `json:"state"`
	Positions []risk.Position `json:"positions"`
}
