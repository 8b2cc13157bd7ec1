package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/minsukim/autotrader/types"
)

// Phase classifies a poll tick within the trading day. Exactly one phase
// holds per tick.
type Phase int

const (
	PhaseClosed Phase = iota
	PhaseOpenWindow
	PhaseIntraday
	PhaseCloseWindow
)

func (p Phase) String() string {
	switch p {
	case PhaseOpenWindow:
		return "open_window"
	case PhaseIntraday:
		return "intraday"
	case PhaseCloseWindow:
		return "close_window"
	default:
		return "closed"
	}
}

const (
	// openWindowLen is how long after session start new entries are placed.
	openWindowLen = 5 * time.Minute
	// closeWindowLead/closeWindowEnd bound the deferred-order window before
	// session end.
	closeWindowLead = 15 * time.Minute
	closeWindowEnd  = 5 * time.Minute
)

// HolidaySource answers whether a market trades on a given date. Weekends
// are handled locally; this covers exchange holidays.
type HolidaySource interface {
	IsSessionOpen(ctx context.Context, market types.Market, date time.Time) (bool, error)
}

// Session describes a market's regular trading hours in its home timezone.
type Session struct {
	Location    *time.Location
	OpenHour    int
	OpenMinute  int
	CloseHour   int
	CloseMinute int
}

// Bounds returns the session open and close instants for the given date.
func (s Session) Bounds(date time.Time) (open, close time.Time) {
	local := date.In(s.Location)
	y, m, d := local.Date()
	open = time.Date(y, m, d, s.OpenHour, s.OpenMinute, 0, 0, s.Location)
	close = time.Date(y, m, d, s.CloseHour, s.CloseMinute, 0, 0, s.Location)
	return open, close
}

// Calendar resolves session phases for the configured markets.
type Calendar struct {
	holidays HolidaySource
	sessions map[types.Market]Session
}

func New(holidays HolidaySource) (*Calendar, error) {
	seoul, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		return nil, fmt.Errorf("load Asia/Seoul: %w", err)
	}
	newYork, err := time.LoadLocation("America/New_York")
	if err != nil {
		return nil, fmt.Errorf("load America/New_York: %w", err)
	}
	return &Calendar{
		holidays: holidays,
		sessions: map[types.Market]Session{
			types.MarketKOR: {Location: seoul, OpenHour: 9, OpenMinute: 0, CloseHour: 15, CloseMinute: 30},
			types.MarketUSA: {Location: newYork, OpenHour: 9, OpenMinute: 30, CloseHour: 16, CloseMinute: 0},
		},
	}, nil
}

// Session returns the trading-hours definition for a market.
func (c *Calendar) Session(m types.Market) (Session, error) {
	s, ok := c.sessions[m]
	if !ok {
		return Session{}, fmt.Errorf("unknown market %q", m)
	}
	return s, nil
}

// LocalDate formats now as YYYY-MM-DD in the market's home timezone. Day
// rollover is driven by this value, not by session close.
func (c *Calendar) LocalDate(m types.Market, now time.Time) (string, error) {
	s, err := c.Session(m)
	if err != nil {
		return "", err
	}
	return now.In(s.Location).Format("2006-01-02"), nil
}

// PhaseAt classifies now for the market. Weekends and holidays are closed.
func (c *Calendar) PhaseAt(ctx context.Context, m types.Market, now time.Time) (Phase, error) {
	s, err := c.Session(m)
	if err != nil {
		return PhaseClosed, err
	}
	local := now.In(s.Location)
	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return PhaseClosed, nil
	}
	if c.holidays != nil {
		open, err := c.holidays.IsSessionOpen(ctx, m, local)
		if err != nil {
			return PhaseClosed, fmt.Errorf("holiday lookup: %w", err)
		}
		if !open {
			return PhaseClosed, nil
		}
	}
	open, close := s.Bounds(local)
	switch {
	case local.Before(open) || !local.Before(close):
		return PhaseClosed, nil
	case local.Before(open.Add(openWindowLen)):
		return PhaseOpenWindow, nil
	case !local.Before(close.Add(-closeWindowLead)) && local.Before(close.Add(-closeWindowEnd)):
		return PhaseCloseWindow, nil
	default:
		return PhaseIntraday, nil
	}
}
