package calendar

import (
	"context"
	"testing"
	"time"

	"github.com/minsukim/autotrader/types"
)

type fakeHolidays struct {
	open bool
}

func (f fakeHolidays) IsSessionOpen(context.Context, types.Market, time.Time) (bool, error) {
	return f.open, nil
}

func mustCal(t *testing.T, open bool) *Calendar {
	t.Helper()
	c, err := New(fakeHolidays{open: open})
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	return c
}

func korTime(t *testing.T, hour, min int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		t.Fatal(err)
	}
	// 2025-03-10 is a Monday.
	return time.Date(2025, 3, 10, hour, min, 0, 0, loc)
}

func TestPhaseKOR(t *testing.T) {
	c := mustCal(t, true)
	ctx := context.Background()

	cases := []struct {
		hour, min int
		want      Phase
	}{
		{8, 59, PhaseClosed},
		{9, 0, PhaseOpenWindow},
		{9, 4, PhaseOpenWindow},
		{9, 5, PhaseIntraday},
		{12, 0, PhaseIntraday},
		{15, 14, PhaseIntraday},
		{15, 15, PhaseCloseWindow},
		{15, 24, PhaseCloseWindow},
		{15, 25, PhaseIntraday},
		{15, 30, PhaseClosed},
	}
	for _, tc := range cases {
		got, err := c.PhaseAt(ctx, types.MarketKOR, korTime(t, tc.hour, tc.min))
		if err != nil {
			t.Fatalf("%02d:%02d: %v", tc.hour, tc.min, err)
		}
		if got != tc.want {
			t.Fatalf("%02d:%02d: expected %v, got %v", tc.hour, tc.min, tc.want, got)
		}
	}
}

func TestPhaseWeekendClosed(t *testing.T) {
	c := mustCal(t, true)
	loc, _ := time.LoadLocation("Asia/Seoul")
	saturday := time.Date(2025, 3, 8, 10, 0, 0, 0, loc)
	got, err := c.PhaseAt(context.Background(), types.MarketKOR, saturday)
	if err != nil {
		t.Fatal(err)
	}
	if got != PhaseClosed {
		t.Fatalf("Saturday must be closed, got %v", got)
	}
}

func TestPhaseHolidayClosed(t *testing.T) {
	c := mustCal(t, false)
	got, err := c.PhaseAt(context.Background(), types.MarketKOR, korTime(t, 10, 0))
	if err != nil {
		t.Fatal(err)
	}
	if got != PhaseClosed {
		t.Fatalf("holiday must be closed, got %v", got)
	}
}

func TestPhaseUSA(t *testing.T) {
	c := mustCal(t, true)
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}
	// Close window is 15:45..15:55 ET on a 16:00 close.
	at := time.Date(2025, 3, 10, 15, 50, 0, 0, loc)
	got, err := c.PhaseAt(context.Background(), types.MarketUSA, at)
	if err != nil {
		t.Fatal(err)
	}
	if got != PhaseCloseWindow {
		t.Fatalf("expected close window, got %v", got)
	}
}

func TestLocalDateUsesMarketTimezone(t *testing.T) {
	c := mustCal(t, true)
	// 23:30 UTC on March 10 is already March 11 in Seoul but still
	// March 10 in New York.
	at := time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC)
	kor, err := c.LocalDate(types.MarketKOR, at)
	if err != nil {
		t.Fatal(err)
	}
	usa, err := c.LocalDate(types.MarketUSA, at)
	if err != nil {
		t.Fatal(err)
	}
	if kor != "2025-03-11" {
		t.Fatalf("KOR date: %s", kor)
	}
	if usa != "2025-03-10" {
		t.Fatalf("USA date: %s", usa)
	}
}

func TestUnknownMarket(t *testing.T) {
	c := mustCal(t, true)
	if _, err := c.PhaseAt(context.Background(), types.Market("JPN"), korTime(t, 10, 0)); err == nil {
		t.Fatal("expected an error for an unknown market")
	}
}
