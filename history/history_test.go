package history

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/minsukim/autotrader/types"
)

func TestRecordWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	s := NewCSVStore(path)

	when := time.Date(2025, 3, 10, 9, 2, 0, 0, time.UTC)
	buy := types.TradeEvent{
		Time: when, Market: types.MarketKOR, Symbol: "005930", Name: "Samsung Electronics",
		Side: types.Buy, Qty: 70, Price: 1000, Reason: "ma_buy_open",
	}
	sell := types.TradeEvent{
		Time: when.Add(3 * time.Hour), Market: types.MarketKOR, Symbol: "005930",
		Name: "Samsung Electronics", Side: types.Sell, Qty: 70, Price: 940,
		RealizedPnL: -4200, Reason: "stop_loss",
	}

	if err := s.Record(buy); err != nil {
		t.Fatal(err)
	}
	if err := s.Record(sell); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus two rows, got %d lines:\n%s", len(lines), data)
	}
	if !strings.HasPrefix(lines[0], "time,market,symbol") {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if strings.Count(string(data), "time,market") != 1 {
		t.Fatal("the header must only be written for a new file")
	}
	if !strings.Contains(lines[1], "BUY") || !strings.Contains(lines[1], "2025-03-10T09:02:00Z") {
		t.Fatalf("unexpected buy row %q", lines[1])
	}
	if !strings.Contains(lines[2], "stop_loss") || !strings.Contains(lines[2], "-4200") {
		t.Fatalf("unexpected sell row %q", lines[2])
	}
}

func TestRecordCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	s := NewCSVStore(path)
	ev := types.TradeEvent{
		Time: time.Now(), Market: types.MarketUSA, Symbol: "AAPL",
		Side: types.Buy, Qty: 5, Price: 180,
	}
	if err := s.Record(ev); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("journal file missing: %v", err)
	}
}
