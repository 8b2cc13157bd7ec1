package signal

import (
	"testing"
	"time"

	"github.com/minsukim/autotrader/types"
)

func mkBars(closes ...float64) []types.Bar {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.Bar, len(closes))
	for i, c := range closes {
		bars[i] = types.Bar{Date: base.AddDate(0, 0, i), Close: c}
	}
	return bars
}

func TestEvaluateExcludesNewestBar(t *testing.T) {
	// The newest bar closes at 2000; if it leaked into the MA the average
	// would jump far above prevClose and flip the signal.
	bars := mkBars(10, 10, 10, 10, 2000)
	res := Evaluate(bars, 4, 11)
	if !res.Sufficient {
		t.Fatal("expected sufficient data")
	}
	if res.MA != 10 {
		t.Fatalf("MA should average the four bars before the newest, got %v", res.MA)
	}
	if res.Signal != Buy {
		t.Fatalf("prevClose 11 > MA 10 should be a buy, got %v", res.Signal)
	}
}

func TestEvaluateSellBelowMA(t *testing.T) {
	bars := mkBars(100, 100, 100, 50)
	res := Evaluate(bars, 3, 99)
	if res.Signal != Sell {
		t.Fatalf("prevClose 99 < MA 100 should be a sell, got %v", res.Signal)
	}
}

func TestEvaluateEqualityIsNoSignal(t *testing.T) {
	bars := mkBars(100, 100, 100, 123)
	res := Evaluate(bars, 3, 100)
	if !res.Sufficient {
		t.Fatal("expected sufficient data")
	}
	if res.Signal != None {
		t.Fatalf("prevClose == MA must yield no signal, got %v", res.Signal)
	}
}

func TestEvaluateInsufficientHistory(t *testing.T) {
	// period bars are not enough: one extra is needed because the newest
	// bar is excluded.
	bars := mkBars(1, 2, 3)
	res := Evaluate(bars, 3, 10)
	if res.Sufficient {
		t.Fatal("period+0 bars must report insufficient data")
	}
	if res.Signal != None {
		t.Fatalf("no signal expected on insufficient data, got %v", res.Signal)
	}
}

func TestEvaluateBadPeriod(t *testing.T) {
	if res := Evaluate(mkBars(1, 2, 3), 0, 10); res.Sufficient {
		t.Fatal("non-positive period must not evaluate")
	}
}
