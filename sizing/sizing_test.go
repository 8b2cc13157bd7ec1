package sizing

import (
	"errors"
	"testing"
)

func TestSplitSevenThirty(t *testing.T) {
	plan, ok := Split(1_000_000, 0.1, 1000, 0.7)
	if !ok {
		t.Fatal("expected a successful sizing")
	}
	if plan.TotalQty != 100 || plan.OpenQty != 70 || plan.PendingQty != 30 {
		t.Fatalf("expected 100/70/30, got %+v", plan)
	}
	if plan.OpenQty+plan.PendingQty != plan.TotalQty {
		t.Fatalf("tranches must sum to total: %+v", plan)
	}
}

func TestSplitFloorsQuantities(t *testing.T) {
	plan, ok := Split(1_000_000, 0.1, 999, 0.5)
	if !ok {
		t.Fatal("expected a successful sizing")
	}
	// 100100.1/999 = 100.2 -> 100 total, 50 open.
	if plan.TotalQty != 100 || plan.OpenQty != 50 || plan.PendingQty != 50 {
		t.Fatalf("unexpected plan %+v", plan)
	}
}

func TestSplitInsufficientFunds(t *testing.T) {
	if _, ok := Split(10_000, 0.01, 1000, 0.7); ok {
		t.Fatal("allocation buying zero shares must not be ok")
	}
	if _, ok := Split(0, 0.1, 1000, 0.7); ok {
		t.Fatal("zero assets must not be ok")
	}
	if _, ok := Split(1_000_000, 0.1, 0, 0.7); ok {
		t.Fatal("zero price must not be ok")
	}
}

func TestVetoSoldToday(t *testing.T) {
	err := CheckVetoes(VetoInput{SoldToday: true})
	if !errors.Is(err, ErrSoldToday) {
		t.Fatalf("expected sold-today veto, got %v", err)
	}
}

func TestVetoClassFull(t *testing.T) {
	err := CheckVetoes(VetoInput{HeldInClass: 5, MaxInClass: 5, CashAvailable: 1e9})
	if !errors.Is(err, ErrClassFull) {
		t.Fatalf("expected class-full veto, got %v", err)
	}
}

func TestVetoClassLimitZeroBlocksAll(t *testing.T) {
	err := CheckVetoes(VetoInput{HeldInClass: 0, MaxInClass: 0, CashAvailable: 1e9})
	if !errors.Is(err, ErrClassFull) {
		t.Fatalf("a zero class limit must veto every buy, got %v", err)
	}
}

func TestVetoCashFloor(t *testing.T) {
	// cash 150k - cost 100k = 50k, below 10% of 1m.
	err := CheckVetoes(VetoInput{
		MaxInClass:    5,
		CashAvailable: 150_000,
		BuyCost:       100_000,
		TotalAssets:   1_000_000,
		MinCashRatio:  0.1,
	})
	if !errors.Is(err, ErrCashFloor) {
		t.Fatalf("expected cash-floor veto, got %v", err)
	}
}

func TestNoVeto(t *testing.T) {
	err := CheckVetoes(VetoInput{
		HeldInClass:   2,
		MaxInClass:    5,
		CashAvailable: 500_000,
		BuyCost:       100_000,
		TotalAssets:   1_000_000,
		MinCashRatio:  0.1,
	})
	if err != nil {
		t.Fatalf("expected no veto, got %v", err)
	}
}
