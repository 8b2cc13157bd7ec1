package sizing

import (
	"errors"
	"math"
)

// Plan is the result of sizing one buy: the open-window tranche and the
// remainder deferred to the close window. OpenQty+PendingQty == TotalQty.
type Plan struct {
	TotalQty   int64
	OpenQty    int64
	PendingQty int64
}

// Split converts an allocation ratio and available capital into share
// quantities. ok is false when the allocation buys zero shares; that is the
// "insufficient funds" outcome, logged and skipped rather than raised.
func Split(totalAssets, allocationRatio, price, openRatio float64) (Plan, bool) {
	if price <= 0 || allocationRatio <= 0 || totalAssets <= 0 {
		return Plan{}, false
	}
	totalQty := int64(math.Floor(totalAssets * allocationRatio / price))
	if totalQty <= 0 {
		return Plan{}, false
	}
	openQty := int64(math.Floor(float64(totalQty) * openRatio))
	return Plan{
		TotalQty:   totalQty,
		OpenQty:    openQty,
		PendingQty: totalQty - openQty,
	}, true
}

// Buy vetoes, checked before any order is placed.
var (
	ErrSoldToday = errors.New("symbol already sold today")
	ErrClassFull = errors.New("held-symbol limit for class reached")
	ErrCashFloor = errors.New("buy would breach the cash reserve floor")
)

// VetoInput captures everything the pre-sizing checks need.
type VetoInput struct {
	SoldToday   bool
	HeldInClass int
	MaxInClass  int
	// Cash floor: cash remaining after the prospective buy must stay at or
	// above MinCashRatio*TotalAssets.
	CashAvailable float64
	BuyCost       float64
	TotalAssets   float64
	MinCashRatio  float64
}

// CheckVetoes returns the first veto that applies, or nil.
func CheckVetoes(in VetoInput) error {
	if in.SoldToday {
		return ErrSoldToday
	}
	// A maximum of zero blocks every buy in the class rather than lifting
	// the cap.
	if in.HeldInClass >= in.MaxInClass {
		return ErrClassFull
	}
	if in.CashAvailable-in.BuyCost < in.MinCashRatio*in.TotalAssets {
		return ErrCashFloor
	}
	return nil
}
