package engine

import (
	"math"

	"github.com/minsukim/autotrader/types"
)

// MarketAdapter supplies the few things that genuinely differ between the
// two markets. Everything else (phases, sizing, risk, retries) runs
// through the one generic engine.
type MarketAdapter interface {
	Market() types.Market
	Currency() string
	// RoundPrice snaps a price onto the market's quotation unit.
	RoundPrice(p float64) float64
}

type korAdapter struct{}

func NewKORAdapter() MarketAdapter { return korAdapter{} }

func (korAdapter) Market() types.Market { return types.MarketKOR }
func (korAdapter) Currency() string     { return "KRW" }

// Korean equities quote in whole won.
func (korAdapter) RoundPrice(p float64) float64 { return math.Round(p) }

type usaAdapter struct{}

func NewUSAAdapter() MarketAdapter { return usaAdapter{} }

func (usaAdapter) Market() types.Market { return types.MarketUSA }
func (usaAdapter) Currency() string     { return "USD" }

// US equities quote in cents.
func (usaAdapter) RoundPrice(p float64) float64 { return math.Round(p*100) / 100 }
