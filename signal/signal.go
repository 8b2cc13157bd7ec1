package signal

import (
	"github.com/montanaflynn/stats"

	"github.com/minsukim/autotrader/types"
)

// Signal is the entry/exit direction derived from the moving-average
// comparison. Equality of close and MA yields no signal either way.
type Signal int

const (
	None Signal = iota
	Buy
	Sell
)

func (s Signal) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "none"
	}
}

// Result carries the evaluation outcome. When Sufficient is false no signal
// was derived; that is an expected condition, not an error.
type Result struct {
	Sufficient bool
	MA         float64
	Signal     Signal
}

// Evaluate computes the simple moving average over the `period` bars ending
// at the bar before the most recent one. The newest bar is excluded because
// it may belong to a session whose close is not confirmed yet; including it
// would leak look-ahead into the signal.
func Evaluate(bars []types.Bar, period int, prevClose float64) Result {
	if period <= 0 || len(bars) < period+1 {
		return Result{}
	}
	window := bars[len(bars)-1-period : len(bars)-1]
	closes := make([]float64, len(window))
	for i, b := range window {
		closes[i] = b.Close
	}
	ma, err := stats.Mean(closes)
	if err != nil {
		return Result{}
	}
	res := Result{Sufficient: true, MA: ma}
	switch {
	case prevClose > ma:
		res.Signal = Buy
	case prevClose < ma:
		res.Signal = Sell
	}
	return res
}
