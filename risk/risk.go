package risk

import (
	"sort"

	"github.com/minsukim/autotrader/config"
	"github.com/minsukim/autotrader/types"
)

// Position is the engine-owned record for one held symbol. It is merged with
// each balance snapshot rather than annotated onto API responses.
type Position struct {
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name,omitempty"`
	Entry     float64 `json:"entry"`
	Qty       int64   `json:"qty"`
	HighWater float64 `json:"high_water"` // never decreases while held
}

// Action is the risk-overlay verdict for one price observation.
type Action int

const (
	ActionNone Action = iota
	ActionStopLoss
	ActionTrailingStop
)

func (a Action) String() string {
	switch a {
	case ActionStopLoss:
		return "stop_loss"
	case ActionTrailingStop:
		return "trailing_stop"
	default:
		return "none"
	}
}

// Tracker evaluates stop-loss and trailing-stop conditions for held
// positions. It is owned by a single engine; no locking.
type Tracker struct {
	params    config.RiskParams
	positions map[string]*Position
}

func NewTracker(params config.RiskParams) *Tracker {
	return &Tracker{
		params:    params,
		positions: make(map[string]*Position),
	}
}

// SetParams swaps in freshly loaded risk parameters at session open.
func (t *Tracker) SetParams(params config.RiskParams) { t.params = params }

// Open records a fill. Adding to an existing position recomputes the
// weighted entry; the high-water mark is kept wherever it already is.
func (t *Tracker) Open(symbol, name string, entry float64, qty int64) {
	if qty <= 0 || entry <= 0 {
		return
	}
	pos, ok := t.positions[symbol]
	if !ok {
		t.positions[symbol] = &Position{
			Symbol:    symbol,
			Name:      name,
			Entry:     entry,
			Qty:       qty,
			HighWater: entry,
		}
		return
	}
	total := pos.Qty + qty
	pos.Entry = (pos.Entry*float64(pos.Qty) + entry*float64(qty)) / float64(total)
	pos.Qty = total
	if pos.HighWater < pos.Entry {
		pos.HighWater = pos.Entry
	}
}

// Merge reconciles the tracker with a balance snapshot: holdings the tracker
// has never seen are adopted (entry = purchase average), quantities are
// synced, and symbols no longer held are dropped.
func (t *Tracker) Merge(bal types.Balance) {
	held := make(map[string]bool, len(bal.Holdings))
	for _, h := range bal.Holdings {
		if h.Quantity <= 0 {
			continue
		}
		held[h.Symbol] = true
		pos, ok := t.positions[h.Symbol]
		if !ok {
			t.positions[h.Symbol] = &Position{
				Symbol:    h.Symbol,
				Name:      h.Name,
				Entry:     h.AvgPrice,
				Qty:       h.Quantity,
				HighWater: h.AvgPrice,
			}
			continue
		}
		pos.Qty = h.Quantity
		if h.Name != "" {
			pos.Name = h.Name
		}
	}
	for sym := range t.positions {
		if !held[sym] {
			delete(t.positions, sym)
		}
	}
}

// Evaluate applies one live price to a held position. Stop-loss is checked
// first and short-circuits the trailing logic; the ratchet and the trailing
// check only run when stop-loss did not fire. The trailing stop stays
// disarmed until peak profit, recomputed from the high-water mark each tick,
// has reached TrailingStartPct.
func (t *Tracker) Evaluate(symbol string, current float64) Action {
	pos, ok := t.positions[symbol]
	if !ok || current <= 0 || pos.Entry <= 0 {
		return ActionNone
	}

	lossPct := (current - pos.Entry) / pos.Entry * 100
	if lossPct <= t.params.StopLossPct {
		return ActionStopLoss
	}

	if current > pos.HighWater {
		pos.HighWater = current
		return ActionNone
	}

	peakPct := (pos.HighWater - pos.Entry) / pos.Entry * 100
	if peakPct < t.params.TrailingStartPct {
		return ActionNone
	}
	dropPct := (current - pos.HighWater) / pos.HighWater * 100
	if dropPct <= t.params.TrailingStopPct {
		return ActionTrailingStop
	}
	return ActionNone
}

// Close removes the position and returns the realized P&L at exitPrice.
func (t *Tracker) Close(symbol string, exitPrice float64) (realized float64, qty int64) {
	pos, ok := t.positions[symbol]
	if !ok {
		return 0, 0
	}
	realized = (exitPrice - pos.Entry) * float64(pos.Qty)
	qty = pos.Qty
	delete(t.positions, symbol)
	return realized, qty
}

// Get returns a copy of the tracked position, if any.
func (t *Tracker) Get(symbol string) (Position, bool) {
	pos, ok := t.positions[symbol]
	if !ok {
		return Position{}, false
	}
	return *pos, true
}

// Held reports how many tracked symbols belong to the given set.
func (t *Tracker) Held(symbols map[string]bool) int {
	n := 0
	for sym := range t.positions {
		if symbols[sym] {
			n++
		}
	}
	return n
}

// Positions returns the tracked positions sorted by symbol, for
// deterministic persistence.
func (t *Tracker) Positions() []Position {
	out := make([]Position, 0, len(t.positions))
	for _, pos := range t.positions {
		out = append(out, *pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Restore reloads persisted positions, e.g. after a process restart.
func (t *Tracker) Restore(positions []Position) {
	t.positions = make(map[string]*Position, len(positions))
	for i := range positions {
		pos := positions[i]
		if pos.HighWater < pos.Entry {
			pos.HighWater = pos.Entry
		}
		t.positions[pos.Symbol] = &pos
	}
}
